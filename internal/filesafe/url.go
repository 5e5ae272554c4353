package filesafe

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

var privateBlocks = []string{
	"127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16",
	"169.254.0.0/16", "::1/128", "fc00::/7", "fe80::/10",
}

var parsedPrivateBlocks = mustParseCIDRs(privateBlocks)

func mustParseCIDRs(cidrs []string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}

// CheckDownloadURL enforces the file_download_url allow-list: HTTP/HTTPS
// only, no loopback, RFC-1918, link-local, or file:// targets.
func CheckDownloadURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("url scheme %q is not allowed", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("url has no host")
	}
	if strings.EqualFold(host, "localhost") {
		return nil, fmt.Errorf("url host %q is not allowed", host)
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		// Host literal may already be an IP; net.LookupIP handles that too,
		// so a real failure here means the host genuinely doesn't resolve.
		return nil, fmt.Errorf("cannot resolve host %q: %w", host, err)
	}
	for _, ip := range ips {
		if isBlockedIP(ip) {
			return nil, fmt.Errorf("url host %q resolves to a blocked address", host)
		}
	}
	return u, nil
}

func isBlockedIP(ip net.IP) bool {
	for _, block := range parsedPrivateBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}
