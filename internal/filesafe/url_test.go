package filesafe

import "testing"

func TestCheckDownloadURL_SchemeRejected(t *testing.T) {
	tests := []string{
		"ftp://example.com/file",
		"file:///etc/passwd",
		"javascript:alert(1)",
	}
	for _, raw := range tests {
		if _, err := CheckDownloadURL(raw); err == nil {
			t.Errorf("CheckDownloadURL(%q) = nil error, want rejection", raw)
		}
	}
}

func TestCheckDownloadURL_LoopbackRejected(t *testing.T) {
	tests := []string{
		"http://127.0.0.1/admin",
		"http://localhost/admin",
		"http://[::1]/admin",
	}
	for _, raw := range tests {
		if _, err := CheckDownloadURL(raw); err == nil {
			t.Errorf("CheckDownloadURL(%q) = nil error, want rejection", raw)
		}
	}
}

func TestCheckDownloadURL_PrivateRangeRejected(t *testing.T) {
	tests := []string{
		"http://10.0.0.5/internal",
		"http://192.168.1.1/router",
		"http://172.16.0.1/",
	}
	for _, raw := range tests {
		if _, err := CheckDownloadURL(raw); err == nil {
			t.Errorf("CheckDownloadURL(%q) = nil error, want rejection", raw)
		}
	}
}

func TestCheckDownloadURL_NoHost(t *testing.T) {
	if _, err := CheckDownloadURL("http://"); err == nil {
		t.Error("expected error for URL with no host")
	}
}
