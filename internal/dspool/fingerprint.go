package dspool

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// fingerprint computes hash(datasourceID ‖ canonical(config)) so that an
// edited connection_config never hands out a handle bound to stale
// credentials, even though the datasource id is unchanged.
func fingerprint(datasourceID string, config map[string]any) string {
	h := sha256.New()
	h.Write([]byte(datasourceID))
	h.Write([]byte{0})
	h.Write([]byte(canonicalJSON(config)))
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalJSON produces a stable byte representation of a config map by
// sorting keys recursively before marshaling, so semantically identical
// configs with different key orders fingerprint the same.
func canonicalJSON(v any) string {
	b, _ := json.Marshal(sortedValue(v))
	return string(b)
}

func sortedValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			out = append(out, [2]any{k, sortedValue(t[k])})
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = sortedValue(e)
		}
		return out
	default:
		return t
	}
}
