// Package headers handles the extra request headers of a browser session.
package headers

import (
	"net/textproto"
	"strings"
)

// ParseHeaders converts "Key: Value" strings into a map. Keys are
// canonicalized; entries without a colon or with an empty key are dropped.
func ParseHeaders(h []string) map[string]string {
	m := make(map[string]string)
	for _, hdr := range h {
		k, v, ok := strings.Cut(hdr, ":")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			continue
		}
		m[textproto.CanonicalMIMEHeaderKey(k)] = strings.TrimSpace(v)
	}
	return m
}

// Merge returns base overlaid with over. Neither input is modified.
func Merge(base, over map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}
