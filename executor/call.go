package executor

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// redactedParams never appear in logs, but still feed the cache key so
// responses fetched under different credentials stay apart.
var redactedParams = map[string]bool{
	"key":          true,
	"access_token": true,
	"oauth_token":  true,
}

// Call identifies one raw provider request.
type Call struct {
	Resource string
	Method   string
	Params   map[string]string
}

func (c Call) sortedParamNames() []string {
	names := make([]string, 0, len(c.Params))
	for name := range c.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Key returns the cache key for the call. Parameter order does not matter.
func (c Call) Key() string {
	h := sha256.New()
	h.Write([]byte(c.Resource))
	h.Write([]byte{0})
	h.Write([]byte(c.Method))
	for _, name := range c.sortedParamNames() {
		h.Write([]byte{0})
		h.Write([]byte(name))
		h.Write([]byte{'='})
		h.Write([]byte(c.Params[name]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// String renders the call for logs with credentials redacted.
func (c Call) String() string {
	var sb strings.Builder
	sb.WriteString(c.Resource)
	sb.WriteByte('.')
	sb.WriteString(c.Method)
	sb.WriteByte('(')
	for i, name := range c.sortedParamNames() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		if redactedParams[name] {
			sb.WriteString("REDACTED")
		} else {
			sb.WriteString(c.Params[name])
		}
	}
	sb.WriteByte(')')
	return sb.String()
}
