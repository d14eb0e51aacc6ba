package bridge

import (
	"net/textproto"
	"strings"
)

// Header is a case-insensitive mapping of header names to values. Keys
// written through Set and Add are stored in canonical MIME form. Repeated
// headers are carried as a single comma-joined value.
type Header map[string]string

// CanonicalHeaderKey returns the canonical form of a header name, e.g.
// "x-auth-token" becomes "X-Auth-Token".
func CanonicalHeaderKey(key string) string {
	return textproto.CanonicalMIMEHeaderKey(key)
}

// Get returns the value for key, matching case-insensitively.
func (h Header) Get(key string) string {
	if v, ok := h.lookup(key); ok {
		return v
	}
	return ""
}

// Has reports whether key is present.
func (h Header) Has(key string) bool {
	_, ok := h.lookup(key)
	return ok
}

func (h Header) lookup(key string) (string, bool) {
	if h == nil {
		return "", false
	}
	if v, ok := h[CanonicalHeaderKey(key)]; ok {
		return v, true
	}
	// Keys assigned directly through the map may not be canonical.
	for k, v := range h {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// Set replaces any value stored for key.
func (h Header) Set(key, value string) {
	h.Del(key)
	h[CanonicalHeaderKey(key)] = value
}

// Add appends value to any existing value for key, separated by ", ".
func (h Header) Add(key, value string) {
	if prev, ok := h.lookup(key); ok && prev != "" {
		value = prev + ", " + value
	}
	h.Set(key, value)
}

// AddToken appends token to the comma-separated list under key unless the
// list already holds it, compared case-insensitively.
func (h Header) AddToken(key, token string) {
	for t := range strings.SplitSeq(h.Get(key), ",") {
		if strings.EqualFold(strings.TrimSpace(t), token) {
			return
		}
	}
	h.Add(key, token)
}

// Del removes key, matching case-insensitively.
func (h Header) Del(key string) {
	delete(h, CanonicalHeaderKey(key))
	for k := range h {
		if strings.EqualFold(k, key) {
			delete(h, k)
		}
	}
}

// Clone returns a copy of h. Clone of a nil Header is an empty Header.
func (h Header) Clone() Header {
	out := make(Header, len(h))
	for k, v := range h {
		out[CanonicalHeaderKey(k)] = v
	}
	return out
}

// ValidHeaderName reports whether name consists only of ASCII letters,
// digits and hyphens.
func ValidHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
		default:
			return false
		}
	}
	return true
}

// ValidHeaderValue reports whether value contains only horizontal tab,
// space and visible ASCII.
func ValidHeaderValue(value string) bool {
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c != '\t' && c != ' ' && (c < 0x21 || c > 0x7e) {
			return false
		}
	}
	return true
}
