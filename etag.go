package bridge

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// ETagConfig configures the ETag middleware.
type ETagConfig struct {
	Weak bool // use weak ETags
}

// ETag returns middleware that tags successful GET and HEAD responses and
// answers conditional requests: a matching If-None-Match yields 304 and a
// failing If-Match yields 412.
func ETag(cfg ...ETagConfig) Middleware {
	c := ETagConfig{}
	if len(cfg) > 0 {
		c = cfg[0]
	}

	return After("etag", func(req *Request, resp *Response) (*Response, error) {
		if req.Method != MethodGet && req.Method != MethodHead {
			return resp, nil
		}
		// Only compute etag for 2xx responses.
		if resp.Status < 200 || resp.Status >= 300 {
			return resp, nil
		}

		hash := sha256.Sum256(resp.Body)
		etag := `"` + hex.EncodeToString(hash[:8]) + `"`
		if c.Weak {
			etag = "W/" + etag
		}

		resp.Header.Set("ETag", etag)

		if match := req.Header.Get("If-None-Match"); match != "" {
			if match == "*" || strings.Contains(match, etag) {
				notModified := NewResponse(http.StatusNotModified)
				notModified.Header = resp.Header.Clone()
				notModified.Header.Del("Content-Length")
				return notModified, nil
			}
		}

		if match := req.Header.Get("If-Match"); match != "" {
			if match != "*" && !strings.Contains(match, etag) {
				return NewResponse(http.StatusPreconditionFailed), nil
			}
		}

		return resp, nil
	})
}
