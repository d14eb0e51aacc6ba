package bridge

import "strconv"

// SecureConfig configures the Secure headers middleware.
type SecureConfig struct {
	ContentTypeNosniff    bool   // default: true → X-Content-Type-Options: nosniff
	FrameDeny             bool   // default: true → X-Frame-Options: DENY
	HSTSMaxAge            int    // default: 0 (disabled). If >0: Strict-Transport-Security
	XSSProtection         string // default: "1; mode=block"
	ReferrerPolicy        string // default: "strict-origin-when-cross-origin"
	ContentSecurityPolicy string // default: "default-src 'self'"
}

// DefaultSecureConfig returns the headers Secure sets with no arguments.
func DefaultSecureConfig() SecureConfig {
	return SecureConfig{
		ContentTypeNosniff:    true,
		FrameDeny:             true,
		XSSProtection:         "1; mode=block",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
	}
}

// Secure returns middleware that sets security response headers, including
// on error responses. Headers already set by the handler are kept.
func Secure(cfg ...SecureConfig) Middleware {
	c := DefaultSecureConfig()
	if len(cfg) > 0 {
		c = cfg[0]
	}

	return After("secure", func(_ *Request, resp *Response) (*Response, error) {
		set := func(k, v string) {
			if v != "" && !resp.Header.Has(k) {
				resp.Header.Set(k, v)
			}
		}
		if c.ContentTypeNosniff {
			set("X-Content-Type-Options", "nosniff")
		}
		if c.FrameDeny {
			set("X-Frame-Options", "DENY")
		}
		if c.HSTSMaxAge > 0 {
			set("Strict-Transport-Security", "max-age="+strconv.Itoa(c.HSTSMaxAge))
		}
		set("X-XSS-Protection", c.XSSProtection)
		set("Referrer-Policy", c.ReferrerPolicy)
		set("Content-Security-Policy", c.ContentSecurityPolicy)
		return resp, nil
	})
}
