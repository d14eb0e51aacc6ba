package bridge

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// CompressConfig configures the Compress middleware.
type CompressConfig struct {
	Level   int      // gzip level (1-9, default: 5)
	MinSize int      // minimum response size to compress (default: 1024)
	Types   []string // content types to compress (default: application/json, application/problem+json, text/*)
}

// Compress returns middleware that gzip-compresses response bodies when the
// client accepts gzip.
func Compress(cfg ...CompressConfig) Middleware {
	c := CompressConfig{
		Level:   5,
		MinSize: 1024,
		Types:   []string{"application/json", "application/problem+json", "text/"},
	}
	if len(cfg) > 0 {
		if cfg[0].Level > 0 {
			c.Level = cfg[0].Level
		}
		if cfg[0].MinSize > 0 {
			c.MinSize = cfg[0].MinSize
		}
		if len(cfg[0].Types) > 0 {
			c.Types = cfg[0].Types
		}
	}

	pool := &sync.Pool{
		New: func() any {
			gz, _ := gzip.NewWriterLevel(io.Discard, c.Level) //nolint:errcheck // level is pre-validated
			return gz
		},
	}

	shouldCompress := func(resp *Response) bool {
		if len(resp.Body) < c.MinSize || resp.Header.Get("Content-Encoding") != "" {
			return false
		}
		ct := resp.Header.Get("Content-Type")
		for _, t := range c.Types {
			if strings.Contains(ct, t) {
				return true
			}
		}
		return false
	}

	return After("compress", func(req *Request, resp *Response) (*Response, error) {
		resp.Header.AddToken("Vary", "Accept-Encoding")
		if !strings.Contains(req.Header.Get("Accept-Encoding"), "gzip") || !shouldCompress(resp) {
			return resp, nil
		}

		gz := pool.Get().(*gzip.Writer) //nolint:errcheck,forcetypeassert // pool.New always returns *gzip.Writer
		defer pool.Put(gz)

		var buf bytes.Buffer
		gz.Reset(&buf)
		if _, err := gz.Write(resp.Body); err != nil {
			return nil, internalFault("compress response", err)
		}
		if err := gz.Close(); err != nil {
			return nil, internalFault("compress response", err)
		}

		resp.Body = buf.Bytes()
		resp.IsBase64Encoded = true
		resp.Header.Set("Content-Encoding", "gzip")
		resp.Header.Del("Content-Length")
		return resp, nil
	})
}

// Decompress returns middleware that inflates gzip-encoded request bodies.
// A corrupt body is a 400; an inflated body larger than maxBytes is a 413.
// maxBytes <= 0 means DefaultMaxBodySize.
func Decompress(maxBytes int64) Middleware {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}

	return Before("decompress", func(req *Request) (*Request, error) {
		enc := strings.ToLower(strings.TrimSpace(req.Header.Get("Content-Encoding")))
		if (enc != "gzip" && enc != "x-gzip") || len(req.Body) == 0 {
			return req, nil
		}

		zr, err := gzip.NewReader(bytes.NewReader(req.Body))
		if err != nil {
			return nil, badRequest(http.StatusBadRequest, "invalid gzip body", err)
		}
		defer zr.Close() //nolint:errcheck // reader over memory

		body, err := io.ReadAll(io.LimitReader(zr, maxBytes+1))
		if err != nil {
			return nil, badRequest(http.StatusBadRequest, "invalid gzip body", err)
		}
		if int64(len(body)) > maxBytes {
			return nil, badRequest(http.StatusRequestEntityTooLarge,
				fmt.Sprintf("decompressed body exceeds limit of %d bytes", maxBytes), ErrPayloadTooLarge)
		}

		out := req.WithContext(req.Context())
		out.Header = req.Header.Clone()
		out.Header.Del("Content-Encoding")
		out.Header.Set("Content-Length", strconv.Itoa(len(body)))
		out.Body = body
		return out, nil
	})
}
