package bridge

import (
	"fmt"
	"net/http"
)

// DefaultMaxBodySize is the request body limit adapters apply when none is
// configured.
const DefaultMaxBodySize int64 = 5 << 20

// PayloadTooLarge returns the 413 fault for a body exceeding limit bytes.
func PayloadTooLarge(limit int64) error {
	return badRequest(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("request body exceeds limit of %d bytes", limit),
		ErrPayloadTooLarge)
}

// BodyLimit returns middleware that rejects request bodies larger than
// maxBytes with 413 Payload Too Large.
func BodyLimit(maxBytes int64) Middleware {
	return Before("body_limit", func(req *Request) (*Request, error) {
		if int64(len(req.Body)) > maxBytes {
			return nil, PayloadTooLarge(maxBytes)
		}
		return req, nil
	})
}
