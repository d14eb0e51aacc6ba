package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors wrapped by the faults the dispatcher and adapters produce.
var (
	ErrInvalidMethod   = errors.New("invalid method")
	ErrInvalidPattern  = errors.New("invalid route pattern")
	ErrNotFound        = errors.New("route not found")
	ErrMissingBody     = errors.New("missing request body")
	ErrContentType     = errors.New("unsupported content type")
	ErrDecodeBody      = errors.New("decode body")
	ErrEncodeBody      = errors.New("encode body")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrCanceled        = errors.New("request canceled")
	ErrPanic           = errors.New("panic")
	ErrBindPath        = errors.New("bind path parameter")
	ErrBindQuery       = errors.New("bind query parameter")
	ErrBindHeader      = errors.New("bind header")
	ErrBindCookie      = errors.New("bind cookie")
)

// Kind classifies a failure by where it originated.
type Kind int

// Failure kinds.
const (
	KindInternal Kind = iota
	KindRoutingMiss
	KindBadRequest
	KindHandler
	KindMiddleware
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindRoutingMiss:
		return "routing_miss"
	case KindBadRequest:
		return "bad_request"
	case KindHandler:
		return "handler"
	case KindMiddleware:
		return "middleware"
	case KindCanceled:
		return "canceled"
	default:
		return "internal"
	}
}

func (k Kind) defaultStatus() int {
	switch k {
	case KindRoutingMiss:
		return http.StatusNotFound
	case KindBadRequest:
		return http.StatusBadRequest
	case KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// StatusCoder is implemented by errors or responses that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// Fault is the error type produced by every stage of a dispatch. Handlers
// and middleware may return their own errors; those are classified into a
// Fault before a response is rendered.
type Fault struct {
	Kind    Kind
	Status  int
	Message string

	// Header is merged into the rendered error response.
	Header Header

	Err error
}

// Error returns the message, followed by the wrapped error if any.
func (f *Fault) Error() string {
	switch {
	case f.Err == nil:
		return f.Message
	case f.Message == "":
		return f.Err.Error()
	default:
		return f.Message + ": " + f.Err.Error()
	}
}

// Unwrap returns the wrapped error.
func (f *Fault) Unwrap() error { return f.Err }

// StatusCode returns the HTTP status code, falling back to the default for
// the fault's kind.
func (f *Fault) StatusCode() int {
	if f.Status != 0 {
		return f.Status
	}
	return f.Kind.defaultStatus()
}

// ProblemDetail is an RFC 9457 problem details response.
//
//nolint:errname // RFC 9457 standard name
type ProblemDetail struct {
	Type     string            `json:"type,omitempty"`
	Title    string            `json:"title,omitempty"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// Error returns the detail message (or title if detail is empty).
func (p *ProblemDetail) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.Title
}

// StatusCode returns the HTTP status code.
func (p *ProblemDetail) StatusCode() int { return p.Status }

// ValidationError describes a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// Error returns a handler fault with the given HTTP status code and message.
func Error(status int, message string) error {
	return &Fault{Kind: KindHandler, Status: status, Message: message}
}

// Errorf returns a formatted handler fault with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &Fault{Kind: KindHandler, Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement StatusCoder.
func ErrorStatus(err error) int {
	if isCanceled(err) {
		return http.StatusServiceUnavailable
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// KindOf reports the kind of err. Errors that are not faults are internal.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	if isCanceled(err) {
		return KindCanceled
	}
	return KindInternal
}

func badRequest(status int, msg string, err error) *Fault {
	return &Fault{Kind: KindBadRequest, Status: status, Message: msg, Err: err}
}

func internalFault(msg string, err error) *Fault {
	return &Fault{Kind: KindInternal, Status: http.StatusInternalServerError, Message: msg, Err: err}
}

func panicFault(rec any) *Fault {
	return internalFault("internal error", fmt.Errorf("%w: %v", ErrPanic, rec))
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrCanceled)
}

// classify turns any error into a Fault. Errors carrying their own status
// keep it; anything else is attributed to kind with a 500.
func classify(err error, kind Kind) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	if isCanceled(err) {
		return &Fault{Kind: KindCanceled, Status: http.StatusServiceUnavailable, Message: "request canceled", Err: err}
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return &Fault{Kind: kind, Status: sc.StatusCode(), Err: err}
	}
	return &Fault{Kind: kind, Status: http.StatusInternalServerError, Err: err}
}
