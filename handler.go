package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HandlerFunc handles a request and builds the response itself.
type HandlerFunc func(ctx context.Context, req *Request) (*Response, error)

// Handler is a typed handler for requests without a body. The framework
// owns serialization of the result.
type Handler[Resp any] func(ctx context.Context, req *Request) (*Resp, error)

// BodyHandler is a typed handler whose request body is decoded into Body
// before it runs.
type BodyHandler[Body, Resp any] func(ctx context.Context, req *Request, body *Body) (*Resp, error)

// AsyncHandler starts the work for a request and returns a Task the
// dispatcher awaits.
type AsyncHandler[Resp any] func(ctx context.Context, req *Request) *Task[Resp]

// AsyncBodyHandler is an AsyncHandler with a decoded request body.
type AsyncBodyHandler[Body, Resp any] func(ctx context.Context, req *Request, body *Body) *Task[Resp]

// invoker is the single capability every registered handler variant is
// reduced to.
type invoker interface {
	invoke(ctx context.Context, req *Request) (*Response, error)
}

func (h HandlerFunc) invoke(ctx context.Context, req *Request) (*Response, error) {
	return h(ctx, req)
}

// handlerEnv is what a typed handler needs from the registry.
type handlerEnv struct {
	status    int
	codecs    *codecRegistry
	validator Validator
}

func (e handlerEnv) successStatus() int {
	if e.status != 0 {
		return e.status
	}
	return http.StatusOK
}

func (e handlerEnv) emptyStatus() int {
	if e.status != 0 {
		return e.status
	}
	return http.StatusNoContent
}

type typedHandler[Resp any] struct {
	h   Handler[Resp]
	env handlerEnv
}

func (t typedHandler[Resp]) invoke(ctx context.Context, req *Request) (*Response, error) {
	out, err := t.h(ctx, req)
	if err != nil {
		return nil, err
	}
	return encodeResult(t.env, req, out)
}

type bodyHandler[Body, Resp any] struct {
	h   BodyHandler[Body, Resp]
	env handlerEnv
}

func (b bodyHandler[Body, Resp]) invoke(ctx context.Context, req *Request) (*Response, error) {
	body, err := bindBody[Body](b.env, req)
	if err != nil {
		return nil, err
	}
	out, err := b.h(ctx, req, body)
	if err != nil {
		return nil, err
	}
	return encodeResult(b.env, req, out)
}

type asyncHandler[Resp any] struct {
	h   AsyncHandler[Resp]
	env handlerEnv
}

func (a asyncHandler[Resp]) invoke(ctx context.Context, req *Request) (*Response, error) {
	out, err := awaitTask(ctx, a.h(ctx, req))
	if err != nil {
		return nil, err
	}
	return encodeResult(a.env, req, out)
}

type asyncBodyHandler[Body, Resp any] struct {
	h   AsyncBodyHandler[Body, Resp]
	env handlerEnv
}

func (a asyncBodyHandler[Body, Resp]) invoke(ctx context.Context, req *Request) (*Response, error) {
	body, err := bindBody[Body](a.env, req)
	if err != nil {
		return nil, err
	}
	out, err := awaitTask(ctx, a.h(ctx, req, body))
	if err != nil {
		return nil, err
	}
	return encodeResult(a.env, req, out)
}

func awaitTask[T any](ctx context.Context, task *Task[T]) (*T, error) {
	if task == nil {
		return nil, internalFault("async handler returned no task", nil)
	}
	return task.Await(ctx)
}

// bindBody decodes the request body into a new Body and validates it.
func bindBody[Body any](env handlerEnv, req *Request) (*Body, error) {
	if len(req.Body) == 0 {
		return nil, badRequest(http.StatusBadRequest, "missing request body", ErrMissingBody)
	}

	ct := req.Header.Get("Content-Type")
	if ct == "" {
		return nil, badRequest(http.StatusBadRequest, "missing Content-Type header", ErrContentType)
	}
	dec, ok := env.codecs.decoderFor(ct)
	if !ok {
		return nil, badRequest(http.StatusUnsupportedMediaType, fmt.Sprintf("content type %q", ct), ErrContentType)
	}

	data := req.Body
	if strings.HasPrefix(ct, "application/json-seq") {
		data = bytes.TrimLeft(data, "\x1e")
	}

	body := new(Body)
	if err := dec.Decode(bytes.NewReader(data), body); err != nil {
		return nil, badRequest(http.StatusBadRequest, "invalid request body", fmt.Errorf("%w: %w", ErrDecodeBody, err))
	}
	if err := validate(env.validator, body); err != nil {
		return nil, err
	}
	return body, nil
}

// validate runs constraint tags, SelfValidator, then the global Validator. Errors without a
// status of their own become 400s.
func validate(v Validator, body any) error {
	if err := validateConstraints(body); err != nil {
		return err
	}
	if sv, ok := body.(SelfValidator); ok {
		if err := sv.Validate(); err != nil {
			return validationFault(err)
		}
	}
	if v != nil {
		if err := v.Validate(body); err != nil {
			return validationFault(err)
		}
	}
	return nil
}

func validationFault(err error) error {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return err
	}
	return badRequest(http.StatusBadRequest, "", err)
}

// encodeResult turns a typed handler result into a Response. Pre-built
// responses and raw bytes bypass serialization; everything else is encoded
// with the codec negotiated from the Accept header.
func encodeResult[Resp any](env handlerEnv, req *Request, out *Resp) (*Response, error) {
	if out == nil {
		return NewResponse(env.emptyStatus()), nil
	}

	var resp *Response
	switch v := any(out).(type) {
	case *Response:
		return v, nil
	case *Void:
		return NewResponse(env.emptyStatus()), nil
	case *Blob:
		resp = Bytes(env.successStatus(), v.ContentType, v.Data)
	case *[]byte:
		resp = Bytes(env.successStatus(), "", *v)
	default:
		status := env.successStatus()
		if sc, ok := any(out).(StatusCoder); ok {
			status = sc.StatusCode()
		}
		enc := env.codecs.negotiate(req.Header.Get("Accept"))
		body, err := encodeValue(enc, out)
		if err != nil {
			return nil, internalFault("response serialization failed", fmt.Errorf("%w: %w", ErrEncodeBody, err))
		}
		resp = NewResponse(status)
		resp.Header.Set("Content-Type", enc.ContentType())
		resp.Body = body
	}

	if cs, ok := any(out).(CookieSetter); ok {
		for _, c := range cs.Cookies() {
			resp.SetCookie(c)
		}
	}
	if hs, ok := any(out).(HeaderSetter); ok {
		hs.SetHeaders(resp.Header)
	}
	return resp, nil
}
