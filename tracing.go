package bridge

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig configures the Tracing middleware.
type TracingConfig struct {
	Tracer trace.Tracer // default: otel.Tracer("github.com/bjaus/bridge")
}

type spanKey struct{}

// Tracing returns middleware that wraps each routed request in an
// OpenTelemetry server span. The span is named after the route name when
// set, otherwise after the method and pattern.
func Tracing(cfg ...TracingConfig) Middleware {
	var tracer trace.Tracer
	if len(cfg) > 0 && cfg[0].Tracer != nil {
		tracer = cfg[0].Tracer
	}

	return Middleware{
		Name: "tracing",
		Pre: func(req *Request) (*Request, error) {
			t := tracer
			if t == nil {
				t = otel.Tracer("github.com/bjaus/bridge")
			}

			name := string(req.Method)
			attrs := []attribute.KeyValue{
				attribute.String("http.request.method", string(req.Method)),
				attribute.String("url.path", req.Path),
			}
			if ri, ok := MatchedRoute(req); ok {
				name += " " + ri.Pattern
				if ri.Name != "" {
					name = ri.Name
				}
				attrs = append(attrs, attribute.String("http.route", ri.Pattern))
			}
			if id := GetRequestID(req.Context()); id != "" {
				attrs = append(attrs, attribute.String("request.id", id))
			}

			ctx, span := t.Start(req.Context(), name,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			ctx = context.WithValue(ctx, spanKey{}, span)
			return req.WithContext(ctx), nil
		},
		Post: func(req *Request, resp *Response) (*Response, error) {
			span, ok := req.Context().Value(spanKey{}).(trace.Span)
			if !ok {
				return resp, nil
			}
			defer span.End()

			span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
			if resp.Status >= 500 {
				span.SetStatus(codes.Error, strconv.Itoa(resp.Status))
			}
			return resp, nil
		},
	}
}
