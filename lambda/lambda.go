// Package lambda runs a bridge.App behind the AWS Lambda runtime, translating
// API Gateway HTTP API (payload format 2.0) events to and from the neutral
// request and response model.
package lambda

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/bytedance/sonic"

	"github.com/bjaus/bridge"
)

// HandlerFunc is the function handed to the Lambda runtime. It never returns
// an error: every failure is rendered as a reply.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (events.APIGatewayV2HTTPResponse, error)

type options struct {
	logger *slog.Logger
}

// Option configures the adapter.
type Option func(*options)

// WithLogger sets the logger used for event translation failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Handler returns the Lambda handler for app. The invocation deadline is
// carried by ctx into Dispatch.
func Handler(app *bridge.App, opts ...Option) HandlerFunc {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	return func(ctx context.Context, payload json.RawMessage) (events.APIGatewayV2HTTPResponse, error) {
		var ev events.APIGatewayV2HTTPRequest
		if err := sonic.ConfigStd.Unmarshal(payload, &ev); err != nil {
			o.logger.WarnContext(ctx, "undecodable event", "err", err)
			return FromResponse(app.ErrorResponse(nil, bridge.Error(http.StatusBadRequest, "malformed event"))), nil
		}

		req, err := ToRequest(ev)
		if err != nil {
			o.logger.WarnContext(ctx, "invalid event", "err", err)
			return FromResponse(app.ErrorResponse(nil, err)), nil
		}
		return FromResponse(app.Dispatch(ctx, req)), nil
	}
}

// Start runs the Lambda runtime loop for app. It does not return.
func Start(app *bridge.App, opts ...Option) {
	awslambda.Start(Handler(app, opts...))
}

// ToRequest converts an HTTP API event into a Request. Event path parameters
// are ignored; the router extracts its own.
func ToRequest(ev events.APIGatewayV2HTTPRequest) (*bridge.Request, error) {
	path := ev.RawPath
	if path == "" {
		path = ev.RequestContext.HTTP.Path
	}

	req, err := bridge.NewRequest(ev.RequestContext.HTTP.Method, path)
	if err != nil {
		return nil, err
	}

	if ev.QueryStringParameters != nil {
		for k, v := range ev.QueryStringParameters {
			req.Query[k] = v
		}
	} else {
		req.Query = bridge.ParseQuery(ev.RawQueryString)
	}

	for k, v := range ev.Headers {
		req.Header.Set(k, v)
	}
	if len(ev.Cookies) > 0 {
		req.Header.Set("Cookie", strings.Join(ev.Cookies, "; "))
	}

	if ev.Body != "" {
		if ev.IsBase64Encoded {
			body, err := base64.StdEncoding.DecodeString(ev.Body)
			if err != nil {
				return nil, bridge.Errorf(http.StatusBadRequest, "invalid base64 body: %v", err)
			}
			req.Body = body
		} else {
			req.Body = []byte(ev.Body)
		}
	}
	req.IsBase64Encoded = ev.IsBase64Encoded

	return req, nil
}

// FromResponse converts a Response into an HTTP API reply. Bodies that are
// flagged binary or are not valid UTF-8 are base64 encoded. Set-Cookie is
// moved to the cookies list, one entry per cookie.
func FromResponse(resp *bridge.Response) events.APIGatewayV2HTTPResponse {
	out := events.APIGatewayV2HTTPResponse{
		StatusCode: resp.Status,
		Headers:    make(map[string]string, len(resp.Header)),
	}

	for k, v := range resp.Header {
		if strings.EqualFold(k, "Set-Cookie") {
			out.Cookies = append(out.Cookies, bridge.SplitSetCookie(v)...)
			continue
		}
		out.Headers[bridge.CanonicalHeaderKey(k)] = v
	}

	if len(resp.Body) > 0 {
		if resp.IsBase64Encoded || !utf8.Valid(resp.Body) {
			out.Body = base64.StdEncoding.EncodeToString(resp.Body)
			out.IsBase64Encoded = true
		} else {
			out.Body = string(resp.Body)
		}
	}

	return out
}
