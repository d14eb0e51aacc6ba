package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/bjaus/bridge"
)

// FastHandler returns a fasthttp.RequestHandler that dispatches every
// request to app with the same translation rules as Handler.
func FastHandler(app *bridge.App, opts ...Option) fasthttp.RequestHandler {
	return fastHandler(app, newConfig(opts))
}

func fastHandler(app *bridge.App, cfg config) fasthttp.RequestHandler {
	return func(rc *fasthttp.RequestCtx) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		req, err := FastRequest(rc, cfg.maxBodySize)
		var resp *bridge.Response
		if err != nil {
			cfg.logger.DebugContext(ctx, "request translation failed", "method", string(rc.Method()), "path", string(rc.Path()), "err", err)
			resp = app.ErrorResponse(nil, err)
		} else {
			resp = app.Dispatch(ctx, req)
		}
		WriteFastResponse(rc, resp)
	}
}

// FastRequest converts a fasthttp request into a Request. fasthttp reuses
// its buffers, so everything is copied.
func FastRequest(rc *fasthttp.RequestCtx, maxBody int64) (*bridge.Request, error) {
	req, err := bridge.NewRequest(string(rc.Method()), string(rc.Path()))
	if err != nil {
		return nil, err
	}
	req.Query = bridge.ParseQuery(string(rc.URI().QueryString()))

	rc.Request.Header.VisitAll(func(k, v []byte) {
		key := bridge.CanonicalHeaderKey(string(k))
		val := string(v)
		if prev, ok := req.Header[key]; ok {
			sep := ", "
			if key == "Cookie" {
				sep = "; "
			}
			val = prev + sep + val
		}
		req.Header[key] = val
	})

	body := rc.PostBody()
	if int64(len(body)) > maxBody {
		return nil, bridge.PayloadTooLarge(maxBody)
	}
	if len(body) > 0 {
		req.Body = append([]byte(nil), body...)
	}
	return req, nil
}

// WriteFastResponse writes resp to rc. fasthttp computes Content-Length and
// drops the body for HEAD requests itself.
func WriteFastResponse(rc *fasthttp.RequestCtx, resp *bridge.Response) {
	rc.Response.Header.SetNoDefaultContentType(true)
	for k, v := range resp.Header {
		switch bridge.CanonicalHeaderKey(k) {
		case "Set-Cookie":
			for _, c := range bridge.SplitSetCookie(v) {
				rc.Response.Header.Add("Set-Cookie", c)
			}
		case "Content-Length":
		case "Content-Type":
			rc.SetContentType(v)
		default:
			rc.Response.Header.Set(k, v)
		}
	}
	rc.SetStatusCode(resp.Status)
	if bodyAllowed(resp.Status) && len(resp.Body) > 0 {
		rc.SetBody(resp.Body)
	}
}

// printfLogger routes fasthttp's internal logging to slog.
type printfLogger struct {
	l *slog.Logger
}

func (p printfLogger) Printf(format string, args ...any) {
	p.l.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "engine", EngineFastHTTP.String())
}

func newFastServer(app *bridge.App, cfg config) *fasthttp.Server {
	return &fasthttp.Server{
		Handler:            fastHandler(app, cfg),
		Name:               "bridge",
		ReadTimeout:        cfg.readHeaderTimeout,
		MaxRequestBodySize: int(cfg.maxBodySize),
		Logger:             printfLogger{l: cfg.logger},
		ErrorHandler: func(rc *fasthttp.RequestCtx, err error) {
			fault := bridge.Error(http.StatusBadRequest, "malformed request")
			if errors.Is(err, fasthttp.ErrBodyTooLarge) {
				fault = bridge.PayloadTooLarge(cfg.maxBodySize)
			}
			WriteFastResponse(rc, app.ErrorResponse(nil, fault))
		},
	}
}
