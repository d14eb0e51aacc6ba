// Package cgi runs a bridge.App as a single-shot process: one request read
// from CGI meta-variables and stdin, one response written to stdout.
//
// Stdout carries only the HTTP response. Diagnostics go to the logger,
// which writes to stderr by default, and to an optional error log file.
package cgi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"

	"github.com/bjaus/bridge"
)

type options struct {
	env          map[string]string
	stdin        io.Reader
	stdout       io.Writer
	logger       *slog.Logger
	maxBody      int64
	errorLogFile string
}

// Option configures Run and Serve.
type Option func(*options)

// WithEnv replaces the process environment as the source of meta-variables.
func WithEnv(env map[string]string) Option {
	return func(o *options) {
		o.env = env
	}
}

// WithStdin sets the request body source.
func WithStdin(r io.Reader) Option {
	return func(o *options) {
		o.stdin = r
	}
}

// WithStdout sets the response destination.
func WithStdout(w io.Writer) Option {
	return func(o *options) {
		o.stdout = w
	}
}

// WithLogger sets the diagnostics logger. It must not write to stdout.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMaxBodySize sets the request body limit, overriding
// BRIDGE_MAX_BODY_SIZE.
func WithMaxBodySize(n int64) Option {
	return func(o *options) {
		o.maxBody = n
	}
}

// WithErrorLogFile appends a redacted record of every failed request to
// path.
func WithErrorLogFile(path string) Option {
	return func(o *options) {
		o.errorLogFile = path
	}
}

func newOptions(opts []Option) *options {
	o := &options{stdin: os.Stdin, stdout: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}
	if o.env == nil {
		o.env = osEnv()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if o.maxBody <= 0 {
		o.maxBody = MaxBodySize(o.env)
	}
	return o
}

// Run serves one request from the process environment.
func Run(app *bridge.App, opts ...Option) error {
	return Serve(context.Background(), app, opts...)
}

// Serve reads one request, dispatches it to app and writes the response.
// Failures, panics included, still produce a response; the returned error
// only reports a failure to write it.
func Serve(ctx context.Context, app *bridge.App, opts ...Option) error {
	o := newOptions(opts)
	errs := errorLog{path: o.errorLogFile, logger: o.logger}

	resp := o.handle(ctx, app, errs)
	if name, bad := unsafeHeader(resp.Header); bad {
		o.logger.ErrorContext(ctx, "invalid response header", "header", name)
		errs.record(ctx, "invalid response header", o.env, "header", name)
	}

	if err := WriteResponse(o.stdout, resp); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	o.logger.DebugContext(ctx, "request served", "request", describe(o.env), "status", resp.Status)
	return nil
}

func (o *options) handle(ctx context.Context, app *bridge.App, errs errorLog) (resp *bridge.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.ErrorContext(ctx, "panic recovered", "panic", rec, "request", describe(o.env), "stack", string(debug.Stack()))
			errs.record(ctx, "panic recovered", o.env, "panic", fmt.Sprint(rec))
			resp = bridge.ProblemResponse(nil, bridge.Error(http.StatusInternalServerError, "internal error"))
		}
	}()

	req, err := ReadRequest(o.env, o.stdin, o.maxBody)
	if err != nil {
		o.logger.WarnContext(ctx, "invalid request", "request", describe(o.env), "err", err)
		return app.ErrorResponse(nil, err)
	}

	resp = app.Dispatch(ctx, req)
	if resp.Status >= http.StatusInternalServerError {
		errs.record(ctx, "request failed", o.env, "status", resp.Status)
	}
	return resp
}
