package cgi

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"
)

const (
	redacted       = "***redacted***"
	maxLoggedValue = 200
)

var sensitiveKeys = []string{
	"authorization", "cookie", "token", "secret", "password", "pass",
	"api-key", "api_key", "apikey", "jwt", "auth", "session", "csrf",
	"signature", "private", "key", "credential", "bearer", "basic",
}

// contextKeys are the meta-variables recorded with a failure, when set.
var contextKeys = []string{
	"REQUEST_METHOD", "PATH_INFO", "QUERY_STRING", "CONTENT_TYPE", "CONTENT_LENGTH",
	"SERVER_PROTOCOL", "SERVER_NAME", "SERVER_PORT", "REMOTE_ADDR", "REMOTE_PORT",
	"HTTP_HOST", "HTTP_USER_AGENT", "HTTP_ACCEPT", "HTTP_ACCEPT_ENCODING",
	"HTTP_X_FORWARDED_FOR", "HTTP_X_FORWARDED_PROTO", "HTTP_X_REQUEST_ID",
	"HTTP_X_AMZN_TRACE_ID", "HTTP_AUTHORIZATION", "HTTP_COOKIE",
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, p := range sensitiveKeys {
		if strings.Contains(key, p) {
			return true
		}
	}
	return false
}

// redact masks credentials in a meta-variable value and truncates long
// values. Query strings are masked per parameter.
func redact(key, value string) string {
	if strings.EqualFold(key, "QUERY_STRING") {
		return redactQuery(value)
	}
	if isSensitive(key) {
		return redacted
	}
	return truncate(value)
}

// truncate caps value at maxLoggedValue bytes without splitting a rune.
func truncate(value string) string {
	if len(value) <= maxLoggedValue {
		return value
	}
	cut := maxLoggedValue
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut] + "...[truncated]"
}

func redactQuery(qs string) string {
	parts := make([]string, 0, strings.Count(qs, "&")+1)
	for part := range strings.SplitSeq(qs, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		if isSensitive(k) {
			v = redacted
		} else {
			v = truncate(v)
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, "&")
}

// envSummary returns the redacted request context as log attributes.
func envSummary(env map[string]string) []any {
	attrs := make([]any, 0, len(contextKeys))
	for _, k := range contextKeys {
		if v, ok := env[k]; ok {
			attrs = append(attrs, slog.String(k, redact(k, v)))
		}
	}
	return attrs
}

// errorLog appends failure records as JSON lines to a file. A zero path
// disables it.
type errorLog struct {
	path   string
	logger *slog.Logger
}

func (l errorLog) record(ctx context.Context, msg string, env map[string]string, attrs ...any) {
	if l.path == "" {
		return
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		l.logger.WarnContext(ctx, "open error log", "path", l.path, "err", err)
		return
	}
	defer f.Close() //nolint:errcheck // best-effort side channel

	attrs = append(attrs, "pid", os.Getpid(), slog.Group("cgi", envSummary(env)...))
	slog.New(slog.NewJSONHandler(f, nil)).ErrorContext(ctx, msg, attrs...)
}
