package cgi

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/bjaus/bridge"
)

// MaxBodySizeEnv names the environment variable that overrides the request
// body limit.
const MaxBodySizeEnv = "BRIDGE_MAX_BODY_SIZE"

// Environ converts os.Environ-style "KEY=value" pairs into a map.
func Environ(pairs []string) map[string]string {
	env := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// MaxBodySize returns the limit set by MaxBodySizeEnv, or
// bridge.DefaultMaxBodySize when it is unset or not a positive integer.
func MaxBodySize(env map[string]string) int64 {
	if n, err := strconv.ParseInt(env[MaxBodySizeEnv], 10, 64); err == nil && n > 0 {
		return n
	}
	return bridge.DefaultMaxBodySize
}

// ReadRequest builds a Request from CGI meta-variables and stdin. The body
// is exactly CONTENT_LENGTH bytes; a declared length over maxBody is a 413
// and a short read a 400. Headers with names or values outside the safe
// character set are dropped.
func ReadRequest(env map[string]string, stdin io.Reader, maxBody int64) (*bridge.Request, error) {
	req, err := bridge.NewRequest(env["REQUEST_METHOD"], requestPath(env))
	if err != nil {
		return nil, err
	}
	req.Query = bridge.ParseQuery(env["QUERY_STRING"])

	for k, v := range env {
		name, ok := headerName(k)
		if !ok || !bridge.ValidHeaderName(name) || !bridge.ValidHeaderValue(v) {
			continue
		}
		req.Header.Set(name, v)
	}

	body, err := readBody(env["CONTENT_LENGTH"], stdin, maxBody)
	if err != nil {
		return nil, err
	}
	req.Body = body
	return req, nil
}

func requestPath(env map[string]string) string {
	if p := env["PATH_INFO"]; p != "" {
		return p
	}
	if uri := env["REQUEST_URI"]; uri != "" {
		if u, err := url.ParseRequestURI(uri); err == nil && u.Path != "" {
			return u.Path
		}
	}
	return "/"
}

// headerName maps a meta-variable to its header name: HTTP_X_AUTH_TOKEN
// becomes X-Auth-Token, CONTENT_TYPE becomes Content-Type.
func headerName(key string) (string, bool) {
	switch {
	case key == "CONTENT_TYPE", key == "CONTENT_LENGTH":
	case strings.HasPrefix(key, "HTTP_") && len(key) > len("HTTP_"):
		key = key[len("HTTP_"):]
	default:
		return "", false
	}
	return bridge.CanonicalHeaderKey(strings.ReplaceAll(key, "_", "-")), true
}

func readBody(contentLength string, stdin io.Reader, maxBody int64) ([]byte, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(contentLength), 10, 64)
	if err != nil || n <= 0 || stdin == nil {
		return nil, nil
	}
	if n > maxBody {
		return nil, bridge.PayloadTooLarge(maxBody)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(stdin, body); err != nil {
		return nil, bridge.Errorf(http.StatusBadRequest, "read request body: %v", err)
	}
	return body, nil
}

func osEnv() map[string]string { return Environ(os.Environ()) }

func describe(env map[string]string) string {
	return fmt.Sprintf("%s %s", env["REQUEST_METHOD"], requestPath(env))
}
