package cgi

import (
	"bufio"
	"io"
	"net/http"
	"slices"
	"strconv"

	"github.com/bjaus/bridge"
)

// WriteResponse writes resp to w in CGI response format: a Status line,
// header lines in sorted order, one Set-Cookie line per cookie, a computed
// Content-Length, a blank line and the body. Status and Content-Length set
// by the handler are ignored. A header that could inject lines replaces the
// whole response with a 400.
func WriteResponse(w io.Writer, resp *bridge.Response) error {
	if _, bad := unsafeHeader(resp.Header); bad {
		resp = invalidHeaderResponse()
	}

	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	bw := bufio.NewWriter(w)
	_, _ = bw.WriteString("Status: " + strconv.Itoa(resp.Status) + " " + reason(resp.Status) + "\r\n")

	var cookies []string
	for _, k := range keys {
		v := resp.Header[k]
		switch bridge.CanonicalHeaderKey(k) {
		case "Status", "Content-Length":
		case "Set-Cookie":
			cookies = append(cookies, bridge.SplitSetCookie(v)...)
		default:
			_, _ = bw.WriteString(k + ": " + v + "\r\n")
		}
	}
	for _, c := range cookies {
		_, _ = bw.WriteString("Set-Cookie: " + c + "\r\n")
	}
	if len(resp.Body) > 0 {
		_, _ = bw.WriteString("Content-Length: " + strconv.Itoa(len(resp.Body)) + "\r\n")
	}
	_, _ = bw.WriteString("\r\n")
	_, _ = bw.Write(resp.Body)
	return bw.Flush()
}

// unsafeHeader returns the first non-reserved header whose name or value
// falls outside the safe character set.
func unsafeHeader(h bridge.Header) (string, bool) {
	for k, v := range h {
		switch bridge.CanonicalHeaderKey(k) {
		case "Status", "Content-Length":
			continue
		}
		if !bridge.ValidHeaderName(k) || !bridge.ValidHeaderValue(v) {
			return k, true
		}
	}
	return "", false
}

func invalidHeaderResponse() *bridge.Response {
	return &bridge.Response{
		Status: http.StatusBadRequest,
		Header: bridge.Header{"Content-Type": "text/plain; charset=utf-8"},
		Body:   []byte("Bad Request: Invalid header"),
	}
}

func reason(status int) string {
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "Unknown"
}
