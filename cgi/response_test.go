package cgi_test

import (
	"bytes"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/bridge"
	"github.com/bjaus/bridge/cgi"
)

func TestWriteResponse(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		resp *bridge.Response
		want string
	}{
		"sorted headers and computed length": {
			resp: &bridge.Response{
				Status: http.StatusCreated,
				Header: bridge.Header{
					"X-B":            "2",
					"Content-Type":   "application/json",
					"X-A":            "1",
					"Content-Length": "999",
					"Status":         "418",
				},
				Body: []byte(`{}`),
			},
			want: "Status: 201 Created\r\n" +
				"Content-Type: application/json\r\n" +
				"X-A: 1\r\n" +
				"X-B: 2\r\n" +
				"Content-Length: 2\r\n" +
				"\r\n" +
				"{}",
		},
		"cookies on separate lines": {
			resp: &bridge.Response{
				Status: http.StatusOK,
				Header: bridge.Header{"Set-Cookie": "a=1, b=2; Expires=Wed, 21 Oct 2015 07:28:00 GMT"},
			},
			want: "Status: 200 OK\r\n" +
				"Set-Cookie: a=1\r\n" +
				"Set-Cookie: b=2; Expires=Wed, 21 Oct 2015 07:28:00 GMT\r\n" +
				"\r\n",
		},
		"unknown status": {
			resp: &bridge.Response{Status: 599, Header: bridge.Header{}},
			want: "Status: 599 Unknown\r\n\r\n",
		},
		"invalid header value": {
			resp: &bridge.Response{
				Status: http.StatusOK,
				Header: bridge.Header{"X-Evil": "a\r\nInjected: yes"},
				Body:   []byte("secret"),
			},
			want: "Status: 400 Bad Request\r\n" +
				"Content-Type: text/plain; charset=utf-8\r\n" +
				"Content-Length: 27\r\n" +
				"\r\n" +
				"Bad Request: Invalid header",
		},
		"invalid header name": {
			resp: &bridge.Response{
				Status: http.StatusOK,
				Header: bridge.Header{"X Evil": "v"},
			},
			want: "Status: 400 Bad Request\r\n" +
				"Content-Type: text/plain; charset=utf-8\r\n" +
				"Content-Length: 27\r\n" +
				"\r\n" +
				"Bad Request: Invalid header",
		},
		"reserved header is not validated": {
			resp: &bridge.Response{
				Status: http.StatusOK,
				Header: bridge.Header{"Status": "bad\nvalue"},
			},
			want: "Status: 200 OK\r\n\r\n",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			require.NoError(t, cgi.WriteResponse(&buf, tc.resp))
			assert.Equal(t, tc.want, buf.String())
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("stdout closed") }

func TestWriteResponse_writeError(t *testing.T) {
	t.Parallel()

	err := cgi.WriteResponse(failingWriter{}, bridge.Text(http.StatusOK, "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stdout closed")
}
