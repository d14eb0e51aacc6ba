package bridge_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/bridge"
)

func TestResponseConstructors(t *testing.T) {
	t.Parallel()

	j, err := bridge.JSON(http.StatusCreated, map[string]int{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, j.Status)
	assert.Equal(t, "application/json", j.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, string(j.Body))

	_, err = bridge.JSON(http.StatusOK, make(chan int))
	require.ErrorIs(t, err, bridge.ErrEncodeBody)

	txt := bridge.Text(http.StatusOK, "hi")
	assert.Equal(t, "text/plain; charset=utf-8", txt.Header.Get("Content-Type"))
	assert.Equal(t, "hi", string(txt.Body))

	html := bridge.HTML(http.StatusOK, "<p>hi</p>")
	assert.Equal(t, "text/html; charset=utf-8", html.Header.Get("Content-Type"))

	redirect := bridge.Redirect(0, "/elsewhere")
	assert.Equal(t, http.StatusFound, redirect.Status)
	assert.Equal(t, "/elsewhere", redirect.Header.Get("Location"))

	moved := bridge.Redirect(http.StatusMovedPermanently, "/new")
	assert.Equal(t, http.StatusMovedPermanently, moved.Status)

	resp := (&bridge.Response{}).WithHeader("X-A", "1")
	assert.Equal(t, "1", resp.Header.Get("x-a"))
}

func TestResponse_setCookie(t *testing.T) {
	t.Parallel()

	resp := bridge.NewResponse(http.StatusOK)
	resp.SetCookie(&http.Cookie{Name: "session", Value: "abc", Path: "/", HttpOnly: true})
	resp.SetCookie(&http.Cookie{
		Name:    "theme",
		Value:   "dark",
		Expires: time.Date(2030, time.October, 21, 7, 28, 0, 0, time.UTC),
	})
	resp.SetCookie(&http.Cookie{Name: "bad name", Value: "x"})

	assert.Equal(t, []string{
		"session=abc; Path=/; HttpOnly",
		"theme=dark; Expires=Mon, 21 Oct 2030 07:28:00 GMT",
	}, resp.SetCookieValues())
}

func TestSplitSetCookie(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   string
		want []string
	}{
		"empty": {
			in: "",
		},
		"single": {
			in:   "a=1",
			want: []string{"a=1"},
		},
		"two": {
			in:   "a=1, b=2",
			want: []string{"a=1", "b=2"},
		},
		"expires date is not split": {
			in:   "a=1; Expires=Wed, 21 Oct 2015 07:28:00 GMT, b=2",
			want: []string{"a=1; Expires=Wed, 21 Oct 2015 07:28:00 GMT", "b=2"},
		},
		"lower case expires": {
			in:   "a=1; expires=Thu, 01 Jan 1970 00:00:00 GMT; Path=/, b=2; Secure",
			want: []string{"a=1; expires=Thu, 01 Jan 1970 00:00:00 GMT; Path=/", "b=2; Secure"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, bridge.SplitSetCookie(tc.in))
		})
	}
}

func TestFinalize(t *testing.T) {
	t.Parallel()

	r := bridge.Finalize(nil)
	assert.Equal(t, http.StatusInternalServerError, r.Status)

	r = bridge.Finalize(&bridge.Response{})
	assert.Equal(t, http.StatusOK, r.Status)
	assert.NotNil(t, r.Header)
}
