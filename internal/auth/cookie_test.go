package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieCodec_Extract(t *testing.T) {
	codec := NewCookieCodec("", "")

	tests := []struct {
		name   string
		header string
		want   string
		wantOK bool
	}{
		{name: "no header", header: "", wantOK: false},
		{name: "only cookie", header: "Record-Signature=abc.def.ghi", want: "abc.def.ghi", wantOK: true},
		{name: "among others", header: "theme=dark; Record-Signature=tok; lang=en", want: "tok", wantOK: true},
		{name: "extra whitespace", header: "a=1;   Record-Signature=tok  ", want: "tok", wantOK: true},
		{name: "value keeps later equals signs", header: "Record-Signature=a=b==", want: "a=b==", wantOK: true},
		{name: "missing cookie", header: "theme=dark; lang=en", wantOK: false},
		{name: "prefix of another name is not a match", header: "Record-Signature-Old=tok", wantOK: false},
		{name: "empty value", header: "Record-Signature=", wantOK: false},
		{name: "entry without equals", header: "Record-Signature", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := codec.Extract(tt.header)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCookieCodec_AttachAndClear(t *testing.T) {
	codec := NewCookieCodec("session", "example.com")

	rr := httptest.NewRecorder()
	codec.Attach(rr, "token-value", time.Hour)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "session", c.Name)
	assert.Equal(t, "token-value", c.Value)
	assert.Equal(t, 3600, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteNoneMode, c.SameSite)
	assert.Equal(t, "/", c.Path)

	rr = httptest.NewRecorder()
	codec.Clear(rr)

	cookies = rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
	assert.True(t, cookies[0].Secure)
}

func TestCookieCodec_FromRequest(t *testing.T) {
	codec := NewCookieCodec("", "")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Cookie", "Record-Signature=tok")

	got, ok := codec.FromRequest(r)
	assert.True(t, ok)
	assert.Equal(t, "tok", got)
}
