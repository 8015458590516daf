package resilience

import (
	"fmt"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit transient", NewTransientError(eris.New("http 503"), 503), true},
		{"wrapped transient", eris.Wrap(NewTransientError(eris.New("down"), 0), "download"), true},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"connection reset text", eris.New("read tcp: connection reset by peer"), true},
		{"dns failure text", eris.New("lookup files.example.com: no such host"), true},
		{"io timeout text", eris.New("read tcp 10.0.0.1:21: i/o timeout"), true},
		{"permanent", eris.New("550 file not found"), false},
		{"login failure", eris.New("530 login incorrect"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := eris.New("boom")
	te := NewTransientError(inner, 502)

	assert.Equal(t, "boom", te.Error())
	assert.Equal(t, 502, te.StatusCode)
	assert.ErrorIs(t, te, inner)
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 301, 400, 401, 404, 410, 501} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}
