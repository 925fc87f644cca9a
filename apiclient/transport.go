package apiclient

import (
	"net/http"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// bearerTransport attaches the credential current at send time.
type bearerTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())

	if token := t.tokens.Token(); token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	} else {
		out.Header.Del("Authorization")
	}
	if out.Header.Get(requestIDHeader) == "" {
		out.Header.Set(requestIDHeader, uuid.NewString())
	}

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(out)
}

// Transport returns a round tripper that attaches the live token from tokens
// before delegating to base. It lets other HTTP clients share the
// credential pipeline.
func Transport(base http.RoundTripper, tokens TokenSource) http.RoundTripper {
	if tokens == nil {
		tokens = TokenSourceFunc(func() string { return "" })
	}
	return &bearerTransport{base: base, tokens: tokens}
}
