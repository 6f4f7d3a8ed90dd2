package utils

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// PublishableKeyHeader carries the Medusa Store API publishable key.
const PublishableKeyHeader = "x-publishable-api-key"

type headerTransport struct {
	base   http.RoundTripper
	header string
	value  string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.value != "" {
		req = req.Clone(req.Context())
		req.Header.Set(t.header, t.value)
	}
	return t.base.RoundTrip(req)
}

// NewHTTPClientWithPublishableKey returns a client that stamps every request
// with the publishable key and records an OpenTelemetry client span.
func NewHTTPClientWithPublishableKey(key string) *http.Client {
	return NewHTTPClientWithHeader(PublishableKeyHeader, key)
}

func NewHTTPClientWithHeader(header, value string) *http.Client {
	return &http.Client{
		Timeout: 15 * time.Second,
		Transport: otelhttp.NewTransport(&headerTransport{
			base:   http.DefaultTransport,
			header: header,
			value:  value,
		}),
	}
}
