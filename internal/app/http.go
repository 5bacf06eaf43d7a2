package app

import (
	"net/http"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// NewHTTPClient returns the client used for gateway calls. With New Relic
// enabled each call is recorded as an external segment of the current
// transaction.
func NewHTTPClient(timeout time.Duration, nrApp *newrelic.Application) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
	if nrApp != nil {
		client.Transport = newrelic.NewRoundTripper(transport)
	}
	return client
}
