package subgraph

import (
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// -------------------------------------------------------------------------------------
// HTTP
// -------------------------------------------------------------------------------------

const clientID = "settsim-go"

// Transport sets the X-Client-ID header on all requests.
type Transport struct {
	Transport http.RoundTripper
}

// RoundTrip implements the http.RoundTripper interface.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("X-Client-ID", clientID)
	return t.Transport.RoundTrip(req)
}

// NewHTTPClient returns the client used for GraphQL requests. Failed requests are
// retried up to retries times; the default of zero keeps subgraph errors fatal.
func NewHTTPClient(retries int, timeout time.Duration, log zerolog.Logger) *http.Client {
	transport := &Transport{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     false,
			MaxIdleConns:          4,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.HTTPClient = &http.Client{Transport: transport, Timeout: timeout}
	client.Logger = nil
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			log.Warn().Str("url", req.URL.String()).Int("attempt", attempt).Msg("retrying subgraph request")
		}
	}
	return client.StandardClient()
}
