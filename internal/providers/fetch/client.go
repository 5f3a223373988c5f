package fetch

import (
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// newRestyClient builds the rich client on retryablehttp's pooled transport. Retries stay
// off in both layers.
func newRestyClient(cfg Config, log *zap.Logger) *resty.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil

	restyClient := resty.New()
	restyClient.
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", cfg.UserAgent).
		SetLogger(log.Sugar())

	restyClient.SetTransport(retryClient.HTTPClient.Transport)
	restyClient.SetTLSClientConfig(tlsConfig(cfg))
	restyClient.SetRedirectPolicy(resty.RedirectPolicyFunc(limitRedirects(cfg.MaxRedirects)))

	return restyClient
}

// newStreamClient builds the plain pooled client.
func newStreamClient(cfg Config) *http.Client {
	c := cleanhttp.DefaultPooledClient()
	c.Timeout = cfg.Timeout
	c.CheckRedirect = limitRedirects(cfg.MaxRedirects)
	if t, ok := c.Transport.(*http.Transport); ok {
		t.TLSClientConfig = tlsConfig(cfg)
	}
	return c
}

func tlsConfig(cfg Config) *tls.Config {
	return &tls.Config{InsecureSkipVerify: cfg.InsecureTLS}
}

func limitRedirects(max int) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return fmt.Errorf("stopped after %d redirects", max)
		}
		return nil
	}
}
