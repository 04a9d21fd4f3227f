// Package crawl provides the polite HTTP transport used to fetch listing
// pages: robots.txt is honoured, requests are rate limited and spaced out,
// and every request identifies itself.
package crawl

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// DefaultUserAgent identifies carizon to the platforms it reads.
const DefaultUserAgent = "carizon/1.0 (+https://github.com/lukman83/carizon)"

// Transport is an http.RoundTripper that applies the crawl pipeline:
// robots check, rate limiter, delay, then send.
type Transport struct {
	Base        http.RoundTripper
	UserAgent   string
	Robots      *RobotsChecker
	RateLimiter *rate.Limiter
	Delay       *Delay
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ua := t.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", ua)

	if t.Robots != nil {
		allowed, err := t.Robots.IsAllowed(req.Context(), ua, req.URL.String())
		if err != nil {
			return nil, fmt.Errorf("robots check: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, req.URL.Path)
		}
	}

	if t.RateLimiter != nil {
		if err := t.RateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	if t.Delay != nil {
		d := t.Delay.Next()
		if t.Robots != nil {
			if cd := t.Robots.CrawlDelay(req.Context(), ua, req.URL.String()); cd > d {
				d = cd
			}
		}
		if err := wait(req.Context(), d); err != nil {
			return nil, fmt.Errorf("delay: %w", err)
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
