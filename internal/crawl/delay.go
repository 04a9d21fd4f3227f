package crawl

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// DelayProfile names a politeness delay range.
type DelayProfile string

const (
	ProfileCautious DelayProfile = "cautious"
	ProfileNormal   DelayProfile = "normal"
	ProfileNone     DelayProfile = "none"
)

// Delay waits a random duration in [Min, Max) before each request.
type Delay struct {
	Min time.Duration
	Max time.Duration
}

// NewDelay returns the delay range for profile.
func NewDelay(profile DelayProfile) (*Delay, error) {
	switch profile {
	case ProfileCautious:
		return &Delay{Min: 2 * time.Second, Max: 5 * time.Second}, nil
	case ProfileNormal, "":
		return &Delay{Min: 500 * time.Millisecond, Max: 2 * time.Second}, nil
	case ProfileNone:
		return &Delay{}, nil
	default:
		return nil, fmt.Errorf("unknown delay profile %q", profile)
	}
}

// Wait sleeps for Next(), returning early when ctx is done.
func (d *Delay) Wait(ctx context.Context) error {
	return wait(ctx, d.Next())
}

// Next returns a random duration within the configured range.
func (d *Delay) Next() time.Duration {
	if d.Min >= d.Max {
		return d.Min
	}
	return d.Min + time.Duration(rand.Int64N(int64(d.Max-d.Min)))
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
