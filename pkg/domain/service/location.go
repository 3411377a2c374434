package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/senharo1981/tdr-store/pkg/domain/model"
)

var ErrLocationUnavailable = errors.New("location unavailable")

const DefaultLocationTimeout = 10 * time.Second

type LocationResult struct {
	Location model.Coordinates
	Err      error
}

// LocationCapture runs a locator in the background. Every kind of failure,
// immediate or late, is reported the same way: Err wraps ErrLocationUnavailable.
type LocationCapture struct {
	Timeout time.Duration
}

func NewLocationCapture(timeout time.Duration) *LocationCapture {
	if timeout <= 0 {
		timeout = DefaultLocationTimeout
	}
	return &LocationCapture{Timeout: timeout}
}

// Capture returns a channel that receives exactly one result and is then closed.
func (c *LocationCapture) Capture(ctx context.Context, locator model.Locator) <-chan LocationResult {
	out := make(chan LocationResult, 1)
	go func() {
		defer close(out)
		out <- c.locate(ctx, locator)
	}()
	return out
}

func (c *LocationCapture) locate(ctx context.Context, locator model.Locator) LocationResult {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	fix := make(chan LocationResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				fix <- LocationResult{Err: fmt.Errorf("locator panic: %v", r)}
			}
		}()
		coords, err := locator.Locate(ctx)
		fix <- LocationResult{Location: coords, Err: err}
	}()

	select {
	case res := <-fix:
		if res.Err != nil {
			return LocationResult{Err: errors.Wrap(ErrLocationUnavailable, res.Err.Error())}
		}
		return res
	case <-ctx.Done():
		return LocationResult{Err: errors.Wrap(ErrLocationUnavailable, ctx.Err().Error())}
	}
}
