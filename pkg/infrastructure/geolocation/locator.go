package geolocation

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/senharo1981/tdr-store/pkg/domain/model"
)

// Browser geolocation error codes.
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrTimeout             = errors.New("location request timed out")
	ErrNoFix               = errors.New("no position reported")
)

// Report is what a client device sends back after asking its own sensor.
// Exactly one of Coordinates or Code is expected.
type Report struct {
	Coordinates *model.Coordinates `json:"coordinates,omitempty"`
	Code        int                `json:"code,omitempty"`
	Message     string             `json:"message,omitempty"`
}

// Reported is a locator backed by a fix the client already obtained.
type Reported struct {
	report Report
}

func NewReported(report Report) *Reported {
	return &Reported{report: report}
}

func (r *Reported) Locate(ctx context.Context) (model.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return model.Coordinates{}, err
	}
	if r.report.Code != 0 {
		return model.Coordinates{}, codeError(r.report.Code, r.report.Message)
	}
	if r.report.Coordinates == nil {
		return model.Coordinates{}, ErrNoFix
	}
	if err := validate(*r.report.Coordinates); err != nil {
		return model.Coordinates{}, err
	}
	return *r.report.Coordinates, nil
}

// Fixed always reports the same position.
type Fixed model.Coordinates

func (f Fixed) Locate(ctx context.Context) (model.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return model.Coordinates{}, err
	}
	return model.Coordinates(f), nil
}

func codeError(code int, message string) error {
	var err error
	switch code {
	case CodePermissionDenied:
		err = ErrPermissionDenied
	case CodePositionUnavailable:
		err = ErrPositionUnavailable
	case CodeTimeout:
		err = ErrTimeout
	default:
		err = fmt.Errorf("geolocation error code %d", code)
	}
	if message != "" {
		return errors.Wrap(err, message)
	}
	return err
}

func validate(c model.Coordinates) error {
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return errors.Wrapf(ErrPositionUnavailable, "coordinates out of range (%v, %v)", c.Latitude, c.Longitude)
	}
	return nil
}
