package geolocation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senharo1981/tdr-store/pkg/domain/model"
	"github.com/senharo1981/tdr-store/pkg/infrastructure/geolocation"
)

func TestReported(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		fix := &model.Coordinates{Latitude: 24.86, Longitude: 67.01}
		coords, err := geolocation.NewReported(geolocation.Report{Coordinates: fix}).Locate(ctx)

		require.NoError(t, err)
		assert.Equal(t, *fix, coords)
	})

	t.Run("Error codes map to errors", func(t *testing.T) {
		cases := map[int]error{
			geolocation.CodePermissionDenied:    geolocation.ErrPermissionDenied,
			geolocation.CodePositionUnavailable: geolocation.ErrPositionUnavailable,
			geolocation.CodeTimeout:             geolocation.ErrTimeout,
		}
		for code, want := range cases {
			_, err := geolocation.NewReported(geolocation.Report{Code: code, Message: "from device"}).Locate(ctx)
			assert.ErrorIs(t, err, want)
			assert.ErrorContains(t, err, "from device")
		}

		_, err := geolocation.NewReported(geolocation.Report{Code: 7}).Locate(ctx)
		assert.ErrorContains(t, err, "code 7")
	})

	t.Run("Fail on empty report", func(t *testing.T) {
		_, err := geolocation.NewReported(geolocation.Report{}).Locate(ctx)
		assert.ErrorIs(t, err, geolocation.ErrNoFix)
	})

	t.Run("Fail on out of range coordinates", func(t *testing.T) {
		fix := &model.Coordinates{Latitude: 91, Longitude: 0}
		_, err := geolocation.NewReported(geolocation.Report{Coordinates: fix}).Locate(ctx)
		assert.ErrorIs(t, err, geolocation.ErrPositionUnavailable)
	})

	t.Run("Fail on cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		fix := &model.Coordinates{Latitude: 1, Longitude: 1}

		_, err := geolocation.NewReported(geolocation.Report{Coordinates: fix}).Locate(cancelled)
		assert.ErrorIs(t, err, context.Canceled)

		_, err = geolocation.Fixed{Latitude: 1, Longitude: 1}.Locate(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFixed(t *testing.T) {
	coords, err := geolocation.Fixed{Latitude: -33.5, Longitude: 151}.Locate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, model.Coordinates{Latitude: -33.5, Longitude: 151}, coords)
}
