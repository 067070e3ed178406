package location

import (
	"context"

	"github.com/Daskott/enablex/server/models"
	"github.com/Daskott/enablex/shared"
)

// Source produces a single position fix
type Source interface {
	CurrentPosition(ctx context.Context) (models.LocationSample, error)
}

// FixedSource always reports the same position, e.g. for a bedside tablet
type FixedSource struct {
	Sample models.LocationSample
}

func (source FixedSource) CurrentPosition(ctx context.Context) (models.LocationSample, error) {
	if err := ctx.Err(); err != nil {
		return models.LocationSample{}, err
	}
	return source.Sample, nil
}

// UnsupportedSource is used when the device has no positioning at all
type UnsupportedSource struct{}

func (UnsupportedSource) CurrentPosition(ctx context.Context) (models.LocationSample, error) {
	return models.LocationSample{}, shared.ErrUnsupported
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context) (models.LocationSample, error)

func (fn SourceFunc) CurrentPosition(ctx context.Context) (models.LocationSample, error) {
	return fn(ctx)
}
