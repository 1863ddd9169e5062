package datasource

import (
	"context"
	"errors"

	"github.com/OldStager01/workforce-ml/internal/frame"
)

var (
	ErrFetchFailed     = errors.New("tabular fetch failed")
	ErrUnknownDataset  = errors.New("unknown dataset")
	ErrInvalidResponse = errors.New("invalid response from data source")
)

// Query describes one dataset. SQL is executed verbatim by database backed
// sources; the other sources resolve Name.
type Query struct {
	Name string
	SQL  string
	Args []interface{}
}

// Source is the tabular boundary every trainer loads its data through.
type Source interface {
	// FetchTabular returns a rectangular row set with named columns.
	FetchTabular(ctx context.Context, q Query) (*frame.Frame, error)

	// HealthCheck verifies the source can reach its backing store
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the source
	Close() error
}
