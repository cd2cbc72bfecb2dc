package source

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/saviobatista/sbs-viewer/internal/logger"
	"github.com/saviobatista/sbs-viewer/internal/types"
)

// Lister is implemented by the Postgres registry and the Redis cache
type Lister interface {
	ListAircraft(ctx context.Context) ([]types.Aircraft, error)
}

// ListerSource adapts a registry store to table.Source
type ListerSource struct {
	name   string
	lister Lister
	log    zerolog.Logger
}

// NewListerSource wraps lister; name appears in errors and logs
func NewListerSource(name string, lister Lister) *ListerSource {
	return &ListerSource{
		name:   name,
		lister: lister,
		log:    logger.WithComponent("source." + name),
	}
}

// FetchSnapshot implements table.Source
func (s *ListerSource) FetchSnapshot(ctx context.Context) ([]types.Aircraft, error) {
	records, err := s.lister.ListAircraft(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, s.name, err)
	}

	aircraft, skipped := Sanitize(records, s.log)
	if skipped > 0 {
		s.log.Warn().Int("skipped", skipped).Msg("Dropped invalid aircraft records")
	}
	return aircraft, nil
}
