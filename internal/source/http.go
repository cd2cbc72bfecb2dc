package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/saviobatista/sbs-viewer/internal/logger"
	"github.com/saviobatista/sbs-viewer/internal/types"
)

// AircraftPath is the API endpoint listing the registry
const AircraftPath = "/api/aircraft"

// maxBodySize caps a single snapshot response
const maxBodySize = 32 << 20

// HTTPSource fetches snapshots from the aircraft API
type HTTPSource struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewHTTPSource creates a source for the API at baseURL. timeout bounds
// each request; zero means no limit beyond the caller's context.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     logger.WithComponent("source.http"),
	}
}

// FetchSnapshot implements table.Source
func (s *HTTPSource) FetchSnapshot(ctx context.Context) ([]types.Aircraft, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+AircraftPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: server returned %s", ErrUnreachable, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUnreachable, err)
	}

	aircraft, skipped, err := Decode(body, s.log)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		s.log.Warn().Int("skipped", skipped).Int("kept", len(aircraft)).Msg("Dropped malformed aircraft records")
	}
	return aircraft, nil
}
