package rowsource

import (
	"context"
	"fmt"
	"net/url"

	"github.com/adpulse/metrics-engine/internal/pkg/httpretry"
	"github.com/adpulse/metrics-engine/internal/tabular"
)

// URLSource downloads an export over HTTP. Ad platforms rate-limit report
// endpoints aggressively, so downloads go through the retrying client.
type URLSource struct {
	Client  *httpretry.RetryClient
	URL     string
	MaxRows int

	// MaxBytes caps the download size; zero means the client default.
	MaxBytes int64
}

func (s *URLSource) Tag() string { return "url:" + s.URL }

func (s *URLSource) Fetch(ctx context.Context) (*tabular.ParseResult, error) {
	u, err := url.Parse(s.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("unsupported export url %q", s.URL)
	}
	data, err := s.Client.Fetch(ctx, s.URL, s.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("download export: %w", err)
	}
	return parsePayload(u.Path, data, s.MaxRows)
}
