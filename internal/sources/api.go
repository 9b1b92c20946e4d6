package sources

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stacklok/department-sync/internal/httpclient"
)

// apiSource fetches departments from an upstream HTTP API
type apiSource struct {
	httpClient httpclient.Client
	url        string
}

// NewAPISource creates a source reading the department list from url
func NewAPISource(client httpclient.Client, url string) Source {
	return &apiSource{httpClient: client, url: url}
}

// FetchDepartments retrieves and decodes the full department list
func (s *apiSource) FetchDepartments(ctx context.Context) ([]Record, error) {
	data, err := s.httpClient.Get(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch departments from %s: %w", s.url, err)
	}

	records, err := decodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("invalid response from %s: %w", s.url, err)
	}

	slog.Debug("Fetched departments from API", "url", s.url, "count", len(records))
	return records, nil
}

func (s *apiSource) Describe() string {
	return "api " + s.url
}
