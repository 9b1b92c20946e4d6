package sources

import (
	"fmt"

	"github.com/stacklok/department-sync/internal/config"
	"github.com/stacklok/department-sync/internal/httpclient"
)

// NewSource creates the source described by cfg.Source
func NewSource(cfg *config.Config) (Source, error) {
	switch cfg.Source.Type {
	case config.SourceTypeAPI:
		if cfg.Source.API == nil {
			return nil, fmt.Errorf("api configuration is required for source type %s", config.SourceTypeAPI)
		}
		token, err := cfg.Source.API.GetToken()
		if err != nil {
			return nil, err
		}
		var opts []httpclient.ClientOption
		if token != "" {
			opts = append(opts, httpclient.WithHeader("Authorization", "Bearer "+token))
		}
		client := httpclient.NewDefaultClient(cfg.GetFetchTimeout(), opts...)
		return NewAPISource(client, cfg.Source.API.GetSourceURL()), nil
	case config.SourceTypeFile:
		if cfg.Source.File == nil {
			return nil, fmt.Errorf("file configuration is required for source type %s", config.SourceTypeFile)
		}
		return NewFileSource(cfg.Source.File.Path), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", cfg.Source.Type)
	}
}
