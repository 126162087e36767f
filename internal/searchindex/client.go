// Package searchindex is the only writer of the search engine's events
// collection: it never reads the collection to make decisions about
// the authoritative store, only projects into it.
package searchindex

import (
	"fmt"
	"time"

	"github.com/typesense/typesense-go/typesense"
)

// ClientConfig is what NewClient needs: search-engine
// host, port, protocol, api key, and connection timeout.
type ClientConfig struct {
	Host              string
	Port              int
	Protocol          string
	APIKey            string
	ConnectionTimeout time.Duration
	CollectionName    string
}

func NewClient(cfg ClientConfig) (*typesense.Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("searchindex: host is required")
	}
	protocol := cfg.Protocol
	if protocol == "" {
		protocol = "http"
	}
	timeout := cfg.ConnectionTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	server := fmt.Sprintf("%s://%s:%d", protocol, cfg.Host, cfg.Port)
	return typesense.NewClient(
		typesense.WithServer(server),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(timeout),
	), nil
}
