package opensearch

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mstgnz/cardgate/infra/config"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// SystemIndexName is the index the system logger writes to.
const SystemIndexName = "cardgate-system-logs"

// Client wraps the OpenSearch client
type Client struct {
	client *opensearch.Client
	config *config.AppConfig
}

// NewClient creates a new OpenSearch client. It does not contact the cluster.
func NewClient(cfg *config.AppConfig) (*Client, error) {
	opensearchConfig := opensearch.Config{
		Addresses: []string{cfg.OpenSearchURL},
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: !cfg.IsProduction(),
			},
		},
		MaxRetries:    3,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			return time.Duration(i) * 100 * time.Millisecond
		},
	}

	if cfg.OpenSearchUser != "" && cfg.OpenSearchPass != "" {
		opensearchConfig.Username = cfg.OpenSearchUser
		opensearchConfig.Password = cfg.OpenSearchPass
	}

	client, err := opensearch.NewClient(opensearchConfig)
	if err != nil {
		return nil, fmt.Errorf("opensearch: create client: %w", err)
	}

	return &Client{
		client: client,
		config: cfg,
	}, nil
}

// GetClient returns the underlying OpenSearch client
func (c *Client) GetClient() *opensearch.Client {
	return c.client
}

// EventIndexName returns the audit index for a provider.
func (c *Client) EventIndexName(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = "unknown"
	}
	return "cardgate-" + provider + "-events"
}

// IsEnabled returns whether OpenSearch logging is enabled
func (c *Client) IsEnabled() bool {
	return c != nil && c.config.EnableLogging
}

// EnsureIndices creates the event index of every given provider that does not exist yet.
func (c *Client) EnsureIndices(ctx context.Context, providers []string) error {
	if !c.IsEnabled() {
		return nil
	}

	for _, provider := range providers {
		indexName := c.EventIndexName(provider)

		exists, err := c.indexExists(ctx, indexName)
		if err != nil {
			return fmt.Errorf("opensearch: check index %s: %w", indexName, err)
		}
		if exists {
			continue
		}
		if err := c.createEventIndex(ctx, indexName); err != nil {
			return fmt.Errorf("opensearch: create index %s: %w", indexName, err)
		}
	}

	return nil
}

func (c *Client) indexExists(ctx context.Context, indexName string) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{
		Index: []string{indexName},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	return res.StatusCode == http.StatusOK, nil
}

func (c *Client) createEventIndex(ctx context.Context, indexName string) error {
	req := opensearchapi.IndicesCreateRequest{
		Index: indexName,
		Body:  strings.NewReader(eventIndexMapping),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index creation error: %s", res.String())
	}

	return nil
}

const eventIndexMapping = `{
	"mappings": {
		"properties": {
			"id":          {"type": "keyword"},
			"timestamp":   {"type": "date", "format": "strict_date_optional_time||epoch_millis"},
			"type":        {"type": "keyword"},
			"provider":    {"type": "keyword"},
			"request_id":  {"type": "keyword"},
			"reference":   {"type": "keyword"},
			"payment_id":  {"type": "keyword"},
			"amount":      {"type": "scaled_float", "scaling_factor": 100},
			"currency":    {"type": "keyword"},
			"brand":       {"type": "keyword"},
			"last4":       {"type": "keyword"},
			"status":      {"type": "keyword"},
			"success":     {"type": "boolean"},
			"duration_ms": {"type": "long"},
			"error": {
				"properties": {
					"code":    {"type": "keyword"},
					"message": {"type": "text"}
				}
			}
		}
	},
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 0
	}
}`
