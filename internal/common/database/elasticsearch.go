// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"
	"strings"

	"microfinance-scoring/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient wraps the client used for the score analytics index.
type ElasticsearchClient struct {
	Client *elasticsearch.Client
	Index  string
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchClient{Client: es, Index: cfg.ScoreIndex}, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}

const scoreIndexMapping = `{
  "mappings": {
    "properties": {
      "subjectId":      {"type": "keyword"},
      "version":        {"type": "long"},
      "score":          {"type": "double"},
      "score850":       {"type": "integer"},
      "riskTier":       {"type": "keyword"},
      "eligibleAmount": {"type": "long"},
      "modelType":      {"type": "keyword"},
      "productType":    {"type": "keyword"},
      "source":         {"type": "keyword"},
      "computedAt":     {"type": "date"}
    }
  }
}`

// EnsureIndex creates the score index with its mapping unless it exists.
func (c *ElasticsearchClient) EnsureIndex(ctx context.Context) error {
	res, err := c.Client.Indices.Exists([]string{c.Index}, c.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", c.Index, err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = c.Client.Indices.Create(
		c.Index,
		c.Client.Indices.Create.WithContext(ctx),
		c.Client.Indices.Create.WithBody(strings.NewReader(scoreIndexMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", c.Index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", c.Index, res.Status())
	}
	return nil
}
