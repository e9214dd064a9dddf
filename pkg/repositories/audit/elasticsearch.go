package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/fadedpez/contrast/internal/config"
	"github.com/fadedpez/contrast/internal/logging"
	"github.com/fadedpez/contrast/pkg/entities"
)

const indexDateLayout = "2006.01"

// ElasticsearchConfig holds configuration options for the audit archive
type ElasticsearchConfig struct {
	URL             string
	Username        string
	Password        string
	IndexPrefix     string
	RetentionPeriod time.Duration // How long to keep monthly indices
	RotationPeriod  time.Duration // How often the maintenance task rotates
	Transport       http.RoundTripper
}

// DefaultElasticsearchConfig returns a default configuration for Elasticsearch
func DefaultElasticsearchConfig() *ElasticsearchConfig {
	return &ElasticsearchConfig{
		URL:             "http://localhost:9200",
		IndexPrefix:     "contrast",
		RetentionPeriod: 90 * 24 * time.Hour, // 90 days
		RotationPeriod:  30 * 24 * time.Hour, // 30 days (monthly)
	}
}

// ConfigFromAudit builds an ElasticsearchConfig from application config
func ConfigFromAudit(cfg config.AuditConfig) *ElasticsearchConfig {
	return &ElasticsearchConfig{
		URL:             cfg.URL,
		Username:        cfg.Username,
		Password:        cfg.Password,
		IndexPrefix:     cfg.IndexPrefix,
		RetentionPeriod: cfg.Retention,
		RotationPeriod:  cfg.Rotation,
	}
}

// ElasticsearchArchive mirrors committed transaction log entries into
// monthly Elasticsearch indices
type ElasticsearchArchive struct {
	client  *elasticsearch.Client
	config  ElasticsearchConfig
	logger  *logging.Logger
	now     func() time.Time
	mu      sync.Mutex
	created map[string]bool
}

// NewElasticsearchArchive connects to Elasticsearch and prepares the
// index for the current month
func NewElasticsearchArchive(ctx context.Context, cfg *ElasticsearchConfig, logger *logging.Logger) (*ElasticsearchArchive, error) {
	defaults := DefaultElasticsearchConfig()
	if cfg == nil {
		cfg = defaults
	}

	esCfg := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Transport: cfg.Transport,
	}

	// Add authentication if provided
	if cfg.Username != "" && cfg.Password != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Elasticsearch client: %w", err)
	}

	archive := &ElasticsearchArchive{
		client:  client,
		config:  *cfg,
		logger:  logging.OrDefault(logger).With("audit"),
		now:     time.Now,
		created: make(map[string]bool),
	}
	if archive.config.IndexPrefix == "" {
		archive.config.IndexPrefix = defaults.IndexPrefix
	}
	if archive.config.RetentionPeriod <= 0 {
		archive.config.RetentionPeriod = defaults.RetentionPeriod
	}
	if archive.config.RotationPeriod <= 0 {
		archive.config.RotationPeriod = defaults.RotationPeriod
	}

	if err := archive.RotateIndices(ctx); err != nil {
		return nil, fmt.Errorf("error initializing indices: %w", err)
	}
	return archive, nil
}

// GetConfig returns the archive configuration
func (a *ElasticsearchArchive) GetConfig() ElasticsearchConfig {
	return a.config
}

// AliasName is the read alias spanning every monthly index
func (a *ElasticsearchArchive) AliasName() string {
	return a.config.IndexPrefix + "_transactions"
}

// IndexName returns the monthly index that holds entries from t
func (a *ElasticsearchArchive) IndexName(t time.Time) string {
	return a.AliasName() + "_" + t.UTC().Format(indexDateLayout)
}

// Record bulk-indexes entries, each into the index for its month.
// Entry IDs are used as document IDs so retries do not duplicate.
func (a *ElasticsearchArchive) Record(ctx context.Context, entries []*entities.TransactionLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	var body bytes.Buffer
	for _, entry := range entries {
		index := a.IndexName(entry.Timestamp)
		if err := a.ensureIndex(ctx, index); err != nil {
			return err
		}

		meta := map[string]interface{}{
			"index": map[string]interface{}{"_index": index, "_id": entry.ID},
		}
		if err := json.NewEncoder(&body).Encode(meta); err != nil {
			return fmt.Errorf("error encoding bulk metadata: %w", err)
		}
		if err := json.NewEncoder(&body).Encode(toESTransaction(entry)); err != nil {
			return fmt.Errorf("error encoding transaction %s: %w", entry.ID, err)
		}
	}

	res, err := a.client.Bulk(
		bytes.NewReader(body.Bytes()),
		a.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("error indexing transactions: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing transactions: %s", res.String())
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("error parsing bulk response: %w", err)
	}
	if parsed.Errors {
		for _, item := range parsed.Items {
			for _, result := range item {
				if result.Error != nil {
					return fmt.Errorf("error indexing transaction %s: %s: %s", result.ID, result.Error.Type, result.Error.Reason)
				}
			}
		}
		return fmt.Errorf("error indexing transactions: bulk request reported errors")
	}
	return nil
}

// RotateIndices makes sure this month's index exists and is covered by the alias
func (a *ElasticsearchArchive) RotateIndices(ctx context.Context) error {
	index := a.IndexName(a.now())
	if err := a.ensureIndex(ctx, index); err != nil {
		return err
	}

	aliasActions := map[string]interface{}{
		"actions": []map[string]interface{}{
			{
				"add": map[string]interface{}{
					"index": index,
					"alias": a.AliasName(),
				},
			},
		},
	}
	aliasJSON, err := json.Marshal(aliasActions)
	if err != nil {
		return fmt.Errorf("error marshaling alias actions: %w", err)
	}

	req := esapi.IndicesUpdateAliasesRequest{
		Body: bytes.NewReader(aliasJSON),
	}
	res, err := req.Do(ctx, a.client)
	if err != nil {
		return fmt.Errorf("error updating alias: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error updating alias: %s", res.String())
	}
	return nil
}

// PruneOldIndices deletes monthly indices whose whole month is older than
// the retention period and returns the names it deleted
func (a *ElasticsearchArchive) PruneOldIndices(ctx context.Context) ([]string, error) {
	indices, err := a.GetIndices(ctx, a.AliasName()+"_*")
	if err != nil {
		return nil, err
	}

	cutoff := a.now().Add(-a.config.RetentionPeriod)
	var deleted []string
	for _, index := range indices {
		month, err := time.Parse(indexDateLayout, strings.TrimPrefix(index, a.AliasName()+"_"))
		if err != nil {
			a.logger.Warn("skipping index %s with unexpected name: %v", index, err)
			continue
		}
		if !month.AddDate(0, 1, 0).Before(cutoff) {
			continue
		}

		req := esapi.IndicesDeleteRequest{
			Index: []string{index},
		}
		res, err := req.Do(ctx, a.client)
		if err != nil {
			a.logger.Error("error deleting index %s: %v", index, err)
			continue
		}
		if res.IsError() {
			a.logger.Error("error deleting index %s: %s", index, res.String())
			res.Body.Close()
			continue
		}
		res.Body.Close()

		a.mu.Lock()
		delete(a.created, index)
		a.mu.Unlock()

		a.logger.Info("deleted index %s (older than retention period of %v)", index, a.config.RetentionPeriod)
		deleted = append(deleted, index)
	}
	return deleted, nil
}

// GetIndices returns the sorted names of open indices matching pattern
func (a *ElasticsearchArchive) GetIndices(ctx context.Context, pattern string) ([]string, error) {
	res, err := a.client.Indices.Get(
		[]string{pattern},
		a.client.Indices.Get.WithContext(ctx),
		a.client.Indices.Get.WithExpandWildcards("open"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get indices: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error getting indices: %s", res.String())
	}

	var indices map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&indices); err != nil {
		return nil, fmt.Errorf("error parsing indices response: %w", err)
	}

	names := make([]string, 0, len(indices))
	for name := range indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op; the HTTP client holds no resources that need releasing
func (a *ElasticsearchArchive) Close() error {
	return nil
}

// ensureIndex creates index with the transaction mapping if it is missing
func (a *ElasticsearchArchive) ensureIndex(ctx context.Context, index string) error {
	a.mu.Lock()
	known := a.created[index]
	a.mu.Unlock()
	if known {
		return nil
	}

	res, err := a.client.Indices.Exists([]string{index}, a.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error checking if index exists: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		req := esapi.IndicesCreateRequest{
			Index: index,
			Body:  strings.NewReader(transactionMapping),
		}
		res, err := req.Do(ctx, a.client)
		if err != nil {
			return fmt.Errorf("error creating index %s: %w", index, err)
		}
		defer res.Body.Close()

		if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
			return fmt.Errorf("error creating index %s: %s", index, res.String())
		}
		a.logger.Info("created index %s", index)
	} else if res.IsError() {
		return fmt.Errorf("error checking if index exists: %s", res.String())
	}

	a.mu.Lock()
	a.created[index] = true
	a.mu.Unlock()
	return nil
}
