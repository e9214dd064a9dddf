package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fadedpez/contrast/internal/logging"
	"github.com/fadedpez/contrast/pkg/entities"
	"github.com/stretchr/testify/suite"
)

// fakeCluster answers the handful of Elasticsearch endpoints the archive uses
type fakeCluster struct {
	mu       sync.Mutex
	indices  map[string]bool
	aliases  map[string]string
	docs     map[string]map[string]ESTransaction
	bulkFail bool
	failAll  bool
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{
		indices: make(map[string]bool),
		aliases: make(map[string]string),
		docs:    make(map[string]map[string]ESTransaction),
	}
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	if f.failAll {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"type":"internal_error","reason":"boom"},"status":500}`)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodPost && path == "_bulk":
		f.handleBulk(w, r)
	case r.Method == http.MethodPost && path == "_aliases":
		var body struct {
			Actions []map[string]struct {
				Index string `json:"index"`
				Alias string `json:"alias"`
			} `json:"actions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, action := range body.Actions {
			if add, ok := action["add"]; ok {
				f.aliases[add.Index] = add.Alias
			}
		}
		fmt.Fprint(w, `{"acknowledged":true}`)
	case r.Method == http.MethodHead:
		if !f.indices[path] {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut:
		if f.indices[path] {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"type":"resource_already_exists_exception"},"status":400}`)
			return
		}
		f.indices[path] = true
		fmt.Fprintf(w, `{"acknowledged":true,"index":%q}`, path)
	case r.Method == http.MethodGet:
		prefix := strings.TrimSuffix(path, "*")
		result := make(map[string]interface{})
		for name := range f.indices {
			if strings.HasPrefix(name, prefix) {
				result[name] = map[string]interface{}{}
			}
		}
		json.NewEncoder(w).Encode(result)
	case r.Method == http.MethodDelete:
		if !f.indices[path] {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"type":"index_not_found_exception"},"status":404}`)
			return
		}
		delete(f.indices, path)
		delete(f.docs, path)
		fmt.Fprint(w, `{"acknowledged":true}`)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeCluster) handleBulk(w http.ResponseWriter, r *http.Request) {
	scanner := bufio.NewScanner(r.Body)
	var items []string
	for scanner.Scan() {
		var meta struct {
			Index struct {
				Index string `json:"_index"`
				ID    string `json:"_id"`
			} `json:"index"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &meta); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if !scanner.Scan() {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var doc ESTransaction
		if err := json.Unmarshal(scanner.Bytes(), &doc); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if f.bulkFail {
			items = append(items, fmt.Sprintf(`{"index":{"_index":%q,"_id":%q,"status":400,"error":{"type":"mapper_parsing_exception","reason":"failed to parse"}}}`, meta.Index.Index, meta.Index.ID))
			continue
		}
		if f.docs[meta.Index.Index] == nil {
			f.docs[meta.Index.Index] = make(map[string]ESTransaction)
		}
		f.docs[meta.Index.Index][meta.Index.ID] = doc
		items = append(items, fmt.Sprintf(`{"index":{"_index":%q,"_id":%q,"status":201}}`, meta.Index.Index, meta.Index.ID))
	}
	fmt.Fprintf(w, `{"took":1,"errors":%t,"items":[%s]}`, f.bulkFail, strings.Join(items, ","))
}

func (f *fakeCluster) docCount(index string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs[index])
}

type ArchiveTestSuite struct {
	suite.Suite
	cluster *fakeCluster
	server  *httptest.Server
	archive *ElasticsearchArchive
	ctx     context.Context
}

func TestArchiveSuite(t *testing.T) {
	suite.Run(t, new(ArchiveTestSuite))
}

func (s *ArchiveTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.cluster = newFakeCluster()
	s.server = httptest.NewServer(s.cluster)

	cfg := DefaultElasticsearchConfig()
	cfg.URL = s.server.URL
	cfg.IndexPrefix = "test"

	archive, err := NewElasticsearchArchive(s.ctx, cfg, logging.New(&bytes.Buffer{}, logging.DEBUG, false))
	s.Require().NoError(err)
	s.archive = archive
}

func (s *ArchiveTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *ArchiveTestSuite) TestNewArchiveCreatesCurrentIndex() {
	current := s.archive.IndexName(time.Now())

	s.True(s.cluster.indices[current])
	s.Equal("test_transactions", s.cluster.aliases[current])
}

func (s *ArchiveTestSuite) TestIndexName() {
	at := time.Date(2024, time.March, 31, 23, 30, 0, 0, time.FixedZone("east", 3*60*60))
	s.Equal("test_transactions_2024.03", s.archive.IndexName(at))
}

func (s *ArchiveTestSuite) TestRecordSplitsByMonth() {
	entries := []*entities.TransactionLogEntry{
		{ID: "e1", UserID: "u1", Kind: entities.TransactionKindAdd, Amount: 100, Reason: "grant", BalanceAfter: 100, Timestamp: time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC)},
		{ID: "e2", UserID: "u1", Kind: entities.TransactionKindRemove, Amount: 40, Reason: "fine", BalanceAfter: 60, Timestamp: time.Date(2024, time.February, 1, 12, 0, 0, 0, time.UTC)},
	}

	s.Require().NoError(s.archive.Record(s.ctx, entries))

	s.Equal(1, s.cluster.docCount("test_transactions_2024.01"))
	s.Equal(1, s.cluster.docCount("test_transactions_2024.02"))
	s.True(s.cluster.indices["test_transactions_2024.02"])

	doc := s.cluster.docs["test_transactions_2024.02"]["e2"]
	s.Equal("remove", doc.Kind)
	s.Equal(int64(-40), doc.SignedAmount)
	s.Equal(int64(60), doc.BalanceAfter)
}

func (s *ArchiveTestSuite) TestRecordIsIdempotent() {
	entry := &entities.TransactionLogEntry{ID: "e1", UserID: "u1", Kind: entities.TransactionKindPayout, Amount: 20, BalanceAfter: 20, Timestamp: time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC)}

	s.Require().NoError(s.archive.Record(s.ctx, []*entities.TransactionLogEntry{entry}))
	s.Require().NoError(s.archive.Record(s.ctx, []*entities.TransactionLogEntry{entry}))

	s.Equal(1, s.cluster.docCount("test_transactions_2024.05"))
}

func (s *ArchiveTestSuite) TestRecordEmpty() {
	s.NoError(s.archive.Record(s.ctx, nil))
}

func (s *ArchiveTestSuite) TestRecordReportsItemErrors() {
	s.cluster.bulkFail = true
	entry := &entities.TransactionLogEntry{ID: "e1", UserID: "u1", Kind: entities.TransactionKindAdd, Amount: 5, Timestamp: time.Now()}

	err := s.archive.Record(s.ctx, []*entities.TransactionLogEntry{entry})

	s.Require().Error(err)
	s.Contains(err.Error(), "mapper_parsing_exception")
}

func (s *ArchiveTestSuite) TestPruneOldIndices() {
	for _, name := range []string{
		"test_transactions_2024.01",
		"test_transactions_2024.02",
		"test_transactions_2024.03",
		"test_transactions_2024.06",
		"test_transactions_bogus",
		"other_transactions_2020.01",
	} {
		s.cluster.indices[name] = true
	}
	s.archive.now = func() time.Time { return time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC) }

	deleted, err := s.archive.PruneOldIndices(s.ctx)

	s.Require().NoError(err)
	s.Equal([]string{"test_transactions_2024.01", "test_transactions_2024.02"}, deleted)
	s.False(s.cluster.indices["test_transactions_2024.01"])
	s.True(s.cluster.indices["test_transactions_2024.03"])
	s.True(s.cluster.indices["test_transactions_bogus"])
	s.True(s.cluster.indices["other_transactions_2020.01"])
}

func (s *ArchiveTestSuite) TestRotateIndicesCreatesNewMonth() {
	s.archive.now = func() time.Time { return time.Date(2031, time.July, 1, 0, 0, 0, 0, time.UTC) }

	s.Require().NoError(s.archive.RotateIndices(s.ctx))

	s.True(s.cluster.indices["test_transactions_2031.07"])
	s.Equal("test_transactions", s.cluster.aliases["test_transactions_2031.07"])
}

func (s *ArchiveTestSuite) TestGetIndicesSorted() {
	s.cluster.indices["test_transactions_2023.12"] = true
	s.cluster.indices["test_transactions_2023.11"] = true

	indices, err := s.archive.GetIndices(s.ctx, "test_transactions_2023*")

	s.Require().NoError(err)
	s.Equal([]string{"test_transactions_2023.11", "test_transactions_2023.12"}, indices)
}

func (s *ArchiveTestSuite) TestClusterErrorsSurface() {
	s.cluster.failAll = true

	_, err := s.archive.GetIndices(s.ctx, "test_transactions_*")
	s.Error(err)

	cfg := DefaultElasticsearchConfig()
	cfg.URL = s.server.URL
	_, err = NewElasticsearchArchive(s.ctx, cfg, nil)
	s.Error(err)
}
