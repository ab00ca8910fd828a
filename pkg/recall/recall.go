// Package recall ranks episodic memories against a query with a full-text
// index (BM25 over English-stemmed text).
package recall

import (
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

const (
	fieldUser = "user_id"
	fieldText = "text"
	rankUser  = "rank"
)

// Index is an in-memory full-text index of memories. It is safe for
// concurrent use.
type Index struct {
	mu  sync.RWMutex
	idx bleve.Index
}

// New creates an empty index.
func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("creating recall index: %w", err)
	}
	return &Index{idx: idx}, nil
}

func buildMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = en.AnalyzerName

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt(fieldText, text)
	doc.AddFieldMappingsAt(fieldUser, bleve.NewKeywordFieldMapping())

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = en.AnalyzerName
	return m
}

// Put indexes m, replacing any earlier version with the same id.
func (x *Index) Put(m domain.Memory) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.idx.Index(m.ID, map[string]any{fieldUser: m.UserID, fieldText: m.Text})
}

// Remove drops the memory with id.
func (x *Index) Remove(id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.idx.Delete(id)
}

// Search returns the ids of the user's memories matching query, best first.
func (x *Index) Search(userID, query string, limit int) ([]string, error) {
	if strings.TrimSpace(query) == "" || limit < 1 {
		return nil, nil
	}
	user := bleve.NewTermQuery(userID)
	user.SetField(fieldUser)
	text := bleve.NewMatchQuery(query)
	text.SetField(fieldText)

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(user, text), limit, 0, false)

	x.mu.RLock()
	res, err := x.idx.Search(req)
	x.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("searching memories: %w", err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Close releases the index.
func (x *Index) Close() error {
	return x.idx.Close()
}

// Rank orders memories by relevance to query, dropping those that do not
// match, and keeps at most limit. It indexes the given memories on the fly,
// so it suits stores that keep no index of their own.
func Rank(memories []domain.Memory, query string, limit int) ([]domain.Memory, error) {
	if len(memories) == 0 {
		return nil, nil
	}
	x, err := New()
	if err != nil {
		return nil, err
	}
	defer x.Close()

	byID := make(map[string]domain.Memory, len(memories))
	for _, m := range memories {
		byID[m.ID] = m
		// The caller scoped the slice to one user; index under a shared key.
		m.UserID = rankUser
		if err := x.Put(m); err != nil {
			return nil, err
		}
	}
	ids, err := x.Search(rankUser, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Memory, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out, nil
}
