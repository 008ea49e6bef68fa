package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/intake"
)

var ErrBackend = errors.New("search backend error")

// Submissions runs a fuzzy multi_match over intake submissions, newest first.
// An empty query matches everything.
func Submissions(ctx context.Context, es *elasticsearch.Client, index, query string, from, size int) (int64, []intake.Submission, error) {
	var q map[string]any
	if query == "" {
		q = map[string]any{"match_all": map[string]any{}}
	} else {
		q = map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "email^2", "company", "message"},
				"fuzziness": "AUTO",
			},
		}
	}
	body := map[string]any{
		"query": q,
		"from":  from,
		"size":  size,
		"sort":  []any{map[string]any{"created_at": map[string]any{"order": "desc", "unmapped_type": "date"}}},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("%w: %s: %s", ErrBackend, res.Status(), msg)
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 } `json:"total"`
			Hits  []struct {
				Source intake.Submission `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("%w: decode: %v", ErrBackend, err)
	}

	subs := make([]intake.Submission, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		subs[i] = hit.Source
	}
	return r.Hits.Total.Value, subs, nil
}

// Searcher binds Submissions to one client and index.
type Searcher struct {
	Client *elasticsearch.Client
	Index  string
}

func (s *Searcher) Search(ctx context.Context, query string, from, size int) (int64, []intake.Submission, error) {
	return Submissions(ctx, s.Client, s.Index, query, from, size)
}
