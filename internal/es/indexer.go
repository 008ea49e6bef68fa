package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/intake"
)

// Indexer stores intake submissions as documents keyed by submission id.
type Indexer struct {
	Client *elasticsearch.Client
	Index  string
}

func (ix *Indexer) Name() string { return "elasticsearch" }

func (ix *Indexer) Deliver(ctx context.Context, sub intake.Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("es: marshal submission: %w", err)
	}

	res, err := ix.Client.Index(
		ix.Index,
		bytes.NewReader(body),
		ix.Client.Index.WithContext(ctx),
		ix.Client.Index.WithDocumentID(sub.ID),
	)
	if err != nil {
		return fmt.Errorf("es: index submission: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("es: index submission: %s: %s", res.Status(), msg)
	}
	return nil
}
