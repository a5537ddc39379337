package searchengine

import (
	"context"
	"strconv"

	"github.com/thai-tokenizer/sidecar/internal/document"
)

// DocumentAdder adapts Client to batch.BulkAdder: it flattens each
// ProcessedDocument into the field map the search engine's bulk-add
// endpoint expects (original fields plus tokenized fields merged
// alongside, per spec.md §6's document-on-the-wire shape) and submits
// the chunk in one call.
type DocumentAdder struct {
	client *Client
}

// NewDocumentAdder wraps client for use as a batch.BulkAdder.
func NewDocumentAdder(client *Client) *DocumentAdder {
	return &DocumentAdder{client: client}
}

// BulkAdd pushes a chunk of processed documents and returns the search
// engine's async task id as a string.
func (a *DocumentAdder) BulkAdd(ctx context.Context, docs []document.ProcessedDocument) (string, error) {
	payload := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		payload = append(payload, flatten(d))
	}

	taskUID, err := a.client.BulkAddDocuments(ctx, payload)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(taskUID), nil
}

func flatten(d document.ProcessedDocument) map[string]any {
	out := make(map[string]any, len(d.OriginalFields)+len(d.TokenizedFields)+2)
	for k, v := range d.OriginalFields {
		out[k] = v
	}
	for k, v := range d.TokenizedFields {
		out[k] = v
	}
	out["id"] = d.ID
	out["metadata"] = d.Metadata
	return out
}
