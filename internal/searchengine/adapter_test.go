package searchengine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/thai-tokenizer/sidecar/internal/document"
)

func TestDocumentAdder_BulkAdd_FlattensFieldsAndReturnsTaskID(t *testing.T) {
	var received []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		_ = json.NewEncoder(w).Encode(TaskRef{TaskUID: 7})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Index: "docs"})
	adder := NewDocumentAdder(client)

	docs := []document.ProcessedDocument{
		{
			ID:              "doc-1",
			OriginalFields:  map[string]any{"title": "สวัสดี"},
			TokenizedFields: map[string]string{"tokenized_content": "สวัสดี​"},
			Metadata:        document.Metadata{EngineLabel: "newmm", TokenCount: 1},
			Status:          document.StatusCompleted,
		},
	}

	taskID, err := adder.BulkAdd(context.Background(), docs)
	if err != nil {
		t.Fatalf("BulkAdd failed: %v", err)
	}
	if taskID != "7" {
		t.Errorf("taskID = %q, want %q", taskID, "7")
	}
	if len(received) != 1 {
		t.Fatalf("expected 1 document sent, got %d", len(received))
	}
	if received[0]["id"] != "doc-1" {
		t.Errorf("id = %v, want doc-1", received[0]["id"])
	}
	if received[0]["tokenized_content"] != "สวัสดี​" {
		t.Errorf("tokenized_content missing from flattened payload: %v", received[0])
	}

	metadata, ok := received[0]["metadata"].(map[string]any)
	if !ok {
		t.Fatalf("expected metadata object in flattened payload, got: %v", received[0]["metadata"])
	}
	if metadata["engine_label"] != "newmm" {
		t.Errorf("metadata.engine_label = %v, want newmm", metadata["engine_label"])
	}
}
