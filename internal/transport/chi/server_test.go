package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tsurugi-io/kensaku/internal/domain"
	"github.com/tsurugi-io/kensaku/internal/query"
	"github.com/tsurugi-io/kensaku/internal/store/memory"
	healthuc "github.com/tsurugi-io/kensaku/internal/usecase/health"
	ingestuc "github.com/tsurugi-io/kensaku/internal/usecase/ingest"
	retrievaluc "github.com/tsurugi-io/kensaku/internal/usecase/retrieval"
)

// stubEmbedder returns the same vector for every text, so ranking in tests
// is driven entirely by the embeddings supplied with the documents.
type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: 1}, nil
}

func (stubEmbedder) HealthCheck(context.Context) error { return nil }

func newTestHandler() http.Handler {
	st := memory.New()
	embed := stubEmbedder{}
	logger := zap.NewNop()
	params := retrievaluc.DefaultParams()

	lexical := retrievaluc.NewLexicalSearcher(st, st, embed, params, logger)
	vector := retrievaluc.NewVectorSearcher(st, embed)
	retrieval := retrievaluc.New(query.NewProcessor(), lexical, vector, params, logger)
	ingest := ingestuc.New(st, embed, logger)
	health := healthuc.New(st, embed)

	srv := NewServer(retrieval, ingest, health, logger)
	r := chi.NewRouter()
	srv.Routes(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeAs[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestSearch_Validation(t *testing.T) {
	h := newTestHandler()

	tests := []struct {
		name     string
		body     any
		wantCode ErrorCode
	}{
		{"missing query", SearchRequest{}, CodeValidationFailed},
		{"negative limit", SearchRequest{Query: "q", Limit: -1}, CodeValidationFailed},
		{"negative weight", SearchRequest{Query: "q", SparseWeight: ptr(-0.1)}, CodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, h, "POST", "/api/v1/search", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
			}
			errResp := decodeAs[ErrorResponse](t, rr)
			if errResp.Code != tt.wantCode {
				t.Errorf("error code = %s, want %s", errResp.Code, tt.wantCode)
			}
		})
	}
}

func TestSearch_InvalidJSON(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest("POST", "/api/v1/search", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	errResp := decodeAs[ErrorResponse](t, rr)
	if errResp.Code != CodeBadRequest {
		t.Errorf("error code = %s, want %s", errResp.Code, CodeBadRequest)
	}
}

func TestSearch_EndToEnd(t *testing.T) {
	h := newTestHandler()

	upsert := doJSON(t, h, "PUT", "/api/v1/documents/1", UpsertDocumentRequest{
		Title:     "Ubuntu Install Guide",
		Category:  "infra/os",
		Body:      "apt を使ったインストール手順",
		Embedding: []float32{1, 0},
	})
	if upsert.Code != http.StatusOK {
		t.Fatalf("upsert status = %d, body %s", upsert.Code, upsert.Body.String())
	}

	rr := doJSON(t, h, "POST", "/api/v1/search", SearchRequest{Query: "ubuntu", Limit: 5})
	if rr.Code != http.StatusOK {
		t.Fatalf("search status = %d, body %s", rr.Code, rr.Body.String())
	}

	resp := decodeAs[SearchResponse](t, rr)
	if resp.Total != 1 {
		t.Fatalf("total = %d, want 1", resp.Total)
	}
	item := resp.Items[0]
	if item.DocumentID != 1 || item.Title != "Ubuntu Install Guide" {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.Contribution != string(domain.ContributionBoth) {
		t.Errorf("contribution = %s, want both", item.Contribution)
	}
	if item.HybridScore <= 0 {
		t.Errorf("hybrid score = %v, want > 0", item.HybridScore)
	}
	if resp.QueryInfo != nil {
		t.Errorf("query info should be omitted without debug")
	}
}

func TestSearch_DebugIncludesQueryInfo(t *testing.T) {
	h := newTestHandler()

	rr := doJSON(t, h, "POST", "/api/v1/search", SearchRequest{Query: "ubuntuのインストール方法", Debug: true})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	resp := decodeAs[SearchResponse](t, rr)
	if resp.QueryInfo == nil {
		t.Fatal("query info missing with debug=true")
	}
	if resp.QueryInfo.RecommendedQuery == "" {
		t.Errorf("recommended query is empty")
	}
}

func TestAnalyzeQuery(t *testing.T) {
	h := newTestHandler()

	rr := doJSON(t, h, "POST", "/api/v1/query/analyze", AnalyzeQueryRequest{Query: "Ubuntuのセットアップ"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	info := decodeAs[QueryInfo](t, rr)
	if info.Original != "Ubuntuのセットアップ" {
		t.Errorf("original = %q", info.Original)
	}
	if len(info.Keywords) == 0 {
		t.Errorf("keywords are empty")
	}

	empty := doJSON(t, h, "POST", "/api/v1/query/analyze", AnalyzeQueryRequest{})
	if empty.Code != http.StatusBadRequest {
		t.Errorf("empty query status = %d, want %d", empty.Code, http.StatusBadRequest)
	}
}

func TestUpsertDocument_Validation(t *testing.T) {
	h := newTestHandler()

	rr := doJSON(t, h, "PUT", "/api/v1/documents/abc", UpsertDocumentRequest{Title: "Doc"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("non-integer id status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	rr = doJSON(t, h, "PUT", "/api/v1/documents/1", UpsertDocumentRequest{Body: "no title"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing title status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUpsertDocument_DimensionMismatch(t *testing.T) {
	h := newTestHandler()

	first := doJSON(t, h, "PUT", "/api/v1/documents/1", UpsertDocumentRequest{
		Title: "A", Body: "a", Embedding: []float32{1, 0},
	})
	if first.Code != http.StatusOK {
		t.Fatalf("first upsert status = %d", first.Code)
	}

	rr := doJSON(t, h, "PUT", "/api/v1/documents/2", UpsertDocumentRequest{
		Title: "B", Body: "b", Embedding: []float32{1, 0, 0},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	errResp := decodeAs[ErrorResponse](t, rr)
	if errResp.Code != CodeVectorDimMismatch {
		t.Errorf("error code = %s, want %s", errResp.Code, CodeVectorDimMismatch)
	}
}

func TestBatchUpsert(t *testing.T) {
	h := newTestHandler()

	rr := doJSON(t, h, "POST", "/api/v1/documents/batch", BatchUpsertRequest{
		Documents: []UpsertDocumentRequest{
			{ID: 1, Title: "A", Body: "alpha"},
			{ID: 2, Title: "B", Body: "beta"},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	resp := decodeAs[BatchUpsertResponse](t, rr)
	if resp.Indexed != 2 {
		t.Errorf("indexed = %d, want 2", resp.Indexed)
	}

	empty := doJSON(t, h, "POST", "/api/v1/documents/batch", BatchUpsertRequest{})
	if empty.Code != http.StatusBadRequest {
		t.Errorf("empty batch status = %d, want %d", empty.Code, http.StatusBadRequest)
	}

	untitled := doJSON(t, h, "POST", "/api/v1/documents/batch", BatchUpsertRequest{
		Documents: []UpsertDocumentRequest{{ID: 3, Body: "no title"}},
	})
	if untitled.Code != http.StatusBadRequest {
		t.Errorf("untitled batch status = %d, want %d", untitled.Code, http.StatusBadRequest)
	}
}

func TestDeleteDocument(t *testing.T) {
	h := newTestHandler()

	upsert := doJSON(t, h, "PUT", "/api/v1/documents/1", UpsertDocumentRequest{Title: "Doc", Body: "b"})
	if upsert.Code != http.StatusOK {
		t.Fatalf("upsert status = %d", upsert.Code)
	}

	rr := doJSON(t, h, "DELETE", "/api/v1/documents/1", nil)
	if rr.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestHealthCheck(t *testing.T) {
	h := newTestHandler()

	rr := doJSON(t, h, "GET", "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decodeAs[HealthResponse](t, rr)
	if resp.Status != string(healthuc.Healthy) {
		t.Errorf("status = %q, want %q", resp.Status, healthuc.Healthy)
	}
	if resp.Checks["store"] != "ok" || resp.Checks["embedding"] != "ok" {
		t.Errorf("checks = %v", resp.Checks)
	}
}

func ptr(f float64) *float64 { return &f }
