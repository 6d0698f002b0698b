package chi

import (
	"github.com/tsurugi-io/kensaku/internal/domain"
	"github.com/tsurugi-io/kensaku/internal/query"
)

// SearchRequest is the body of POST /api/v1/search.
// Weight overrides apply to this call only; nil keeps the configured values.
type SearchRequest struct {
	Query        string   `json:"query"`
	Limit        int      `json:"limit,omitempty"`
	SparseWeight *float64 `json:"sparse_weight,omitempty"`
	DenseWeight  *float64 `json:"dense_weight,omitempty"`
	Debug        bool     `json:"debug,omitempty"`
}

// SearchResultItem is one fused result row.
type SearchResultItem struct {
	DocumentID     int     `json:"document_id"`
	Title          string  `json:"title"`
	ContentPreview string  `json:"content_preview"`
	LexicalScore   float64 `json:"lexical_score"`
	VectorScore    float64 `json:"vector_score"`
	HybridScore    float64 `json:"hybrid_score"`
	Contribution   string  `json:"contribution"`
}

// QueryInfo echoes the query processing outcome for debugging.
type QueryInfo struct {
	Original         string   `json:"original"`
	Normalized       string   `json:"normalized"`
	Keywords         []string `json:"keywords"`
	TechnicalTerms   []string `json:"technical_terms"`
	ExpandedKeywords []string `json:"expanded_keywords"`
	CandidateQueries []string `json:"candidate_queries"`
	RecommendedQuery string   `json:"recommended_query"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Query     string             `json:"query"`
	Items     []SearchResultItem `json:"items"`
	Total     int                `json:"total"`
	QueryInfo *QueryInfo         `json:"query_info,omitempty"`
}

// AnalyzeQueryRequest is the body of POST /api/v1/query/analyze.
type AnalyzeQueryRequest struct {
	Query string `json:"query"`
}

// UpsertDocumentRequest is the body of PUT /api/v1/documents/{id} and
// one item of a batch upsert. The path id wins over the body id.
type UpsertDocumentRequest struct {
	ID        int       `json:"id,omitempty"`
	Title     string    `json:"title"`
	Category  string    `json:"category,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Body      string    `json:"body"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// UpsertDocumentResponse confirms one indexed document.
type UpsertDocumentResponse struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// BatchUpsertRequest is the body of POST /api/v1/documents/batch.
type BatchUpsertRequest struct {
	Documents []UpsertDocumentRequest `json:"documents"`
}

// BatchUpsertResponse confirms a batch upsert.
type BatchUpsertResponse struct {
	Indexed int `json:"indexed"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func resultToItem(r *domain.HybridResult) SearchResultItem {
	return SearchResultItem{
		DocumentID:     r.DocumentID,
		Title:          r.Title,
		ContentPreview: r.ContentPreview,
		LexicalScore:   r.LexicalScore,
		VectorScore:    r.VectorScore,
		HybridScore:    r.HybridScore,
		Contribution:   string(r.Contribution),
	}
}

func queryInfoFromResult(r query.Result) QueryInfo {
	return QueryInfo{
		Original:         r.Original,
		Normalized:       r.Normalized,
		Keywords:         r.Keywords,
		TechnicalTerms:   r.TechnicalTerms,
		ExpandedKeywords: r.ExpandedKeywords,
		CandidateQueries: r.CandidateQueries,
		RecommendedQuery: r.RecommendedQuery,
	}
}

func documentFromUpsert(id int, req UpsertDocumentRequest) domain.Document {
	return domain.Document{
		ID:        id,
		Title:     req.Title,
		Category:  req.Category,
		Tags:      req.Tags,
		Body:      req.Body,
		Embedding: req.Embedding,
	}
}
