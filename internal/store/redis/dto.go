package redis

import (
	"encoding/binary"
	"math"
	"strings"
	"time"

	"github.com/tsurugi-io/kensaku/internal/domain"
)

// Hash field names for a stored document.
const (
	fieldTitle     = "title"
	fieldCategory  = "category"
	fieldTags      = "tags"
	fieldBody      = "body"
	fieldProcessed = "processed_text"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
	fieldVector    = "__vector"
)

// buildHashFields converts a domain Document into a flat map for HSET.
func buildHashFields(doc domain.Document) map[string]string {
	m := map[string]string{
		fieldTitle:     doc.Title,
		fieldCategory:  doc.Category,
		fieldTags:      strings.Join(doc.Tags, ","),
		fieldBody:      doc.Body,
		fieldProcessed: doc.ProcessedText,
		fieldVector:    vectorToBytes(doc.Embedding),
	}
	if !doc.CreatedAt.IsZero() {
		m[fieldCreatedAt] = doc.CreatedAt.Format(time.RFC3339)
	}
	if !doc.UpdatedAt.IsZero() {
		m[fieldUpdatedAt] = doc.UpdatedAt.Format(time.RFC3339)
	}
	return m
}

// parseHashFields converts a flat hash map back into a domain Document.
func parseHashFields(id int, m map[string]string) domain.Document {
	doc := domain.Document{
		ID:            id,
		Title:         m[fieldTitle],
		Category:      m[fieldCategory],
		Body:          m[fieldBody],
		ProcessedText: m[fieldProcessed],
		Embedding:     bytesToVector(m[fieldVector]),
	}
	if tags := m[fieldTags]; tags != "" {
		doc.Tags = strings.Split(tags, ",")
	}
	if t, err := time.Parse(time.RFC3339, m[fieldCreatedAt]); err == nil {
		doc.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, m[fieldUpdatedAt]); err == nil {
		doc.UpdatedAt = t
	}
	return doc
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
