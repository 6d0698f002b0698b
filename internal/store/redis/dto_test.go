package redis

import (
	"reflect"
	"testing"
	"time"

	"github.com/tsurugi-io/kensaku/internal/domain"
)

func TestHashFieldsRoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	doc := domain.Document{
		ID:            7,
		Title:         "Ubuntu セットアップ",
		Category:      "infra/os",
		Tags:          []string{"ubuntu", "setup"},
		Body:          "手順の本文",
		ProcessedText: "手順の本文",
		CreatedAt:     created,
		UpdatedAt:     created.Add(time.Hour),
		Embedding:     []float32{0.25, -1, 3.5},
	}

	got := parseHashFields(7, buildHashFields(doc))
	if !reflect.DeepEqual(got, doc) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, doc)
	}
}

func TestParseHashFields_MissingOptionalFields(t *testing.T) {
	got := parseHashFields(1, map[string]string{fieldTitle: "Doc"})

	if got.Title != "Doc" {
		t.Errorf("title = %q, want %q", got.Title, "Doc")
	}
	if got.Tags != nil {
		t.Errorf("tags = %v, want nil", got.Tags)
	}
	if got.Embedding != nil {
		t.Errorf("embedding = %v, want nil", got.Embedding)
	}
	if !got.CreatedAt.IsZero() || !got.UpdatedAt.IsZero() {
		t.Errorf("timestamps should stay zero, got %v / %v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestBytesToVector_Corrupt(t *testing.T) {
	if v := bytesToVector("abc"); v != nil {
		t.Errorf("bytesToVector(truncated) = %v, want nil", v)
	}
	if v := bytesToVector(""); v != nil {
		t.Errorf("bytesToVector(empty) = %v, want nil", v)
	}
}
