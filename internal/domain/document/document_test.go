package document

import (
	"strings"
	"testing"
)

func TestNew_Valid(t *testing.T) {
	doc, err := New("doc-1", "Title", "some content here", "text/plain", Metadata{
		SourceType: "upload",
		Tags:       []string{"go", "search"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID() != "doc-1" {
		t.Errorf("expected id doc-1, got %s", doc.ID())
	}
	if doc.WordCount() != 3 {
		t.Errorf("expected word count 3, got %d", doc.WordCount())
	}
	if doc.CreatedAt().IsZero() || doc.UpdatedAt().IsZero() {
		t.Error("timestamps should be set")
	}
	if doc.ContentType() != "text/plain" {
		t.Errorf("unexpected content type %s", doc.ContentType())
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		content string
	}{
		{"empty id", "", "content"},
		{"long id", strings.Repeat("x", 257), "content"},
		{"empty content", "doc-1", ""},
		{"oversized content", "doc-1", strings.Repeat("a", MaxContentSize+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.id, "t", tt.content, "", Metadata{}); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNew_DefaultContentType(t *testing.T) {
	doc, err := New("doc-1", "t", "c", "", Metadata{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ContentType() != "text/plain" {
		t.Errorf("expected default content type, got %s", doc.ContentType())
	}
}

func TestNew_ClonesMetadata(t *testing.T) {
	tags := []string{"a"}
	custom := map[string]string{"k": "v"}
	doc, err := New("doc-1", "t", "c", "", Metadata{Tags: tags, Custom: custom})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tags[0] = "mutated"
	custom["k"] = "mutated"

	if doc.Metadata().Tags[0] != "a" {
		t.Error("tags should be cloned")
	}
	if doc.Metadata().Custom["k"] != "v" {
		t.Error("custom metadata should be cloned")
	}
}

func TestFieldTexts(t *testing.T) {
	doc, err := New("doc-1", "My Title", "body text", "", Metadata{Tags: []string{"go", "db"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fields := doc.FieldTexts()
	if fields["title"] != "My Title" {
		t.Errorf("unexpected title field: %q", fields["title"])
	}
	if fields["content"] != "body text" {
		t.Errorf("unexpected content field: %q", fields["content"])
	}
	if fields["tags"] != "go db" {
		t.Errorf("unexpected tags field: %q", fields["tags"])
	}
}
