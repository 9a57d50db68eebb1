// internal/knowledge/client_test.go
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/taskhub/taskhub/internal/service"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key")
}

func TestGetKnowledgeWithExplicitTags(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/documents.info" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"id":    "doc-1",
				"title": "Indexing notes",
				"text":  "body",
				"tags":  []string{"python", "sql"},
			},
		})
	})

	item, err := c.GetKnowledge(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetKnowledge failed: %v", err)
	}
	if item.Title != "Indexing notes" {
		t.Errorf("title = %q", item.Title)
	}
	if len(item.SkillTags) != 2 || item.SkillTags[0] != "python" {
		t.Errorf("skill tags = %v", item.SkillTags)
	}
}

func TestGetKnowledgeParsesSkillsHeader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"id":    "doc-1",
				"title": "Notes",
				"text":  "# Notes\nSkills: python, report_evaluation\n\nbody",
			},
		})
	})

	item, err := c.GetKnowledge(context.Background(), "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"python", "report_evaluation"}
	if len(item.SkillTags) != len(want) {
		t.Fatalf("skill tags = %v, want %v", item.SkillTags, want)
	}
	for i := range want {
		if item.SkillTags[i] != want[i] {
			t.Errorf("tag %d = %q, want %q", i, item.SkillTags[i], want[i])
		}
	}
}

func TestClientErrorStatusWrapsExternal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.GetDoc(context.Background(), "doc-1")
	if !errors.Is(err, service.ErrExternal) {
		t.Errorf("expected ErrExternal, got %v", err)
	}
}

func TestClientUnconfigured(t *testing.T) {
	c := NewClient("", "")

	_, err := c.GetDoc(context.Background(), "doc-1")
	if !errors.Is(err, service.ErrExternal) {
		t.Errorf("expected ErrExternal, got %v", err)
	}
}

func TestSearchUnwrapsDocuments(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/documents.search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"document": map[string]string{"id": "doc-1", "title": "a"}},
				{"document": map[string]string{"id": "doc-2", "title": "b"}},
			},
		})
	})

	docs, err := c.Search(context.Background(), "index", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[1].ID != "doc-2" {
		t.Errorf("docs = %v", docs)
	}
}

func TestCreateDocPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatal(err)
		}
		if payload["title"] != "T" || payload["collectionId"] != "col-1" {
			t.Errorf("payload = %v", payload)
		}
		if payload["publish"] != true {
			t.Error("documents must be published on create")
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"id": "doc-9", "title": "T"},
		})
	})

	doc, err := c.CreateDoc(context.Background(), "col-1", "T", "body", "")
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID != "doc-9" {
		t.Errorf("doc ID = %q", doc.ID)
	}
}

func TestParseSkillTags(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{name: "simple", content: "Skills: a, b", want: 2},
		{name: "case insensitive", content: "skills: a", want: 1},
		{name: "mid document", content: "intro\nSkills: a, b, c\nbody", want: 3},
		{name: "absent", content: "no tags here", want: 0},
		{name: "empty list", content: "Skills:", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseSkillTags(tt.content); len(got) != tt.want {
				t.Errorf("parseSkillTags(%q) = %v, want %d tags", tt.content, got, tt.want)
			}
		})
	}
}
