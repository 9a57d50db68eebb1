// internal/knowledge/client.go
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/taskhub/taskhub/internal/service"
	"github.com/taskhub/taskhub/internal/types"
)

// defaultTimeout bounds every call to the external document service
const defaultTimeout = 30 * time.Second

// Client is an opaque proxy to the external document service. The core
// does no local caching; freshness is the external service's problem.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a document store client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// Document is the external service's document shape as the core sees it
type Document struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Text  string   `json:"text"`
	Tags  []string `json:"tags,omitempty"`
}

// Collection groups documents on the external service
type Collection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// post issues an authenticated JSON POST and decodes the "data" envelope
func (c *Client) post(ctx context.Context, endpoint string, payload, out interface{}) error {
	if c.baseURL == "" || c.apiKey == "" {
		return fmt.Errorf("%w: document service not configured", service.ErrExternal)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal request: %v", service.ErrExternal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", service.ErrExternal, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", service.ErrExternal, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", service.ErrExternal, endpoint, resp.StatusCode)
	}
	if out == nil {
		return nil
	}

	var envelope struct {
		Data    json.RawMessage `json:"data"`
		Success *bool           `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%w: %s returned bad JSON: %v", service.ErrExternal, endpoint, err)
	}
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%w: %s data decode failed: %v", service.ErrExternal, endpoint, err)
		}
	}
	return nil
}

// CreateDoc creates a document in a collection
func (c *Client) CreateDoc(ctx context.Context, collectionID, title, content, parentID string) (*Document, error) {
	payload := map[string]interface{}{
		"title":        title,
		"text":         content,
		"collectionId": collectionID,
		"publish":      true,
	}
	if parentID != "" {
		payload["parentDocumentId"] = parentID
	}
	var doc Document
	if err := c.post(ctx, "/api/documents.create", payload, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDoc fetches a document by ID
func (c *Client) GetDoc(ctx context.Context, id string) (*Document, error) {
	var doc Document
	if err := c.post(ctx, "/api/documents.info", map[string]string{"id": id}, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocs lists documents in a collection
func (c *Client) ListDocs(ctx context.Context, collectionID string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 50
	}
	payload := map[string]interface{}{
		"collectionId": collectionID,
		"limit":        limit,
		"offset":       offset,
	}
	var docs []Document
	if err := c.post(ctx, "/api/documents.list", payload, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Search searches documents by query
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	var results []struct {
		Document Document `json:"document"`
	}
	err := c.post(ctx, "/api/documents.search", map[string]interface{}{"query": query, "limit": limit}, &results)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, r.Document)
	}
	return docs, nil
}

// UpdateDoc updates a document's title and/or content
func (c *Client) UpdateDoc(ctx context.Context, id, title, content string) (*Document, error) {
	payload := map[string]interface{}{"id": id}
	if title != "" {
		payload["title"] = title
	}
	if content != "" {
		payload["text"] = content
	}
	var doc Document
	if err := c.post(ctx, "/api/documents.update", payload, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDoc removes a document
func (c *Client) DeleteDoc(ctx context.Context, id string) error {
	return c.post(ctx, "/api/documents.delete", map[string]string{"id": id}, nil)
}

// ListCollections lists collections on the external service
func (c *Client) ListCollections(ctx context.Context, limit int) ([]Collection, error) {
	if limit <= 0 {
		limit = 50
	}
	var cols []Collection
	if err := c.post(ctx, "/api/collections.list", map[string]interface{}{"limit": limit}, &cols); err != nil {
		return nil, err
	}
	return cols, nil
}

// CreateCollection creates a collection
func (c *Client) CreateCollection(ctx context.Context, name, description string) (*Collection, error) {
	var col Collection
	err := c.post(ctx, "/api/collections.create", map[string]string{"name": name, "description": description}, &col)
	if err != nil {
		return nil, err
	}
	return &col, nil
}

// GetKnowledge fetches a document and maps it to the core's knowledge
// item shape. Skill tags come from the document's explicit tags, else
// from a "Skills:" header line in the body.
func (c *Client) GetKnowledge(ctx context.Context, id string) (*types.KnowledgeItem, error) {
	doc, err := c.GetDoc(ctx, id)
	if err != nil {
		return nil, err
	}
	tags := doc.Tags
	if len(tags) == 0 {
		tags = parseSkillTags(doc.Text)
	}
	return &types.KnowledgeItem{
		ID:        doc.ID,
		Title:     doc.Title,
		Content:   doc.Text,
		SkillTags: tags,
	}, nil
}

// parseSkillTags extracts tags from a "Skills: a, b, c" line
func parseSkillTags(content string) []string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		if !strings.HasPrefix(lower, "skills:") {
			continue
		}
		var tags []string
		for _, tag := range strings.Split(line[len("skills:"):], ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
		return tags
	}
	return nil
}
