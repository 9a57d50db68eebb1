// internal/knowledge/summarizer.go
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/taskhub/taskhub/internal/types"
)

// failedTitle marks a summary the model could not produce. Drafts with
// this title are still written so operators can see what failed.
const failedTitle = "Knowledge Generation Failed"

// Summarizer turns a completed task and its report into a knowledge
// draft via an OpenAI-compatible chat completions endpoint.
type Summarizer struct {
	url    string
	apiKey string
	model  string
	client *http.Client
}

// NewSummarizer creates a summarizer; cfg.Model empty disables it
func NewSummarizer(cfg types.LLMConfig) *Summarizer {
	return &Summarizer{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// Enabled reports whether the summarizer is configured
func (s *Summarizer) Enabled() bool {
	return s.url != "" && s.model != ""
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const summaryPrompt = `You are a technical writer for a team of autonomous agents.
Summarize the completed task below into a reusable knowledge article.
Respond with a short title on the first line, then a line containing only "---",
then the article body in markdown.

Task: %s
Details: %s
Result: %s
Report: %s`

// Summarize produces a (title, content) pair for a completed task. It
// never returns an error: any failure yields a diagnostic draft so the
// autodraft pipeline cannot wedge on a flaky model.
func (s *Summarizer) Summarize(ctx context.Context, task *types.Task, report *types.Report) (string, string) {
	if !s.Enabled() {
		return failedTitle, "summarizer is not configured"
	}

	prompt := fmt.Sprintf(summaryPrompt, task.Name, task.Details, task.Result, report.Details)
	body, err := json.Marshal(chatRequest{
		Model:    s.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return failedTitle, fmt.Sprintf("marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return failedTitle, fmt.Sprintf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return failedTitle, fmt.Sprintf("model request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return failedTitle, fmt.Sprintf("model returned status %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return failedTitle, fmt.Sprintf("decode response: %v", err)
	}
	if len(out.Choices) == 0 {
		return failedTitle, "model returned no choices"
	}
	return splitDraft(out.Choices[0].Message.Content)
}

// splitDraft separates the model output into title and body at the
// first "---" line. Output without a separator becomes the body under
// its first line as title.
func splitDraft(text string) (string, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return failedTitle, "model returned empty content"
	}
	if title, body, ok := strings.Cut(text, "\n---\n"); ok {
		return strings.TrimSpace(title), strings.TrimSpace(body)
	}
	lines := strings.SplitN(text, "\n", 2)
	if len(lines) == 2 {
		return strings.TrimSpace(lines[0]), strings.TrimSpace(lines[1])
	}
	log.Printf("[KNOWLEDGE] Model output had no separator, using fallback title")
	return "Task Summary", text
}
