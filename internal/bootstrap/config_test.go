// internal/bootstrap/config_test.go
package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Identity.DefaultNamespace != "default" {
		t.Errorf("default namespace = %q", cfg.Identity.DefaultNamespace)
	}
	if !cfg.Workflow.AutoEvaluation {
		t.Error("auto evaluation must default on")
	}
}

func TestLoadConfigOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9090
workflow:
  evaluation_min_priority: 3
  claimed_timeout_hours: 6
knowledge:
  enabled: true
  url: http://outline.local
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host default lost: %q", cfg.Server.Host)
	}
	if cfg.Workflow.EvaluationMinPriority != 3 {
		t.Errorf("min priority = %d, want 3", cfg.Workflow.EvaluationMinPriority)
	}
	if got := cfg.Workflow.ClaimedTimeout(); got != 6*time.Hour {
		t.Errorf("claimed timeout = %v, want 6h", got)
	}
	if !cfg.Knowledge.Enabled || cfg.Knowledge.URL != "http://outline.local" {
		t.Errorf("knowledge = %+v", cfg.Knowledge)
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestEnvOverridesAPIKeys(t *testing.T) {
	t.Setenv(EnvKnowledgeAPIKey, "ol-secret")
	t.Setenv(EnvLLMAPIKey, "llm-secret")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Knowledge.APIKey != "ol-secret" {
		t.Errorf("knowledge key = %q", cfg.Knowledge.APIKey)
	}
	if cfg.LLM.APIKey != "llm-secret" {
		t.Errorf("llm key = %q", cfg.LLM.APIKey)
	}
}

func TestTimeoutFallbacks(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Workflow.ReapIntervalMinutes = 0
	cfg.Workflow.InProgressTimeoutHours = -1

	if got := cfg.Workflow.ReapInterval(); got != time.Hour {
		t.Errorf("reap interval fallback = %v, want 1h", got)
	}
	if got := cfg.Workflow.InProgressTimeout(); got != 24*time.Hour {
		t.Errorf("in-progress fallback = %v, want 24h", got)
	}
}
