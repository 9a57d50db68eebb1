// internal/types/config.go
package types

import "time"

// Config loaded from config.yaml
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DataDir   string          `yaml:"data_dir"`
	Identity  IdentityConfig  `yaml:"identity"`
	Workflow  WorkflowConfig  `yaml:"workflow"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	LLM       LLMConfig       `yaml:"llm"`
	NATS      NATSConfig      `yaml:"nats"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// IdentityConfig holds fallbacks used when requests omit identity headers.
// DefaultHunterID empty means operations requiring identity fail instead.
type IdentityConfig struct {
	DefaultNamespace string `yaml:"default_namespace"`
	DefaultHunterID  string `yaml:"default_hunter_id"`
}

// WorkflowConfig tunes the evaluation pipeline and the stale-task reaper
type WorkflowConfig struct {
	AutoEvaluation         bool   `yaml:"auto_evaluation"`
	EvaluationMinPriority  int    `yaml:"evaluation_min_priority"`
	EvaluationSkill        string `yaml:"evaluation_skill"`
	ClaimedTimeoutHours    int    `yaml:"claimed_timeout_hours"`
	InProgressTimeoutHours int    `yaml:"in_progress_timeout_hours"`
	AssignedTimeoutHours   int    `yaml:"assigned_timeout_hours"`
	ReapIntervalMinutes    int    `yaml:"reap_interval_minutes"`
}

// KnowledgeConfig configures the external document store adapter
type KnowledgeConfig struct {
	Enabled           bool   `yaml:"enabled"`
	URL               string `yaml:"url"`
	APIKey            string `yaml:"api_key"`
	CollectionID      string `yaml:"collection_id"`
	Autodraft         bool   `yaml:"autodraft"`
	AutodraftMinScore int    `yaml:"autodraft_min_score"`
}

// LLMConfig configures the optional knowledge summarizer
type LLMConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// NATSConfig configures the optional embedded event broker
type NATSConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// DefaultConfig returns the configuration used when no file is supplied
func DefaultConfig() *Config {
	return &Config{
		Server:  ServerConfig{Host: "127.0.0.1", Port: 8080},
		DataDir: "./data",
		Identity: IdentityConfig{
			DefaultNamespace: "default",
		},
		Workflow: WorkflowConfig{
			AutoEvaluation:         true,
			EvaluationMinPriority:  0,
			EvaluationSkill:        "report_evaluation",
			ClaimedTimeoutHours:    12,
			InProgressTimeoutHours: 24,
			AssignedTimeoutHours:   24,
			ReapIntervalMinutes:    60,
		},
		Knowledge: KnowledgeConfig{
			Autodraft:         true,
			AutodraftMinScore: 90,
		},
		NATS: NATSConfig{Port: 4222},
	}
}

// ReapInterval returns the reaper tick as a duration
func (w WorkflowConfig) ReapInterval() time.Duration {
	if w.ReapIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(w.ReapIntervalMinutes) * time.Minute
}

// ClaimedTimeout returns how long a claimed task may sit before the
// reaper fails it
func (w WorkflowConfig) ClaimedTimeout() time.Duration {
	if w.ClaimedTimeoutHours <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(w.ClaimedTimeoutHours) * time.Hour
}

// InProgressTimeout returns how long an in-progress task may go without
// updates before the reaper fails it
func (w WorkflowConfig) InProgressTimeout() time.Duration {
	if w.InProgressTimeoutHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(w.InProgressTimeoutHours) * time.Hour
}

// AssignedTimeout returns how long a routed-but-unclaimed task may sit
// before the reaper escalates it
func (w WorkflowConfig) AssignedTimeout() time.Duration {
	if w.AssignedTimeoutHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(w.AssignedTimeoutHours) * time.Hour
}
