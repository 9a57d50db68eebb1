// internal/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/taskhub/taskhub/internal/types"
)

// Environment overrides for secrets, so API keys stay out of config
// files that get committed.
const (
	EnvKnowledgeAPIKey = "TASKHUB_OUTLINE_API_KEY"
	EnvLLMAPIKey       = "TASKHUB_LLM_API_KEY"
)

// LoadConfig reads the YAML config at path over the defaults. A missing
// file is not an error; the defaults run standalone.
func LoadConfig(path string) (*types.Config, error) {
	cfg := types.DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *types.Config) {
	if key := os.Getenv(EnvKnowledgeAPIKey); key != "" {
		cfg.Knowledge.APIKey = key
	}
	if key := os.Getenv(EnvLLMAPIKey); key != "" {
		cfg.LLM.APIKey = key
	}
}
