// Package config loads stepflow's configuration: a global config file,
// overridden by a project config file, overridden by environment
// variables (spec.md §4.15). There is no built-in defaults layer; fields
// no source sets stay at their zero values.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/stepflow/stepflow/pkg/types"
)

// Load loads configuration from multiple sources, in increasing priority:
//  1. Global config (~/.config/stepflow/stepflow.json[c])
//  2. Project config (<directory>/.stepflow/stepflow.json[c])
//  3. Environment variables (STEPFLOW_MODEL, STEPFLOW_SMALL_MODEL,
//     provider API key vars)
func Load(directory string) (*types.Config, error) {
	config := &types.Config{
		Provider: make(map[string]types.ProviderConfig),
		Agent:    make(map[string]types.AgentConfig),
	}

	globalPath := GetPaths().Config
	loadConfigFile(filepath.Join(globalPath, "stepflow.json"), config)
	loadConfigFile(filepath.Join(globalPath, "stepflow.jsonc"), config)

	if directory != "" {
		loadConfigFile(filepath.Join(directory, ".stepflow", "stepflow.json"), config)
		loadConfigFile(filepath.Join(directory, ".stepflow", "stepflow.jsonc"), config)
	}

	applyEnvOverrides(config)

	return config, nil
}

// loadConfigFile reads path, strips JSONC comments via tidwall/jsonc, and
// merges the result into config. A missing or unparseable file is
// silently skipped: config layers are each optional.
func loadConfigFile(path string, config *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = jsonc.ToJSON(data)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// mergeConfig merges source into target: scalars overwrite, maps merge
// key-by-key (source wins on conflict), and pointer-typed sub-configs
// replace wholesale when source sets them.
func mergeConfig(target, source *types.Config) {
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.SmallModel != "" {
		target.SmallModel = source.SmallModel
	}

	if source.Provider != nil {
		if target.Provider == nil {
			target.Provider = make(map[string]types.ProviderConfig)
		}
		for k, v := range source.Provider {
			target.Provider[k] = v
		}
	}

	if source.Agent != nil {
		if target.Agent == nil {
			target.Agent = make(map[string]types.AgentConfig)
		}
		for k, v := range source.Agent {
			target.Agent[k] = v
		}
	}

	if source.MCP != nil {
		if target.MCP == nil {
			target.MCP = make(map[string]types.MCPConfig)
		}
		for k, v := range source.MCP {
			target.MCP[k] = v
		}
	}

	if source.Permission != nil {
		target.Permission = source.Permission
	}
	if source.LSP != nil {
		target.LSP = source.LSP
	}
	if source.Watcher != nil {
		target.Watcher = source.Watcher
	}
	if source.Experimental != nil {
		target.Experimental = source.Experimental
	}
}

// providerEnvVars maps a provider id to the environment variable holding
// its API key.
var providerEnvVars = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"google":    "GOOGLE_API_KEY",
	"bedrock":   "AWS_ACCESS_KEY_ID",
}

// applyEnvOverrides layers environment variables onto config, the
// highest-priority source. A provider API key env var never overwrites
// one already set by a config file.
func applyEnvOverrides(config *types.Config) {
	for provider, envVar := range providerEnvVars {
		apiKey := os.Getenv(envVar)
		if apiKey == "" {
			continue
		}
		if config.Provider == nil {
			config.Provider = make(map[string]types.ProviderConfig)
		}
		p := config.Provider[provider]
		if p.APIKey == "" {
			p.APIKey = apiKey
			config.Provider[provider] = p
		}
	}

	if model := os.Getenv("STEPFLOW_MODEL"); model != "" {
		config.Model = model
	}
	if smallModel := os.Getenv("STEPFLOW_SMALL_MODEL"); smallModel != "" {
		config.SmallModel = smallModel
	}
}

// Save marshals config as indented JSON and writes it to path, creating
// parent directories as needed.
func Save(config *types.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
