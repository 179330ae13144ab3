// Package config loads, merges, and persists stepflow's configuration.
//
// # Configuration Loading
//
// Load implements a layered loading strategy that merges configuration
// from multiple sources in priority order:
//
//  1. Global config (~/.config/stepflow/stepflow.json[c])
//  2. Project config (<directory>/.stepflow/stepflow.json[c])
//  3. Environment variables
//
// Later sources win: a project config overrides the global config, and
// environment variables override both.
//
// # Supported Formats
//
// Both JSON and JSONC (JSON with comments) are accepted:
//   - stepflow.json  - standard JSON
//   - stepflow.jsonc - JSON with comments, stripped via tidwall/jsonc
//
// # Configuration Merging
//
// mergeConfig layers a newly-loaded file onto the accumulated config:
// scalars are overwritten, maps are merged key-by-key (the new source
// wins on conflict), and pointer-typed sub-configs (Permission, LSP,
// Watcher, Experimental) are replaced wholesale when the new source
// sets them.
//
// # Path Management
//
// Paths follows the XDG Base Directory Specification:
//   - Data: ~/.local/share/stepflow (XDG_DATA_HOME)
//   - Config: ~/.config/stepflow (XDG_CONFIG_HOME)
//   - Cache: ~/.cache/stepflow (XDG_CACHE_HOME)
//   - State: ~/.local/state/stepflow (XDG_STATE_HOME)
//
// On Windows these fall back to APPDATA.
//
// # Environment Variable Overrides
//
//   - STEPFLOW_MODEL - overrides the default model
//   - STEPFLOW_SMALL_MODEL - overrides the small/fast model
//   - ANTHROPIC_API_KEY, OPENAI_API_KEY, GOOGLE_API_KEY, AWS_ACCESS_KEY_ID -
//     provider API keys, applied only when the config file didn't already
//     set one for that provider
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	paths := config.GetPaths()
//	if err := paths.EnsurePaths(); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := config.Save(cfg, config.GlobalConfigPath()); err != nil {
//	    log.Fatal(err)
//	}
package config
