package permission

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/stepflow/stepflow/pkg/core"
	"github.com/tidwall/jsonc"
)

// ruleFile is the external rule-file shape (spec.md §6): version 1,
// permissions nested under a "permissions" key. JSONC comments are
// stripped before unmarshalling, so rule files may carry `//` comments the
// way the teacher's own JSONC configs do.
type ruleFile struct {
	Version     int                        `json:"version"`
	Permissions core.PermissionConfiguration `json:"permissions"`
}

const ruleFileVersion = 1

// LoadRuleFile parses a rule file from raw bytes (JSON or JSONC).
func LoadRuleFile(data []byte) (core.PermissionConfiguration, error) {
	stripped := jsonc.ToJSON(data)
	var rf ruleFile
	if err := json.Unmarshal(stripped, &rf); err != nil {
		return core.PermissionConfiguration{}, core.Wrap(core.KindInvalidConfig, err, "parse rule file")
	}
	return rf.Permissions, nil
}

// LoadRuleFilePath reads and parses a rule file from path.
func LoadRuleFilePath(path string) (core.PermissionConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.PermissionConfiguration{}, core.Wrap(core.KindInvalidConfig, err, "read rule file %s", path)
	}
	return LoadRuleFile(data)
}

// EncodeRuleFile serializes config back to the external rule-file format,
// preserving the schema version and sorting each rule list's keys so the
// encoding is stable across runs (spec.md §6: "encoder preserves schema
// version and sorts keys").
func EncodeRuleFile(config core.PermissionConfiguration) ([]byte, error) {
	sorted := config
	sorted.Allow = sortedCopy(config.Allow)
	sorted.Deny = sortedCopy(config.Deny)
	sorted.FinalDeny = sortedCopy(config.FinalDeny)
	sorted.Overrides = sortedCopy(config.Overrides)

	return json.MarshalIndent(ruleFile{
		Version:     ruleFileVersion,
		Permissions: sorted,
	}, "", "  ")
}

func sortedCopy(in []string) []string {
	if in == nil {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
