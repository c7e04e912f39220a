package executor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/warden-dev/warden/internal/config"
)

// SettingsFileName is the generated agent settings file inside the state
// directory.
const SettingsFileName = "claude_settings.json"

// fileEditTools get path-scoped permission rules; other tools are allowed
// by bare name.
var fileEditTools = map[string]bool{
	"Read": true, "Write": true, "Edit": true, "Glob": true, "Grep": true,
}

type settingsHookCommand struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

type settingsHookMatcher struct {
	Matcher string                `json:"matcher"`
	Hooks   []settingsHookCommand `json:"hooks"`
}

type settingsPermissions struct {
	DefaultMode string   `json:"defaultMode"`
	Allow       []string `json:"allow"`
	Deny        []string `json:"deny,omitempty"`
}

type settingsFile struct {
	Permissions settingsPermissions              `json:"permissions"`
	Hooks       map[string][]settingsHookMatcher `json:"hooks,omitempty"`
}

// WriteSettings renders the agent settings file for cfg and returns its
// path. hookCommand is the shell command the agent invokes before every
// Bash tool call; it receives the tool input on stdin and answers with a
// permission decision. The file is only rewritten when its content
// changes.
func WriteSettings(cfg *config.Config, hookCommand string) (string, error) {
	var allow []string
	for _, tool := range cfg.Tools.Builtin {
		switch {
		case fileEditTools[tool]:
			allow = append(allow, fmt.Sprintf("%s(%s)", tool, "./**"))
		case tool == "Bash":
			allow = append(allow, "Bash(*)")
		default:
			allow = append(allow, tool)
		}
	}

	s := settingsFile{
		Permissions: settingsPermissions{
			DefaultMode: cfg.Security.PermissionMode,
			Allow:       allow,
		},
	}
	if hookCommand != "" {
		s.Hooks = map[string][]settingsHookMatcher{
			"PreToolUse": {
				{
					Matcher: "Bash",
					Hooks:   []settingsHookCommand{{Type: "command", Command: hookCommand}},
				},
			},
		}
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal settings: %w", err)
	}

	path := filepath.Join(cfg.StateDir, SettingsFileName)
	if existing, err := os.ReadFile(path); err == nil && string(existing) == string(data) {
		return path, nil
	}
	if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write settings: %w", err)
	}
	return path, nil
}
