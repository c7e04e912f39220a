// Package preset provides named starter policies for common project
// types. A preset widens the Bash allowlist (and occasionally the tool
// set) for one ecosystem; it is applied on top of a loaded config or
// printed as a TOML fragment to paste into config.toml.
package preset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/warden-dev/warden/internal/config"
)

// Preset is a named bundle of security settings.
type Preset struct {
	Name        string
	Description string
	// AllowedCommands are appended to the Bash allowlist.
	AllowedCommands []string
	// Tools replaces the builtin tool set when non-empty.
	Tools []string
	// PermissionMode overrides the permission mode when non-empty.
	PermissionMode string
}

var presets = map[string]Preset{
	"python": {
		Name:            "python",
		Description:     "Python development with pip/uv",
		AllowedCommands: []string{"python", "python3", "pip", "pip3", "uv", "pytest", "git"},
	},
	"go": {
		Name:            "go",
		Description:     "Go development with the standard toolchain",
		AllowedCommands: []string{"go", "gofmt", "git"},
	},
	"rust": {
		Name:            "rust",
		Description:     "Rust development with cargo",
		AllowedCommands: []string{"cargo", "rustc", "rustfmt", "git"},
	},
	"web-nodejs": {
		Name:            "web-nodejs",
		Description:     "Node.js development with npm and a local dev server",
		AllowedCommands: []string{"node", "npm", "npx", "pkill", "git"},
	},
	"read-only": {
		Name:           "read-only",
		Description:    "Code analysis only, no write tools",
		Tools:          []string{"Read", "Glob", "Grep"},
		PermissionMode: "default",
	},
}

// Get returns the preset by name.
func Get(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// List returns all presets sorted by name.
func List() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sorted preset names.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply layers the preset onto cfg. Allowed commands are appended
// without duplicates; explicit overrides replace their targets.
func (p Preset) Apply(cfg *config.Config) {
	existing := make(map[string]bool, len(cfg.Security.Bash.AllowedCommands))
	for _, c := range cfg.Security.Bash.AllowedCommands {
		existing[c] = true
	}
	for _, c := range p.AllowedCommands {
		if !existing[c] {
			cfg.Security.Bash.AllowedCommands = append(cfg.Security.Bash.AllowedCommands, c)
			existing[c] = true
		}
	}
	if len(p.Tools) > 0 {
		cfg.Tools.Builtin = append([]string(nil), p.Tools...)
	}
	if p.PermissionMode != "" {
		cfg.Security.PermissionMode = p.PermissionMode
	}
}

// TOML renders the preset as a config fragment for pasting into
// config.toml.
func (p Preset) TOML() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# preset: %s - %s\n", p.Name, p.Description)
	if len(p.Tools) > 0 {
		b.WriteString("[tools]\n")
		fmt.Fprintf(&b, "builtin = %s\n\n", tomlStrings(p.Tools))
	}
	if p.PermissionMode != "" {
		b.WriteString("[security]\n")
		fmt.Fprintf(&b, "permission_mode = %q\n\n", p.PermissionMode)
	}
	if len(p.AllowedCommands) > 0 {
		b.WriteString("[security.bash]\n")
		fmt.Fprintf(&b, "allowed_commands = %s\n", tomlStrings(p.AllowedCommands))
	}
	return b.String()
}

func tomlStrings(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
