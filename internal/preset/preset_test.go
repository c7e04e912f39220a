package preset

import (
	"sort"
	"strings"
	"testing"

	"github.com/warden-dev/warden/internal/config"
)

func TestGet(t *testing.T) {
	p, ok := Get("go")
	if !ok {
		t.Fatal("go preset missing")
	}
	if p.Name != "go" || p.Description == "" {
		t.Errorf("preset = %+v", p)
	}

	if _, ok := Get("cobol"); ok {
		t.Error("unknown preset found")
	}
}

func TestListSortedAndComplete(t *testing.T) {
	list := List()
	if len(list) == 0 {
		t.Fatal("no presets")
	}
	if !sort.SliceIsSorted(list, func(i, j int) bool { return list[i].Name < list[j].Name }) {
		t.Error("List() not sorted by name")
	}
	if len(list) != len(Names()) {
		t.Errorf("List() has %d entries, Names() has %d", len(list), len(Names()))
	}
	for _, p := range list {
		if p.Description == "" {
			t.Errorf("preset %s has no description", p.Name)
		}
	}
}

func TestApplyAppendsWithoutDuplicates(t *testing.T) {
	cfg := config.Default()
	cfg.Security.Bash.AllowedCommands = []string{"ls", "git"}

	p, _ := Get("go")
	p.Apply(cfg)

	got := cfg.Security.Bash.AllowedCommands
	counts := make(map[string]int)
	for _, c := range got {
		counts[c]++
	}
	if counts["git"] != 1 {
		t.Errorf("git appears %d times in %v", counts["git"], got)
	}
	if counts["go"] != 1 || counts["ls"] != 1 {
		t.Errorf("allowlist = %v", got)
	}
}

func TestApplyReadOnlyOverridesTools(t *testing.T) {
	cfg := config.Default()
	p, _ := Get("read-only")
	p.Apply(cfg)

	if len(cfg.Tools.Builtin) != 3 {
		t.Errorf("tools = %v", cfg.Tools.Builtin)
	}
	for _, tool := range cfg.Tools.Builtin {
		if tool == "Write" || tool == "Bash" {
			t.Errorf("read-only preset kept %s", tool)
		}
	}
	if cfg.Security.PermissionMode != "default" {
		t.Errorf("permission mode = %q", cfg.Security.PermissionMode)
	}
}

func TestTOMLFragment(t *testing.T) {
	p, _ := Get("python")
	frag := p.TOML()

	if !strings.Contains(frag, "[security.bash]") {
		t.Errorf("fragment missing bash section:\n%s", frag)
	}
	if !strings.Contains(frag, `"pytest"`) {
		t.Errorf("fragment missing command:\n%s", frag)
	}

	ro, _ := Get("read-only")
	frag = ro.TOML()
	if !strings.Contains(frag, "[tools]") || !strings.Contains(frag, `permission_mode = "default"`) {
		t.Errorf("read-only fragment:\n%s", frag)
	}
}
