// Package tracker answers "is the work done yet" for the run loop.
// Progress can be backed by a JSON checklist, a free-text notes file, or
// nothing at all. Only the checklist variant can ever report completion;
// the other kinds leave the stop decision to the operator.
package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Tracker kinds accepted in configuration.
const (
	KindChecklist = "json_checklist"
	KindNotes     = "notes_file"
	KindNone      = "none"
)

// DefaultPassingField is the checklist item field consulted when the
// configuration does not name one.
const DefaultPassingField = "passes"

// Tracker reports progress of the agent's work between cycles.
type Tracker interface {
	// Summary returns (passing, total) item counts. Non-checklist
	// trackers always return (0, 0).
	Summary() (passing, total int)

	// IsInitialized reports whether the backing file exists and is usable.
	IsInitialized() bool

	// IsComplete reports whether every item passes and at least one item
	// exists. Always false for non-checklist trackers.
	IsComplete() bool

	// Describe returns a short human-readable progress line for display.
	Describe() string
}

// New builds a Tracker of the given kind. path is the backing file for
// checklist and notes trackers; passingField selects the checklist item
// field holding the completion flag (empty means DefaultPassingField).
func New(kind, path, passingField string) (Tracker, error) {
	switch kind {
	case KindChecklist:
		if path == "" {
			return nil, fmt.Errorf("checklist tracker requires a file path")
		}
		if passingField == "" {
			passingField = DefaultPassingField
		}
		return &ChecklistTracker{path: path, passingField: passingField}, nil
	case KindNotes:
		if path == "" {
			return nil, fmt.Errorf("notes tracker requires a file path")
		}
		return &NotesTracker{path: path}, nil
	case KindNone, "":
		return NoneTracker{}, nil
	default:
		return nil, fmt.Errorf("unknown tracking type: %q", kind)
	}
}

// -----------------------------------------------------------------------------
// ChecklistTracker
// -----------------------------------------------------------------------------

// ChecklistTracker reads a JSON array of objects, each carrying a boolean
// field that marks the item as passing. A missing, unreadable, or
// malformed file counts as zero progress rather than an error: the agent
// may simply not have created the checklist yet.
type ChecklistTracker struct {
	path         string
	passingField string
}

// Summary returns the passing and total item counts.
func (t *ChecklistTracker) Summary() (passing, total int) {
	items, ok := t.load()
	if !ok {
		return 0, 0
	}
	for _, item := range items {
		if v, ok := item[t.passingField].(bool); ok && v {
			passing++
		}
	}
	return passing, len(items)
}

// IsInitialized reports whether the checklist file exists, parses, and has
// at least one item.
func (t *ChecklistTracker) IsInitialized() bool {
	items, ok := t.load()
	return ok && len(items) > 0
}

// IsComplete reports whether the list is non-empty and every item passes.
func (t *ChecklistTracker) IsComplete() bool {
	passing, total := t.Summary()
	return total > 0 && passing == total
}

// Describe returns a progress line such as "12/20 items passing (60.0%)".
func (t *ChecklistTracker) Describe() string {
	passing, total := t.Summary()
	if total == 0 {
		return fmt.Sprintf("%s not yet created", filepath.Base(t.path))
	}
	pct := float64(passing) / float64(total) * 100
	return fmt.Sprintf("%d/%d items passing (%.1f%%)", passing, total, pct)
}

// Path returns the checklist file path.
func (t *ChecklistTracker) Path() string {
	return t.path
}

// load parses the checklist file. Returns ok=false when the file is
// missing, unreadable, or not a JSON array. Non-object entries are kept as
// empty items so totals still reflect list length.
func (t *ChecklistTracker) load() (items []map[string]any, ok bool) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return nil, false
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false
	}

	items = make([]map[string]any, len(raw))
	for i, msg := range raw {
		var obj map[string]any
		if err := json.Unmarshal(msg, &obj); err != nil {
			obj = map[string]any{}
		}
		items[i] = obj
	}
	return items, true
}

// -----------------------------------------------------------------------------
// NotesTracker
// -----------------------------------------------------------------------------

// notesPreviewLines bounds how much of the notes file Describe shows.
const notesPreviewLines = 5

// NotesTracker points at a free-text notes file. It never reports
// completion; it exists so status output can surface what the agent wrote.
type NotesTracker struct {
	path string
}

// Summary always returns (0, 0).
func (t *NotesTracker) Summary() (passing, total int) {
	return 0, 0
}

// IsInitialized reports whether the notes file exists.
func (t *NotesTracker) IsInitialized() bool {
	_, err := os.Stat(t.path)
	return err == nil
}

// IsComplete always returns false.
func (t *NotesTracker) IsComplete() bool {
	return false
}

// Describe returns the first few lines of the notes file.
func (t *NotesTracker) Describe() string {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return fmt.Sprintf("%s not yet created", filepath.Base(t.path))
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	preview := lines
	if len(lines) > notesPreviewLines {
		preview = lines[:notesPreviewLines]
	}
	out := strings.Join(preview, "\n")
	if len(lines) > notesPreviewLines {
		out += fmt.Sprintf("\n  ... (%d lines total)", len(lines))
	}
	return out
}

// Path returns the notes file path.
func (t *NotesTracker) Path() string {
	return t.path
}

// -----------------------------------------------------------------------------
// NoneTracker
// -----------------------------------------------------------------------------

// NoneTracker is used when tracking is disabled. It is always initialized
// and never complete, so runs stop only via iteration caps or the operator.
type NoneTracker struct{}

// Summary always returns (0, 0).
func (NoneTracker) Summary() (passing, total int) { return 0, 0 }

// IsInitialized always returns true.
func (NoneTracker) IsInitialized() bool { return true }

// IsComplete always returns false.
func (NoneTracker) IsComplete() bool { return false }

// Describe returns an empty string.
func (NoneTracker) Describe() string { return "" }
