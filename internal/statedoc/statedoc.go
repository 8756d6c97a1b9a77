// Package statedoc holds the server-side mutable run state as a JSON-like
// tree with RFC-6902-style patch application.
package statedoc

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

type Op string

const (
	OpAdd     Op = "add"
	OpReplace Op = "replace"
	OpRemove  Op = "remove"
)

// Patch is a single operation against a slash-delimited pointer path.
type Patch struct {
	Op    Op     `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// Document is an in-memory JSON-like tree. It is owned by exactly one run;
// there is no internal locking.
type Document struct {
	root     map[string]any
	listener func([]Patch)
}

func New(root map[string]any) *Document {
	if root == nil {
		root = map[string]any{}
	}
	return &Document{root: root}
}

// FromJSON reconstructs a document from a serialized snapshot.
func FromJSON(data []byte) (*Document, error) {
	var root map[string]any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decoding state snapshot: %w", err)
	}
	return New(root), nil
}

// OnApply registers a listener invoked with the patches that were actually
// applied. Batches where nothing applied never notify.
func (d *Document) OnApply(fn func([]Patch)) {
	d.listener = fn
}

// Apply applies a batch of patches best-effort and returns the ones that took
// effect. A patch that fails to apply is dropped and logged; it never aborts
// the rest of the batch. A remove against an absent key is silently skipped.
func (d *Document) Apply(patches []Patch) []Patch {
	var applied []Patch
	for _, p := range patches {
		ok, err := d.apply(p)
		if err != nil {
			slog.Warn("statedoc: dropping patch", "op", p.Op, "path", p.Path, "error", err)
			continue
		}
		if ok {
			applied = append(applied, p)
		}
	}
	if d.listener != nil && len(applied) > 0 {
		d.listener(applied)
	}
	return applied
}

func (d *Document) apply(p Patch) (bool, error) {
	parts := strings.Split(strings.Trim(p.Path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return false, fmt.Errorf("empty path")
	}

	// Walk to the parent, creating intermediate maps for add/replace.
	var parent any = d.root
	for _, part := range parts[:len(parts)-1] {
		m, ok := parent.(map[string]any)
		if !ok {
			return false, fmt.Errorf("path segment %q is not a mapping", part)
		}
		child, ok := m[part]
		if !ok || child == nil {
			if p.Op == OpRemove {
				// Nothing to remove below a missing node.
				return false, nil
			}
			child = map[string]any{}
			m[part] = child
		}
		parent = child
	}

	key := parts[len(parts)-1]
	switch p.Op {
	case OpReplace:
		m, ok := parent.(map[string]any)
		if !ok {
			return false, fmt.Errorf("replace target parent is not a mapping")
		}
		m[key] = p.Value
		return true, nil
	case OpAdd:
		// Adding into a sequence appends; anything else behaves like replace.
		if _, ok := parent.([]any); ok {
			return d.appendToSequence(parts, p.Value)
		}
		m, ok := parent.(map[string]any)
		if !ok {
			return false, fmt.Errorf("add target parent is not a mapping")
		}
		m[key] = p.Value
		return true, nil
	case OpRemove:
		m, ok := parent.(map[string]any)
		if !ok {
			return false, fmt.Errorf("remove target parent is not a mapping")
		}
		if _, exists := m[key]; !exists {
			return false, nil
		}
		delete(m, key)
		return true, nil
	default:
		return false, fmt.Errorf("unknown op %q", p.Op)
	}
}

// appendToSequence re-walks to the slice's holder so the append is visible
// through the tree (slices are not addressable through an any).
func (d *Document) appendToSequence(parts []string, value any) (bool, error) {
	holder := d.root
	for _, part := range parts[:len(parts)-2] {
		next, ok := holder[part].(map[string]any)
		if !ok {
			return false, fmt.Errorf("path segment %q is not a mapping", part)
		}
		holder = next
	}
	seqKey := parts[len(parts)-2]
	seq, ok := holder[seqKey].([]any)
	if !ok {
		return false, fmt.Errorf("%q is not a sequence", seqKey)
	}
	holder[seqKey] = append(seq, value)
	return true, nil
}

// Get returns the value at a slash-delimited path.
func (d *Document) Get(path string) (any, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	var cur any = d.root
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// GetString returns the string at path, or "" when absent or not a string.
func (d *Document) GetString(path string) string {
	v, ok := d.Get(path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Snapshot returns a deep copy of the tree, safe to hand to an encoder.
func (d *Document) Snapshot() map[string]any {
	data, err := json.Marshal(d.root)
	if err != nil {
		slog.Error("statedoc: snapshot marshal failed", "error", err)
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		slog.Error("statedoc: snapshot unmarshal failed", "error", err)
		return map[string]any{}
	}
	return out
}
