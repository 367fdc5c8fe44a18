package plan

import (
	"encoding/json"
	"fmt"
	"os"
)

// FileSource loads every plan from one JSON file at startup and is
// immutable afterwards. New events ship a new file, not new code.
//
// File shape:
//
//	{"bcup-s1": {"order": [78, 82], "groups": {"78": "A", "82": "B"}}}
type FileSource struct {
	plans map[string]Plan
}

func LoadFile(path string) (*FileSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plans file: %w", err)
	}
	plans := make(map[string]Plan)
	if err := json.Unmarshal(raw, &plans); err != nil {
		return nil, fmt.Errorf("parse plans file: %w", err)
	}
	return &FileSource{plans: plans}, nil
}

func (f *FileSource) Lookup(slug string) (Plan, bool) {
	p, ok := f.plans[slug]
	return p, ok
}
