package debugger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"
)

// Snapshot maps variable names to their JSON-encoded values at a breakpoint.
type Snapshot map[string]json.RawMessage

// DecodeSnapshot parses one complete JSON object document.
func DecodeSnapshot(payload []byte) (Snapshot, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, errors.New("empty payload")
	}
	if !utf8.Valid(trimmed) {
		return nil, errors.New("payload is not valid UTF-8")
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("expected JSON object, got %q", previewPayload(trimmed))
	}

	var snap Snapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return nil, err
	}
	if snap == nil {
		snap = Snapshot{}
	}

	return snap, nil
}

func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

// Indented renders one value with two-space indentation.
func (s Snapshot) Indented(key string) (string, bool) {
	raw, ok := s[key]
	if !ok {
		return "", false
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return string(raw), true
	}

	return out.String(), true
}

func previewPayload(payload []byte) string {
	const maxPreview = 32
	if len(payload) <= maxPreview {
		return string(payload)
	}

	return string(payload[:maxPreview]) + "..."
}
