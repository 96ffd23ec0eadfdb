package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/changeflow/internal/trace"
)

// marshalList stores a string list as canonical JSON TEXT.
func marshalList(ss []string) (string, error) {
	data, err := trace.MarshalCanonical(trace.Strings(ss))
	if err != nil {
		return "", fmt.Errorf("marshal list: %w", err)
	}
	return string(data), nil
}

// unmarshalList reads a list written by marshalList. Empty input yields an
// empty, non-nil slice.
func unmarshalList(data string) ([]string, error) {
	out := []string{}
	if data == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal list: %w", err)
	}
	return out, nil
}
