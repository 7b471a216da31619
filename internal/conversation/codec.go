package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EncodeHistory serializes turns as a JSON array of {role, content}.
func EncodeHistory(turns []Turn) ([]byte, error) {
	if turns == nil {
		turns = []Turn{}
	}
	raw, err := json.Marshal(turns)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return raw, nil
}

// DecodeHistory parses a stored history. Empty input is an empty history.
func DecodeHistory(raw []byte) ([]Turn, error) {
	if strings.TrimSpace(string(raw)) == "" {
		return []Turn{}, nil
	}
	var turns []Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if turns == nil {
		turns = []Turn{}
	}
	return turns, nil
}
