package completion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/memohai/mbot/internal/channel"
)

var ErrInvalidReply = errors.New("invalid reply")

// ParseReply parses the engine output as a JSON array of reply elements.
// Every element must be an object with exactly one of "text" (string),
// "attachment" ({type, payload:{url}}) or "quick_replies" (object).
func ParseReply(raw string) ([]channel.Fragment, error) {
	var elements []json.RawMessage
	dec := json.NewDecoder(strings.NewReader(removeCodeBlocks(raw)))
	if err := dec.Decode(&elements); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	if elements == nil {
		return nil, fmt.Errorf("%w: top-level value is not an array", ErrInvalidReply)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after array", ErrInvalidReply)
	}
	fragments := make([]channel.Fragment, 0, len(elements))
	for i, element := range elements {
		fragment, err := parseElement(element)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrInvalidReply, i, err)
		}
		fragments = append(fragments, fragment)
	}
	return fragments, nil
}

// Validate reports whether raw satisfies the reply contract.
func Validate(raw string) bool {
	_, err := ParseReply(raw)
	return err == nil
}

func parseElement(raw json.RawMessage) (channel.Fragment, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return channel.Fragment{}, fmt.Errorf("not an object")
	}
	if len(fields) != 1 {
		return channel.Fragment{}, fmt.Errorf("expected exactly one field, got %d", len(fields))
	}
	for key, value := range fields {
		switch key {
		case "text":
			var text string
			if err := json.Unmarshal(value, &text); err != nil {
				return channel.Fragment{}, fmt.Errorf("text must be a string")
			}
			if strings.TrimSpace(text) == "" {
				return channel.Fragment{}, fmt.Errorf("text is empty")
			}
			return channel.TextFragment(text), nil
		case "attachment":
			var att struct {
				Type    string `json:"type"`
				Payload *struct {
					URL string `json:"url"`
				} `json:"payload"`
			}
			if err := json.Unmarshal(value, &att); err != nil {
				return channel.Fragment{}, fmt.Errorf("attachment must be an object")
			}
			if strings.TrimSpace(att.Type) == "" || att.Payload == nil || strings.TrimSpace(att.Payload.URL) == "" {
				return channel.Fragment{}, fmt.Errorf("attachment requires type and payload.url")
			}
			return channel.Fragment{
				Kind:       channel.FragmentAttachment,
				Attachment: &channel.OutboundAttachment{Type: strings.TrimSpace(att.Type), URL: strings.TrimSpace(att.Payload.URL)},
			}, nil
		case "quick_replies":
			trimmed := bytes.TrimSpace(value)
			if len(trimmed) == 0 || trimmed[0] != '{' {
				return channel.Fragment{}, fmt.Errorf("quick_replies must be an object")
			}
			return channel.Fragment{Kind: channel.FragmentQuickReplies, QuickReplies: append(json.RawMessage(nil), trimmed...)}, nil
		default:
			return channel.Fragment{}, fmt.Errorf("unknown field %q", key)
		}
	}
	return channel.Fragment{}, fmt.Errorf("empty object")
}

// removeCodeBlocks strips a surrounding ``` or ```json fence.
func removeCodeBlocks(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
