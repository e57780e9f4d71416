package fileutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoJSONObject means model output held no {...} span at all.
var ErrNoJSONObject = errors.New("no JSON object found in model output")

// DecodeModelJSON unmarshals a model reply into v. Strict-schema replies are usually
// clean JSON; when they are not (code fences, a sentence around the object), the
// outermost {...} span is decoded instead.
func DecodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return io.ErrUnexpectedEOF
	}
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end <= start {
		return fmt.Errorf("%w (len=%d)", ErrNoJSONObject, len(s))
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("decode model JSON (len=%d): %w", end+1-start, err)
	}
	return nil
}
