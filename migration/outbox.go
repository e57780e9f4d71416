package migration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// DefaultItemsField is the ActivityStreams collection field holding outbox activities.
const DefaultItemsField = "orderedItems"

// DefaultLanguage is the contentMap key preferred over the generic content field.
const DefaultLanguage = "ko"

// DecodeOptions controls how DecodeOutbox interprets an archive.
type DecodeOptions struct {
	// ItemsField is the top-level field containing the activity array (defaults to orderedItems).
	ItemsField string

	// Language selects the contentMap entry used as message content (defaults to "ko").
	// When the entry is missing or empty, the generic content field is used.
	Language string

	// Archive labels validation errors and decoded messages.
	Archive string
}

// DecodeStats counts what DecodeOutbox saw.
type DecodeStats struct {
	Items   int
	Notes   int
	Skipped int
}

// DecodeOutbox reads an exported outbox (an ActivityStreams OrderedCollection) and returns
// the Note objects it carries, in archive order.
//
// The input is expected to be either:
// - a top-level object with an array field (orderedItems): { "orderedItems": [ {activity}, ... ] }
// - a top-level JSON array of activities
//
// Activities whose object is missing, not a JSON object, or not of type Note are skipped.
// Items that are not JSON objects, and Notes missing an id or a valid published timestamp,
// fail the whole archive with a *ValidationError.
func DecodeOutbox(ctx context.Context, r io.Reader, opts DecodeOptions) ([]Message, DecodeStats, error) {
	if ctx == nil {
		return nil, DecodeStats{}, errors.New("DecodeOutbox: ctx is nil")
	}
	if r == nil {
		return nil, DecodeStats{}, errors.New("DecodeOutbox: reader is nil")
	}
	if opts.ItemsField == "" {
		opts.ItemsField = DefaultItemsField
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}

	// Exports are typically one huge line; use a larger buffer than default.
	dec := json.NewDecoder(bufio.NewReaderSize(r, 1<<20))

	tok, err := dec.Token()
	if err != nil {
		return nil, DecodeStats{}, fmt.Errorf("DecodeOutbox: read first token: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, DecodeStats{}, &ValidationError{Archive: opts.Archive, Index: -1, Reason: fmt.Sprintf("expected JSON object or array, got %T", tok)}
	}

	var (
		msgs  []Message
		stats DecodeStats
	)

	switch delim {
	case '[':
		if err := decodeItemsFromOpen(ctx, dec, opts, &msgs, &stats); err != nil {
			return nil, stats, err
		}
		if err := expectDelim(dec, ']'); err != nil {
			return nil, stats, err
		}
		return msgs, stats, nil
	case '{':
		found := false
		for dec.More() {
			select {
			case <-ctx.Done():
				return nil, stats, ctx.Err()
			default:
			}

			keyTok, err := dec.Token()
			if err != nil {
				return nil, stats, fmt.Errorf("DecodeOutbox: read object key: %w", err)
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, stats, fmt.Errorf("DecodeOutbox: expected string key, got %T", keyTok)
			}

			valTok, err := dec.Token()
			if err != nil {
				return nil, stats, fmt.Errorf("DecodeOutbox: read value token for key %q: %w", key, err)
			}

			if key == opts.ItemsField {
				d, ok := valTok.(json.Delim)
				if !ok || d != '[' {
					return nil, stats, &ValidationError{Archive: opts.Archive, Index: -1, Field: key, Reason: "not an array"}
				}
				found = true
				if err := decodeItemsFromOpen(ctx, dec, opts, &msgs, &stats); err != nil {
					return nil, stats, err
				}
				if err := expectDelim(dec, ']'); err != nil {
					return nil, stats, err
				}
				continue
			}

			if err := skipValue(dec, valTok); err != nil {
				return nil, stats, fmt.Errorf("DecodeOutbox: skip key %q value: %w", key, err)
			}
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, stats, err
		}
		if !found {
			return nil, stats, &ValidationError{Archive: opts.Archive, Index: -1, Field: opts.ItemsField, Reason: "missing"}
		}
		return msgs, stats, nil
	default:
		return nil, stats, fmt.Errorf("DecodeOutbox: unsupported top-level delimiter %q", delim)
	}
}

func decodeItemsFromOpen(ctx context.Context, dec *json.Decoder, opts DecodeOptions, msgs *[]Message, stats *DecodeStats) error {
	for dec.More() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		idx := stats.Items
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("DecodeOutbox: decode item %d: %w", idx, err)
		}
		stats.Items++

		msg, ok, err := noteFromItem(raw, idx, opts)
		if err != nil {
			return err
		}
		if !ok {
			stats.Skipped++
			continue
		}
		stats.Notes++
		*msgs = append(*msgs, msg)
	}
	return nil
}

type rawActivity struct {
	Object json.RawMessage `json:"object"`
}

type rawNote struct {
	ID           json.RawMessage   `json:"id"`
	Type         json.RawMessage   `json:"type"`
	InReplyTo    json.RawMessage   `json:"inReplyTo"`
	Published    string            `json:"published"`
	AttributedTo json.RawMessage   `json:"attributedTo"`
	To           json.RawMessage   `json:"to"`
	Content      json.RawMessage   `json:"content"`
	ContentMap   map[string]string `json:"contentMap"`
}

func noteFromItem(raw json.RawMessage, idx int, opts DecodeOptions) (Message, bool, error) {
	invalid := func(field, reason string) error {
		return &ValidationError{Archive: opts.Archive, Index: idx, Field: field, Reason: reason}
	}

	if !isJSONObject(raw) {
		return Message{}, false, invalid("", "item is not a JSON object")
	}
	var act rawActivity
	if err := json.Unmarshal(raw, &act); err != nil {
		return Message{}, false, invalid("", err.Error())
	}
	if !isJSONObject(act.Object) {
		// Boosts carry the object as a URL string; nothing to record.
		return Message{}, false, nil
	}

	var note rawNote
	if err := json.Unmarshal(act.Object, &note); err != nil {
		return Message{}, false, invalid("object", err.Error())
	}
	if stringValue(note.Type) != "Note" {
		return Message{}, false, nil
	}

	id, err := refID(note.ID)
	if err != nil {
		return Message{}, false, invalid("object.id", err.Error())
	}
	if id == "" {
		return Message{}, false, invalid("object.id", "missing")
	}
	if note.Published == "" {
		return Message{}, false, invalid("object.published", "missing")
	}
	published, err := time.Parse(time.RFC3339Nano, note.Published)
	if err != nil {
		return Message{}, false, invalid("object.published", err.Error())
	}
	inReplyTo, err := refID(note.InReplyTo)
	if err != nil {
		return Message{}, false, invalid("object.inReplyTo", err.Error())
	}
	author, err := refID(note.AttributedTo)
	if err != nil {
		return Message{}, false, invalid("object.attributedTo", err.Error())
	}
	to, err := addressList(note.To)
	if err != nil {
		return Message{}, false, invalid("object.to", err.Error())
	}

	content := note.ContentMap[opts.Language]
	if content == "" {
		content = stringValue(note.Content)
	}

	return Message{
		ID:          id,
		InReplyTo:   inReplyTo,
		PublishedAt: published.UTC(),
		Author:      author,
		Recipients:  to,
		RawContent:  content,
		Archive:     opts.Archive,
	}, true, nil
}

func isJSONObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func stringValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// refID resolves an ActivityStreams link that may be null, a bare IRI, an object with an
// id, or a plain number (hand-written fixtures use numeric ids).
func refID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	case '{':
		var obj struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", err
		}
		if id := bytes.TrimSpace(obj.ID); len(id) > 0 && id[0] == '{' {
			return "", fmt.Errorf("nested object id %s", truncateRaw(obj.ID))
		}
		return refID(obj.ID)
	default:
		return "", fmt.Errorf("expected string or object, got %s", truncateRaw(raw))
	}
}

// addressList accepts a single address or an array of addresses/link objects.
func addressList(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '[' {
		id, err := refID(raw)
		if err != nil {
			return nil, err
		}
		if id == "" {
			return nil, nil
		}
		return []string{id}, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		id, err := refID(e)
		if err != nil {
			return nil, err
		}
		if id != "" {
			out = append(out, id)
		}
	}
	return out, nil
}

func truncateRaw(raw json.RawMessage) string {
	const max = 32
	if len(raw) <= max {
		return string(raw)
	}
	return string(raw[:max]) + "…"
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("DecodeOutbox: read closing %q token: %w", want, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("DecodeOutbox: expected closing %q, got %v", want, tok)
	}
	return nil
}

func skipValue(dec *json.Decoder, first json.Token) error {
	d, ok := first.(json.Delim)
	if !ok {
		// Primitive (string/number/bool/null): already fully consumed.
		return nil
	}

	switch d {
	case '{', '[':
	default:
		return fmt.Errorf("skipValue: unexpected delimiter %q", d)
	}

	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		if dd, ok := tok.(json.Delim); ok {
			switch dd {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
