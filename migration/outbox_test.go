package migration

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDecodeOutbox_OrderedCollection(t *testing.T) {
	t.Parallel()

	in := `{
	  "@context": "https://www.w3.org/ns/activitystreams",
	  "id": "https://h/users/a/outbox.json",
	  "type": "OrderedCollection",
	  "totalItems": 4,
	  "orderedItems": [
	    {"type":"Create","object":{"id":"n1","type":"Note","published":"2024-01-01T00:00:00Z",
	      "attributedTo":"https://h/users/a","to":"https://www.w3.org/ns/activitystreams#Public",
	      "content":"<p>generic</p>","contentMap":{"ko":"<p>한국어</p>","en":"<p>english</p>"}}},
	    {"type":"Create","object":{"id":"n2","type":"Note","inReplyTo":{"id":"n1","type":"Note"},
	      "published":"2024-01-01T00:01:00.5+09:00","attributedTo":{"id":"https://h/users/b"},
	      "to":["https://h/users/NOTICE",{"id":"https://h/users/a"}],"content":"<p>fallback</p>","contentMap":{"ko":""}}},
	    {"type":"Announce","object":"https://elsewhere/notes/1"},
	    {"type":"Create","object":{"id":"q1","type":"Question","published":"2024-01-01T00:02:00Z"}}
	  ]
	}`

	msgs, stats, err := DecodeOutbox(context.Background(), strings.NewReader(in), DecodeOptions{Archive: "a"})
	if err != nil {
		t.Fatalf("DecodeOutbox: %v", err)
	}
	if stats.Items != 4 || stats.Notes != 2 || stats.Skipped != 2 {
		t.Fatalf("stats=%+v, want items=4 notes=2 skipped=2", stats)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs)=%d, want 2", len(msgs))
	}

	m1 := msgs[0]
	if m1.ID != "n1" || m1.InReplyTo != "" || m1.Author != "https://h/users/a" || m1.Archive != "a" {
		t.Fatalf("m1=%+v", m1)
	}
	if m1.RawContent != "<p>한국어</p>" {
		t.Fatalf("m1.RawContent=%q, want the ko contentMap entry", m1.RawContent)
	}
	if len(m1.Recipients) != 1 || m1.Recipients[0] != "https://www.w3.org/ns/activitystreams#Public" {
		t.Fatalf("m1.Recipients=%v", m1.Recipients)
	}

	m2 := msgs[1]
	if m2.InReplyTo != "n1" {
		t.Fatalf("m2.InReplyTo=%q, want n1", m2.InReplyTo)
	}
	if m2.Author != "https://h/users/b" {
		t.Fatalf("m2.Author=%q", m2.Author)
	}
	if m2.RawContent != "<p>fallback</p>" {
		t.Fatalf("m2.RawContent=%q, want generic content when ko is empty", m2.RawContent)
	}
	if got := strings.Join(m2.Recipients, ","); got != "https://h/users/NOTICE,https://h/users/a" {
		t.Fatalf("m2.Recipients=%q", got)
	}
	want := time.Date(2023, 12, 31, 15, 1, 0, 500_000_000, time.UTC)
	if !m2.PublishedAt.Equal(want) || m2.PublishedAt.Location() != time.UTC {
		t.Fatalf("m2.PublishedAt=%v, want %v in UTC", m2.PublishedAt, want)
	}
}

func TestDecodeOutbox_TopLevelArrayAndLanguage(t *testing.T) {
	t.Parallel()

	in := `[{"object":{"id":"n1","type":"Note","published":"2024-01-01T00:00:00Z","contentMap":{"ko":"ko","en":"en"}}}]`
	msgs, _, err := DecodeOutbox(context.Background(), strings.NewReader(in), DecodeOptions{Language: "en"})
	if err != nil {
		t.Fatalf("DecodeOutbox: %v", err)
	}
	if len(msgs) != 1 || msgs[0].RawContent != "en" {
		t.Fatalf("msgs=%+v, want one message with en content", msgs)
	}
}

func TestDecodeOutbox_NumericIDs(t *testing.T) {
	t.Parallel()

	in := `{"orderedItems":[
	  {"object":{"id":1,"type":"Note","published":"2024-01-01T00:00:00Z","content":"<p>@bob Hi</p>"}},
	  {"object":{"id":2,"type":"Note","inReplyTo":1,"published":"2024-01-01T00:05:00Z","content":"<p>@alice Hello</p>"}},
	  {"object":{"id":3,"type":"Note","inReplyTo":{"id":2},"published":"2024-01-01T00:06:00Z","content":"<p>ok</p>"}}
	]}`
	msgs, _, err := DecodeOutbox(context.Background(), strings.NewReader(in), DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeOutbox: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len(msgs)=%d, want 3", len(msgs))
	}
	if msgs[0].ID != "1" || msgs[1].ID != "2" || msgs[1].InReplyTo != "1" || msgs[2].InReplyTo != "2" {
		t.Fatalf("msgs=%+v, want ids 1,2,3 with replies 1 and 2", msgs)
	}
	if th := BuildThreads(msgs); len(th) != 1 || len(th[0].Messages) != 3 {
		t.Fatalf("threads=%+v, want one thread of three", th)
	}
}

func TestDecodeOutbox_CustomItemsField(t *testing.T) {
	t.Parallel()

	in := `{"orderedItems":"ignored","items":[{"object":{"id":"n1","type":"Note","published":"2024-01-01T00:00:00Z"}}]}`
	msgs, _, err := DecodeOutbox(context.Background(), strings.NewReader(in), DecodeOptions{ItemsField: "items"})
	if err != nil {
		t.Fatalf("DecodeOutbox: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("len(msgs)=%d, want 1", len(msgs))
	}
}

func TestDecodeOutbox_ValidationErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		in    string
		field string
		index int
	}{
		{"missing items", `{"type":"OrderedCollection"}`, "orderedItems", -1},
		{"items not array", `{"orderedItems":{}}`, "orderedItems", -1},
		{"item not object", `{"orderedItems":[{"object":{"id":"n0","type":"Note","published":"2024-01-01T00:00:00Z"}}, 42]}`, "", 1},
		{"missing id", `{"orderedItems":[{"object":{"type":"Note","published":"2024-01-01T00:00:00Z"}}]}`, "object.id", 0},
		{"missing published", `{"orderedItems":[{"object":{"id":"n1","type":"Note"}}]}`, "object.published", 0},
		{"bad published", `{"orderedItems":[{"object":{"id":"n1","type":"Note","published":"yesterday"}}]}`, "object.published", 0},
		{"bad inReplyTo", `{"orderedItems":[{"object":{"id":"n1","type":"Note","published":"2024-01-01T00:00:00Z","inReplyTo":true}}]}`, "object.inReplyTo", 0},
		{"bad id", `{"orderedItems":[{"object":{"id":["n1"],"type":"Note","published":"2024-01-01T00:00:00Z"}}]}`, "object.id", 0},
	}
	for _, tc := range cases {
		_, _, err := DecodeOutbox(context.Background(), strings.NewReader(tc.in), DecodeOptions{Archive: "x"})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: err=%v, want *ValidationError", tc.name, err)
		}
		if verr.Field != tc.field || verr.Index != tc.index || verr.Archive != "x" {
			t.Fatalf("%s: got field=%q index=%d archive=%q, want field=%q index=%d", tc.name, verr.Field, verr.Index, verr.Archive, tc.field, tc.index)
		}
	}
}

func TestDecodeOutbox_Malformed(t *testing.T) {
	t.Parallel()

	for _, in := range []string{``, `{"orderedItems":[`, `"just a string"`} {
		if _, _, err := DecodeOutbox(context.Background(), strings.NewReader(in), DecodeOptions{}); err == nil {
			t.Fatalf("input %q: expected error", in)
		}
	}
}

func TestDecodeOutbox_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := `{"orderedItems":[{"object":{"id":"n1","type":"Note","published":"2024-01-01T00:00:00Z"}}]}`
	if _, _, err := DecodeOutbox(ctx, strings.NewReader(in), DecodeOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
}
