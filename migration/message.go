package migration

import (
	"fmt"
	"strings"
	"time"
)

// Message is one conversation entry recovered from an outbox archive.
type Message struct {
	ID          string    `json:"id"`
	InReplyTo   string    `json:"in_reply_to,omitempty"`
	PublishedAt time.Time `json:"published"`
	Author      string    `json:"author,omitempty"`
	Recipients  []string  `json:"recipients,omitempty"`
	RawContent  string    `json:"content,omitempty"`

	// Archive names the archive the message was loaded from (informational only).
	Archive string `json:"archive,omitempty"`
}

// Thread is a reply-connected group of messages in chronological order.
type Thread struct {
	RootID   string    `json:"root_id"`
	Messages []Message `json:"messages"`
}

// ActorHandle returns the trailing path segment of an actor reference
// ("https://host/users/alice" -> "alice").
func ActorHandle(actor string) string {
	actor = strings.TrimSpace(actor)
	if i := strings.LastIndexByte(actor, '/'); i >= 0 {
		return actor[i+1:]
	}
	return actor
}

// ValidationError reports archive input that cannot be turned into messages.
type ValidationError struct {
	Archive string
	Index   int
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid archive item")
	if e.Archive != "" {
		fmt.Fprintf(&b, " archive=%q", e.Archive)
	}
	if e.Index >= 0 {
		fmt.Fprintf(&b, " index=%d", e.Index)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field=%s", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}
