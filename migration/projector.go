package migration

import "time"

// Row is one line of the output table.
type Row struct {
	Timestamp   string `json:"timestamp"`
	ThreadIndex int    `json:"thread_index,omitempty"`
	Author      string `json:"author"`
	Target      string `json:"target,omitempty"`
	Body        string `json:"body"`

	// MessageID is not written to the table; it ties a row back to its source message.
	MessageID string `json:"message_id"`
}

// Projector turns threads into output rows.
type Projector struct {
	Filter Filter

	// Names maps an actor handle (trailing path segment of attributedTo) to a display name.
	Names map[string]string

	// Location is the output time zone (defaults to UTC+9).
	Location *time.Location

	// Recorder, when set, is told about every classification.
	Recorder Recorder
}

// AuthorName resolves an actor reference to a display name, falling back to its handle.
func (p Projector) AuthorName(actor string) string {
	handle := ActorHandle(actor)
	if name, ok := p.Names[handle]; ok && name != "" {
		return name
	}
	return handle
}

// Project emits rows thread by thread, in each thread's (chronological) message order.
// Excluded messages are skipped without affecting their neighbours. Thread i (0-based)
// gets index i+1 whether or not any of its messages survive the filter.
func (p Projector) Project(threads []Thread) []Row {
	var rows []Row
	for i, th := range threads {
		for _, msg := range th.Messages {
			row, ok := p.row(msg)
			if !ok {
				continue
			}
			row.ThreadIndex = i + 1
			rows = append(rows, row)
		}
	}
	return rows
}

// ProjectFlat emits one row per eligible message in the given order, without threading.
func (p Projector) ProjectFlat(msgs []Message) []Row {
	var rows []Row
	for _, msg := range msgs {
		if row, ok := p.row(msg); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

func (p Projector) row(msg Message) (Row, bool) {
	verdict, nc := p.Filter.classify(msg)
	if p.Recorder != nil {
		p.Recorder.ObserveVerdict(verdict)
	}
	if verdict != Eligible {
		return Row{}, false
	}
	loc := p.Location
	if loc == nil {
		loc = FixedZone(DefaultZoneOffset)
	}
	return Row{
		Timestamp: formatRowTime(msg.PublishedAt, loc),
		Author:    p.AuthorName(msg.Author),
		Target:    nc.Target,
		Body:      nc.Body,
		MessageID: msg.ID,
	}, true
}

// Layout selects the output columns.
type Layout struct {
	// Threaded adds the thread index column and groups rows by thread.
	Threaded bool

	// IncludeTarget adds the addressed-mention column.
	IncludeTarget bool
}

// Header returns the column names for the layout.
func (l Layout) Header() []any {
	h := []any{"date"}
	if l.Threaded {
		h = append(h, "thread index")
	}
	h = append(h, "author")
	if l.IncludeTarget {
		h = append(h, "target")
	}
	return append(h, "content")
}

// Table renders the header followed by one line per row.
func (l Layout) Table(rows []Row) [][]any {
	out := make([][]any, 0, len(rows)+1)
	out = append(out, l.Header())
	for _, r := range rows {
		line := []any{r.Timestamp}
		if l.Threaded {
			line = append(line, r.ThreadIndex)
		}
		line = append(line, r.Author)
		if l.IncludeTarget {
			line = append(line, r.Target)
		}
		out = append(out, append(line, r.Body))
	}
	return out
}
