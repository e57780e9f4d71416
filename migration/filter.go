package migration

import "strings"

// Verdict is the outcome of classifying a message for output.
type Verdict int

const (
	Eligible Verdict = iota
	ExcludedEmpty
	ExcludedDirect
	ExcludedMention
)

func (v Verdict) String() string {
	switch v {
	case Eligible:
		return "eligible"
	case ExcludedEmpty:
		return "empty"
	case ExcludedDirect:
		return "direct"
	case ExcludedMention:
		return "mention"
	default:
		return "unknown"
	}
}

// Filter decides which messages make it into the output table. The zero value
// only rejects messages without content.
type Filter struct {
	dmTargets        map[string]struct{}
	excludedMentions []string
}

// NewFilter builds a Filter from the DM-target addresses and excluded mention prefixes.
func NewFilter(dmTargets, excludedMentions []string) Filter {
	f := Filter{dmTargets: make(map[string]struct{}, len(dmTargets))}
	for _, t := range dmTargets {
		if t = strings.TrimSpace(t); t != "" {
			f.dmTargets[t] = struct{}{}
		}
	}
	for _, m := range excludedMentions {
		if m = strings.TrimSpace(m); m != "" {
			f.excludedMentions = append(f.excludedMentions, m)
		}
	}
	return f
}

// IsDirect reports whether any recipient is one of the DM-target addresses.
func (f Filter) IsDirect(msg Message) bool {
	for _, r := range msg.Recipients {
		if _, ok := f.dmTargets[r]; ok {
			return true
		}
	}
	return false
}

// Classify returns why a message is excluded, or Eligible.
func (f Filter) Classify(msg Message) Verdict {
	v, _ := f.classify(msg)
	return v
}

// Eligible reports whether the message should produce an output row.
func (f Filter) Eligible(msg Message) bool {
	return f.Classify(msg) == Eligible
}

// classify also hands back the normalized content so callers projecting rows
// don't parse the markup twice.
func (f Filter) classify(msg Message) (Verdict, NormalizedContent) {
	if msg.RawContent == "" {
		return ExcludedEmpty, NormalizedContent{}
	}
	if f.IsDirect(msg) {
		return ExcludedDirect, NormalizedContent{}
	}
	nc := Normalize(msg.RawContent)
	if f.startsWithExcluded(strings.TrimSpace(nc.Text())) || f.startsWithExcluded(strings.TrimSpace(nc.Body)) {
		return ExcludedMention, nc
	}
	return Eligible, nc
}

func (f Filter) startsWithExcluded(s string) bool {
	for _, m := range f.excludedMentions {
		if strings.HasPrefix(s, m) {
			return true
		}
	}
	return false
}
