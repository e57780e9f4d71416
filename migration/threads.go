package migration

import "sort"

// BuildThreads groups messages into reply threads.
//
// Messages without a parent, or whose parent is not part of the batch, are roots. Each
// root is walked depth-first (pre-order, replies in batch order). A message is emitted at
// most once across all threads, so reply cycles, duplicate ids and duplicate reply edges
// can neither loop nor repeat rows. Threads with a single message are dropped; the rest
// are sorted chronologically (stable, ties keep traversal order) and returned in root
// order.
//
// Duplicate ids resolve to the last message carrying that id.
func BuildThreads(msgs []Message) []Thread {
	if len(msgs) == 0 {
		return nil
	}

	byID := make(map[string]int, len(msgs))
	for i, m := range msgs {
		byID[m.ID] = i
	}
	children := make(map[string][]string, len(msgs))
	for _, m := range msgs {
		if m.InReplyTo != "" {
			children[m.InReplyTo] = append(children[m.InReplyTo], m.ID)
		}
	}

	visited := make(map[string]struct{}, len(msgs))
	var (
		threads []Thread
		stack   []string
	)
	for _, m := range msgs {
		if !isRoot(m, byID) {
			continue
		}
		if _, ok := visited[m.ID]; ok {
			continue
		}

		var order []int
		stack = append(stack[:0], m.ID)
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if _, ok := visited[id]; ok {
				continue
			}
			idx, ok := byID[id]
			if !ok {
				continue
			}
			visited[id] = struct{}{}
			order = append(order, idx)

			// Push in reverse so the first reply is visited first.
			kids := children[id]
			for i := len(kids) - 1; i >= 0; i-- {
				if _, seen := visited[kids[i]]; !seen {
					stack = append(stack, kids[i])
				}
			}
		}

		if len(order) <= 1 {
			continue
		}

		th := Thread{RootID: m.ID, Messages: make([]Message, 0, len(order))}
		for _, idx := range order {
			th.Messages = append(th.Messages, msgs[idx])
		}
		sort.SliceStable(th.Messages, func(i, j int) bool {
			return th.Messages[i].PublishedAt.Before(th.Messages[j].PublishedAt)
		})
		threads = append(threads, th)
	}
	return threads
}

func isRoot(m Message, byID map[string]int) bool {
	if m.InReplyTo == "" {
		return true
	}
	_, ok := byID[m.InReplyTo]
	return !ok
}
