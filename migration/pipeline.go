package migration

// Recorder receives pipeline counts. metrics.Run implements it.
type Recorder interface {
	ObserveVerdict(v Verdict)
	ObserveThreads(threads, threadedMessages int)
	ObserveRows(n int)
}

// Table is a named rectangular block of cells, header first.
type Table struct {
	Name   string
	Values [][]any
}

// PipelineOptions configures Run.
type PipelineOptions struct {
	Projector Projector
	Layout    Layout

	// TableName names the rows table (defaults to "rows").
	TableName string

	Recorder Recorder
}

// Result is everything a run produces before it is written anywhere.
type Result struct {
	Threads []Thread
	Rows    []Row
	Table   Table
}

// Run builds threads (unless the layout is flat), projects rows and renders the table.
// It has no side effects beyond the optional recorder, so the same input always yields
// the same table.
func Run(msgs []Message, opts PipelineOptions) Result {
	proj := opts.Projector
	if proj.Recorder == nil {
		proj.Recorder = opts.Recorder
	}
	name := opts.TableName
	if name == "" {
		name = "rows"
	}

	var res Result
	if opts.Layout.Threaded {
		res.Threads = BuildThreads(msgs)
		if opts.Recorder != nil {
			n := 0
			for _, th := range res.Threads {
				n += len(th.Messages)
			}
			opts.Recorder.ObserveThreads(len(res.Threads), n)
		}
		res.Rows = proj.Project(res.Threads)
	} else {
		res.Rows = proj.ProjectFlat(msgs)
	}
	if opts.Recorder != nil {
		opts.Recorder.ObserveRows(len(res.Rows))
	}
	res.Table = Table{Name: name, Values: opts.Layout.Table(res.Rows)}
	return res
}
