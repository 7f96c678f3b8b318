package search

import (
	"fmt"
	"io"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(question string)
	AfterQueryEmbedding(dimension int)
	AfterIndexLoad(chunks int, rebuilt bool)
	Finish(hits []Hit)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)               {}
func (n *noopMonitor) AfterQueryEmbedding(_ int)    {}
func (n *noopMonitor) AfterIndexLoad(_ int, _ bool) {}
func (n *noopMonitor) Finish(_ []Hit)               {}

// TraceMonitor writes each search stage to w as plain text.
type TraceMonitor struct {
	w io.Writer
}

var _ SearchMonitor = (*TraceMonitor)(nil)

// NewTraceMonitor creates a monitor that writes to w.
func NewTraceMonitor(w io.Writer) *TraceMonitor {
	return &TraceMonitor{w: w}
}

func (m *TraceMonitor) Start(question string) {
	fmt.Fprintf(m.w, "search: %q\n", question)
}

func (m *TraceMonitor) AfterQueryEmbedding(dimension int) {
	fmt.Fprintf(m.w, "  embedded query (%d dimensions)\n", dimension)
}

func (m *TraceMonitor) AfterIndexLoad(chunks int, rebuilt bool) {
	state := "cached"
	if rebuilt {
		state = "rebuilt"
	}
	fmt.Fprintf(m.w, "  index %s (%d chunks)\n", state, chunks)
}

func (m *TraceMonitor) Finish(hits []Hit) {
	fmt.Fprintf(m.w, "  %d hits\n", len(hits))
	for i, hit := range hits {
		fmt.Fprintf(m.w, "  %d: [%0.3f] %s | %s\n", i+1, hit.Score, hit.Meta.DocumentName, hit.Meta.Header)
	}
}
