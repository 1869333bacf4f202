package core

import (
	"fmt"
	"strings"
)

// CodeBlock is the generated code of one plan section.
type CodeBlock struct {
	SectionName string `json:"section_name"`
	Code        string `json:"code"`
}

// Header is the comment line that marks the start of the section in the script.
func (b CodeBlock) Header() string {
	return fmt.Sprintf("# --- SECTION: %s ---", strings.ToUpper(b.SectionName))
}

// String renders the block as it appears in the final script.
func (b CodeBlock) String() string {
	return b.Header() + "\n" + b.Code
}

// AssembleScript joins blocks in order, separated by a blank line.
func AssembleScript(blocks []CodeBlock) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.String()
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// Window is a bounded FIFO. Pushing past capacity evicts the oldest entry and
// hands it to the eviction hook.
type Window[T any] struct {
	size    int
	items   []T
	onEvict func(T)
}

// NewWindow returns a window holding at most size items. Sizes below one are
// raised to one.
func NewWindow[T any](size int, onEvict func(T)) *Window[T] {
	if size < 1 {
		size = 1
	}
	return &Window[T]{size: size, onEvict: onEvict}
}

func (w *Window[T]) Push(item T) {
	w.items = append(w.items, item)
	for len(w.items) > w.size {
		oldest := w.items[0]
		var zero T
		w.items[0] = zero
		w.items = w.items[1:]
		if w.onEvict != nil {
			w.onEvict(oldest)
		}
	}
}

func (w *Window[T]) Len() int  { return len(w.items) }
func (w *Window[T]) Size() int { return w.size }

// Items returns a copy of the window contents, oldest first.
func (w *Window[T]) Items() []T {
	out := make([]T, len(w.items))
	copy(out, w.items)
	return out
}

// Memory is the context carried from section to section: summaries of evicted
// sections and the most recent sections verbatim.
type Memory struct {
	longTerm  []string
	shortTerm *Window[CodeBlock]
}

// NewMemory builds a memory whose short-term window holds size blocks.
// summarize is called with each block that falls out of the window.
func NewMemory(size int, summarize func(CodeBlock) string) *Memory {
	m := &Memory{}
	m.shortTerm = NewWindow(size, func(b CodeBlock) {
		m.longTerm = append(m.longTerm, summarize(b))
	})
	return m
}

func (m *Memory) Add(b CodeBlock) { m.shortTerm.Push(b) }

// LongTerm renders the summaries as a bulleted list, one line per summary.
func (m *Memory) LongTerm() string {
	lines := make([]string, len(m.longTerm))
	for i, s := range m.longTerm {
		lines[i] = "- " + s
	}
	return strings.Join(lines, "\n")
}

// ShortTerm renders the recent blocks verbatim.
func (m *Memory) ShortTerm() string {
	items := m.shortTerm.Items()
	parts := make([]string, len(items))
	for i, b := range items {
		parts[i] = b.String()
	}
	return strings.Join(parts, "\n\n")
}

func (m *Memory) Summaries() []string {
	return append([]string(nil), m.longTerm...)
}

func (m *Memory) Recent() []CodeBlock { return m.shortTerm.Items() }
