package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

const defaultWidth = 30

// Bar redraws a single line showing how many of total units are done.
type Bar struct {
	out     io.Writer
	label   string
	total   int
	current int
	width   int
	active  bool
	mu      sync.Mutex
}

func New(out io.Writer, label string, total int) *Bar {
	return &Bar{
		out:   out,
		label: label,
		total: total,
		width: defaultWidth,
	}
}

func (b *Bar) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active {
		return
	}
	b.active = true
	b.render()
}

func (b *Bar) Increment() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.set(b.current + 1)
}

func (b *Bar) Set(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.set(n)
}

func (b *Bar) set(n int) {
	if n > b.total {
		n = b.total
	}
	if n < 0 {
		n = 0
	}
	b.current = n
	if b.active {
		b.render()
	}
}

func (b *Bar) Current() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *Bar) Update(label string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.label = label
	if b.active {
		b.render()
	}
}

// Stop leaves the last state on screen and moves to the next line.
func (b *Bar) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return
	}
	b.active = false
	fmt.Fprint(b.out, "\n")
}

func (b *Bar) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.line()
}

func (b *Bar) render() {
	fmt.Fprint(b.out, "\r"+b.line())
}

func (b *Bar) line() string {
	filled := 0
	if b.total > 0 {
		filled = b.current * b.width / b.total
	}
	return fmt.Sprintf("%s [%s%s] %d/%d",
		b.label, strings.Repeat("#", filled), strings.Repeat(".", b.width-filled), b.current, b.total)
}
