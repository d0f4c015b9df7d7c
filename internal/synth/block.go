package synth

import (
	"fmt"
	"strings"
)

// Block is an append-only sequence of configuration lines. A device's
// output is one Block owned by the task compiling that device; stages only
// ever append to it.
type Block struct {
	lines []string
}

// Add appends lines verbatim.
func (b *Block) Add(lines ...string) {
	b.lines = append(b.lines, lines...)
}

// Addf appends one formatted line.
func (b *Block) Addf(format string, args ...any) {
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
}

// Len returns the number of lines.
func (b *Block) Len() int { return len(b.lines) }

// Lines returns a copy of the lines.
func (b *Block) Lines() []string {
	return append([]string(nil), b.lines...)
}

// String joins the lines, each terminated by a newline.
func (b *Block) String() string {
	if len(b.lines) == 0 {
		return ""
	}
	return strings.Join(b.lines, "\n") + "\n"
}
