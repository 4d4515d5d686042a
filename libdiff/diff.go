// Package libdiff computes line diffs of serialized documents.
package libdiff

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/signadot/xmlh/tree"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

type Op int

const (
	Equal Op = iota
	Insert
	Delete
)

func (o Op) String() string {
	switch o {
	case Insert:
		return "+"
	case Delete:
		return "-"
	}
	return " "
}

type Line struct {
	Op   Op
	Text string
}

// Lines diffs a and b line by line.
func Lines(from, to string) []Line {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	var res []Line
	for _, d := range diffs {
		op := Equal
		switch d.Type {
		case diffpatch.DiffInsert:
			op = Insert
		case diffpatch.DiffDelete:
			op = Delete
		}
		for _, l := range strings.SplitAfter(d.Text, "\n") {
			if l == "" {
				continue
			}
			res = append(res, Line{Op: op, Text: strings.TrimSuffix(l, "\n")})
		}
	}
	return res
}

// Differs reports whether any line was inserted or deleted.
func Differs(lines []Line) bool {
	for _, l := range lines {
		if l.Op != Equal {
			return true
		}
	}
	return false
}

// Reverse turns a diff from a to b into one from b to a.
func Reverse(lines []Line) []Line {
	res := make([]Line, len(lines))
	for i, l := range lines {
		switch l.Op {
		case Insert:
			l.Op = Delete
		case Delete:
			l.Op = Insert
		}
		res[i] = l
	}
	return res
}

// Write writes lines prefixed with their op. Changed lines are colored
// when colors is set; with context >= 0 only that many equal lines around
// each change are kept.
func Write(w io.Writer, lines []Line, context int, colors bool) error {
	keep := make([]bool, len(lines))
	for i, l := range lines {
		if context < 0 || l.Op != Equal {
			keep[i] = true
			continue
		}
		for j := max(0, i-context); j <= min(len(lines)-1, i+context); j++ {
			if lines[j].Op != Equal {
				keep[i] = true
				break
			}
		}
	}
	paint := map[Op]func(string, ...any) string{
		Equal:  fmt.Sprintf,
		Insert: fmt.Sprintf,
		Delete: fmt.Sprintf,
	}
	if colors {
		paint[Insert] = color.GreenString
		paint[Delete] = color.RedString
	}
	skipped := false
	for i, l := range lines {
		if !keep[i] {
			skipped = true
			continue
		}
		if skipped {
			if _, err := io.WriteString(w, "@@\n"); err != nil {
				return err
			}
			skipped = false
		}
		if _, err := io.WriteString(w, paint[l.Op]("%s%s", l.Op, l.Text)+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// Documents diffs the indented serializations of a and b, or their
// canonical forms when c14n is not nil.
func Documents(a, b *tree.Document, c14n *tree.C14NOptions) ([]Line, error) {
	render := func(d *tree.Document) (string, error) {
		if c14n != nil {
			return d.Canonicalize(*c14n)
		}
		if d.Closed() {
			return "", tree.ErrClosed
		}
		return d.Serialize(tree.SaveOptions{Format: true}), nil
	}
	sa, err := render(a)
	if err != nil {
		return nil, err
	}
	sb, err := render(b)
	if err != nil {
		return nil, err
	}
	if c14n != nil {
		sa, sb = breakTags(sa), breakTags(sb)
	}
	return Lines(sa, sb), nil
}

// breakTags puts each tag of canonical text, which has no line
// structure of its own, on a line.
func breakTags(s string) string {
	return strings.ReplaceAll(s, "><", ">\n<")
}
