package readonly

import (
	"context"

	"github.com/signadot/xmlh/internal/engine"
	"golang.org/x/sync/errgroup"
)

// Summary counts the nodes of a subtree.
type Summary struct {
	Elements   int `yaml:"elements"`
	Attributes int `yaml:"attributes"`
	Texts      int `yaml:"texts"`
	Comments   int `yaml:"comments"`
	Other      int `yaml:"other"`
	TextBytes  int `yaml:"textBytes"`
	MaxDepth   int `yaml:"maxDepth"`
}

// Add merges o into s.
func (s *Summary) Add(o Summary) {
	s.Elements += o.Elements
	s.Attributes += o.Attributes
	s.Texts += o.Texts
	s.Comments += o.Comments
	s.Other += o.Other
	s.TextBytes += o.TextBytes
	s.MaxDepth = max(s.MaxDepth, o.MaxDepth)
}

type Options struct {
	// Workers bounds the number of concurrent subtree walks. Zero or less
	// walks sequentially.
	Workers int
}

// Stats summarizes the subtree at root. Each child subtree of root is
// walked in its own goroutine.
func Stats(ctx context.Context, root Node, opts Options) (Summary, error) {
	var total Summary
	if root.IsNil() {
		return total, nil
	}
	base := 1
	if root.Type().IsDocument() {
		base = 0
	}
	total.Add(count(root, base))
	children := root.ChildNodes()
	if opts.Workers <= 0 {
		for _, c := range children {
			if err := ctx.Err(); err != nil {
				return Summary{}, err
			}
			total.Add(walk(c, base+1))
		}
		return total, nil
	}
	parts := make([]Summary, len(children))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, c := range children {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parts[i] = walk(c, base+1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	for _, p := range parts {
		total.Add(p)
	}
	return total, nil
}

func walk(n Node, depth int) Summary {
	s := count(n, depth)
	for _, c := range n.ChildNodes() {
		s.Add(walk(c, depth+1))
	}
	return s
}

func count(n Node, depth int) Summary {
	var s Summary
	switch n.Type() {
	case engine.ElementNode:
		s.Elements = 1
		s.MaxDepth = depth
		for a := n.doc.FirstProp(n.pos); a != engine.Nil; a = n.doc.Next(a) {
			s.Attributes++
		}
	case engine.TextNode, engine.CDATASectionNode:
		s.Texts = 1
		s.TextBytes = len(n.doc.Content(n.pos))
	case engine.CommentNode:
		s.Comments = 1
	case engine.DocumentNode, engine.HTMLDocumentNode:
	default:
		s.Other = 1
	}
	return s
}
