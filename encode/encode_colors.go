package encode

import (
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

type ColorAttr int

const (
	TagColor ColorAttr = iota
	AttrNameColor
	AttrValueColor
	TextColor
	CommentColor
	PIColor
	CDATAColor
	SepColor
)

type Colors struct {
	Default func(string, ...any) string
	Map     map[ColorAttr]func(string, ...any) string
}

func NewColors() *Colors {
	colors := &Colors{
		Default: colorDefault,
		Map: map[ColorAttr]func(string, ...any) string{
			TagColor:       color.RGB(128, 168, 196).SprintfFunc(),
			AttrNameColor:  color.RGB(196, 96, 16).SprintfFunc(),
			AttrValueColor: color.RGB(8, 196, 16).SprintfFunc(),
			CommentColor:   color.BlueString,
			PIColor:        color.RGB(168, 0, 196).SprintfFunc(),
			CDATAColor:     color.RGB(198, 198, 46).SprintfFunc(),
			SepColor:       color.RGB(255, 0, 196).SprintfFunc(),
		},
	}
	for k, f := range colors.Map {
		colors.Map[k] = func(v string, _ ...any) string {
			return f(strings.ReplaceAll(v, "%", "%%"))
		}
	}
	return colors
}

// AutoColors returns NewColors when w is a terminal and nil otherwise.
func AutoColors(w io.Writer) *Colors {
	f, ok := w.(*os.File)
	if !ok || color.NoColor {
		return nil
	}
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return NewColors()
	}
	return nil
}

func colorDefault(v string, _ ...any) string { return v }

func (c *Colors) Color(a ColorAttr, s string) string {
	if s == "" {
		return s
	}
	return c.Get(a)(s)
}

func (c *Colors) Get(a ColorAttr) func(string, ...any) string {
	f := c.Map[a]
	if f == nil {
		return c.Default
	}
	return f
}

// Highlight colors serialized markup.
func (c *Colors) Highlight(s string) string {
	var sb strings.Builder
	for len(s) > 0 {
		i := strings.IndexByte(s, '<')
		if i != 0 {
			if i < 0 {
				i = len(s)
			}
			sb.WriteString(c.Color(TextColor, s[:i]))
			s = s[i:]
			continue
		}
		switch {
		case strings.HasPrefix(s, "<!--"):
			s = c.span(&sb, s, "-->", CommentColor)
		case strings.HasPrefix(s, "<![CDATA["):
			s = c.span(&sb, s, "]]>", CDATAColor)
		case strings.HasPrefix(s, "<?"), strings.HasPrefix(s, "<!"):
			s = c.span(&sb, s, ">", PIColor)
		default:
			s = c.tag(&sb, s)
		}
	}
	return sb.String()
}

func (c *Colors) span(sb *strings.Builder, s, end string, a ColorAttr) string {
	i := strings.Index(s, end)
	if i < 0 {
		i = len(s)
	} else {
		i += len(end)
	}
	sb.WriteString(c.Color(a, s[:i]))
	return s[i:]
}

// tag colors one start or end tag, s starting at its '<'.
func (c *Colors) tag(sb *strings.Builder, s string) string {
	i := 1
	if strings.HasPrefix(s, "</") {
		i = 2
	}
	sb.WriteString(c.Color(SepColor, s[:i]))
	s = s[i:]
	n := strings.IndexAny(s, " \t\n/>")
	if n < 0 {
		n = len(s)
	}
	sb.WriteString(c.Color(TagColor, s[:n]))
	s = s[n:]
	for len(s) > 0 {
		switch s[0] {
		case '>':
			sb.WriteString(c.Color(SepColor, ">"))
			return s[1:]
		case '/':
			sb.WriteString(c.Color(SepColor, "/"))
			s = s[1:]
		case ' ', '\t', '\n':
			sb.WriteByte(s[0])
			s = s[1:]
		case '"', '\'':
			end := strings.IndexByte(s[1:], s[0])
			if end < 0 {
				end = len(s)
			} else {
				end += 2
			}
			sb.WriteString(c.Color(AttrValueColor, s[:end]))
			s = s[end:]
		case '=':
			sb.WriteString(c.Color(SepColor, "="))
			s = s[1:]
		default:
			n := strings.IndexAny(s, " \t\n=/>")
			if n < 0 {
				n = len(s)
			}
			sb.WriteString(c.Color(AttrNameColor, s[:n]))
			s = s[n:]
		}
	}
	return s
}
