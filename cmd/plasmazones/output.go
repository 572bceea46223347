package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"
)

var (
	accentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// printer writes tables and key/value blocks. Output is styled only when it
// goes to a terminal and NO_COLOR is unset; otherwise it is plain text that
// scripts can parse.
type printer struct {
	w      io.Writer
	styled bool
	width  int
}

func newPrinter(w io.Writer) *printer {
	p := &printer{w: w, width: 100}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.styled = os.Getenv("NO_COLOR") == ""
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			p.width = width
		}
	}
	return p
}

func stdout() *printer { return newPrinter(os.Stdout) }

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) table(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		fmt.Fprintln(p.w, p.muted("(none)"))
		return nil
	}
	if !p.styled {
		tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
		for _, row := range rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		return tw.Flush()
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return accentStyle.Padding(0, 1)
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(p.w, t.Render())
	return err
}

// fields prints aligned "key: value" lines.
func (p *printer) fields(kv ...string) {
	width := 0
	for i := 0; i+1 < len(kv); i += 2 {
		width = max(width, len(kv[i]))
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprintf("%-*s", width+1, kv[i]+":")
		if p.styled {
			key = accentStyle.Render(key)
		}
		fmt.Fprintf(p.w, "%s %s\n", key, kv[i+1])
	}
}

func (p *printer) title(s string) {
	if p.styled {
		s = accentStyle.Render(s)
	}
	fmt.Fprintln(p.w, s)
}

func (p *printer) ok(s string) string {
	if p.styled {
		return okStyle.Render(s)
	}
	return s
}

func (p *printer) warn(s string) string {
	if p.styled {
		return warnStyle.Render(s)
	}
	return s
}

func (p *printer) muted(s string) string {
	if p.styled {
		return mutedStyle.Render(s)
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
