// Package view draws renderer output on a terminal.
//
// Console is the candidate window of the bundled renderer: a bordered box
// with the preedit on top and the candidate list below, the focused row
// marked and highlighted. Identical consecutive frames are written once.
package view

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"overlay/internal/protocol"
)

const hiddenFrame = "[overlay hidden]"

// Options controls the console layout.
type Options struct {
	Width       int
	Color       bool
	AccentColor string
}

// Console renders commands to a writer.
type Console struct {
	mu   sync.Mutex
	out  io.Writer
	last string

	width   int
	box     lipgloss.Style
	preedit lipgloss.Style
	row     lipgloss.Style
	focused lipgloss.Style
	note    lipgloss.Style
}

// NewConsole builds a Console writing to out.
func NewConsole(out io.Writer, opts Options) *Console {
	r := lipgloss.NewRenderer(out)
	width := opts.Width
	if width <= 0 {
		width = 48
	}

	c := &Console{
		out:     out,
		width:   width,
		box:     r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(width),
		preedit: r.NewStyle().Bold(true).Underline(true),
		row:     r.NewStyle(),
		focused: r.NewStyle().Bold(true),
		note:    r.NewStyle().Faint(true),
	}
	if opts.Color {
		accent := lipgloss.Color(opts.AccentColor)
		c.box = c.box.BorderForeground(accent)
		c.focused = c.focused.Foreground(lipgloss.Color("0")).Background(accent)
		c.note = c.note.Foreground(lipgloss.Color("8"))
	}
	return c
}

// Render draws cmd unless it produces the frame already on screen. Noop and
// Shutdown commands draw nothing.
func (c *Console) Render(cmd protocol.Command) error {
	if cmd.Kind != protocol.Update {
		return nil
	}
	frame := c.Frame(cmd)

	c.mu.Lock()
	defer c.mu.Unlock()
	if frame == c.last {
		return nil
	}
	if _, err := fmt.Fprintln(c.out, frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	c.last = frame
	return nil
}

// Frame returns the text Render would draw for an Update.
func (c *Console) Frame(cmd protocol.Command) string {
	if !cmd.Visible || cmd.Output == nil {
		return hiddenFrame
	}
	out := cmd.Output

	var lines []string
	if out.Preedit != "" {
		lines = append(lines, c.preedit.Render(out.Preedit))
	}
	for i, cand := range out.Candidates {
		marker := "  "
		style := c.row
		if i == out.Focused {
			marker = "> "
			style = c.focused
		}
		text := fmt.Sprintf("%s%d. %s", marker, i+1, cand.Value)
		if cand.Annotation != "" {
			text += " " + c.note.Render(cand.Annotation)
		}
		lines = append(lines, style.Render(text))
	}
	if len(lines) == 0 {
		lines = append(lines, c.note.Render("(empty)"))
	}
	return c.box.Render(strings.Join(lines, "\n"))
}
