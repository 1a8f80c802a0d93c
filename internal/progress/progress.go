// SPDX-License-Identifier: MPL-2.0

// Package progress reports long-running steps (prefix materialization,
// solving) to the terminal. Visibility is an explicit value carried by each
// Reporter: production surfaces construct a visible reporter, tests a hidden
// one. There is no process-wide toggle.
package progress

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Visibility controls whether a Reporter writes anything at all.
type Visibility int

const (
	// Visible renders step lines to the reporter's writer.
	Visible Visibility = iota
	// Hidden suppresses all output.
	Hidden
)

var (
	stepStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	doneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// Reporter writes step lines for long-running operations.
type Reporter struct {
	w          io.Writer
	visibility Visibility
}

// NewReporter creates a reporter writing to w with the given visibility.
func NewReporter(w io.Writer, visibility Visibility) *Reporter {
	return &Reporter{w: w, visibility: visibility}
}

// Step reports the start of a long-running operation.
func (r *Reporter) Step(format string, args ...any) {
	if r == nil || r.visibility == Hidden {
		return
	}
	fmt.Fprintln(r.w, stepStyle.Render("⠿ ")+fmt.Sprintf(format, args...))
}

// Done reports a completed operation.
func (r *Reporter) Done(format string, args ...any) {
	if r == nil || r.visibility == Hidden {
		return
	}
	fmt.Fprintln(r.w, doneStyle.Render("✔ ")+fmt.Sprintf(format, args...))
}
