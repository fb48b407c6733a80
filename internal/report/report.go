// Package report prints human-readable patch results.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/taigrr/textpatch/internal/types"
)

// Counts tallies operation statuses across a run.
type Counts struct {
	Applied        int
	WouldApply     int
	AlreadyApplied int
	NotFound       int
	CountMismatch  int
	FilesWritten   int
}

// Total returns the number of operations counted.
func (c Counts) Total() int {
	return c.Applied + c.WouldApply + c.AlreadyApplied + c.NotFound + c.CountMismatch
}

// Missed returns the number of operations whose pattern did not match as
// expected.
func (c Counts) Missed() int {
	return c.NotFound + c.CountMismatch
}

// Tally counts the statuses in results.
func Tally(results []types.FileResult) Counts {
	var c Counts
	for _, fr := range results {
		if fr.Written {
			c.FilesWritten++
		}
		for _, op := range fr.Operations {
			switch op.Status {
			case types.StatusApplied:
				c.Applied++
			case types.StatusWouldApply:
				c.WouldApply++
			case types.StatusAlreadyApplied:
				c.AlreadyApplied++
			case types.StatusNotFound:
				c.NotFound++
			case types.StatusCountMismatch:
				c.CountMismatch++
			}
		}
	}
	return c
}

// Printer writes status lines and diffs.
type Printer struct {
	w    io.Writer
	ok   *color.Color
	dry  *color.Color
	skip *color.Color
	warn *color.Color
	dim  *color.Color
	add  *color.Color
	del  *color.Color
	hunk *color.Color
}

// New creates a Printer writing to w. Colors follow fatih/color's global
// NoColor setting.
func New(w io.Writer) *Printer {
	return &Printer{
		w:    w,
		ok:   color.New(color.FgGreen, color.Bold),
		dry:  color.New(color.FgCyan, color.Bold),
		skip: color.New(color.FgYellow),
		warn: color.New(color.FgRed, color.Bold),
		dim:  color.New(color.Faint),
		add:  color.New(color.FgGreen),
		del:  color.New(color.FgRed),
		hunk: color.New(color.FgCyan),
	}
}

func (p *Printer) tag(status types.Status) string {
	switch status {
	case types.StatusApplied:
		return p.ok.Sprint("[OK]")
	case types.StatusWouldApply:
		return p.dry.Sprint("[DRY]")
	case types.StatusAlreadyApplied:
		return p.skip.Sprint("[SKIP]")
	default:
		return p.warn.Sprint("[WARN]")
	}
}

// Operation prints one status line.
func (p *Printer) Operation(r types.PatchResult) {
	fmt.Fprintf(p.w, "%s %s: %s\n", p.tag(r.Status), r.Name, r.Message)
}

// File prints the status of every operation on a file, the write outcome
// and the diff when present.
func (p *Printer) File(fr types.FileResult) {
	for _, op := range fr.Operations {
		p.Operation(op)
	}
	if fr.Written {
		line := "  wrote " + fr.Path
		if fr.Backup != "" {
			line += " (backup: " + fr.Backup + ")"
		}
		p.dim.Fprintln(p.w, line)
	}
	if fr.Diff != "" {
		p.Diff(fr.Diff)
	}
}

// Diff prints a unified diff, coloring added and removed lines.
func (p *Printer) Diff(text string) {
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			p.dim.Fprint(p.w, line)
		case strings.HasPrefix(line, "@@"):
			p.hunk.Fprint(p.w, line)
		case strings.HasPrefix(line, "+"):
			p.add.Fprint(p.w, line)
		case strings.HasPrefix(line, "-"):
			p.del.Fprint(p.w, line)
		default:
			fmt.Fprint(p.w, line)
		}
	}
}

// Summary prints one line per operation followed by the totals.
func (p *Printer) Summary(results []types.FileResult) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(p.w, "\n%s\nSUMMARY\n%s\n", rule, rule)

	for _, fr := range results {
		for _, op := range fr.Operations {
			fmt.Fprintf(p.w, "%s (%s): %s\n", op.Name, op.Target, p.tag(op.Status))
		}
	}

	c := Tally(results)
	parts := []string{}
	add := func(n int, label string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, label))
		}
	}
	add(c.Applied, "applied")
	add(c.WouldApply, "would apply")
	add(c.AlreadyApplied, "already applied")
	add(c.NotFound, "not found")
	add(c.CountMismatch, "count mismatch")
	if len(parts) == 0 {
		parts = append(parts, "no operations")
	}
	fmt.Fprintf(p.w, "\n%s; %d file(s) written\n", strings.Join(parts, ", "), c.FilesWritten)
}

// Matches prints search results as path:line headers followed by the
// indented context. total is the number of matching files before
// pagination.
func (p *Printer) Matches(results []types.FindResult, total int) {
	for _, r := range results {
		for _, m := range r.Matches {
			loc := fmt.Sprintf("%s:%d", r.Path, m.Line)
			if m.EndLine > m.Line {
				loc = fmt.Sprintf("%s-%d", loc, m.EndLine)
			}
			p.hunk.Fprintln(p.w, loc)
			for _, line := range strings.Split(m.Context, "\n") {
				fmt.Fprintln(p.w, "    "+line)
			}
		}
	}
	if total > len(results) {
		p.dim.Fprintf(p.w, "showing %d of %d matching file(s)\n", len(results), total)
	}
}
