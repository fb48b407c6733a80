// Package diff renders line-oriented unified diffs of patched files.
package diff

import (
	"fmt"
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContext is the number of unchanged lines shown around a change.
const DefaultContext = 3

type line struct {
	op        diffpatch.Operation
	text      string
	oldBefore int // old lines consumed before this one
	newBefore int
}

// Unified returns a unified diff between before and after, labelled with
// path. It returns "" when the two texts are equal.
func Unified(path, before, after string, context int) string {
	if before == after {
		return ""
	}
	if context < 0 {
		context = DefaultContext
	}

	dmp := diffpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	lines := splitLines(diffs)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", path, path)

	for i := 0; i < len(lines); {
		if lines[i].op == diffpatch.DiffEqual {
			i++
			continue
		}

		start := max(i-context, 0)
		last := i
		j := i + 1
		for ; j < len(lines); j++ {
			if lines[j].op != diffpatch.DiffEqual {
				last = j
			} else if j-last > 2*context {
				break
			}
		}
		end := min(last+context+1, len(lines))

		writeHunk(&sb, lines[start:end])
		i = end
	}

	return sb.String()
}

func splitLines(diffs []diffpatch.Diff) []line {
	var (
		lines        []line
		oldLn, newLn int
	)
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		for _, l := range strings.Split(text, "\n") {
			lines = append(lines, line{op: d.Type, text: l, oldBefore: oldLn, newBefore: newLn})
			switch d.Type {
			case diffpatch.DiffEqual:
				oldLn++
				newLn++
			case diffpatch.DiffDelete:
				oldLn++
			case diffpatch.DiffInsert:
				newLn++
			}
		}
	}
	return lines
}

func writeHunk(sb *strings.Builder, hunk []line) {
	var oldCount, newCount int
	for _, l := range hunk {
		switch l.op {
		case diffpatch.DiffEqual:
			oldCount++
			newCount++
		case diffpatch.DiffDelete:
			oldCount++
		case diffpatch.DiffInsert:
			newCount++
		}
	}

	oldStart := hunk[0].oldBefore
	if oldCount > 0 {
		oldStart++
	}
	newStart := hunk[0].newBefore
	if newCount > 0 {
		newStart++
	}

	fmt.Fprintf(sb, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
	for _, l := range hunk {
		switch l.op {
		case diffpatch.DiffEqual:
			sb.WriteString(" ")
		case diffpatch.DiffDelete:
			sb.WriteString("-")
		case diffpatch.DiffInsert:
			sb.WriteString("+")
		}
		sb.WriteString(l.text)
		sb.WriteString("\n")
	}
}
