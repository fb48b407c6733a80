package patcher

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/taigrr/textpatch/internal/types"
)

var (
	// ErrEmptySearch is returned when an operation has nothing to search for.
	ErrEmptySearch = errors.New("search text cannot be empty")
	// ErrSameText is returned when search and replacement are identical.
	ErrSameText = errors.New("search and replace text must be different")
	// ErrInvalidPattern wraps regexp compilation failures.
	ErrInvalidPattern = errors.New("invalid pattern")
	// ErrEmptyMatch is returned for patterns that match the empty string.
	ErrEmptyMatch = errors.New("pattern matches the empty string")
	// ErrNotIdempotent is returned when the replacement would match again on
	// the next run.
	ErrNotIdempotent = errors.New("replacement matches the search pattern, patch would not be idempotent")
)

// Outcome is the in-memory result of Substitute.
type Outcome struct {
	Content    string
	Status     types.Status
	MatchCount int
	Replaced   int
}

// matcher abstracts literal and regexp matching.
type matcher interface {
	count(s string) int
	replace(s string, all bool) string
}

type literalMatcher struct {
	search, replacement string
}

func (m literalMatcher) count(s string) int {
	return strings.Count(s, m.search)
}

func (m literalMatcher) replace(s string, all bool) string {
	if all {
		return strings.ReplaceAll(s, m.search, m.replacement)
	}
	return strings.Replace(s, m.search, m.replacement, 1)
}

type regexpMatcher struct {
	re          *regexp.Regexp
	replacement string
	expand      bool
}

func (m regexpMatcher) count(s string) int {
	return len(m.re.FindAllStringIndex(s, -1))
}

func (m regexpMatcher) replace(s string, all bool) string {
	if all {
		if m.expand {
			return m.re.ReplaceAllString(s, m.replacement)
		}
		return m.re.ReplaceAllLiteralString(s, m.replacement)
	}

	loc := m.re.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	replacement := m.replacement
	if m.expand {
		replacement = string(m.re.ExpandString(nil, m.replacement, s, loc))
	}
	return s[:loc[0]] + replacement + s[loc[1]:]
}

// compile builds the regexp for op, applying its inline flags.
func compile(op types.PatchOperation) (*regexp.Regexp, error) {
	expr := op.Search
	if op.Flags != "" {
		expr = "(?" + op.Flags + ")" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	return re, nil
}

func newMatcher(op types.PatchOperation) (matcher, error) {
	if !op.Regex {
		return literalMatcher{search: op.Search, replacement: op.Replace}, nil
	}
	re, err := compile(op)
	if err != nil {
		return nil, err
	}
	return regexpMatcher{re: re, replacement: op.Replace, expand: op.Expand}, nil
}

// Validate checks that op can be applied safely and repeatedly.
func Validate(op types.PatchOperation) error {
	if strings.TrimSpace(op.Search) == "" {
		return ErrEmptySearch
	}
	if op.Search == op.Replace {
		return ErrSameText
	}
	if op.Expect < 0 {
		return fmt.Errorf("expect must not be negative: %d", op.Expect)
	}
	if op.Expect > 1 && !op.ReplaceAll {
		return fmt.Errorf("expect %d requires replace_all", op.Expect)
	}

	if !op.Regex {
		if op.Flags != "" || op.Expand {
			return fmt.Errorf("flags and expand require regex mode")
		}
		if strings.Contains(op.Replace, op.Search) {
			return ErrNotIdempotent
		}
		return nil
	}

	re, err := compile(op)
	if err != nil {
		return err
	}
	if re.MatchString("") {
		return ErrEmptyMatch
	}
	// An expanding replacement cannot be checked without a subject.
	if !op.Expand && re.MatchString(op.Replace) {
		return ErrNotIdempotent
	}
	return nil
}

// Substitute applies op to content. It never touches the filesystem; the
// returned Outcome carries the new content and the status of the operation.
// Content is returned unchanged for every status except StatusApplied.
func Substitute(content string, op types.PatchOperation) (Outcome, error) {
	if err := Validate(op); err != nil {
		return Outcome{Content: content}, err
	}

	m, err := newMatcher(op)
	if err != nil {
		return Outcome{Content: content}, err
	}

	occurrences := m.count(content)
	out := Outcome{Content: content, MatchCount: occurrences}

	switch {
	case occurrences == 0:
		out.Status = types.StatusNotFound
		if looksApplied(content, op) {
			out.Status = types.StatusAlreadyApplied
		}
		return out, nil
	case op.Expect > 0 && occurrences != op.Expect:
		out.Status = types.StatusCountMismatch
		return out, nil
	case !op.ReplaceAll && occurrences > 1:
		// Replacing one of several matches would apply again on every run.
		out.Status = types.StatusCountMismatch
		return out, nil
	}

	out.Content = m.replace(content, op.ReplaceAll)
	out.Status = types.StatusApplied
	out.Replaced = 1
	if op.ReplaceAll {
		out.Replaced = occurrences
	}
	return out, nil
}

// looksApplied reports whether the replacement text is already present.
func looksApplied(content string, op types.PatchOperation) bool {
	if strings.TrimSpace(op.Replace) == "" || (op.Regex && op.Expand) {
		return false
	}
	return strings.Contains(content, op.Replace)
}
