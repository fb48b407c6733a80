// Package search locates text fragments in files under the root.
package search

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/taigrr/textpatch/internal/pathfilter"
	"github.com/taigrr/textpatch/internal/types"
)

// Service provides search functionality under a root directory.
type Service struct {
	root       string
	pathFilter *pathfilter.PathFilter
}

// New creates a new search Service.
func New(root string, pf *pathfilter.PathFilter) *Service {
	absPath, _ := filepath.Abs(root)
	if pf == nil {
		pf = pathfilter.New(nil)
	}
	return &Service{
		root:       absPath,
		pathFilter: pf,
	}
}

// Find searches every allowed file for params.Query. The query may span
// several lines. Results are sorted by path; the second return value is the
// total number of matching files before pagination.
func (s *Service) Find(ctx context.Context, params types.FindParams) ([]types.FindResult, int, error) {
	query := params.Query
	if strings.TrimSpace(query) == "" {
		return nil, 0, &SearchError{Message: "Search query cannot be empty"}
	}

	contextLines := params.ContextLines
	if contextLines <= 0 {
		contextLines = 2
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 15
	}

	offset := max(params.Offset, 0)

	pattern, err := compile(query, params.UseRegex, params.CaseSensitive)
	if err != nil {
		return nil, 0, err
	}

	files, err := s.findFiles(ctx)
	if err != nil {
		return nil, 0, err
	}

	numWorkers := max(min(runtime.NumCPU(), len(files)), 1)

	type indexedResult struct {
		idx    int
		result types.FindResult
	}

	resultsCh := make(chan indexedResult, len(files))
	fileCh := make(chan int, len(files))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Go(func() {
			for idx := range fileCh {
				if ctx.Err() != nil {
					continue
				}

				content, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(files[idx])))
				if err != nil {
					continue
				}

				matches := matchFile(string(content), pattern, contextLines)
				if len(matches) > 0 {
					resultsCh <- indexedResult{
						idx:    idx,
						result: types.FindResult{Path: files[idx], Matches: matches},
					}
				}
			}
		})
	}

	for i := range files {
		fileCh <- i
	}
	close(fileCh)

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	var indexedResults []indexedResult
	for r := range resultsCh {
		indexedResults = append(indexedResults, r)
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	sort.Slice(indexedResults, func(i, j int) bool {
		return indexedResults[i].idx < indexedResults[j].idx
	})

	allResults := make([]types.FindResult, 0, len(indexedResults))
	for _, ir := range indexedResults {
		allResults = append(allResults, ir.result)
	}

	totalFiles := len(allResults)

	if offset >= len(allResults) {
		return []types.FindResult{}, totalFiles, nil
	}

	endIdx := min(offset+limit, len(allResults))

	return allResults[offset:endIdx], totalFiles, nil
}

func compile(query string, useRegex, caseSensitive bool) (*regexp.Regexp, error) {
	expr := query
	if !useRegex {
		expr = regexp.QuoteMeta(query)
	}
	if !caseSensitive {
		expr = "(?i)" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &SearchError{Message: "Invalid regex pattern: " + err.Error()}
	}
	return re, nil
}

// matchFile returns every match of pattern in content with its line span
// and surrounding context.
func matchFile(content string, pattern *regexp.Regexp, contextLines int) []types.FindMatch {
	locs := pattern.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		return nil
	}

	lines := strings.Split(content, "\n")
	lineStarts := make([]int, len(lines))
	pos := 0
	for i, l := range lines {
		lineStarts[i] = pos
		pos += len(l) + 1
	}
	lineOf := func(offset int) int {
		return sort.Search(len(lineStarts), func(i int) bool { return lineStarts[i] > offset }) - 1
	}

	matches := make([]types.FindMatch, 0, len(locs))
	for _, loc := range locs {
		if loc[0] == loc[1] {
			continue
		}
		first := lineOf(loc[0])
		last := lineOf(loc[1] - 1)

		startLine := max(first-contextLines, 0)
		endLine := min(last+contextLines+1, len(lines))

		matches = append(matches, types.FindMatch{
			Line:    first + 1,
			EndLine: last + 1,
			Context: strings.Join(lines[startLine:endLine], "\n"),
		})
	}
	return matches
}

// findFiles walks the root and returns the slash-separated relative paths of
// every allowed regular file, in lexical order.
func (s *Service) findFiles(ctx context.Context) ([]string, error) {
	var files []string

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			if d != nil && d.IsDir() && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path != s.root && s.pathFilter.SkipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type().IsRegular() && s.pathFilter.IsAllowed(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// SearchError represents a search error.
type SearchError struct {
	Message string
}

func (e *SearchError) Error() string {
	return e.Message
}
