package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/taigrr/textpatch/internal/patchfile"
	"github.com/taigrr/textpatch/internal/report"
	"github.com/taigrr/textpatch/internal/types"
	"github.com/taigrr/textpatch/internal/uri"
)

func (a *app) handleApply(ctx context.Context, req *mcp.CallToolRequest, input ApplyInput) (*mcp.CallToolResult, ApplyOutput, error) {
	ops, err := a.operations(input)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, ApplyOutput{}, err
	}
	a.logger.Debug("apply", zap.Int("operations", len(ops)), zap.Bool("dryRun", input.DryRun))

	results, err := a.patcher(input.DryRun, input.Backup, input.Diff).Apply(ctx, ops)
	files := a.fileOutputs(results)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, ApplyOutput{Files: files}, err
	}

	c := report.Tally(results)
	return nil, ApplyOutput{
		Files:          files,
		Applied:        c.Applied,
		WouldApply:     c.WouldApply,
		AlreadyApplied: c.AlreadyApplied,
		NotFound:       c.NotFound,
		CountMismatch:  c.CountMismatch,
	}, nil
}

func (a *app) handleCheck(ctx context.Context, req *mcp.CallToolRequest, input CheckInput) (*mcp.CallToolResult, CheckOutput, error) {
	ops, err := a.operations(ApplyInput{
		Path:       input.Path,
		Document:   input.Document,
		Target:     input.Target,
		Search:     input.Search,
		Replace:    input.Replace,
		Regex:      input.Regex,
		Flags:      input.Flags,
		ReplaceAll: input.ReplaceAll,
		Expand:     input.Expand,
		Expect:     input.Expect,
	})
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, CheckOutput{}, err
	}
	a.logger.Debug("check", zap.Int("operations", len(ops)))

	results, err := a.patcher(true, false, false).Apply(ctx, ops)
	files := a.fileOutputs(results)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, CheckOutput{Files: files}, err
	}

	c := report.Tally(results)
	return nil, CheckOutput{
		Files:   files,
		Applied: c.AlreadyApplied == c.Total(),
		Pending: c.Total() - c.AlreadyApplied,
		Total:   c.Total(),
	}, nil
}

func (a *app) handleFind(ctx context.Context, req *mcp.CallToolRequest, input FindInput) (*mcp.CallToolResult, FindOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return &mcp.CallToolResult{IsError: true}, FindOutput{}, fmt.Errorf("query cannot be empty")
	}

	offset := max(input.Offset, 0)

	results, totalFiles, err := a.search().Find(ctx, types.FindParams{
		Query:         input.Query,
		UseRegex:      input.UseRegex,
		CaseSensitive: input.CaseSensitive,
		ContextLines:  input.ContextLines,
		Limit:         input.Limit,
		Offset:        offset,
	})
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, FindOutput{}, err
	}

	items := []FindResultItem{}
	for _, r := range results {
		var matches []FindMatch
		for _, m := range r.Matches {
			matches = append(matches, FindMatch{
				Line:    m.Line,
				EndLine: m.EndLine,
				Context: m.Context,
			})
		}
		items = append(items, FindResultItem{
			Path:    r.Path,
			URI:     uri.FileURI(a.rootAbs(), r.Path),
			Matches: matches,
		})
	}

	return nil, FindOutput{
		Results:    items,
		TotalFiles: totalFiles,
		HasMore:    totalFiles > offset+len(items),
	}, nil
}

// operations builds the operation list from exactly one of the patch
// sources of input.
func (a *app) operations(input ApplyInput) ([]types.PatchOperation, error) {
	sources := 0
	for _, s := range []string{input.Path, input.Document, input.Target} {
		if strings.TrimSpace(s) != "" {
			sources++
		}
	}
	if sources != 1 {
		return nil, fmt.Errorf("exactly one of path, document or target must be set")
	}

	handler := patchfile.New()

	switch {
	case strings.TrimSpace(input.Path) != "":
		path, err := a.resolvePatchPath(input.Path)
		if err != nil {
			return nil, err
		}
		docs, err := handler.LoadAll([]string{path})
		if err != nil {
			return nil, err
		}
		return patchfile.Operations(docs), nil

	case strings.TrimSpace(input.Document) != "":
		doc, err := handler.Parse("document", input.Document)
		if err != nil {
			return nil, err
		}
		return doc.Operations, nil

	default:
		target := strings.TrimSpace(input.Target)
		return []types.PatchOperation{{
			Name:       target,
			Target:     target,
			Search:     input.Search,
			Replace:    input.Replace,
			Regex:      input.Regex,
			Flags:      input.Flags,
			ReplaceAll: input.ReplaceAll,
			Expand:     input.Expand,
			Expect:     input.Expect,
		}}, nil
	}
}

// resolvePatchPath resolves a patch file or directory under the root.
func (a *app) resolvePatchPath(path string) (string, error) {
	root := a.rootAbs()
	full := filepath.Join(root, filepath.FromSlash(strings.TrimSpace(path)))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("access denied: %s is outside %s", path, root)
	}
	return full, nil
}

func (a *app) rootAbs() string {
	abs, err := filepath.Abs(a.root)
	if err != nil {
		return a.root
	}
	return abs
}

func (a *app) fileOutputs(results []types.FileResult) []FileOutput {
	files := make([]FileOutput, 0, len(results))
	for _, fr := range results {
		files = append(files, FileOutput{
			Path:       fr.Path,
			URI:        uri.FileURI(a.rootAbs(), fr.Path),
			Changed:    fr.Changed,
			Written:    fr.Written,
			Backup:     fr.Backup,
			Diff:       fr.Diff,
			Operations: fr.Operations,
		})
	}
	return files
}
