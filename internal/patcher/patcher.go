// Package patcher applies search-and-replace patch operations to files
// under a root directory.
package patcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/taigrr/textpatch/internal/diff"
	"github.com/taigrr/textpatch/internal/pathfilter"
	"github.com/taigrr/textpatch/internal/types"
)

var (
	// ErrAccessDenied is returned for targets outside the root or rejected
	// by the path filter.
	ErrAccessDenied = errors.New("access denied")
	// ErrIsDirectory is returned when a target is a directory.
	ErrIsDirectory = errors.New("target is a directory")
)

// BackupSuffix is appended to the target path when backups are enabled.
const BackupSuffix = ".orig"

// Options controls how a Service writes files.
type Options struct {
	DryRun      bool // never write, report StatusWouldApply instead
	Backup      bool // copy the original to <file>.orig before overwriting
	Diff        bool // attach a unified diff to each FileResult
	DiffContext *int // lines of context in diffs, nil for diff.DefaultContext
	Logger      *zap.Logger
}

// Service applies patch operations to files under a root directory.
type Service struct {
	root        string
	realRoot    string
	pathFilter  *pathfilter.PathFilter
	opts        Options
	diffContext int
	logger      *zap.Logger
}

// New creates a new patcher Service rooted at root.
func New(root string, pf *pathfilter.PathFilter, opts Options) *Service {
	absPath, _ := filepath.Abs(root)
	if pf == nil {
		pf = pathfilter.New(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	diffContext := diff.DefaultContext
	if opts.DiffContext != nil && *opts.DiffContext >= 0 {
		diffContext = *opts.DiffContext
	}
	realRoot, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		realRoot = absPath
	}
	return &Service{
		root:        absPath,
		realRoot:    realRoot,
		pathFilter:  pf,
		opts:        opts,
		diffContext: diffContext,
		logger:      logger,
	}
}

// Root returns the absolute root directory.
func (s *Service) Root() string {
	return s.root
}

// ResolvePath resolves a target path against the root and validates that it
// stays inside it. Absolute paths are accepted when they lie under the root.
// It returns the absolute path and the slash-separated root-relative path.
func (s *Service) ResolvePath(target string) (string, string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", "", fmt.Errorf("target path cannot be empty")
	}

	fullPath := target
	if !filepath.IsAbs(fullPath) {
		fullPath = filepath.Join(s.root, filepath.FromSlash(strings.ReplaceAll(target, "\\", "/")))
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", "", err
	}

	relPath, ok := within(s.root, absPath)
	if !ok {
		return "", "", fmt.Errorf("%w: %s is outside %s", ErrAccessDenied, target, s.root)
	}

	rel := filepath.ToSlash(relPath)
	if !s.pathFilter.IsAllowed(rel) {
		return "", "", fmt.Errorf("%w: %s", ErrAccessDenied, rel)
	}

	return absPath, rel, nil
}

// within returns path relative to root and whether it lies under root.
func within(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// readTarget loads the full text of a target file. Symlinks are followed
// while they stay under the root; the returned path is the file to write.
func (s *Service) readTarget(fullPath, rel string) (string, string, fs.FileMode, error) {
	realPath, err := filepath.EvalSymlinks(fullPath)
	if err != nil {
		return "", "", 0, wrapFSError(err, rel)
	}
	if _, ok := within(s.realRoot, realPath); !ok {
		return "", "", 0, fmt.Errorf("%w: %s links outside %s", ErrAccessDenied, rel, s.root)
	}

	info, err := os.Stat(realPath)
	if err != nil {
		return "", "", 0, wrapFSError(err, rel)
	}
	if info.IsDir() {
		return "", "", 0, fmt.Errorf("%w: %s", ErrIsDirectory, rel)
	}

	content, err := os.ReadFile(realPath)
	if err != nil {
		return "", "", 0, wrapFSError(err, rel)
	}
	return string(content), realPath, info.Mode().Perm(), nil
}

// checkWritable fails the way a direct write to path would, so read-only
// targets are not replaced through a writable directory.
func checkWritable(path, rel string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("permission denied: %s: %w", rel, err)
		}
		return fmt.Errorf("cannot write %s: %w", rel, err)
	}
	return f.Close()
}

func wrapFSError(err error, rel string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("file not found: %s: %w", rel, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("permission denied: %s: %w", rel, err)
	default:
		return fmt.Errorf("failed to read file: %s: %w", rel, err)
	}
}

// writeTarget replaces fullPath with content through a temporary file in the
// same directory, so readers never observe a half-written file.
func (s *Service) writeTarget(fullPath string, content string, mode fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), "."+filepath.Base(fullPath)+".textpatch-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

func (s *Service) backup(fullPath, original string, mode fs.FileMode) (string, error) {
	backupPath := fullPath + BackupSuffix
	if err := os.WriteFile(backupPath, []byte(original), mode); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	return backupPath, nil
}

// ApplyFile applies ops, in order, to a single target. The file is read
// once and written at most once; nothing is written when no operation
// applies. Operations whose Target differs from target are rejected.
func (s *Service) ApplyFile(ctx context.Context, target string, ops []types.PatchOperation) (types.FileResult, error) {
	fullPath, rel, err := s.ResolvePath(target)
	if err != nil {
		return types.FileResult{Path: target}, err
	}
	result := types.FileResult{Path: rel}

	// Reject bad operations before touching the file.
	for _, op := range ops {
		if op.Target != "" && op.Target != target {
			return result, fmt.Errorf("operation %q targets %s, not %s", op.Label(), op.Target, target)
		}
		if err := Validate(op); err != nil {
			return result, fmt.Errorf("operation %q: %w", op.Label(), err)
		}
	}

	original, realPath, mode, err := s.readTarget(fullPath, rel)
	if err != nil {
		return result, err
	}

	content, crlf := normalizeEOL(original, ops)

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		out, err := Substitute(content, op)
		if err != nil {
			return result, fmt.Errorf("operation %q: %w", op.Label(), err)
		}
		content = out.Content

		status := out.Status
		if status == types.StatusApplied && s.opts.DryRun {
			status = types.StatusWouldApply
		}

		s.logger.Debug("operation evaluated",
			zap.String("target", rel),
			zap.String("name", op.Label()),
			zap.String("status", string(status)),
			zap.Int("matches", out.MatchCount))

		result.Operations = append(result.Operations, types.PatchResult{
			Name:       op.Label(),
			Target:     rel,
			Status:     status,
			Applied:    status == types.StatusApplied,
			MatchCount: out.MatchCount,
			Replaced:   out.Replaced,
			Message:    message(status, out, op),
		})
	}

	if crlf {
		content = restoreEOL(content)
	}
	result.Changed = content != original

	if result.Changed && s.opts.Diff {
		result.Diff = diff.Unified(rel, original, content, s.diffContext)
	}

	if !result.Changed || s.opts.DryRun {
		return result, nil
	}

	if err := checkWritable(realPath, rel); err != nil {
		return result, err
	}

	if s.opts.Backup {
		backupPath, err := s.backup(fullPath, original, mode)
		if err != nil {
			return result, err
		}
		result.Backup = backupPath
	}

	if err := s.writeTarget(realPath, content, mode); err != nil {
		return result, fmt.Errorf("%s: %w", rel, err)
	}
	result.Written = true

	s.logger.Info("file patched", zap.String("target", rel), zap.Int("bytes", len(content)))

	return result, nil
}

// Apply groups ops by target, in first-seen order, and applies each group
// with ApplyFile. It stops at the first error and returns the results of the
// files completed so far.
func (s *Service) Apply(ctx context.Context, ops []types.PatchOperation) ([]types.FileResult, error) {
	var (
		order  []string
		groups = make(map[string][]types.PatchOperation)
	)
	for _, op := range ops {
		if _, ok := groups[op.Target]; !ok {
			order = append(order, op.Target)
		}
		groups[op.Target] = append(groups[op.Target], op)
	}

	results := make([]types.FileResult, 0, len(order))
	for _, target := range order {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		fr, err := s.ApplyFile(ctx, target, groups[target])
		if err != nil {
			return results, err
		}
		results = append(results, fr)
	}
	return results, nil
}

func message(status types.Status, out Outcome, op types.PatchOperation) string {
	plural := ""
	if out.Replaced > 1 {
		plural = "s"
	}

	switch status {
	case types.StatusApplied:
		return fmt.Sprintf("Replaced %d occurrence%s", out.Replaced, plural)
	case types.StatusWouldApply:
		return fmt.Sprintf("Would replace %d occurrence%s", out.Replaced, plural)
	case types.StatusAlreadyApplied:
		return "Already applied"
	case types.StatusCountMismatch:
		if op.Expect == 0 {
			return fmt.Sprintf("Found %d occurrences; set replace_all to replace them all", out.MatchCount)
		}
		return fmt.Sprintf("Found %d occurrences, expected %d", out.MatchCount, op.Expect)
	default:
		return fmt.Sprintf("Pattern not found: %q", truncate(op.Search, 50))
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i != -1 {
		s = s[:i]
	}
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n]) + "..."
	}
	return s
}
