package search

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taigrr/textpatch/internal/pathfilter"
	"github.com/taigrr/textpatch/internal/types"
)

func setupTestRoot(t *testing.T) (string, *Service) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "textpatch-search-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	pf := pathfilter.New(nil)
	svc := New(tmpDir, pf)
	return tmpDir, svc
}

func cleanupTestRoot(t *testing.T, path string) {
	t.Helper()
	os.RemoveAll(path)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestService_Find(t *testing.T) {
	ctx := context.Background()

	t.Run("finds matching files", func(t *testing.T) {
		tmpDir, svc := setupTestRoot(t)
		defer cleanupTestRoot(t, tmpDir)

		writeFile(t, tmpDir, "routes/chat.js", "const a = 1;\nif (leadDetail) {\n}\n")
		writeFile(t, tmpDir, "routes/other.js", "nothing\n")
		writeFile(t, tmpDir, "pages/ChatPage.tsx", "// leadDetail\n")

		results, total, err := svc.Find(ctx, types.FindParams{Query: "leadDetail"})
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if total != 2 || len(results) != 2 {
			t.Fatalf("Find() returned %d/%d results, want 2/2", len(results), total)
		}
		if results[0].Path != "pages/ChatPage.tsx" || results[1].Path != "routes/chat.js" {
			t.Errorf("results not sorted by path: %s, %s", results[0].Path, results[1].Path)
		}
		if results[1].Matches[0].Line != 2 {
			t.Errorf("Line = %d, want 2", results[1].Matches[0].Line)
		}
	})

	t.Run("multi-line query reports line span", func(t *testing.T) {
		tmpDir, svc := setupTestRoot(t)
		defer cleanupTestRoot(t, tmpDir)

		writeFile(t, tmpDir, "chat.js", "l1\nl2\nres.json({\n  ok: true,\n});\nl6\nl7\nl8\n")

		results, _, err := svc.Find(ctx, types.FindParams{
			Query:         "res.json({\n  ok: true,",
			CaseSensitive: true,
			ContextLines:  1,
		})
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("len(results) = %d, want 1", len(results))
		}
		m := results[0].Matches[0]
		if m.Line != 3 || m.EndLine != 4 {
			t.Errorf("Line, EndLine = %d, %d, want 3, 4", m.Line, m.EndLine)
		}
		if m.Context != "l2\nres.json({\n  ok: true,\n});" {
			t.Errorf("Context = %q", m.Context)
		}
	})

	t.Run("case insensitive by default", func(t *testing.T) {
		tmpDir, svc := setupTestRoot(t)
		defer cleanupTestRoot(t, tmpDir)

		writeFile(t, tmpDir, "a.js", "ToolStatus\n")

		results, _, err := svc.Find(ctx, types.FindParams{Query: "toolstatus"})
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if len(results) != 1 {
			t.Errorf("len(results) = %d, want 1", len(results))
		}

		results, _, _ = svc.Find(ctx, types.FindParams{Query: "toolstatus", CaseSensitive: true})
		if len(results) != 0 {
			t.Errorf("case sensitive len(results) = %d, want 0", len(results))
		}
	})

	t.Run("literal query escapes regex characters", func(t *testing.T) {
		tmpDir, svc := setupTestRoot(t)
		defer cleanupTestRoot(t, tmpDir)

		writeFile(t, tmpDir, "a.js", "loadConversation(sessionId)?.messages.length || 0\n")

		results, _, err := svc.Find(ctx, types.FindParams{Query: "(sessionId)?.messages"})
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if len(results) != 1 {
			t.Errorf("len(results) = %d, want 1", len(results))
		}
	})

	t.Run("regex search", func(t *testing.T) {
		tmpDir, svc := setupTestRoot(t)
		defer cleanupTestRoot(t, tmpDir)

		writeFile(t, tmpDir, "a.js", "toolStatus = 'action_executed';\ntoolStatus = 'query_executed';\n")

		results, _, err := svc.Find(ctx, types.FindParams{Query: `'\w+_executed'`, UseRegex: true})
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if len(results) != 1 || len(results[0].Matches) != 2 {
			t.Errorf("results = %+v, want one file with two matches", results)
		}
	})

	t.Run("skips ignored directories", func(t *testing.T) {
		tmpDir, svc := setupTestRoot(t)
		defer cleanupTestRoot(t, tmpDir)

		writeFile(t, tmpDir, "node_modules/react/index.js", "needle\n")
		writeFile(t, tmpDir, ".git/config", "needle\n")
		writeFile(t, tmpDir, "src/logo.png", "needle\n")
		writeFile(t, tmpDir, "src/app.js", "needle\n")

		results, _, err := svc.Find(ctx, types.FindParams{Query: "needle"})
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if len(results) != 1 || results[0].Path != "src/app.js" {
			t.Errorf("results = %+v, want only src/app.js", results)
		}
	})

	t.Run("pagination with offset", func(t *testing.T) {
		tmpDir, svc := setupTestRoot(t)
		defer cleanupTestRoot(t, tmpDir)

		for _, name := range []string{"a.js", "b.js", "c.js", "d.js"} {
			writeFile(t, tmpDir, name, "needle\n")
		}

		results, total, err := svc.Find(ctx, types.FindParams{Query: "needle", Limit: 2, Offset: 1})
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if total != 4 {
			t.Errorf("total = %d, want 4", total)
		}
		if len(results) != 2 || results[0].Path != "b.js" || results[1].Path != "c.js" {
			t.Errorf("results = %+v", results)
		}

		results, _, _ = svc.Find(ctx, types.FindParams{Query: "needle", Offset: 10})
		if len(results) != 0 {
			t.Errorf("offset past end returned %d results", len(results))
		}
	})

	t.Run("empty query returns error", func(t *testing.T) {
		tmpDir, svc := setupTestRoot(t)
		defer cleanupTestRoot(t, tmpDir)

		_, _, err := svc.Find(ctx, types.FindParams{Query: "  "})
		if err == nil || !strings.Contains(err.Error(), "cannot be empty") {
			t.Errorf("Find() error = %v, want empty query error", err)
		}
	})

	t.Run("invalid regex returns error", func(t *testing.T) {
		tmpDir, svc := setupTestRoot(t)
		defer cleanupTestRoot(t, tmpDir)

		_, _, err := svc.Find(ctx, types.FindParams{Query: "[invalid", UseRegex: true})
		if err == nil || !strings.Contains(err.Error(), "Invalid regex") {
			t.Errorf("Find() error = %v, want invalid regex error", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		tmpDir, svc := setupTestRoot(t)
		defer cleanupTestRoot(t, tmpDir)

		writeFile(t, tmpDir, "a.js", "needle\n")
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		if _, _, err := svc.Find(cctx, types.FindParams{Query: "needle"}); err == nil {
			t.Error("Find() error = nil, want context error")
		}
	})
}
