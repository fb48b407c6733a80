package diff

import (
	"strings"
	"testing"
)

func TestUnified(t *testing.T) {
	t.Run("equal texts produce no diff", func(t *testing.T) {
		if got := Unified("a.js", "same\n", "same\n", 3); got != "" {
			t.Errorf("Unified() = %q, want empty", got)
		}
	})

	t.Run("single line change", func(t *testing.T) {
		got := Unified("routes/chat.js", "a\nb\nc\n", "a\nB\nc\n", 1)

		want := "--- a/routes/chat.js\n+++ b/routes/chat.js\n@@ -1,3 +1,3 @@\n a\n-b\n+B\n c\n"
		if got != want {
			t.Errorf("Unified() =\n%s\nwant\n%s", got, want)
		}
	})

	t.Run("context limits hunk size", func(t *testing.T) {
		before := "1\n2\n3\n4\n5\n6\n7\n8\n9\n"
		after := "1\n2\n3\n4\nfive\n6\n7\n8\n9\n"

		got := Unified("n.txt", before, after, 1)
		if !strings.Contains(got, "@@ -4,3 +4,3 @@") {
			t.Errorf("Unified() missing hunk header:\n%s", got)
		}
		if strings.Contains(got, " 2\n") || strings.Contains(got, " 8\n") {
			t.Errorf("Unified() shows lines outside the context:\n%s", got)
		}
	})

	t.Run("distant changes produce separate hunks", func(t *testing.T) {
		before := "a\nb\nc\nd\ne\nf\ng\nh\ni\nj\n"
		after := "A\nb\nc\nd\ne\nf\ng\nh\ni\nJ\n"

		got := Unified("n.txt", before, after, 1)
		if n := strings.Count(got, "@@ -"); n != 2 {
			t.Errorf("Unified() has %d hunks, want 2:\n%s", n, got)
		}
	})

	t.Run("inserted lines", func(t *testing.T) {
		before := "interface Message {\n  id: string;\n}\n"
		after := "interface Message {\n  id: string;\n  toolStatus?: string;\n}\n"

		got := Unified("ChatPage.tsx", before, after, 3)
		if !strings.Contains(got, "+  toolStatus?: string;\n") {
			t.Errorf("Unified() missing inserted line:\n%s", got)
		}
		if !strings.Contains(got, "@@ -1,3 +1,4 @@") {
			t.Errorf("Unified() wrong header:\n%s", got)
		}
	})

	t.Run("non-ascii content", func(t *testing.T) {
		got := Unified("chat.js", "// Créer une tâche\n", "// Créer une tâche (désactivé)\n", 3)
		if !strings.Contains(got, "-// Créer une tâche\n") || !strings.Contains(got, "+// Créer une tâche (désactivé)\n") {
			t.Errorf("Unified() mangled non-ascii text:\n%s", got)
		}
	})
}
