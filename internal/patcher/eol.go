package patcher

import (
	"strings"

	"github.com/taigrr/textpatch/internal/types"
)

// usesCRLF reports whether every line break in content is CRLF.
func usesCRLF(content string) bool {
	crlf := strings.Count(content, "\r\n")
	return crlf > 0 && crlf == strings.Count(content, "\n")
}

// normalizeEOL returns the LF view of a CRLF-only file when none of the
// operations spell out carriage returns themselves. The boolean tells the
// caller to restore CRLF before writing.
func normalizeEOL(content string, ops []types.PatchOperation) (string, bool) {
	if !usesCRLF(content) {
		return content, false
	}
	for _, op := range ops {
		if spellsCR(op) {
			return content, false
		}
	}
	return strings.ReplaceAll(content, "\r\n", "\n"), true
}

// spellsCR reports whether op matches or writes carriage returns, either
// literally or through a regular expression escape.
func spellsCR(op types.PatchOperation) bool {
	if strings.Contains(op.Search, "\r") || strings.Contains(op.Replace, "\r") {
		return true
	}
	if !op.Regex {
		return false
	}
	search := strings.ToLower(op.Search)
	return strings.Contains(op.Search, `\r`) || strings.Contains(search, `\x0d`) || strings.Contains(search, `\x{0d}`)
}

func restoreEOL(content string) string {
	return strings.ReplaceAll(content, "\n", "\r\n")
}
