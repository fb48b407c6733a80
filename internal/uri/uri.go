// Package uri builds file URIs for paths reported by the MCP tools.
package uri

import (
	"net/url"
	"path/filepath"
	"strings"
)

// FileURI returns the file:/// URI of relPath under root. Every path
// segment is percent-encoded; separators are kept.
func FileURI(root, relPath string) string {
	segments := splitSegments(root)
	segments = append(segments, splitSegments(relPath)...)

	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return "file:///" + strings.Join(segments, "/")
}

func splitSegments(p string) []string {
	var out []string
	for seg := range strings.SplitSeq(filepath.ToSlash(p), "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
