// Package pathfilter decides which files under the root may be searched and
// patched.
package pathfilter

import (
	"regexp"
	"strings"

	"github.com/taigrr/textpatch/internal/types"
)

// DefaultIgnoredPatterns are never searched or patched.
var DefaultIgnoredPatterns = []string{
	".git/**",
	".hg/**",
	".svn/**",
	"node_modules/**",
	"vendor/**",
	"**/node_modules/**",
	".DS_Store",
	"Thumbs.db",
	"**/*.orig",
}

// DefaultAllowedExtensions lists the text formats patches may target.
// Files without an extension, such as Dockerfile or .env, are always allowed.
var DefaultAllowedExtensions = []string{
	".js", ".mjs", ".cjs", ".jsx",
	".ts", ".tsx", ".mts", ".cts",
	".json", ".yaml", ".yml", ".toml", ".xml",
	".ini", ".conf", ".cfg", ".env", ".properties",
	".html", ".htm", ".css", ".scss", ".sass", ".less",
	".vue", ".svelte", ".astro",
	".php", ".py", ".rb", ".go", ".rs",
	".java", ".kt", ".kts", ".scala", ".gradle", ".groovy",
	".c", ".h", ".cc", ".cpp", ".hpp", ".cs", ".swift", ".m",
	".lua", ".pl", ".ex", ".exs", ".erl", ".dart",
	".sh", ".bash", ".zsh", ".fish", ".ps1", ".bat",
	".sql", ".graphql", ".proto", ".tf", ".hcl",
	".md", ".mdx", ".rst", ".txt", ".csv",
	".twig", ".tpl", ".ejs", ".hbs", ".liquid",
	".dockerfile", ".mk", ".cmake",
}

// PathFilter filters allowed paths and file types.
type PathFilter struct {
	ignored           []*regexp.Regexp
	allowedExtensions []string
}

// New creates a new PathFilter with the given configuration. Configured
// patterns and extensions are added to the defaults.
func New(config *types.PathFilterConfig) *PathFilter {
	patterns := append([]string{}, DefaultIgnoredPatterns...)
	extensions := append([]string{}, DefaultAllowedExtensions...)

	if config != nil {
		patterns = append(patterns, config.IgnoredPatterns...)
		extensions = append(extensions, config.AllowedExtensions...)
	}

	pf := &PathFilter{allowedExtensions: extensions}
	for _, p := range patterns {
		if re := globToRegexp(p); re != nil {
			pf.ignored = append(pf.ignored, re)
		}
	}
	return pf
}

// globToRegexp converts a glob pattern to an anchored regex.
func globToRegexp(pattern string) *regexp.Regexp {
	normalized := strings.ReplaceAll(pattern, "\\", "/")

	// Escape all regex special chars first
	expr := regexp.QuoteMeta(normalized)

	// "**/" may match zero directories
	expr = strings.ReplaceAll(expr, `\*\*/`, "(?:.*/)?")
	expr = strings.ReplaceAll(expr, `\*\*`, ".*")
	expr = strings.ReplaceAll(expr, `\*`, "[^/]*")
	expr = strings.ReplaceAll(expr, `\?`, "[^/]")

	re, err := regexp.Compile("^" + expr + "$")
	if err != nil {
		return nil
	}
	return re
}

func normalize(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.TrimPrefix(path, "./")
}

func (pf *PathFilter) isIgnored(path string) bool {
	for _, re := range pf.ignored {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// IsAllowed checks if a root-relative path is allowed based on the filter rules.
func (pf *PathFilter) IsAllowed(path string) bool {
	normalizedPath := normalize(path)

	if pf.isIgnored(normalizedPath) {
		return false
	}

	if len(pf.allowedExtensions) > 0 && pf.isFile(normalizedPath) {
		lowerPath := strings.ToLower(normalizedPath)
		for _, ext := range pf.allowedExtensions {
			if strings.HasSuffix(lowerPath, strings.ToLower(ext)) {
				return true
			}
		}
		return false
	}

	return true
}

// SkipDir reports whether a directory walk should not descend into dir.
func (pf *PathFilter) SkipDir(dir string) bool {
	normalizedDir := strings.TrimSuffix(normalize(dir), "/")
	if normalizedDir == "" || normalizedDir == "." {
		return false
	}
	// A directory is skipped when anything inside it would be ignored.
	return pf.isIgnored(normalizedDir+"/x") && pf.isIgnored(normalizedDir+"/x/y")
}

// isFile determines if a path represents a file (has a valid extension).
func (pf *PathFilter) isFile(path string) bool {
	if strings.HasSuffix(path, "/") {
		return false
	}

	lastComponent := path
	if i := strings.LastIndex(path, "/"); i != -1 {
		lastComponent = path[i+1:]
	}

	lastDotIndex := strings.LastIndex(lastComponent, ".")
	if lastDotIndex <= 0 {
		// No dot, or a dotfile such as .gitignore
		return false
	}

	extension := lastComponent[lastDotIndex+1:]
	if len(extension) < 1 || len(extension) > 10 {
		return false
	}

	return extensionPattern.MatchString(extension)
}

var extensionPattern = regexp.MustCompile("^[a-zA-Z0-9]+$")

// FilterPaths filters a slice of paths to only include allowed ones.
func (pf *PathFilter) FilterPaths(paths []string) []string {
	var allowed []string
	for _, path := range paths {
		if pf.IsAllowed(path) {
			allowed = append(allowed, path)
		}
	}
	return allowed
}
