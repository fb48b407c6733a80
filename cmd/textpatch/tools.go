package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/taigrr/textpatch/internal/types"
)

type (
	// ApplyInput contains parameters for applying patches. Exactly one of
	// path, document or target must be given.
	ApplyInput struct {
		Path       string `json:"path,omitempty" jsonschema:"Patch file or directory of .patch files, relative to the root"`
		Document   string `json:"document,omitempty" jsonschema:"Patch document text: YAML frontmatter followed by SEARCH/REPLACE blocks"`
		Target     string `json:"target,omitempty" jsonschema:"File to modify, relative to the root (single operation)"`
		Search     string `json:"search,omitempty" jsonschema:"Text to find (regex if regex=true)"`
		Replace    string `json:"replace,omitempty" jsonschema:"Replacement text"`
		Regex      bool   `json:"regex,omitempty" jsonschema:"Treat search as a regular expression (default: false)"`
		Flags      string `json:"flags,omitempty" jsonschema:"Regular expression flags such as s or i"`
		ReplaceAll bool   `json:"replaceAll,omitempty" jsonschema:"Replace every occurrence; without it a fragment found more than once is left alone (default: false)"`
		Expand     bool   `json:"expand,omitempty" jsonschema:"Expand $1 and ${name} in replace (regex only, default: false)"`
		Expect     int    `json:"expect,omitempty" jsonschema:"Required number of occurrences (default: any)"`
		DryRun     bool   `json:"dryRun,omitempty" jsonschema:"Report what would change without writing (default: false)"`
		Diff       bool   `json:"diff,omitempty" jsonschema:"Include a unified diff per file (default: false)"`
		Backup     bool   `json:"backup,omitempty" jsonschema:"Keep a copy of each modified file as <file>.orig (default: false)"`
	}

	// CheckInput contains parameters for checking whether patches are applied.
	CheckInput struct {
		Path       string `json:"path,omitempty" jsonschema:"Patch file or directory of .patch files, relative to the root"`
		Document   string `json:"document,omitempty" jsonschema:"Patch document text: YAML frontmatter followed by SEARCH/REPLACE blocks"`
		Target     string `json:"target,omitempty" jsonschema:"File to check, relative to the root (single operation)"`
		Search     string `json:"search,omitempty" jsonschema:"Text to find (regex if regex=true)"`
		Replace    string `json:"replace,omitempty" jsonschema:"Replacement text"`
		Regex      bool   `json:"regex,omitempty" jsonschema:"Treat search as a regular expression (default: false)"`
		Flags      string `json:"flags,omitempty" jsonschema:"Regular expression flags such as s or i"`
		ReplaceAll bool   `json:"replaceAll,omitempty" jsonschema:"Replace every occurrence; without it a fragment found more than once is left alone (default: false)"`
		Expand     bool   `json:"expand,omitempty" jsonschema:"Expand $1 and ${name} in replace (regex only, default: false)"`
		Expect     int    `json:"expect,omitempty" jsonschema:"Required number of occurrences (default: any)"`
	}

	// FileOutput reports the operations applied to one file.
	FileOutput struct {
		Path       string              `json:"path"`
		URI        string              `json:"uri"`
		Changed    bool                `json:"changed"`
		Written    bool                `json:"written"`
		Backup     string              `json:"backup,omitempty"`
		Diff       string              `json:"diff,omitempty"`
		Operations []types.PatchResult `json:"operations"`
	}

	// ApplyOutput contains the result of applying patches.
	ApplyOutput struct {
		Files          []FileOutput `json:"files"`
		Applied        int          `json:"applied"`
		WouldApply     int          `json:"wouldApply,omitempty"`
		AlreadyApplied int          `json:"alreadyApplied"`
		NotFound       int          `json:"notFound"`
		CountMismatch  int          `json:"countMismatch,omitempty"`
	}

	// CheckOutput contains the result of a check.
	CheckOutput struct {
		Files   []FileOutput `json:"files"`
		Applied bool         `json:"applied"`
		Pending int          `json:"pending"`
		Total   int          `json:"total"`
	}

	// FindInput contains parameters for locating a fragment.
	FindInput struct {
		Query         string `json:"query" jsonschema:"Text to find; may span several lines (regex if useRegex=true)"`
		UseRegex      bool   `json:"useRegex,omitempty" jsonschema:"Treat query as regex pattern (default: false)"`
		CaseSensitive bool   `json:"caseSensitive,omitempty" jsonschema:"Case sensitive search (default: false)"`
		ContextLines  int    `json:"contextLines,omitempty" jsonschema:"Lines of context before/after match (default: 2)"`
		Limit         int    `json:"limit,omitempty" jsonschema:"Maximum files (default: 15)"`
		Offset        int    `json:"offset,omitempty" jsonschema:"Skip first N files for pagination (default: 0)"`
	}

	// FindMatch represents a single match within a file.
	FindMatch struct {
		Line    int    `json:"line"`
		EndLine int    `json:"endLine,omitempty"`
		Context string `json:"context"`
	}

	// FindResultItem represents the matches in a single file.
	FindResultItem struct {
		Path    string      `json:"path"`
		URI     string      `json:"uri"`
		Matches []FindMatch `json:"matches"`
	}

	// FindOutput contains search results.
	FindOutput struct {
		Results    []FindResultItem `json:"results"`
		TotalFiles int              `json:"totalFiles"`
		HasMore    bool             `json:"hasMore,omitempty"`
	}
)

func registerTools(server *mcp.Server, a *app) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "apply",
		Description: "Apply search-and-replace patches to files under the root. Give a patch file path, a patch document, or a single target/search/replace operation. Patches are idempotent: operations already applied are reported and skipped.",
	}, a.handleApply)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check",
		Description: "Report whether patches are applied without modifying any file. Accepts the same patch sources as apply.",
	}, a.handleCheck)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find",
		Description: "Find where a text fragment occurs under the root. Supports multi-line fragments, regex and case-insensitive search. Returns matching lines with context.",
	}, a.handleFind)
}
