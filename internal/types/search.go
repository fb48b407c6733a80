package types

type (
	// FindParams contains parameters for locating a fragment under the root.
	FindParams struct {
		Query         string `json:"query"`
		UseRegex      bool   `json:"useRegex,omitempty"`
		CaseSensitive bool   `json:"caseSensitive,omitempty"`
		ContextLines  int    `json:"contextLines,omitempty"`
		Limit         int    `json:"limit,omitempty"`
		Offset        int    `json:"offset,omitempty"`
	}

	// FindMatch represents a single match within a file.
	FindMatch struct {
		Line    int    `json:"line"`    // first line of the match, 1-based
		EndLine int    `json:"endLine"` // last line of the match
		Context string `json:"context"`
	}

	// FindResult represents the matches found in a single file.
	FindResult struct {
		Path    string      `json:"path"`
		Matches []FindMatch `json:"matches"`
	}
)
