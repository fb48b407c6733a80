package types

// Status describes the outcome of a single patch operation.
type Status string

const (
	StatusApplied        Status = "applied"
	StatusWouldApply     Status = "would_apply"
	StatusAlreadyApplied Status = "already_applied"
	StatusNotFound       Status = "not_found"
	StatusCountMismatch  Status = "count_mismatch"
)

// Changed reports whether the status means the content was (or would be) modified.
func (s Status) Changed() bool {
	return s == StatusApplied || s == StatusWouldApply
}

type (
	// PatchOperation describes one search-and-replace edit on a target file.
	PatchOperation struct {
		Name       string `json:"name,omitempty" yaml:"name,omitempty"`
		Target     string `json:"target" yaml:"target"`
		Search     string `json:"search" yaml:"search"`
		Replace    string `json:"replace" yaml:"replace"`
		Regex      bool   `json:"regex,omitempty" yaml:"regex,omitempty"`
		Flags      string `json:"flags,omitempty" yaml:"flags,omitempty"` // regexp inline flags, e.g. "s" or "is"
		ReplaceAll bool   `json:"replaceAll,omitempty" yaml:"replace_all,omitempty"`
		Expand     bool   `json:"expand,omitempty" yaml:"expand,omitempty"` // expand $1 / ${name} in Replace (regex only)
		Expect     int    `json:"expect,omitempty" yaml:"expect,omitempty"` // required occurrence count, 0 = any
	}

	// PatchResult contains the result of a patch operation.
	PatchResult struct {
		Name       string `json:"name,omitempty"`
		Target     string `json:"target"`
		Status     Status `json:"status"`
		Applied    bool   `json:"applied"`
		MatchCount int    `json:"matchCount"`
		Replaced   int    `json:"replaced,omitempty"`
		Message    string `json:"message"`
	}

	// FileResult groups the results of all operations applied to one file.
	FileResult struct {
		Path       string        `json:"path"`
		Changed    bool          `json:"changed"`
		Written    bool          `json:"written"`
		Backup     string        `json:"backup,omitempty"`
		Diff       string        `json:"diff,omitempty"`
		Operations []PatchResult `json:"operations"`
	}
)

// Label returns the operation name, falling back to the target path.
func (op PatchOperation) Label() string {
	if op.Name != "" {
		return op.Name
	}
	return op.Target
}
