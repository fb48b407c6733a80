// Package types defines the data structures shared by the patcher, the CLI
// and the MCP server.
package types

type (
	// DocumentMeta is the frontmatter of a patch document. Every field except
	// Name and Description is a default for the operations in the document.
	DocumentMeta struct {
		Name        string `yaml:"name,omitempty"`
		Description string `yaml:"description,omitempty"`
		Target      string `yaml:"target"`
		Regex       bool   `yaml:"regex,omitempty"`
		Flags       string `yaml:"flags,omitempty"`
		ReplaceAll  bool   `yaml:"replace_all,omitempty"`
		Expand      bool   `yaml:"expand,omitempty"`
		Expect      int    `yaml:"expect,omitempty"`
	}

	// PatchDocument is a parsed patch file.
	PatchDocument struct {
		Path       string           `json:"path,omitempty"`
		Meta       DocumentMeta     `json:"meta"`
		Operations []PatchOperation `json:"operations"`
	}
)
