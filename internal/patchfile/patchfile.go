// Package patchfile parses and formats patch documents: YAML frontmatter
// followed by one or more SEARCH/REPLACE blocks.
package patchfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/taigrr/textpatch/internal/types"
)

// Extension is the file extension of patch documents.
const Extension = ".patch"

const (
	searchMarker  = "<<<<<<< SEARCH"
	dividerMarker = "======="
	replaceMarker = ">>>>>>> REPLACE"
)

// ParseError reports a malformed patch document.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Handler parses and formats patch documents.
type Handler struct{}

// New creates a new patch document Handler.
func New() *Handler {
	return &Handler{}
}

// Parse parses the content of a patch document. path is only used in
// error messages and recorded on the document.
func (h *Handler) Parse(path, content string) (types.PatchDocument, error) {
	doc := types.PatchDocument{Path: path}
	content = strings.ReplaceAll(content, "\r\n", "\n")

	if !strings.HasPrefix(content, "---\n") {
		return doc, &ParseError{Path: path, Line: 1, Message: "missing frontmatter (document must start with ---)"}
	}

	// Find the closing delimiter
	endIndex := strings.Index(content[4:], "\n---\n")
	if endIndex == -1 {
		return doc, &ParseError{Path: path, Message: "unterminated frontmatter"}
	}

	yamlContent := content[4 : endIndex+4]
	body := content[endIndex+4+5:] // +5 for "\n---\n"
	bodyLine := strings.Count(content[:endIndex+4+5], "\n") + 1

	dec := yaml.NewDecoder(strings.NewReader(yamlContent))
	dec.KnownFields(true)
	if err := dec.Decode(&doc.Meta); err != nil && !errors.Is(err, io.EOF) {
		return doc, &ParseError{Path: path, Line: 2, Message: fmt.Sprintf("invalid frontmatter: %v", err)}
	}
	if strings.TrimSpace(doc.Meta.Target) == "" {
		return doc, &ParseError{Path: path, Line: 2, Message: "frontmatter must set target"}
	}

	ops, err := h.parseBlocks(path, body, bodyLine, doc.Meta)
	if err != nil {
		return doc, err
	}
	doc.Operations = ops

	return doc, nil
}

type block struct {
	label   string
	search  []string
	replace []string
}

func (h *Handler) parseBlocks(path, body string, firstLine int, meta types.DocumentMeta) ([]types.PatchOperation, error) {
	const (
		outside = iota
		inSearch
		inReplace
	)

	var (
		blocks  []block
		current block
		state   = outside
		start   int
	)

	lines := strings.Split(body, "\n")
	// A trailing newline does not start another line.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	for i, line := range lines {
		lineNo := firstLine + i
		switch state {
		case outside:
			if line == searchMarker || strings.HasPrefix(line, searchMarker+" ") {
				current = block{label: strings.TrimSpace(strings.TrimPrefix(line, searchMarker))}
				state = inSearch
				start = lineNo
				continue
			}
			if line == dividerMarker || line == replaceMarker {
				return nil, &ParseError{Path: path, Line: lineNo, Message: fmt.Sprintf("%q outside of a block", line)}
			}
		case inSearch:
			switch {
			case line == dividerMarker:
				state = inReplace
			case line == replaceMarker:
				return nil, &ParseError{Path: path, Line: lineNo, Message: "missing ======= before REPLACE"}
			case strings.HasPrefix(line, searchMarker):
				return nil, &ParseError{Path: path, Line: lineNo, Message: "nested SEARCH marker"}
			default:
				current.search = append(current.search, line)
			}
		case inReplace:
			switch {
			case line == replaceMarker:
				blocks = append(blocks, current)
				state = outside
			case line == dividerMarker:
				return nil, &ParseError{Path: path, Line: lineNo, Message: "duplicate ======= in block"}
			case strings.HasPrefix(line, searchMarker):
				return nil, &ParseError{Path: path, Line: lineNo, Message: "nested SEARCH marker"}
			default:
				current.replace = append(current.replace, line)
			}
		}
	}

	if state != outside {
		return nil, &ParseError{Path: path, Line: start, Message: "unterminated block"}
	}
	if len(blocks) == 0 {
		return nil, &ParseError{Path: path, Message: "no SEARCH/REPLACE blocks"}
	}

	ops := make([]types.PatchOperation, 0, len(blocks))
	for i, b := range blocks {
		ops = append(ops, types.PatchOperation{
			Name:       blockName(path, meta, b.label, i, len(blocks)),
			Target:     strings.TrimSpace(meta.Target),
			Search:     strings.Join(b.search, "\n"),
			Replace:    strings.Join(b.replace, "\n"),
			Regex:      meta.Regex,
			Flags:      meta.Flags,
			ReplaceAll: meta.ReplaceAll,
			Expand:     meta.Expand,
			Expect:     meta.Expect,
		})
	}
	return ops, nil
}

func blockName(path string, meta types.DocumentMeta, label string, i, n int) string {
	if label != "" {
		return label
	}
	name := meta.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), Extension)
	}
	if n > 1 {
		return fmt.Sprintf("%s#%d", name, i+1)
	}
	return name
}

// Load reads and parses a patch document from disk.
func (h *Handler) Load(path string) (types.PatchDocument, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return types.PatchDocument{Path: path}, fmt.Errorf("failed to read patch: %w", err)
	}
	return h.Parse(path, string(content))
}

// LoadAll loads every path in order. Directories contribute their *.patch
// files in lexical order; subdirectories are not descended into.
func (h *Handler) LoadAll(paths []string) ([]types.PatchDocument, error) {
	var docs []types.PatchDocument
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return docs, fmt.Errorf("failed to read patch: %w", err)
		}

		if !info.IsDir() {
			doc, err := h.Load(path)
			if err != nil {
				return docs, err
			}
			docs = append(docs, doc)
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return docs, fmt.Errorf("failed to list patches: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), Extension) {
				continue
			}
			doc, err := h.Load(filepath.Join(path, entry.Name()))
			if err != nil {
				return docs, err
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Format renders doc back into patch document text. Operations must share
// the document's target and options; only their names may differ.
func (h *Handler) Format(doc types.PatchDocument) (string, error) {
	meta := doc.Meta
	if meta.Target == "" && len(doc.Operations) > 0 {
		op := doc.Operations[0]
		meta.Target = op.Target
		meta.Regex = op.Regex
		meta.Flags = op.Flags
		meta.ReplaceAll = op.ReplaceAll
		meta.Expand = op.Expand
		meta.Expect = op.Expect
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(meta); err != nil {
		return "", fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	buf.WriteString("---\n")

	for i, op := range doc.Operations {
		if op.Target != meta.Target || op.Regex != meta.Regex || op.Flags != meta.Flags ||
			op.ReplaceAll != meta.ReplaceAll || op.Expand != meta.Expand || op.Expect != meta.Expect {
			return "", fmt.Errorf("operation %q does not match the document options", op.Label())
		}

		if i > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(searchMarker)
		if op.Name != "" && op.Name != blockName(doc.Path, meta, "", i, len(doc.Operations)) {
			buf.WriteString(" " + op.Name)
		}
		buf.WriteString("\n")
		writeSection(&buf, op.Search)
		buf.WriteString(dividerMarker + "\n")
		writeSection(&buf, op.Replace)
		buf.WriteString(replaceMarker + "\n")
	}

	return buf.String(), nil
}

func writeSection(buf *bytes.Buffer, text string) {
	if text == "" {
		return
	}
	buf.WriteString(text)
	buf.WriteString("\n")
}

// Operations flattens the operations of docs, preserving order.
func Operations(docs []types.PatchDocument) []types.PatchOperation {
	var ops []types.PatchOperation
	for _, doc := range docs {
		ops = append(ops, doc.Operations...)
	}
	return ops
}
