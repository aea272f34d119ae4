// Package document loads the YAML units the validator operates on. Root
// layer files may hold several ---separated documents; by governance
// convention the first document carries the authoritative metadata.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Document is one parsed YAML unit. Immutable after load.
type Document struct {
	FilePath   string
	DocIndex   int
	Kind       string
	APIVersion string

	// Root is the content node of the document. Node positions (line,
	// column) survive here, which the naming walker relies on.
	Root *yaml.Node

	content any
}

// Content returns the document as a generic decoded tree
// (map[string]any / []any / scalars). The tree is decoded once at load
// time and must not be mutated.
func (d *Document) Content() any {
	return d.content
}

// Decode unmarshals the document into v.
func (d *Document) Decode(v any) error {
	if d.Root == nil {
		return fmt.Errorf("document %s[%d]: empty", d.FilePath, d.DocIndex)
	}
	if err := d.Root.Decode(v); err != nil {
		return fmt.Errorf("decode %s[%d]: %w", d.FilePath, d.DocIndex, err)
	}
	return nil
}

// ParseError reports malformed YAML. Parse errors are fatal to a validation
// run: nothing downstream can be trusted once a file fails to parse.
type ParseError struct {
	FilePath string
	Line     int
	Err      error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: line %d: %v", e.FilePath, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.FilePath, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// yaml.v3 exposes positions only through its error text.
var yamlLineRe = regexp.MustCompile(`line (\d+):`)

func newParseError(path string, err error) *ParseError {
	pe := &ParseError{FilePath: path, Err: err}
	if m := yamlLineRe.FindStringSubmatch(err.Error()); m != nil {
		pe.Line, _ = strconv.Atoi(m[1])
	}
	return pe
}

// Load reads path and returns its first YAML document.
func Load(path string) (*Document, error) {
	docs, err := LoadAll(path)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("load %s: no YAML documents", path)
	}
	return docs[0], nil
}

// LoadAll reads path and returns every non-empty YAML document in order.
func LoadAll(path string) ([]*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse decodes data as multi-document YAML. Empty documents are dropped;
// DocIndex reflects the position within the file, counting dropped ones.
// Safe to call concurrently: parsing is stateless per call.
func Parse(path string, data []byte) ([]*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var docs []*Document
	for idx := 0; ; idx++ {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, newParseError(path, err)
		}
		root := contentNode(&node)
		if root == nil || root.Tag == "!!null" {
			continue
		}

		doc := &Document{
			FilePath: path,
			DocIndex: idx,
			Root:     root,
		}
		if err := root.Decode(&doc.content); err != nil {
			return nil, newParseError(path, err)
		}
		doc.Kind = stringField(root, "kind")
		doc.APIVersion = stringField(root, "apiVersion")
		docs = append(docs, doc)
	}
	return docs, nil
}

// contentNode unwraps a DocumentNode to its single content child.
func contentNode(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil
		}
		return n.Content[0]
	}
	if n.Kind == 0 {
		return nil
	}
	return n
}

// stringField returns the scalar value for a top-level mapping key, or "".
func stringField(n *yaml.Node, key string) string {
	if n.Kind != yaml.MappingNode {
		return ""
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Value == key && v.Kind == yaml.ScalarNode {
			return v.Value
		}
	}
	return ""
}
