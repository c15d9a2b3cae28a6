// Package overlayfile reads and writes overlay authoring files: YAML
// document streams with one entry per document.
package overlayfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

// Parse reads every entry in a YAML document stream. Unknown keys are
// rejected so that a misspelt field does not silently drop metadata.
// Empty documents are skipped.
func Parse(r io.Reader) ([]domain.EntryInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read overlay file: %w", err)
	}

	nodes := yaml.NewDecoder(bytes.NewReader(data))
	strict := yaml.NewDecoder(bytes.NewReader(data))
	strict.KnownFields(true)

	var inputs []domain.EntryInput
	for doc := 1; ; doc++ {
		var node yaml.Node
		if err := nodes.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}

		if !isEmptyDocument(&node) && node.Content[0].Kind != yaml.MappingNode {
			return nil, fmt.Errorf("document %d: expected a mapping, got %s", doc, kindName(node.Content[0].Kind))
		}

		// The strict decoder walks the same stream in lockstep.
		var input domain.EntryInput
		if err := strict.Decode(&input); err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		if isEmptyDocument(&node) {
			continue
		}
		inputs = append(inputs, input)
	}

	if len(inputs) == 0 {
		return nil, errors.New("overlay file contains no entries")
	}
	return inputs, nil
}

// ParseFile parses the overlay file at path. A path of "-" reads stdin.
func ParseFile(path string) ([]domain.EntryInput, error) {
	if path == "-" {
		return Parse(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open overlay file: %w", err)
	}
	defer f.Close()

	inputs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return inputs, nil
}

// FromEntry returns the authoring form of a stored entry.
func FromEntry(e *domain.ContentEntry) domain.EntryInput {
	return domain.EntryInput{
		Title:          e.Title,
		Status:         e.Status,
		Content:        e.Content,
		Domain:         e.Domain,
		Scope:          e.Scope,
		Associations:   e.Associations,
		Guardrails:     e.Guardrails,
		AuthoringNotes: e.AuthoringNotes,
	}
}

// Write encodes entries as a YAML document stream that Parse reads back.
func Write(w io.Writer, entries []*domain.ContentEntry) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, e := range entries {
		if err := enc.Encode(FromEntry(e)); err != nil {
			return fmt.Errorf("encode %s: %w", e.ID, err)
		}
	}
	return enc.Close()
}

func isEmptyDocument(n *yaml.Node) bool {
	if n.Kind != yaml.DocumentNode || len(n.Content) == 0 {
		return true
	}
	c := n.Content[0]
	return c.Kind == yaml.ScalarNode && c.Tag == "!!null"
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}
