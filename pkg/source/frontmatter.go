package source

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/rmax-ai/grcgraph/pkg/graph"
)

var (
	// ErrMissingFrontMatter indicates the document did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("source: missing frontmatter")
	// ErrMalformedFrontMatter indicates the fences were not closed.
	ErrMalformedFrontMatter = errors.New("source: malformed frontmatter")
	// ErrEmptyRecord indicates the YAML held no mapping.
	ErrEmptyRecord = errors.New("source: empty record")
)

// FrontMatter returns the YAML block between the leading `---` fences.
func FrontMatter(content []byte) ([]byte, error) {
	normalized := normalizeNewlines(content)
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return nil, ErrMissingFrontMatter
	}
	rest := normalized[4:]
	if bytes.HasPrefix(rest, []byte("---\n")) || bytes.Equal(rest, []byte("---")) {
		return []byte{}, nil
	}
	if end := bytes.Index(rest, []byte("\n---\n")); end >= 0 {
		return rest[:end], nil
	}
	if bytes.HasSuffix(rest, []byte("\n---")) {
		return rest[:len(rest)-4], nil
	}
	return nil, ErrMalformedFrontMatter
}

// ParseMarkdown parses the frontmatter of a markdown document into a record.
func ParseMarkdown(content []byte) (*graph.Record, error) {
	meta, err := FrontMatter(content)
	if err != nil {
		return nil, err
	}
	return ParseYAML(meta)
}

// ParseYAML parses a YAML mapping into a record. Fields of an unexpected
// type are left zero; the remaining record is returned along with the
// *yaml.TypeError describing them.
func ParseYAML(content []byte) (*graph.Record, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("source: parse yaml: %w", err)
	}
	return decodeRecord(&doc)
}

func decodeRecord(n *yaml.Node) (*graph.Record, error) {
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil, ErrEmptyRecord
		}
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return nil, ErrEmptyRecord
	}
	var rec graph.Record
	if err := n.Decode(&rec); err != nil {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return &rec, fmt.Errorf("source: decode record: %w", err)
		}
		return nil, fmt.Errorf("source: decode record: %w", err)
	}
	return &rec, nil
}

func normalizeNewlines(content []byte) []byte {
	return bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
}
