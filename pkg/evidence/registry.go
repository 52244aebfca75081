// Package evidence maintains the evidence registry after automated
// collection runs.
package evidence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rmax-ai/grcgraph/pkg/blob"
	"github.com/rmax-ai/grcgraph/pkg/source"
)

var (
	ErrRegistryNotFound = errors.New("evidence registry not found")
	ErrInvalidRegistry  = errors.New(`invalid registry format: expected top-level "evidence" array`)
	ErrInvalidDate      = errors.New("invalid date, expected YYYY-MM-DD")
)

// FrequencyDays maps a collection frequency to the days until the next
// collection. On-demand evidence has no due date.
var FrequencyDays = map[string]int{
	"daily":     1,
	"weekly":    7,
	"monthly":   30,
	"quarterly": 90,
	"annually":  365,
	"on-demand": 0,
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseDate validates a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	if !datePattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// NextDue returns date plus the frequency's interval. It reports false for
// on-demand and unknown frequencies.
func NextDue(date time.Time, frequency string) (string, bool) {
	days := FrequencyDays[frequency]
	if days == 0 {
		return "", false
	}
	return date.AddDate(0, 0, days).Format(time.DateOnly), true
}

// Update describes one rewritten registry entry.
type Update struct {
	ID            string
	Title         string
	Path          string
	LastCollected string
	NextDue       string // empty when there is no due date
}

// Registry is a parsed registry document. Edits are made on the YAML node
// tree so comments and key order survive.
type Registry struct {
	doc     *yaml.Node
	entries *yaml.Node
}

// Parse reads a registry document.
func Parse(data []byte) (*Registry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegistry, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, ErrInvalidRegistry
	}
	entries := mappingValue(doc.Content[0], "evidence")
	if entries == nil || entries.Kind != yaml.SequenceNode {
		return nil, ErrInvalidRegistry
	}
	return &Registry{doc: &doc, entries: entries}, nil
}

// Apply marks every entry collected from source as collected on date.
func (r *Registry) Apply(sourceName string, date time.Time) []Update {
	day := date.Format(time.DateOnly)
	var updates []Update

	for _, entry := range r.entries.Content {
		if entry.Kind != yaml.MappingNode || scalar(entry, "source") != sourceName {
			continue
		}

		base := path.Base(scalar(entry, "path"))
		if base == "." || base == "/" {
			base = scalar(entry, "id")
		}
		u := Update{
			ID:            scalar(entry, "id"),
			Title:         scalar(entry, "title"),
			Path:          path.Join("evidence/automated", sourceName, day, base),
			LastCollected: day,
		}

		setScalar(entry, "path", u.Path)
		setScalar(entry, "last_collected", day)
		if next, ok := NextDue(date, scalar(entry, "frequency")); ok {
			u.NextDue = next
			setScalar(entry, "next_due", next)
		} else {
			setNull(entry, "next_due")
		}
		setScalar(entry, "status", "current")

		updates = append(updates, u)
	}
	return updates
}

// Encode renders the registry with two-space indentation.
func (r *Registry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r.doc); err != nil {
		return nil, fmt.Errorf("failed to encode registry: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode registry: %w", err)
	}
	return buf.Bytes(), nil
}

// UpdateSource applies a collection run to the registry stored in repo,
// keyed by source.RegistryPath. Nothing is written when no entry matches.
func UpdateSource(ctx context.Context, repo blob.BlobStore, sourceName, date string) ([]Update, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	data, err := blob.ReadAll(ctx, repo, source.RegistryPath)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRegistryNotFound, source.RegistryPath)
		}
		return nil, err
	}

	reg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	updates := reg.Apply(sourceName, day)
	if len(updates) == 0 {
		return nil, nil
	}

	out, err := reg.Encode()
	if err != nil {
		return nil, err
	}
	if err := repo.Put(ctx, source.RegistryPath, bytes.NewReader(out)); err != nil {
		return nil, fmt.Errorf("failed to write registry: %w", err)
	}
	return updates, nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func scalar(m *yaml.Node, key string) string {
	v := mappingValue(m, key)
	if v == nil || v.Kind != yaml.ScalarNode || v.Tag == "!!null" {
		return ""
	}
	return v.Value
}

func setValue(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			value.LineComment = m.Content[i+1].LineComment
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}

func setScalar(m *yaml.Node, key, value string) {
	setValue(m, key, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value})
}

func setNull(m *yaml.Node, key string) {
	setValue(m, key, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"})
}
