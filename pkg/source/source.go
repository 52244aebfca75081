// Package source discovers compliance documents on disk and parses their metadata.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/rmax-ai/grcgraph/pkg/graph"
	"github.com/rmax-ai/grcgraph/pkg/logging"
)

// RegistryPath is the evidence registry location relative to the root.
const RegistryPath = "evidence/_registry.yml"

// Rule maps a glob under the root to a document type and parser.
type Rule struct {
	Pattern  string
	Type     graph.NodeType
	Markdown bool
}

// Rules is the fixed discovery order. The evidence registry is read after
// incidents and before program documents.
var Rules = []Rule{
	{Pattern: "policies/*.md", Type: graph.NodePolicy, Markdown: true},
	{Pattern: "procedures/*.md", Type: graph.NodeProcedure, Markdown: true},
	{Pattern: "risks/*.yml", Type: graph.NodeRisk},
	{Pattern: "frameworks/iso27001/controls/*.yml", Type: graph.NodeControl},
	{Pattern: "frameworks/soc2/criteria/*.yml", Type: graph.NodeCriterion},
	{Pattern: "frameworks/gdpr/articles/*.yml", Type: graph.NodeArticle},
	{Pattern: "incidents/*.yml", Type: graph.NodeIncident},
	{Pattern: "program/*.md", Type: graph.NodeProgram, Markdown: true},
}

// FS reads documents from a directory tree.
type FS struct {
	root    string
	workers int
	logger  *log.Logger
}

// Option configures an FS source.
type Option func(*FS)

// WithWorkers bounds the number of files parsed concurrently.
func WithWorkers(n int) Option {
	return func(s *FS) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets the logger used for skipped documents.
func WithLogger(l *log.Logger) Option {
	return func(s *FS) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewFS creates a source rooted at root.
func NewFS(root string, opts ...Option) *FS {
	s := &FS{root: root, workers: runtime.NumCPU(), logger: logging.Discard()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Root returns the repository root.
func (s *FS) Root() string { return s.root }

type pending struct {
	key      string
	typ      graph.NodeType
	markdown bool
}

// Documents returns every known document in a stable order: rules in order,
// files lexically within a rule, registry entries in registry order.
// Unparseable documents are returned with a nil record.
func (s *FS) Documents(ctx context.Context) ([]graph.Document, error) {
	var files []pending
	for _, rule := range Rules {
		// Glob sorts its matches; a bad pattern is the only error it reports.
		matches, err := filepath.Glob(filepath.Join(s.root, filepath.FromSlash(rule.Pattern)))
		if err != nil {
			return nil, fmt.Errorf("failed to glob %s: %w", rule.Pattern, err)
		}
		for _, m := range matches {
			rel, err := filepath.Rel(s.root, m)
			if err != nil {
				return nil, fmt.Errorf("failed to relativize %s: %w", m, err)
			}
			files = append(files, pending{key: filepath.ToSlash(rel), typ: rule.Type, markdown: rule.Markdown})
		}
	}

	parsed := make([]graph.Document, len(files))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers)
	for i := range files {
		idx := i
		f := files[i]
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			parsed[idx] = graph.Document{Key: f.key, Type: f.typ, Record: s.parseFile(f)}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	evidence := s.Evidence()

	// Evidence sits between incidents and program documents.
	docs := make([]graph.Document, 0, len(parsed)+len(evidence))
	split := len(parsed)
	for i, d := range parsed {
		if d.Type == graph.NodeProgram {
			split = i
			break
		}
	}
	docs = append(docs, parsed[:split]...)
	docs = append(docs, evidence...)
	docs = append(docs, parsed[split:]...)
	return docs, nil
}

func (s *FS) parseFile(f pending) *graph.Record {
	content, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(f.key)))
	if err != nil {
		s.logger.Debug("document_unreadable", "file", f.key, "error", err)
		return nil
	}
	var rec *graph.Record
	if f.markdown {
		rec, err = ParseMarkdown(content)
	} else {
		rec, err = ParseYAML(content)
	}
	if rec == nil {
		s.logger.Debug("document_skipped", "file", f.key, "error", err)
		return nil
	}
	if err != nil {
		s.logger.Debug("document_fields_ignored", "file", f.key, "error", err)
	}
	return rec
}

type registryFile struct {
	Evidence yaml.Node `yaml:"evidence"`
}

// Evidence returns the entries of the evidence registry keyed as evidence/<id>.
// A missing or malformed registry yields no entries.
func (s *FS) Evidence() []graph.Document {
	content, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(RegistryPath)))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("registry_unreadable", "error", err)
		}
		return nil
	}
	var reg registryFile
	if err := yaml.Unmarshal(content, &reg); err != nil {
		s.logger.Debug("registry_skipped", "error", err)
		return nil
	}
	if reg.Evidence.Kind != yaml.SequenceNode {
		return nil
	}

	docs := make([]graph.Document, 0, len(reg.Evidence.Content))
	for _, item := range reg.Evidence.Content {
		rec, err := decodeRecord(item)
		if rec == nil {
			s.logger.Debug("evidence_entry_skipped", "line", item.Line, "error", err)
			continue
		}
		if err != nil {
			s.logger.Debug("evidence_fields_ignored", "line", item.Line, "error", err)
		}
		docs = append(docs, graph.Document{Key: "evidence/" + rec.ID, Type: graph.NodeEvidence, Record: rec})
	}
	return docs
}
