// Package drift compares freshly rendered artifacts against the committed
// ones, so CI can fail when someone forgot to rebuild.
package drift

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/rmax-ai/grcgraph/pkg/blob"
	"github.com/rmax-ai/grcgraph/pkg/reports"
)

// Status classifies one artifact.
type Status string

const (
	StatusMatch   Status = "match"
	StatusChanged Status = "changed"
	StatusMissing Status = "missing"
)

// FileDrift is the comparison result of one artifact.
type FileDrift struct {
	Name   string
	Status Status
	Diff   string // line diff, only for changed files
}

// Report lists every compared artifact in render order.
type Report struct {
	Files []FileDrift
}

// Drifted reports whether any artifact is missing or changed.
func (r *Report) Drifted() bool {
	for _, f := range r.Files {
		if f.Status != StatusMatch {
			return true
		}
	}
	return false
}

// Changed returns the artifacts that are not up to date.
func (r *Report) Changed() []FileDrift {
	var out []FileDrift
	for _, f := range r.Files {
		if f.Status != StatusMatch {
			out = append(out, f)
		}
	}
	return out
}

// generatedAtLine matches the top-level generated_at member as written by
// reports.EncodeJSON.
var generatedAtLine = regexp.MustCompile(`(?m)^  "generated_at": "[^"]*",?\n`)

// Normalize removes the top-level generation timestamp.
func Normalize(data []byte) string {
	return generatedAtLine.ReplaceAllString(strings.ReplaceAll(string(data), "\r\n", "\n"), "")
}

// Check compares each rendered artifact with the stored copy.
func Check(ctx context.Context, store blob.BlobStore, artifacts []reports.Artifact) (*Report, error) {
	report := &Report{Files: make([]FileDrift, 0, len(artifacts))}
	for _, a := range artifacts {
		stored, err := blob.ReadAll(ctx, store, a.Name)
		if err != nil {
			if errors.Is(err, blob.ErrNotFound) {
				report.Files = append(report.Files, FileDrift{Name: a.Name, Status: StatusMissing})
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", a.Name, err)
		}

		before, after := Normalize(stored), Normalize(a.Data)
		if before == after {
			report.Files = append(report.Files, FileDrift{Name: a.Name, Status: StatusMatch})
			continue
		}
		report.Files = append(report.Files, FileDrift{
			Name:   a.Name,
			Status: StatusChanged,
			Diff:   LineDiff(before, after),
		})
	}
	return report, nil
}

// LineDiff renders a line-oriented diff with "-" and "+" prefixes. Unchanged
// lines are omitted.
func LineDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}
