// Package catalog embeds the ISO/IEC 27001:2022 Annex A control list and
// writes skeleton control documents from it.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rmax-ai/grcgraph/pkg/blob"
	"github.com/rmax-ai/grcgraph/pkg/graph"
)

//go:embed iso27001.yml
var iso27001YAML []byte

// Control is one catalog entry.
type Control struct {
	ID       string
	Title    string
	Category string
	Theme    string
}

type catalogFile struct {
	Framework string `yaml:"framework"`
	Themes    []struct {
		Theme    string `yaml:"theme"`
		Category string `yaml:"category"`
		Controls []struct {
			ID    string `yaml:"id"`
			Title string `yaml:"title"`
		} `yaml:"controls"`
	} `yaml:"themes"`
}

var (
	loadOnce sync.Once
	controls []Control
	loadErr  error
)

// ISO27001 returns the Annex A controls in catalog order.
func ISO27001() ([]Control, error) {
	loadOnce.Do(func() {
		controls, loadErr = parse(iso27001YAML)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return append([]Control(nil), controls...), nil
}

func parse(data []byte) ([]Control, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid control catalog: %w", err)
	}
	var out []Control
	for _, th := range f.Themes {
		for _, c := range th.Controls {
			out = append(out, Control{ID: c.ID, Title: c.Title, Category: th.Category, Theme: th.Theme})
		}
	}
	return out, nil
}

// Render produces the skeleton document of one control: applicable, not yet
// started, with empty justification and notes.
func Render(c Control) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "id: %s\n", c.ID)
	fmt.Fprintf(&buf, "title: %q\n", c.Title)
	fmt.Fprintf(&buf, "category: %q\n", c.Category)
	fmt.Fprintf(&buf, "theme: %s\n", c.Theme)
	buf.WriteString("applicable: true\n")
	buf.WriteString("justification: \"\"\n")
	buf.WriteString("implementation_status: not-started\n")
	buf.WriteString("notes: \"\"\n")
	return buf.Bytes()
}

// Result reports what Generate did.
type Result struct {
	Written []string
	Skipped []string // existing files left alone
}

// Generate writes a control document for every catalog entry into repo.
// Existing documents are kept unless overwrite is set.
func Generate(ctx context.Context, repo blob.BlobStore, overwrite bool) (*Result, error) {
	all, err := ISO27001()
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, c := range all {
		key := graph.ControlPath(c.ID, "iso27001")
		if !overwrite {
			exists, err := exists(ctx, repo, key)
			if err != nil {
				return res, err
			}
			if exists {
				res.Skipped = append(res.Skipped, key)
				continue
			}
		}
		if err := repo.Put(ctx, key, bytes.NewReader(Render(c))); err != nil {
			return res, fmt.Errorf("failed to write %s: %w", key, err)
		}
		res.Written = append(res.Written, key)
	}
	return res, nil
}

func exists(ctx context.Context, repo blob.BlobStore, key string) (bool, error) {
	rc, err := repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	rc.Close()
	return true, nil
}
