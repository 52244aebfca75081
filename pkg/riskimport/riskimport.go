// Package riskimport converts the spreadsheet risk register (exported as
// CSV) into one YAML file per risk under risks/.
package riskimport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/rmax-ai/grcgraph/pkg/blob"
	"github.com/rmax-ai/grcgraph/pkg/logging"
)

// ErrNoHeader is returned when the input has no rows beyond the title block.
var ErrNoHeader = errors.New("risk register has no header row")

// DefaultStatus is assigned to imported risks.
const DefaultStatus = "treating"

// Register columns, in spreadsheet order.
const (
	colType = iota
	colRiskNum
	colAssetNum
	colAsset
	colAssetOwner
	colRiskOwner
	colThreat
	colVulnerability
	colExistingControls
	colNotes
	colImpact
	colLikelihood
	colInherentRisk
	colTreatment
	colRequiredControls
	colImplNotes
	colResidualImpact
	colResidualLikelihood
	colResidualRisk
)

// Date is a calendar date emitted as a plain YAML timestamp.
type Date string

func (d Date) MarshalYAML() (any, error) {
	if d == "" {
		return nil, nil
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: string(d)}, nil
}

// ControlRefs lists referenced controls of one framework.
type ControlRefs struct {
	Controls []string `yaml:"controls,flow"`
}

// RiskFrameworks holds the existing controls of a risk.
type RiskFrameworks struct {
	ISO27001 ControlRefs `yaml:"iso27001"`
}

// Risk is one risk document as written to disk.
type Risk struct {
	ID                  string         `yaml:"id"`
	Title               string         `yaml:"title"`
	Asset               *string        `yaml:"asset"`
	AssetOwner          *string        `yaml:"asset_owner"`
	Threat              *string        `yaml:"threat"`
	Vulnerability       *string        `yaml:"vulnerability"`
	Likelihood          *float64       `yaml:"likelihood"`
	Impact              *float64       `yaml:"impact"`
	InherentRisk        *float64       `yaml:"inherent_risk"`
	Treatment           string         `yaml:"treatment"`
	Frameworks          RiskFrameworks `yaml:"frameworks"`
	RequiredControls    []string       `yaml:"required_controls,flow"`
	Notes               *string        `yaml:"notes"`
	ImplementationNotes *string        `yaml:"implementation_notes"`
	ResidualLikelihood  *float64       `yaml:"residual_likelihood"`
	ResidualImpact      *float64       `yaml:"residual_impact"`
	ResidualRisk        *float64       `yaml:"residual_risk"`
	Owner               string         `yaml:"owner"`
	Status              string         `yaml:"status"`
	ReviewDate          Date           `yaml:"review_date"`
}

// Key returns the repository path of the risk file.
func (r *Risk) Key() string {
	return "risks/" + strings.ToLower(r.ID) + ".yml"
}

// Options controls the conversion.
type Options struct {
	ReviewDate string // YYYY-MM-DD
	Logger     *log.Logger
}

// ReadRecords parses the CSV export. Quoted cells may span lines.
func ReadRecords(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
	}
	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse risk register: %w", err)
	}
	return records, nil
}

// Convert turns register rows into risks. Only rows whose risk number starts
// with "R-" are data rows; the title block and headers never carry one.
func Convert(records [][]string, opts Options) ([]*Risk, error) {
	if len(records) < 2 {
		return nil, ErrNoHeader
	}

	var risks []*Risk
	for _, row := range records {
		riskNum := strings.TrimSpace(cell(row, colRiskNum))
		if !strings.HasPrefix(riskNum, "R-") {
			continue
		}
		risks = append(risks, convertRow(row, riskNum, opts))
	}
	return risks, nil
}

func convertRow(row []string, riskNum string, opts Options) *Risk {
	id := PadID(riskNum)
	asset := strings.TrimSpace(cell(row, colAsset))
	threat := strings.TrimSpace(cell(row, colThreat))

	title := id
	switch {
	case asset != "" && threat != "":
		title = asset + " - " + threat
	case asset != "":
		title = asset
	case threat != "":
		title = threat
	}
	if t := Text(title); t != nil {
		title = *t
	}

	return &Risk{
		ID:                  id,
		Title:               title,
		Asset:               Text(asset),
		AssetOwner:          Text(cell(row, colAssetOwner)),
		Threat:              Text(threat),
		Vulnerability:       Text(cell(row, colVulnerability)),
		Likelihood:          ParseNumber(cell(row, colLikelihood)),
		Impact:              ParseNumber(cell(row, colImpact)),
		InherentRisk:        ParseNumber(cell(row, colInherentRisk)),
		Treatment:           MapTreatment(cell(row, colTreatment)),
		Frameworks:          RiskFrameworks{ISO27001: ControlRefs{Controls: ParseControls(cell(row, colExistingControls))}},
		RequiredControls:    ParseControls(cell(row, colRequiredControls)),
		Notes:               Text(cell(row, colNotes)),
		ImplementationNotes: Text(cell(row, colImplNotes)),
		ResidualLikelihood:  ParseNumber(cell(row, colResidualLikelihood)),
		ResidualImpact:      ParseNumber(cell(row, colResidualImpact)),
		ResidualRisk:        ParseNumber(cell(row, colResidualRisk)),
		Owner:               NormalizeOwner(cell(row, colRiskOwner)),
		Status:              DefaultStatus,
		ReviewDate:          Date(opts.ReviewDate),
	}
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// Encode renders one risk document.
func Encode(r *Risk) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", r.ID, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", r.ID, err)
	}
	return buf.Bytes(), nil
}

// Import reads the register from r and writes every risk into repo. A file
// that fails to write does not stop the others; all failures are returned
// together with the keys that were written.
func Import(ctx context.Context, r io.Reader, repo blob.BlobStore, opts Options) ([]string, error) {
	logger := logging.OrDiscard(opts.Logger)

	records, err := ReadRecords(r)
	if err != nil {
		return nil, err
	}
	risks, err := Convert(records, opts)
	if err != nil {
		return nil, err
	}

	var written []string
	var errs []error
	for _, risk := range risks {
		data, err := Encode(risk)
		if err == nil {
			err = repo.Put(ctx, risk.Key(), bytes.NewReader(data))
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", risk.ID, err))
			continue
		}
		logger.Debug("risk_written", "id", risk.ID, "key", risk.Key())
		written = append(written, risk.Key())
	}

	logger.Info("risks_imported", "rows", len(records), "written", len(written), "failed", len(errs))
	return written, errors.Join(errs...)
}
