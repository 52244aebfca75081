package reports

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// NewReportGenerator creates a report generator for a report type and format.
// CSV is available for the tabular reports only.
func NewReportGenerator(reportType ReportType, format ReportFormat) (Generator, error) {
	switch format {
	case "", ReportFormatJSON:
		switch reportType {
		case ReportTypeGraph, ReportTypeDashboard, ReportTypeStale, ReportTypeSOA, ReportTypeCoverage:
			return &JSONGenerator{reportType: reportType}, nil
		}
	case ReportFormatCSV:
		switch reportType {
		case ReportTypeStale:
			return &StaleCSVGenerator{}, nil
		case ReportTypeSOA:
			return &SOACSVGenerator{}, nil
		case ReportTypeCoverage:
			return &CoverageCSVGenerator{}, nil
		}
		return nil, fmt.Errorf("report type %s has no csv format", reportType)
	default:
		return nil, fmt.Errorf("unknown report format: %s", format)
	}
	return nil, fmt.Errorf("unknown report type: %s", reportType)
}

// JSONGenerator renders any report as indented JSON.
type JSONGenerator struct {
	reportType ReportType
}

func (g *JSONGenerator) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	v, err := Build(g.reportType, params)
	if err != nil {
		return nil, err
	}
	data, err := EncodeJSON(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
