package graph

import (
	"gopkg.in/yaml.v3"
)

// Record is the parsed metadata of one document: markdown frontmatter,
// a YAML file, or one entry of the evidence registry.
type Record struct {
	ID           string `yaml:"id"`
	Title        string `yaml:"title"`
	Owner        string `yaml:"owner"`
	Status       string `yaml:"status"`
	Version      string `yaml:"version"`
	ApprovedDate string `yaml:"approved_date"`
	NextReview   string `yaml:"next_review"`

	Frameworks       any        `yaml:"frameworks"`
	TriggersUpdateTo StringList `yaml:"triggers_update_to"`
	TriggeredBy      StringList `yaml:"triggered_by"`

	Asset              string     `yaml:"asset"`
	Threat             string     `yaml:"threat"`
	Vulnerability      string     `yaml:"vulnerability"`
	Likelihood         any        `yaml:"likelihood"`
	Impact             any        `yaml:"impact"`
	InherentRisk       any        `yaml:"inherent_risk"`
	Treatment          string     `yaml:"treatment"`
	RequiredControls   StringList `yaml:"required_controls"`
	ResidualLikelihood any        `yaml:"residual_likelihood"`
	ResidualImpact     any        `yaml:"residual_impact"`
	ResidualRisk       any        `yaml:"residual_risk"`
	ReviewDate         string     `yaml:"review_date"`

	Category             string `yaml:"category"`
	Theme                string `yaml:"theme"`
	Applicable           *bool  `yaml:"applicable"`
	Justification        string `yaml:"justification"`
	ImplementationStatus string `yaml:"implementation_status"`
	Notes                string `yaml:"notes"`

	DateReported      string `yaml:"date_reported"`
	Severity          string `yaml:"severity"`
	System            string `yaml:"system"`
	Type              string `yaml:"type"`
	PersonResponsible string `yaml:"person_responsible"`

	Source        string `yaml:"source"`
	Collection    string `yaml:"collection"`
	Frequency     string `yaml:"frequency"`
	LastCollected string `yaml:"last_collected"`
	NextDue       string `yaml:"next_due"`
	Path          string `yaml:"path"`
}

// StringList decodes a YAML sequence of scalars. Anything else decodes to an
// empty list instead of failing the whole record.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		*l = nil
		return nil
	}
	out := make([]string, 0, len(value.Content))
	for _, item := range value.Content {
		if item.Kind != yaml.ScalarNode || item.Tag == "!!null" || item.Value == "" {
			continue
		}
		out = append(out, item.Value)
	}
	*l = out
	return nil
}
