package graph

import (
	"time"
)

// NodeType represents the document type of a node in the compliance graph.
type NodeType string

const (
	NodePolicy    NodeType = "policy"
	NodeProcedure NodeType = "procedure"
	NodeRisk      NodeType = "risk"
	NodeControl   NodeType = "control"
	NodeCriterion NodeType = "criterion"
	NodeArticle   NodeType = "article"
	NodeIncident  NodeType = "incident"
	NodeEvidence  NodeType = "evidence"
	NodeProgram   NodeType = "program"
)

// IsPolicyLike reports whether documents of this type carry review dates and trigger lists.
func (t NodeType) IsPolicyLike() bool {
	return t == NodePolicy || t == NodeProcedure || t == NodeProgram
}

// IsControlLike reports whether the type is a framework control, criterion or article.
func (t NodeType) IsControlLike() bool {
	return t == NodeControl || t == NodeCriterion || t == NodeArticle
}

// EdgeType represents the semantic relationship between two document keys.
type EdgeType string

const (
	EdgeImplements     EdgeType = "implements"      // Policy/Procedure/Program -> Control
	EdgeMitigatedBy    EdgeType = "mitigated_by"    // Risk -> Control
	EdgeEvidences      EdgeType = "evidences"       // Evidence -> Control
	EdgeRelatedTo      EdgeType = "related_to"      // Incident -> Control
	EdgeTriggersUpdate EdgeType = "triggers_update" // Upstream -> Downstream (declared upstream)
	EdgeTriggeredBy    EdgeType = "triggered_by"    // Upstream -> Downstream (declared downstream)
)

// FrameworkRefs is the framework-specific data of a document, e.g. {"controls": ["A.5.1"]}.
type FrameworkRefs map[string]any

// Node represents one compliance document in the graph.
type Node struct {
	Type  NodeType `json:"type"`
	ID    string   `json:"id,omitempty"`
	Title string   `json:"title,omitempty"`
	Owner string   `json:"owner,omitempty"`

	Status       string `json:"status,omitempty"`
	Version      string `json:"version,omitempty"`
	ApprovedDate string `json:"approved_date,omitempty"`
	NextReview   string `json:"next_review,omitempty"`

	// Risk fields
	Asset              string   `json:"asset,omitempty"`
	Threat             string   `json:"threat,omitempty"`
	Vulnerability      string   `json:"vulnerability,omitempty"`
	Likelihood         any      `json:"likelihood,omitempty"`
	Impact             any      `json:"impact,omitempty"`
	InherentRisk       any      `json:"inherent_risk,omitempty"`
	Treatment          string   `json:"treatment,omitempty"`
	RequiredControls   []string `json:"required_controls,omitempty"`
	ResidualLikelihood any      `json:"residual_likelihood,omitempty"`
	ResidualImpact     any      `json:"residual_impact,omitempty"`
	ResidualRisk       any      `json:"residual_risk,omitempty"`
	ReviewDate         string   `json:"review_date,omitempty"`

	// Control, criterion and article fields
	Category             string `json:"category,omitempty"`
	Theme                string `json:"theme,omitempty"`
	Applicable           *bool  `json:"applicable,omitempty"`
	Justification        string `json:"justification,omitempty"`
	ImplementationStatus string `json:"implementation_status,omitempty"`
	Notes                string `json:"notes,omitempty"`
	Framework            string `json:"framework,omitempty"`

	// Incident fields
	DateReported      string `json:"date_reported,omitempty"`
	Severity          string `json:"severity,omitempty"`
	System            string `json:"system,omitempty"`
	IncidentType      string `json:"incident_type,omitempty"`
	PersonResponsible string `json:"person_responsible,omitempty"`

	// Evidence fields
	Source        string `json:"source,omitempty"`
	Collection    string `json:"collection,omitempty"`
	Frequency     string `json:"frequency,omitempty"`
	LastCollected string `json:"last_collected,omitempty"`
	NextDue       string `json:"next_due,omitempty"`
	Path          string `json:"path,omitempty"`

	Frameworks       map[string]FrameworkRefs `json:"frameworks"`
	TriggersUpdateTo []string                 `json:"triggers_update_to,omitempty"`
	TriggeredBy      []string                 `json:"triggered_by,omitempty"`
}

// IsApplicable treats a missing applicable flag as true.
func (n *Node) IsApplicable() bool {
	return n.Applicable == nil || *n.Applicable
}

// ReviewDue returns the date field that governs staleness for the node's type.
func (n *Node) ReviewDue() string {
	switch {
	case n.Type.IsPolicyLike():
		return n.NextReview
	case n.Type == NodeRisk:
		return n.ReviewDate
	}
	return ""
}

// Edge represents a directed relationship between two document keys.
// Targets need not exist as nodes.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Type EdgeType `json:"type"`
}

// FrameworkIndex maps control ids to the documents referencing them.
// Evidence is keyed by evidence id, everything else by document key.
type FrameworkIndex struct {
	ControlsToPolicies map[string][]string `json:"controls_to_policies"`
	ControlsToRisks    map[string][]string `json:"controls_to_risks"`
	ControlsToEvidence map[string][]string `json:"controls_to_evidence"`
}

// NewFrameworkIndex creates an empty index.
func NewFrameworkIndex() *FrameworkIndex {
	return &FrameworkIndex{
		ControlsToPolicies: make(map[string][]string),
		ControlsToRisks:    make(map[string][]string),
		ControlsToEvidence: make(map[string][]string),
	}
}

// Empty reports whether none of the mappings hold data.
func (fi *FrameworkIndex) Empty() bool {
	return len(fi.ControlsToPolicies) == 0 && len(fi.ControlsToRisks) == 0 && len(fi.ControlsToEvidence) == 0
}

// Snapshot is one complete build of the graph. It is not mutated after Build returns.
type Snapshot struct {
	GeneratedAt time.Time                  `json:"generated_at"`
	Nodes       *NodeMap                   `json:"nodes"`
	Edges       []Edge                     `json:"edges"`
	Indexes     map[string]*FrameworkIndex `json:"indexes"`
}

// Index returns the index for a framework, or an empty one.
func (s *Snapshot) Index(framework string) *FrameworkIndex {
	if idx, ok := s.Indexes[framework]; ok && idx != nil {
		return idx
	}
	return NewFrameworkIndex()
}
