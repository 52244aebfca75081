package graph

// Document is one entry yielded by a record source. A nil Record means the
// document could not be parsed and is skipped.
type Document struct {
	Key    string
	Type   NodeType
	Record *Record
}

// BuildNode maps a parsed record to a node. It returns false for a nil record.
func BuildNode(t NodeType, r *Record) (*Node, bool) {
	if r == nil {
		return nil, false
	}

	n := &Node{
		Type:       t,
		ID:         r.ID,
		Title:      r.Title,
		Frameworks: normalizeFrameworks(r.Frameworks),
	}

	switch {
	case t.IsPolicyLike():
		n.Owner = r.Owner
		n.Status = r.Status
		n.Version = r.Version
		n.ApprovedDate = r.ApprovedDate
		n.NextReview = r.NextReview
		n.TriggersUpdateTo = nonNil(r.TriggersUpdateTo)
		n.TriggeredBy = nonNil(r.TriggeredBy)

	case t == NodeRisk:
		n.Asset = r.Asset
		n.Threat = r.Threat
		n.Vulnerability = r.Vulnerability
		n.Likelihood = r.Likelihood
		n.Impact = r.Impact
		n.InherentRisk = r.InherentRisk
		n.Treatment = r.Treatment
		n.RequiredControls = nonNil(r.RequiredControls)
		n.ResidualLikelihood = r.ResidualLikelihood
		n.ResidualImpact = r.ResidualImpact
		n.ResidualRisk = r.ResidualRisk
		n.Owner = r.Owner
		n.Status = r.Status
		n.ReviewDate = r.ReviewDate

	case t.IsControlLike():
		n.Category = r.Category
		n.Theme = r.Theme
		n.Applicable = r.Applicable
		n.Justification = r.Justification
		n.ImplementationStatus = r.ImplementationStatus
		n.Notes = r.Notes
		if fw, ok := FrameworkForType(t); ok {
			n.Framework = fw.Name
		}

	case t == NodeIncident:
		n.DateReported = r.DateReported
		n.Severity = r.Severity
		n.Status = r.Status
		n.System = r.System
		n.IncidentType = r.Type
		n.PersonResponsible = r.PersonResponsible

	case t == NodeEvidence:
		n.Source = r.Source
		n.Collection = r.Collection
		n.Frequency = r.Frequency
		n.LastCollected = r.LastCollected
		n.NextDue = r.NextDue
		n.Path = r.Path
		n.Status = r.Status
	}

	return n, true
}

// normalizeFrameworks keeps only entries whose value is a mapping.
func normalizeFrameworks(raw any) map[string]FrameworkRefs {
	out := make(map[string]FrameworkRefs)
	m, ok := raw.(map[string]any)
	if !ok {
		return out
	}
	for name, data := range m {
		refs, ok := data.(map[string]any)
		if !ok {
			continue
		}
		out[name] = FrameworkRefs(refs)
	}
	return out
}
