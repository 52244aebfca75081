package graph

import (
	"fmt"
)

// Framework describes how a compliance framework is referenced from documents.
type Framework struct {
	Name     string   // key under a document's frameworks mapping
	Field    string   // list field holding referenced ids
	Subdir   string   // directory under frameworks/<name>/ holding control files
	NodeType NodeType // node type of the framework's own control documents
}

// Frameworks lists the frameworks with a known reference field, in index order.
var Frameworks = []Framework{
	{Name: "iso27001", Field: "controls", Subdir: "controls", NodeType: NodeControl},
	{Name: "soc2", Field: "criteria", Subdir: "criteria", NodeType: NodeCriterion},
	{Name: "gdpr", Field: "articles", Subdir: "articles", NodeType: NodeArticle},
}

// LookupFramework returns the framework registered under name.
func LookupFramework(name string) (Framework, bool) {
	for _, fw := range Frameworks {
		if fw.Name == name {
			return fw, true
		}
	}
	return Framework{}, false
}

// FrameworkForType returns the framework whose control documents have type t.
func FrameworkForType(t NodeType) (Framework, bool) {
	for _, fw := range Frameworks {
		if fw.NodeType == t {
			return fw, true
		}
	}
	return Framework{}, false
}

// ControlPath returns the document key of a control file.
// Unknown frameworks fall back to the controls directory.
func ControlPath(controlID, framework string) string {
	subdir := "controls"
	if fw, ok := LookupFramework(framework); ok {
		subdir = fw.Subdir
	}
	return fmt.Sprintf("frameworks/%s/%s/%s.yml", framework, subdir, controlID)
}

// ReferencedIDs returns the ids listed under field, and false when the field
// is missing or is not a list.
func (r FrameworkRefs) ReferencedIDs(field string) ([]string, bool) {
	if r == nil {
		return nil, false
	}
	raw, ok := r[field]
	if !ok {
		return nil, false
	}
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []string:
		return v, true
	default:
		return nil, false
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		ids = append(ids, fmt.Sprint(item))
	}
	return ids, true
}
