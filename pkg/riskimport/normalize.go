package riskimport

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ownerAliases maps role titles used in the register to owner handles.
var ownerAliases = map[string]string{
	"IT & Security Manager":           "e.stpierre",
	"Leadership - ISMS Manager":       "e.stpierre",
	"CEO/President":                   "r.ledoux",
	"President & CEO":                 "r.ledoux",
	"Leadership - CEO":                "r.ledoux",
	"Leadership - President":          "r.ledoux",
	"CTO":                             "j.ledoux",
	"Developer":                       "developer",
	"Leadership - VP Finance":         "vp-finance",
	"Leadership - VP Sales":           "vp-sales",
	"Leadership - Marketing Director": "marketing-director",
}

var (
	ownerSeparators = regexp.MustCompile(`[\s/&]+`)
	dashRuns        = regexp.MustCompile(`-+`)
	annexControl    = regexp.MustCompile(`^(A\.\d+\.\d+)`)
	dashSuffix      = regexp.MustCompile(`\s*[\x{2013}-]\s*.*$`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// NormalizeOwner maps a role title to an owner handle. Unknown titles are
// slugified; an empty title yields "unknown".
func NormalizeOwner(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "unknown"
	}
	if alias, ok := ownerAliases[s]; ok {
		return alias
	}
	slug := ownerSeparators.ReplaceAllString(strings.ToLower(s), "-")
	slug = dashRuns.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// MapTreatment maps the register's free-text treatment to a treatment option.
func MapTreatment(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "selection of controls"):
		return "mitigate"
	case strings.Contains(s, "accept"):
		return "accept"
	case strings.Contains(s, "avoid"):
		return "avoid"
	case strings.Contains(s, "transfer"), strings.Contains(s, "share"):
		return "transfer"
	}
	return "mitigate"
}

// ParseControls splits a control list on commas and semicolons. Annex A
// references are reduced to their identifier; other entries lose any dash
// suffix.
func ParseControls(raw string) []string {
	controls := []string{}
	if t := strings.TrimSpace(raw); t == "" || strings.EqualFold(t, "none") {
		return controls
	}
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' }) {
		c := strings.TrimSpace(part)
		if c == "" || strings.EqualFold(c, "none") {
			continue
		}
		if m := annexControl.FindStringSubmatch(c); m != nil {
			c = m[1]
		} else {
			c = strings.TrimSpace(dashSuffix.ReplaceAllString(c, ""))
		}
		if c != "" {
			controls = append(controls, c)
		}
	}
	return controls
}

// ParseNumber returns nil for blank or non-numeric cells.
func ParseNumber(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return &n
}

// Text collapses whitespace and returns nil for empty cells.
func Text(raw string) *string {
	s := strings.TrimSpace(whitespaceRuns.ReplaceAllString(raw, " "))
	if s == "" {
		return nil
	}
	return &s
}

// PadID turns "R-7" into "R-007".
func PadID(riskNum string) string {
	n := strings.Replace(riskNum, "R-", "", 1)
	if len(n) < 3 {
		n = strings.Repeat("0", 3-len(n)) + n
	}
	return "R-" + n
}
