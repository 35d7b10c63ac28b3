package types

import "strings"

// AllFilter is the wildcard value for a filter axis.
const AllFilter = "All"

// Filter selects defects along the project and service type axes and then
// narrows the result with a free text search.
type Filter struct {
	Project     string `form:"project" json:"project"`
	ServiceType string `form:"serviceType" json:"serviceType"`
	Search      string `form:"q" json:"q"`
}

// Unconstrained reports whether v is the wildcard for a filter axis.
func Unconstrained(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, AllFilter)
}

func (f Filter) HasProject() bool {
	return !Unconstrained(f.Project)
}

func (f Filter) HasServiceType() bool {
	return !Unconstrained(f.ServiceType)
}

// ProjectLabel is the project axis as shown in document headers.
func (f Filter) ProjectLabel() string {
	if !f.HasProject() {
		return "All Projects"
	}
	return strings.TrimSpace(f.Project)
}

// ScopeLabel names the filtered set in file names: the project label, plus
// the service type code when that axis is constrained.
func (f Filter) ScopeLabel() string {
	if !f.HasServiceType() {
		return f.ProjectLabel()
	}
	return f.ProjectLabel() + " " + strings.TrimSpace(f.ServiceType)
}
