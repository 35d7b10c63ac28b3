// Package catalog holds the fixed service type catalog: the five trades a
// defect can be filed under, their display names and their defect categories.
// The data is compiled into the binary and never stored in the database.
package catalog

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"defectlog/pkg/types"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type ServiceType struct {
	Code        types.ServiceType `yaml:"code" json:"code"`
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Categories  []string          `yaml:"categories" json:"categories"`
}

// Label is the long form shown in report footers, e.g. "MVAC (Mechanical
// Ventilation & Air Conditioning)".
func (s ServiceType) Label() string {
	if s.Description == "" {
		return fmt.Sprintf("%s (%s)", s.Code, s.Name)
	}
	return fmt.Sprintf("%s (%s)", s.Code, s.Description)
}

type Catalog struct {
	ServiceTypes []ServiceType `yaml:"service_types" json:"serviceTypes"`

	byCode map[types.ServiceType]int
}

var defaultCatalog = mustLoad(catalogYAML)

// Default returns the built-in catalog.
func Default() *Catalog {
	return defaultCatalog
}

func Load(data []byte) (*Catalog, error) {
	c := new(Catalog)
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c.byCode = make(map[types.ServiceType]int, len(c.ServiceTypes))
	for i, st := range c.ServiceTypes {
		if st.Code == "" {
			return nil, fmt.Errorf("catalog entry %d has no code", i)
		}
		if _, dup := c.byCode[st.Code]; dup {
			return nil, fmt.Errorf("duplicate service type %s", st.Code)
		}
		if len(st.Categories) == 0 {
			return nil, fmt.Errorf("service type %s has no categories", st.Code)
		}
		c.byCode[st.Code] = i
	}

	return c, nil
}

func mustLoad(data []byte) *Catalog {
	c, err := Load(data)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Codes() []types.ServiceType {
	out := make([]types.ServiceType, 0, len(c.ServiceTypes))
	for _, st := range c.ServiceTypes {
		out = append(out, st.Code)
	}
	return out
}

func (c *Catalog) Lookup(code types.ServiceType) (ServiceType, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return ServiceType{}, false
	}
	return c.ServiceTypes[i], true
}

// Name returns the display name for code, or the code itself when unknown.
func (c *Catalog) Name(code types.ServiceType) string {
	st, ok := c.Lookup(code)
	if !ok {
		return string(code)
	}
	return st.Name
}

func (c *Catalog) Categories(code types.ServiceType) []string {
	st, ok := c.Lookup(code)
	if !ok {
		return nil
	}
	return slices.Clone(st.Categories)
}

func (c *Catalog) Valid(code types.ServiceType) bool {
	_, ok := c.byCode[code]
	return ok
}

// HasCategory reports whether category belongs to code's closed list.
func (c *Catalog) HasCategory(code types.ServiceType, category string) bool {
	st, ok := c.Lookup(code)
	if !ok {
		return false
	}
	return slices.Contains(st.Categories, category)
}

// ParseServiceType matches s against catalog codes case-insensitively.
func (c *Catalog) ParseServiceType(s string) (types.ServiceType, bool) {
	s = strings.TrimSpace(s)
	for _, st := range c.ServiceTypes {
		if strings.EqualFold(string(st.Code), s) {
			return st.Code, true
		}
	}
	return "", false
}

// Legend is the one-line key of every service type used in report footers.
func (c *Catalog) Legend() string {
	parts := make([]string, 0, len(c.ServiceTypes))
	for _, st := range c.ServiceTypes {
		parts = append(parts, st.Label())
	}
	return strings.Join(parts, " | ")
}
