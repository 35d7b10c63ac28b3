package catalog

import (
	"testing"

	"defectlog/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesServiceTypeConstants(t *testing.T) {
	c := Default()
	assert.Equal(t, types.ServiceTypes, c.Codes())
}

func TestDefault_CategoryCounts(t *testing.T) {
	c := Default()

	want := map[types.ServiceType]int{
		types.ServiceTypePD:      7,
		types.ServiceTypeFS:      6,
		types.ServiceTypeMVAC:    9,
		types.ServiceTypeEL:      5,
		types.ServiceTypeBonding: 4,
	}
	for code, n := range want {
		assert.Len(t, c.Categories(code), n, "categories for %s", code)
	}
}

func TestHasCategory(t *testing.T) {
	c := Default()

	assert.True(t, c.HasCategory(types.ServiceTypePD, "Hydraulic test of water pipes fail"))
	assert.False(t, c.HasCategory(types.ServiceTypeEL, "Hydraulic test of water pipes fail"))
	assert.False(t, c.HasCategory("XX", "Hydraulic test of water pipes fail"))
	// shared text across trades is valid for each
	assert.True(t, c.HasCategory(types.ServiceTypeFS, "Wall openings sealing up improper/ poor workmanship"))
	assert.True(t, c.HasCategory(types.ServiceTypeMVAC, "Wall openings sealing up improper/ poor workmanship"))
}

func TestNameAndLabel(t *testing.T) {
	c := Default()

	assert.Equal(t, "Plumbing & Drainage", c.Name(types.ServiceTypePD))
	assert.Equal(t, "ZZ", c.Name("ZZ"))

	mvac, ok := c.Lookup(types.ServiceTypeMVAC)
	require.True(t, ok)
	assert.Equal(t, "MVAC (Mechanical Ventilation & Air Conditioning)", mvac.Label())
	assert.Contains(t, c.Legend(), "Bonding (Earthing Test)")
}

func TestParseServiceType(t *testing.T) {
	c := Default()

	st, ok := c.ParseServiceType(" bonding ")
	require.True(t, ok)
	assert.Equal(t, types.ServiceTypeBonding, st)

	_, ok = c.ParseServiceType("plumbing")
	assert.False(t, ok)
}

func TestLoad_RejectsDuplicates(t *testing.T) {
	_, err := Load([]byte(`
service_types:
  - code: PD
    name: a
    categories: [x]
  - code: PD
    name: b
    categories: [y]
`))
	assert.Error(t, err)
}

func TestCategories_ReturnsCopy(t *testing.T) {
	c := Default()
	cats := c.Categories(types.ServiceTypeEL)
	cats[0] = "mutated"
	assert.NotEqual(t, "mutated", c.Categories(types.ServiceTypeEL)[0])
}
