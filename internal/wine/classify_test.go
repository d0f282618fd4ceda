package wine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyType(t *testing.T) {
	t.Parallel()

	require.Equal(t, "rouge", ClassifyType(1))
	require.Equal(t, "blanc", ClassifyType(2))
	require.Equal(t, "petillant", ClassifyType(3))
	require.Equal(t, "rose", ClassifyType(4))
	require.Equal(t, "rose", ClassifyType(7))
	require.Equal(t, "rouge", ClassifyType(0), "unknown ids fall back to red")
	require.Equal(t, "rouge", ClassifyType(99))
}

func TestResolveRegion_CaseInsensitive(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Bordeaux", ResolveRegion("Bordeaux"))
	require.Equal(t, "Bordeaux", ResolveRegion("BORDEAUX"))
	require.Equal(t, "Bordeaux", ResolveRegion("Haut-Médoc, bordeaux, France"))
}

func TestResolveRegion_KeywordTable(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Burgundy":           "Bourgogne",
		"Côtes du Rhône":     "Rhône",
		"Vallée de la Loire": "Loire",
		"Roussillon":         "Languedoc",
		"Toscana IGT":        "Italie",
		"Rioja Alta":         "Espagne",
		"Napa Valley":        "Autre",
	}
	for input, want := range cases {
		require.Equal(t, want, ResolveRegion(input), "input %q", input)
	}
}

func TestResolveRegion_EmptyIsOther(t *testing.T) {
	t.Parallel()

	require.Equal(t, RegionOther, ResolveRegion(""))
}
