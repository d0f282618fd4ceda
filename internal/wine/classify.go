package wine

import "strings"

// RegionOther is the sentinel returned when no keyword matches.
const RegionOther = "Autre"

var wineTypes = map[int64]string{
	1: "rouge",
	2: "blanc",
	3: "petillant",
	4: "rose",
	7: "rose",
}

// ClassifyType maps an upstream type id to a display wine type.
// Unknown ids fall back to red, the dominant category in the catalog.
func ClassifyType(id int64) string {
	if t, ok := wineTypes[id]; ok {
		return t
	}
	return wineTypes[1]
}

// regionKeywords is ordered: the first substring match wins, so more
// specific names must precede the broader ones they contain.
var regionKeywords = []struct {
	keyword string
	region  string
}{
	{"bordeaux", "Bordeaux"},
	{"bourgogne", "Bourgogne"},
	{"burgundy", "Bourgogne"},
	{"rhône", "Rhône"},
	{"rhone", "Rhône"},
	{"loire", "Loire"},
	{"alsace", "Alsace"},
	{"champagne", "Champagne"},
	{"languedoc", "Languedoc"},
	{"roussillon", "Languedoc"},
	{"provence", "Provence"},
	{"beaujolais", "Beaujolais"},
	{"sud-ouest", "Sud-Ouest"},
	{"south west", "Sud-Ouest"},
	{"jura", "Jura"},
	{"savoie", "Savoie"},
	{"corse", "Corse"},
	{"corsica", "Corse"},
	{"toscana", "Italie"},
	{"tuscany", "Italie"},
	{"piemonte", "Italie"},
	{"piedmont", "Italie"},
	{"veneto", "Italie"},
	{"sicilia", "Italie"},
	{"campania", "Italie"},
	{"rioja", "Espagne"},
	{"ribera", "Espagne"},
	{"priorat", "Espagne"},
	{"castilla", "Espagne"},
	{"navarra", "Espagne"},
}

// ResolveRegion maps a raw upstream region string to a display region via
// case-insensitive substring containment. Empty or unmatched input
// resolves to the RegionOther sentinel.
func ResolveRegion(raw string) string {
	if raw == "" {
		return RegionOther
	}
	lower := strings.ToLower(raw)
	for _, entry := range regionKeywords {
		if strings.Contains(lower, entry.keyword) {
			return entry.region
		}
	}
	return RegionOther
}
