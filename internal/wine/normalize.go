package wine

import (
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

// maxMatches caps how many upstream matches are normalized per response.
const maxMatches = 10

const siteBaseURL = "https://www.vivino.com"

// FromAPIPayload converts an upstream explore API payload into canonical
// records. Every nested lookup is treated as possibly absent; a payload
// with no matches list yields an empty slice, never an error.
func FromAPIPayload(body []byte) []Record {
	if !gjson.ValidBytes(body) {
		return nil
	}
	matches := gjson.GetBytes(body, "explore_vintage.matches")
	if !matches.IsArray() {
		return nil
	}
	var out []Record
	matches.ForEach(func(_, match gjson.Result) bool {
		if len(out) >= maxMatches {
			return false
		}
		if rec, ok := recordFromMatch(match); ok {
			out = append(out, rec)
		}
		return true
	})
	return out
}

func recordFromMatch(match gjson.Result) (Record, bool) {
	vintage := match.Get("vintage")
	w := vintage.Get("wine")
	name := strings.TrimSpace(w.Get("name").String())
	if name == "" {
		return Record{}, false
	}

	regionRaw := w.Get("region.name").String()
	if regionRaw == "" {
		regionRaw = w.Get("region.country.name").String()
	}

	rec := Record{
		Name:         name,
		Winery:       w.Get("winery.name").String(),
		WineType:     ClassifyType(w.Get("type_id").Int()),
		Region:       ResolveRegion(regionRaw),
		RegionRaw:    regionRaw,
		RatingsCount: int(vintage.Get("statistics.ratings_count").Int()),
	}

	if year := int(vintage.Get("year").Int()); year > 0 {
		rec.VintageYear = &year
	}
	if rating := roundRating(vintage.Get("statistics.ratings_average").Float()); rating > 0 {
		rec.Rating = &rating
	}
	if amount := match.Get("price.amount").Float(); amount > 0 {
		rec.Price = FormatPrice(amount)
	}
	if img := AbsoluteImageURL(vintage.Get("image.location").String()); img != "" {
		rec.ImageURL = &img
	}
	if grapes := joinGrapes(w.Get("grapes")); grapes != "" {
		rec.Grapes = &grapes
	}
	if desc := w.Get("description").String(); desc != "" {
		rec.Description = &desc
	}
	if slug := w.Get("seo_name").String(); slug != "" {
		u := siteBaseURL + "/" + strings.TrimPrefix(slug, "/")
		rec.ExternalURL = &u
	}
	return rec, true
}

func roundRating(v float64) float64 {
	return math.Round(v*10) / 10
}

// FormatPrice renders an amount as integer currency, e.g. 350 => "350€".
func FormatPrice(amount float64) *string {
	s := fmt.Sprintf("%.0f€", amount)
	return &s
}

// AbsoluteImageURL rewrites protocol-relative upstream image locations to
// absolute HTTPS. Empty input stays empty.
func AbsoluteImageURL(location string) string {
	if location == "" || strings.HasPrefix(location, "http") {
		return location
	}
	if strings.HasPrefix(location, "//") {
		return "https:" + location
	}
	return "https://" + strings.TrimPrefix(location, "/")
}

func joinGrapes(grapes gjson.Result) string {
	var names []string
	grapes.ForEach(func(_, g gjson.Result) bool {
		if name := g.Get("name").String(); name != "" {
			names = append(names, name)
		}
		return true
	})
	return strings.Join(names, ", ")
}
