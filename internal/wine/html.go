package wine

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

// Hydration state blobs the site has embedded over time. The markup
// changes between deployments, so every known marker is probed.
var hydrationMarkers = []string{
	"window.__PRELOADED_STATE__",
	"__NEXT_DATA__",
	"window.vivinoState",
}

// cardSelectors lists known wine-card markups, newest first. The first
// selector matching at least one element wins.
var cardSelectors = []cardSelector{
	{
		card:   "div.wine-card__content",
		name:   ".wine-card__name a, .wine-card__name",
		winery: ".wine-card__winery, .wine-card__region a",
		rating: ".average__number",
		price:  ".wine-price-value, .price",
		image:  "figure.wine-card__image",
		link:   "a[href*='/w/'], .wine-card__name a",
	},
	{
		card:   "div[data-vintage-id]",
		name:   "[class*='wineInfoVintage'] a, [class*='vintageTitle']",
		winery: "[class*='wineInfoLocation']",
		rating: "[class*='averageValue']",
		price:  "[class*='addToCart'] [class*='price'], [class*='amount']",
		image:  "img",
		link:   "a[href*='/w/']",
	},
	{
		card:   ".search-results-list .card",
		name:   ".card__title a, .card__title",
		winery: ".card__subtitle",
		rating: ".rating__average",
		price:  ".price",
		image:  "img",
		link:   "a",
	},
}

type cardSelector struct {
	card   string
	name   string
	winery string
	rating string
	price  string
	image  string
	link   string
}

// scriptFragmentRe matches flat JSON-like objects inside inline scripts.
// Used only as the last parsing resort.
var scriptFragmentRe = regexp.MustCompile(`\{[^{}]*"name"\s*:\s*"[^"]+"[^{}]*\}`)

// FromHTMLDocument extracts canonical records from an upstream search
// page. Fallbacks are purely additive: hydration state first, then card
// markup, then raw script fragments. An empty result is valid.
func FromHTMLDocument(body []byte) []Record {
	if recs := fromHydrationState(body); len(recs) > 0 {
		return recs
	}
	if recs := fromCards(body); len(recs) > 0 {
		return recs
	}
	return fromScriptFragments(body)
}

func fromHydrationState(body []byte) []Record {
	for _, marker := range hydrationMarkers {
		idx := bytes.Index(body, []byte(marker))
		if idx < 0 {
			continue
		}
		blob := extractJSONObject(body[idx+len(marker):])
		if blob == nil || !gjson.ValidBytes(blob) {
			continue
		}
		if recs := FromAPIPayload(blob); len(recs) > 0 {
			return recs
		}
	}
	return nil
}

// extractJSONObject returns the first balanced top-level JSON object in
// data, tracking string literals so braces inside values do not count.
func extractJSONObject(data []byte) []byte {
	start := bytes.IndexByte(data, '{')
	if start < 0 {
		return nil
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(data); i++ {
		c := data[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = inString
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return data[start : i+1]
			}
		}
	}
	return nil
}

func fromCards(body []byte) []Record {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	for _, sel := range cardSelectors {
		cards := doc.Find(sel.card)
		if cards.Length() == 0 {
			continue
		}
		var out []Record
		cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
			if rec, ok := recordFromCard(card, sel); ok {
				out = append(out, rec)
			}
			return len(out) < maxMatches
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func recordFromCard(card *goquery.Selection, sel cardSelector) (Record, bool) {
	name := strings.TrimSpace(card.Find(sel.name).First().Text())
	if name == "" {
		return Record{}, false
	}
	rec := Record{
		Name:     name,
		Winery:   strings.TrimSpace(card.Find(sel.winery).First().Text()),
		WineType: ClassifyType(1),
		Region:   RegionOther,
	}
	if rating := parseRatingText(card.Find(sel.rating).First().Text()); rating > 0 {
		rec.Rating = &rating
	}
	if price := strings.TrimSpace(card.Find(sel.price).First().Text()); price != "" {
		rec.Price = &price
	}
	if img := cardImageURL(card.Find(sel.image).First()); img != "" {
		rec.ImageURL = &img
	}
	if href, ok := card.Find(sel.link).First().Attr("href"); ok && href != "" {
		if !strings.HasPrefix(href, "http") {
			href = siteBaseURL + "/" + strings.TrimPrefix(href, "/")
		}
		rec.ExternalURL = &href
	}
	return rec, true
}

func cardImageURL(img *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src", "style"} {
		val, ok := img.Attr(attr)
		if !ok || val == "" {
			continue
		}
		if attr == "style" {
			val = urlFromStyle(val)
			if val == "" {
				continue
			}
		}
		return AbsoluteImageURL(val)
	}
	return ""
}

var styleURLRe = regexp.MustCompile(`url\(['"]?([^'")]+)['"]?\)`)

func urlFromStyle(style string) string {
	m := styleURLRe.FindStringSubmatch(style)
	if m == nil {
		return ""
	}
	return m[1]
}

func parseRatingText(text string) float64 {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || v < 0 || v > 5 {
		return 0
	}
	return roundRating(v)
}

func fromScriptFragments(body []byte) []Record {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	var out []Record
	doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		for _, frag := range scriptFragmentRe.FindAllString(script.Text(), -1) {
			if !strings.Contains(frag, `"wine`) {
				continue
			}
			if !gjson.Valid(frag) {
				continue
			}
			if rec, ok := recordFromFragment(gjson.Parse(frag)); ok {
				out = append(out, rec)
			}
			if len(out) >= maxMatches {
				return false
			}
		}
		return true
	})
	return out
}

func recordFromFragment(frag gjson.Result) (Record, bool) {
	name := strings.TrimSpace(frag.Get("name").String())
	if name == "" {
		return Record{}, false
	}
	rec := Record{
		Name:     name,
		Winery:   frag.Get("winery").String(),
		WineType: ClassifyType(frag.Get("type_id").Int()),
		Region:   ResolveRegion(frag.Get("region").String()),
	}
	rec.RegionRaw = frag.Get("region").String()
	if rating := roundRating(frag.Get("rating").Float()); rating > 0 {
		rec.Rating = &rating
	}
	return rec, true
}
