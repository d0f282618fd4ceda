// Package strategy implements the ordered acquisition chain: independent
// ways of obtaining upstream data, tried in sequence until one yields
// usable records.
package strategy

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/macave/vivino-gateway/internal/wine"
)

// Query is one normalized search request.
type Query struct {
	Text    string
	Country string
}

// Strategy is one self-contained method of obtaining upstream records.
// Implementations classify their failures via wine.StrategyError; an
// empty record slice with a nil error is a valid "found nothing" result.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]wine.Record, error)
}

// Upstream locates the catalog API and search page and carries the fixed
// query parameters every strategy shares.
type Upstream struct {
	APIEndpoint   string
	SiteURL       string
	CountryCode   string
	CurrencyCode  string
	Language      string
	PriceRangeMin int
	PriceRangeMax int
}

// APIURL builds the explore API URL for a query. The query's country
// overrides the configured default when present.
func (u Upstream) APIURL(q Query) string {
	country := q.Country
	if country == "" {
		country = u.CountryCode
	}
	vals := url.Values{}
	vals.Set("q", q.Text)
	vals.Set("country_code", country)
	vals.Set("currency_code", u.CurrencyCode)
	vals.Set("language", u.Language)
	vals.Set("page", "1")
	vals.Set("price_range_min", strconv.Itoa(u.PriceRangeMin))
	vals.Set("price_range_max", strconv.Itoa(u.PriceRangeMax))
	return u.APIEndpoint + "?" + vals.Encode()
}

// SearchPageURL builds the HTML search page URL for a query.
func (u Upstream) SearchPageURL(q Query) string {
	return strings.TrimRight(u.SiteURL, "/") + "/search/wines?q=" + url.QueryEscape(q.Text)
}

// Profile carries the browser-like headers plain-client strategies send.
type Profile struct {
	UserAgent      string
	AcceptLanguage string
}
