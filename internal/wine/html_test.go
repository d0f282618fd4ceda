package wine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromHTMLDocument_HydrationState(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<script>window.__PRELOADED_STATE__ = ` + margauxPayload + `;</script>
	</body></html>`
	records := FromHTMLDocument([]byte(html))
	require.Len(t, records, 1)
	require.Equal(t, "Château Margaux", records[0].Name)
	require.Equal(t, "Bordeaux", records[0].Region)
}

func TestFromHTMLDocument_WineCards(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<div class="wine-card__content">
			<div class="wine-card__name"><a href="/w/1234">Château Margaux 2015</a></div>
			<div class="wine-card__winery">Château Margaux</div>
			<div class="average__number">4,6</div>
			<div class="wine-price-value">350€</div>
			<figure class="wine-card__image" style="background-image: url(//images.vivino.com/margaux.png)"></figure>
		</div>
		<div class="wine-card__content">
			<div class="wine-card__name"><a href="/w/5678">Pavillon Rouge</a></div>
		</div>
	</body></html>`

	records := FromHTMLDocument([]byte(html))
	require.Len(t, records, 2)

	rec := records[0]
	require.Equal(t, "Château Margaux 2015", rec.Name)
	require.Equal(t, "Château Margaux", rec.Winery)
	require.NotNil(t, rec.Rating)
	require.Equal(t, 4.6, *rec.Rating)
	require.NotNil(t, rec.Price)
	require.Equal(t, "350€", *rec.Price)
	require.NotNil(t, rec.ImageURL)
	require.Equal(t, "https://images.vivino.com/margaux.png", *rec.ImageURL)
	require.NotNil(t, rec.ExternalURL)
	require.Equal(t, "https://www.vivino.com/w/1234", *rec.ExternalURL)

	require.Equal(t, "Pavillon Rouge", records[1].Name)
	require.Nil(t, records[1].Rating)
}

func TestFromHTMLDocument_ScriptFragments(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<div>nothing structured here</div>
		<script>
			var seed = [{"name": "Barolo Riserva", "winery": "Conterno", "wine_id": 42, "rating": 4.3}];
			var junk = {"name": "not a wine"};
			var broken = {"name": "Oops", "wine_id": ;
		</script>
	</body></html>`

	records := FromHTMLDocument([]byte(html))
	require.Len(t, records, 1)
	require.Equal(t, "Barolo Riserva", records[0].Name)
	require.Equal(t, "Conterno", records[0].Winery)
	require.NotNil(t, records[0].Rating)
	require.Equal(t, 4.3, *records[0].Rating)
}

func TestFromHTMLDocument_EmptyDocument(t *testing.T) {
	t.Parallel()

	require.Empty(t, FromHTMLDocument([]byte("")))
	require.Empty(t, FromHTMLDocument([]byte("<html><body><p>rien</p></body></html>")))
}

func TestExtractJSONObject(t *testing.T) {
	t.Parallel()

	blob := extractJSONObject([]byte(` = {"a": {"b": "close} brace in string"}, "c": 1}; rest`))
	require.Equal(t, `{"a": {"b": "close} brace in string"}, "c": 1}`, string(blob))

	require.Nil(t, extractJSONObject([]byte("no object here")))
	require.Nil(t, extractJSONObject([]byte(`{"unterminated": `)))
}
