// Package relay adapts third-party CORS relay services. Each adapter
// knows one relay's URL-rewriting convention and response envelope.
package relay

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"
)

// minBodyBytes guards against relays returning truncated or placeholder
// bodies that would otherwise parse as empty documents.
const minBodyBytes = 32

// Unwrap failure modes.
var (
	ErrBodyTooShort = errors.New("relay body below minimum length")
	ErrBadEnvelope  = errors.New("relay envelope not parseable")
)

// Adapter rewrites a target URL through one relay and unwraps that
// relay's envelope. Adapters are stateless and interchangeable.
type Adapter interface {
	Name() string
	BuildURL(target string) string
	Unwrap(body []byte) ([]byte, error)
}

// DefaultSet returns the relay adapters in their declared chain order.
func DefaultSet() []Adapter {
	return []Adapter{
		AllOrigins{},
		AllOriginsRaw{},
		CorsProxy{},
		CodeTabs{},
	}
}

// AllOrigins wraps the payload in a JSON envelope whose contents field
// holds the target body as a string, requiring a second decode pass.
type AllOrigins struct{}

// Name identifies the adapter in diagnostics.
func (AllOrigins) Name() string { return "allorigins" }

// BuildURL embeds the target in the relay's query string.
func (AllOrigins) BuildURL(target string) string {
	return "https://api.allorigins.win/get?url=" + url.QueryEscape(target)
}

// Unwrap extracts the contents field from the envelope.
func (AllOrigins) Unwrap(body []byte) ([]byte, error) {
	if len(body) < minBodyBytes {
		return nil, ErrBodyTooShort
	}
	if !gjson.ValidBytes(body) {
		return nil, ErrBadEnvelope
	}
	contents := gjson.GetBytes(body, "contents")
	if !contents.Exists() || contents.String() == "" {
		return nil, fmt.Errorf("%w: missing contents field", ErrBadEnvelope)
	}
	return []byte(contents.String()), nil
}

// AllOriginsRaw proxies the body through untouched.
type AllOriginsRaw struct{}

// Name identifies the adapter in diagnostics.
func (AllOriginsRaw) Name() string { return "allorigins-raw" }

// BuildURL embeds the target in the relay's query string.
func (AllOriginsRaw) BuildURL(target string) string {
	return "https://api.allorigins.win/raw?url=" + url.QueryEscape(target)
}

// Unwrap validates minimum length; the body is already raw.
func (AllOriginsRaw) Unwrap(body []byte) ([]byte, error) {
	return passthrough(body)
}

// CorsProxy proxies the body through untouched.
type CorsProxy struct{}

// Name identifies the adapter in diagnostics.
func (CorsProxy) Name() string { return "corsproxy" }

// BuildURL embeds the target in the relay's query string.
func (CorsProxy) BuildURL(target string) string {
	return "https://corsproxy.io/?url=" + url.QueryEscape(target)
}

// Unwrap validates minimum length; the body is already raw.
func (CorsProxy) Unwrap(body []byte) ([]byte, error) {
	return passthrough(body)
}

// CodeTabs proxies the body through untouched.
type CodeTabs struct{}

// Name identifies the adapter in diagnostics.
func (CodeTabs) Name() string { return "codetabs" }

// BuildURL embeds the target in the relay's query string.
func (CodeTabs) BuildURL(target string) string {
	return "https://api.codetabs.com/v1/proxy?quest=" + url.QueryEscape(target)
}

// Unwrap validates minimum length; the body is already raw.
func (CodeTabs) Unwrap(body []byte) ([]byte, error) {
	return passthrough(body)
}

func passthrough(body []byte) ([]byte, error) {
	if len(body) < minBodyBytes {
		return nil, ErrBodyTooShort
	}
	return body, nil
}
