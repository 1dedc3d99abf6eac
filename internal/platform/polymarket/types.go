package polymarket

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/marketdash/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// defaultProbability is reported when a market carries no outcome prices.
const defaultProbability = 50

// stringList unmarshals from a JSON array of strings or numbers, or from a
// string holding such an array. The Gamma API sends outcomes and prices as
// JSON-encoded strings (e.g. "[\"0.65\",\"0.35\"]") on some endpoints and as
// plain arrays on others. Anything else decodes as an empty list so one odd
// field never discards the whole record.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = nil
		return nil
	}
	var encoded string
	if err := json.Unmarshal(data, &encoded); err == nil {
		encoded = strings.TrimSpace(encoded)
		if encoded == "" {
			*l = nil
			return nil
		}
		data = []byte(encoded)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = nil
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}
		out = append(out, string(r))
	}
	*l = out
	return nil
}

// flexString unmarshals from a JSON string or number. Volume and liquidity
// arrive as numeric strings but occasionally as bare numbers. Other JSON
// types decode as the empty string.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		*f = ""
		return nil
	}
	*f = flexString(n.String())
	return nil
}

// APIMarket represents a market as returned by the Polymarket Gamma API. The
// snake_case fields are the documented names; the camelCase aliases are what
// the live API sends for the same values.
type APIMarket struct {
	ConditionID      string     `json:"condition_id"`
	ConditionIDAlias string     `json:"conditionId"`
	Question         string     `json:"question"`
	Description      string     `json:"description"`
	OutcomePrices    stringList `json:"outcome_prices"`
	OutcomePricesAlt stringList `json:"outcomePrices"`
	Outcomes         stringList `json:"outcomes"`
	Volume           flexString `json:"volume"`
	Liquidity        flexString `json:"liquidity"`
	GameStartTime    string     `json:"game_start_time"`
	EndDateISO       string     `json:"end_date_iso"`
	EndDateISOAlias  string     `json:"endDateIso"`
	Category         string     `json:"category"`
	MarketSlug       string     `json:"market_slug"`
	Slug             string     `json:"slug"`
	Tags             stringList `json:"tags"`
}

func (m *APIMarket) conditionID() string {
	return firstNonEmpty(m.ConditionID, m.ConditionIDAlias)
}

func (m *APIMarket) outcomePrices() []string {
	if len(m.OutcomePrices) > 0 {
		return m.OutcomePrices
	}
	return m.OutcomePricesAlt
}

func (m *APIMarket) endDate() string {
	return firstNonEmpty(m.EndDateISO, m.EndDateISOAlias)
}

func (m *APIMarket) slug() string {
	return firstNonEmpty(m.MarketSlug, m.Slug)
}

// ToDomainMarket converts a Gamma APIMarket to a domain.Market. eventURLBase
// is the site prefix for market links, e.g. "https://polymarket.com/event".
// Missing or malformed numeric fields become zero; the record is never
// rejected.
func (m *APIMarket) ToDomainMarket(eventURLBase string) domain.Market {
	liquidity := parseDecimal(string(m.Liquidity)).InexactFloat64()

	dm := domain.Market{
		ID:          domain.PolymarketIDPrefix + m.conditionID(),
		Question:    m.Question,
		Description: m.Description,
		Probability: yesProbability(m.outcomePrices()),
		Volume:      parseDecimal(string(m.Volume)).InexactFloat64(),
		Liquidity:   &liquidity,
		Category:    m.Category,
		Source:      domain.SourcePolymarket,
		Outcomes:    []string(m.Outcomes),
		Tags:        []string(m.Tags),
	}

	// Timestamps
	end := m.endDate()
	dm.CreatedTime = parseISOMillis(firstNonEmpty(m.GameStartTime, end))
	if end != "" {
		dm.CloseTime = parseISOMillis(end)
	}

	if slug := m.slug(); slug != "" {
		dm.URL = strings.TrimRight(eventURLBase, "/") + "/" + slug
	}

	return dm
}

// yesProbability returns the first outcome price as a percentage. Markets
// without prices are reported at even odds.
func yesProbability(prices []string) float64 {
	if len(prices) == 0 {
		return defaultProbability
	}
	return parseDecimal(prices[0]).Mul(hundred).InexactFloat64()
}

// parseDecimal parses a numeric string, returning zero for empty or invalid
// input.
func parseDecimal(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// isoLayouts are the timestamp shapes seen in Gamma responses, most specific
// first. Zone-less values are read as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z07",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseISOMillis converts an ISO-8601 timestamp to epoch milliseconds, or nil
// when s is empty or unparseable.
func parseISOMillis(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ms := t.UnixMilli()
			return &ms
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
