package manifold

import (
	"encoding/json"
	"strings"

	"github.com/alanyoungcy/marketdash/internal/domain"
)

// APIMarket is a market ("contract") as returned by GET /v0/markets.
type APIMarket struct {
	ID              string          `json:"id"`
	Question        string          `json:"question"`
	TextDescription string          `json:"textDescription"`
	Description     json.RawMessage `json:"description"`
	Probability     float64         `json:"probability"`
	Volume          float64         `json:"volume"`
	Volume24Hours   *float64        `json:"volume24Hours"`
	TotalLiquidity  *float64        `json:"totalLiquidity"`
	CreatedTime     *int64          `json:"createdTime"`
	CloseTime       *int64          `json:"closeTime"`
	ResolutionTime  *int64          `json:"resolutionTime"`
	Resolution      string          `json:"resolution"`
	URL             string          `json:"url"`
}

// ToDomainMarket converts an APIMarket to a domain.Market.
func (m *APIMarket) ToDomainMarket() domain.Market {
	dm := domain.Market{
		ID:           domain.ManifoldIDPrefix + m.ID,
		Question:     m.Question,
		Description:  m.description(),
		Probability:  m.Probability * 100,
		Volume:       m.Volume,
		Liquidity:    m.TotalLiquidity,
		CreatedTime:  m.CreatedTime,
		CloseTime:    m.CloseTime,
		ResolvedTime: m.ResolutionTime,
		Resolution:   m.Resolution,
		Source:       domain.SourceManifold,
		URL:          m.URL,
	}

	// 24h volume is the better activity signal; markets with no recent trades
	// report lifetime volume instead.
	if m.Volume24Hours != nil && *m.Volume24Hours != 0 {
		dm.Volume = *m.Volume24Hours
	}

	return dm
}

// description prefers the plain-text rendering. The description field is
// either a string or a rich-text document whose text nodes are joined.
func (m *APIMarket) description() string {
	if m.TextDescription != "" {
		return m.TextDescription
	}
	if len(m.Description) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.Description, &s); err == nil {
		return s
	}
	var doc richNode
	if err := json.Unmarshal(m.Description, &doc); err != nil {
		return ""
	}
	var b strings.Builder
	doc.writeText(&b)
	return strings.TrimSpace(b.String())
}

// richNode is one node of a rich-text document.
type richNode struct {
	Type    string     `json:"type"`
	Text    string     `json:"text"`
	Content []richNode `json:"content"`
}

var blockTypes = map[string]bool{
	"paragraph":  true,
	"heading":    true,
	"listItem":   true,
	"blockquote": true,
	"codeBlock":  true,
}

func (n *richNode) writeText(b *strings.Builder) {
	if n.Type == "text" {
		b.WriteString(n.Text)
	}
	if n.Type == "hardBreak" {
		b.WriteByte('\n')
	}
	for i := range n.Content {
		n.Content[i].writeText(b)
	}
	if blockTypes[n.Type] {
		b.WriteByte('\n')
	}
}
