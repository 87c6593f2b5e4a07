package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/adam-setup/server/internal/agent/model"
)

// ToolSearchKnowledge is the DV360 knowledge base lookup bound to the
// support agent.
const ToolSearchKnowledge = "search_dsp_knowledge"

const maxKnowledgeResults = 3

// Article is one DV360 how-to entry in the embedded knowledge base.
type Article struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Keywords []string `json:"-"`
	Body     string   `json:"body"`
}

type SearchKnowledgeOutput struct {
	Articles []Article `json:"articles"`
	Total    int       `json:"total"`
}

// SearchKnowledgeTool builds the knowledge base search tool.
func SearchKnowledgeTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSearchKnowledge,
			Desc: "Search the internal DV360 knowledge base for setup guides and concept explanations. Query with short keywords such as 'floodlight setup', 'frequency cap' or 'deal troubleshooting'. Returns the most relevant articles with their full text.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "Keyword query describing the DV360 topic.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *model.SupportArgs) (*SearchKnowledgeOutput, error) {
			if strings.TrimSpace(in.Query) == "" {
				return nil, fmt.Errorf("query is required")
			}
			matches := searchArticles(in.Query, maxKnowledgeResults)
			return &SearchKnowledgeOutput{Articles: matches, Total: len(matches)}, nil
		},
	)
}

// searchArticles ranks the knowledge base by keyword overlap with the
// query. Title and keyword hits outweigh body hits.
func searchArticles(query string, limit int) []Article {
	terms := strings.Fields(strings.ToLower(query))
	type scored struct {
		article Article
		score   int
	}
	var ranked []scored
	for _, a := range knowledgeBase {
		title := strings.ToLower(a.Title)
		body := strings.ToLower(a.Body)
		score := 0
		for _, term := range terms {
			for _, kw := range a.Keywords {
				if strings.Contains(kw, term) || strings.Contains(term, kw) {
					score += 3
				}
			}
			if strings.Contains(title, term) {
				score += 2
			}
			if strings.Contains(body, term) {
				score++
			}
		}
		if score > 0 {
			ranked = append(ranked, scored{article: a, score: score})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]Article, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, s.article)
	}
	return out
}

var knowledgeBase = []Article{
	{
		ID:       "kb-001",
		Title:    "Setting up a Floodlight activity",
		Keywords: []string{"floodlight", "conversion", "tracking", "tag"},
		Body: "Floodlight activities record conversions for DV360 reporting and bidding. " +
			"In Campaign Manager 360 go to Advertiser > Floodlight > Activities and create an activity with a counting method " +
			"(Standard counts every conversion, Unique counts one per user per day). Deploy the generated global site tag plus " +
			"event snippet on the conversion page, then link the CM360 advertiser to the DV360 advertiser so the activity is " +
			"selectable as a conversion source. Allow up to 24 hours before conversions appear in DV360 reporting.",
	},
	{
		ID:       "kb-002",
		Title:    "Frequency caps at campaign, insertion order and line item level",
		Keywords: []string{"frequency", "cap", "exposures", "impressions"},
		Body: "Frequency caps limit how often one user sees ads. They can be set at campaign, insertion order and line item " +
			"level; the strictest applicable cap wins. Configure the limit as X exposures per period (minutes to lifetime) in the " +
			"entity's settings panel. Very high caps (above roughly 20 per period) rarely reflect intent and usually indicate a " +
			"misconfiguration. TrueView line items use their own frequency fields and do not accept an exposure amount.",
	},
	{
		ID:       "kb-003",
		Title:    "Brand safety controls and digital content labels",
		Keywords: []string{"brand", "safety", "content", "labels", "dcl", "exclusion"},
		Body: "DV360 brand safety has three layers: digital content label exclusions (DL-MA and unrated are the common baseline), " +
			"sensitive category exclusions via the brand safety custom settings, and app or URL exclusion lists applied as channels. " +
			"Configure them at advertiser level so every new line item inherits them, and override per line item only when a " +
			"campaign genuinely needs looser settings.",
	},
	{
		ID:       "kb-004",
		Title:    "Choosing a bid strategy and KPI",
		Keywords: []string{"bid", "strategy", "kpi", "cpa", "cpm", "ctr", "optimization"},
		Body: "Pick the KPI to match the funnel stage: CPM for awareness, CTR or CPC for consideration, CPA for conversion goals. " +
			"Automated bidding (maximize or beat a goal) needs enough conversion volume to learn; use fixed bids for small or " +
			"short-lived line items. When insertion order optimization is enabled, line items inherit the IO bid strategy and " +
			"their own strategy settings are ignored.",
	},
	{
		ID:       "kb-005",
		Title:    "Deals and inventory: public auction, private deals and premium buys",
		Keywords: []string{"inventory", "deal", "auction", "private", "pmp", "guaranteed"},
		Body: "Inventory sources range from open auction to private marketplace deals and programmatic guaranteed buys. " +
			"Attach negotiated deals to a private deal group and target the group from the line item. Premium insertion orders " +
			"should not run on public inventory; when a deal stops serving, check the deal status in the marketplace, the " +
			"line item's inventory source targeting and whether the deal's floor price exceeds the bid.",
	},
	{
		ID:       "kb-006",
		Title:    "Viewability targeting for open inventory",
		Keywords: []string{"viewability", "active view", "public", "open"},
		Body: "Active View viewability targeting restricts delivery to impressions predicted to meet a viewability threshold. " +
			"On open auction inventory a threshold of at least 40 percent is the usual floor. The setting 'All impressions' " +
			"disables the filter entirely, which is acceptable for deal-based buys but not recommended for public inventory.",
	},
	{
		ID:       "kb-007",
		Title:    "Partner revenue model and markup",
		Keywords: []string{"markup", "revenue", "partner", "fee", "margin"},
		Body: "The partner revenue model defines how partner cost is derived from media cost: total media cost markup, " +
			"media cost markup or CPM fee. The markup amount is set per line item and should match the contract agreed with " +
			"the advertiser; inconsistent markup across line items of one partner is a common billing error found in audits.",
	},
	{
		ID:       "kb-008",
		Title:    "Audience targeting: first and third party lists",
		Keywords: []string{"audience", "remarketing", "first-party", "third-party", "list"},
		Body: "Audience lists are attached under Targeting > Audience on the line item. First party lists come from Floodlight " +
			"activity or tag based membership and need an active tag to refill. Combined audiences compose lists with AND, OR " +
			"and NOT logic. List size must exceed the minimum threshold before it can serve; small lists silently deliver nothing.",
	},
}
