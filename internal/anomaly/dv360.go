package anomaly

// kpiSpec pairs a KPI with the bid strategies it can run under.
type kpiSpec struct {
	Name                    string
	Description             string
	CompatibleBidStrategies []string
}

// objectiveSpec is one DV360 campaign objective with its compatible KPIs
// and line item types.
type objectiveSpec struct {
	Objective              string
	Description            string
	KPIs                   []kpiSpec
	SupportedLineItemTypes []string
}

const customValueCost = "custom impr. value/cost"

// dv360CampaignMapping encodes the platform compatibility rules between
// funnel objectives, KPIs and bid strategies used by the optimization
// coherence check.
var dv360CampaignMapping = map[string]objectiveSpec{
	"brand_awareness": {
		Objective:   "Brand awareness",
		Description: "Increase brand visibility and reach a broad audience",
		KPIs: []kpiSpec{
			{Name: "CPCL", Description: "Cost Per Completed Listen",
				CompatibleBidStrategies: []string{"AV_VIEWED", customValueCost}},
			{Name: "CPCV", Description: "Cost Per Completed View",
				CompatibleBidStrategies: []string{"AV_VIEWED", customValueCost}},
			{Name: "CPIAVC", Description: "Cost Per In-View Audible and Visible on Completion",
				CompatibleBidStrategies: []string{"AV_VIEWED", "IVO_TEN", customValueCost}},
			{Name: "CPM", Description: "Cost Per Mille (Thousand Impressions)",
				CompatibleBidStrategies: []string{"CIVA", customValueCost}},
			{Name: "CPV", Description: "Cost Per View",
				CompatibleBidStrategies: []string{"AV_VIEWED", customValueCost}},
			{Name: "Audio CR", Description: "Audio Completion Rate",
				CompatibleBidStrategies: []string{"AV_VIEWED", customValueCost}},
			{Name: "Video CR", Description: "Video Completion Rate",
				CompatibleBidStrategies: []string{"AV_VIEWED", customValueCost}},
			{Name: "TOS10", Description: "Time On Screen 10 seconds",
				CompatibleBidStrategies: []string{"IVO_TEN", customValueCost}},
			{Name: "VCPM", Description: "Viewable Cost Per Mille",
				CompatibleBidStrategies: []string{"CIVA", customValueCost}},
			{Name: "VTR", Description: "View Through Rate",
				CompatibleBidStrategies: []string{"CIVA"}},
			{Name: "Custom impression value / cost", Description: "Value to Cost Ratio",
				CompatibleBidStrategies: []string{customValueCost}},
			{Name: "% Viewability", Description: "Viewability Percentage",
				CompatibleBidStrategies: []string{"CIVA", "IVO_TEN"}},
		},
		SupportedLineItemTypes: []string{
			"Display", "Video", "Mobile app install", "Ads in mobile apps",
			"YouTube & partners video", "YouTube & partners audio",
		},
	},
	"clicks": {
		Objective:   "Clicks",
		Description: "Maximize the number of clicks to your website or landing page",
		KPIs: []kpiSpec{
			{Name: "CPC", Description: "Cost Per Click",
				CompatibleBidStrategies: []string{"CPC", customValueCost}},
			{Name: "CTR", Description: "Click Through Rate",
				CompatibleBidStrategies: []string{"CPC"}},
			{Name: "Custom impression value / cost", Description: "Value to Cost Ratio",
				CompatibleBidStrategies: []string{customValueCost}},
		},
		SupportedLineItemTypes: []string{
			"Display", "Video", "Mobile app install", "Ads in mobile apps", "Demand Gen",
		},
	},
	"conversions": {
		Objective:   "Conversions",
		Description: "Drive user actions such as sign-ups, sales, downloads etc.",
		KPIs: []kpiSpec{
			{Name: "CPA", Description: "Cost Per Acquisition/Action",
				CompatibleBidStrategies: []string{"CPA", customValueCost}},
			{Name: "Click CVR", Description: "Click Conversion Rate",
				CompatibleBidStrategies: []string{"CPA"}},
			{Name: "Impression CVR", Description: "Impression Conversion Rate",
				CompatibleBidStrategies: []string{"CPA"}},
			{Name: "Custom impression value / cost", Description: "Value to Cost Ratio",
				CompatibleBidStrategies: []string{customValueCost}},
		},
		SupportedLineItemTypes: []string{
			"Display", "Video", "Audio", "Mobile app install", "Ads in mobile apps",
			"YouTube & partners video", "Demand Gen",
		},
	},
}
