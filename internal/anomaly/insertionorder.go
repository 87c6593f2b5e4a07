package anomaly

import (
	"fmt"
	"strings"

	"github.com/adam-setup/server/internal/dataset"
)

var (
	awarenessKeywords     = []string{"awareness", "aware", "branding", "reach"}
	considerationKeywords = []string{"consideration", "consider", "clicks", "traffic", "engagement"}
	conversionIOKeywords  = []string{"conversion", "convert", "sales", "acquisition", "performance"}
)

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// checkIONamingKPI validates that the funnel stage implied by the IO
// name matches the configured KPI. Awareness expects CPM (CTR accepted
// for reach plus attention mixes), Consideration expects CTR or a CPC
// proxy, Conversion expects CPA.
func checkIONamingKPI(row dataset.Row, _ *Tables) (bool, string) {
	if row.Empty("Name") {
		return false, ""
	}
	name := strings.ToLower(row.Str("Name"))

	var inferred string
	var expected []string
	switch {
	case containsAny(name, awarenessKeywords):
		inferred, expected = "Awareness", []string{"CPM", "CTR"}
	case containsAny(name, considerationKeywords):
		inferred, expected = "Consideration", []string{"CTR", "CPC"}
	case containsAny(name, conversionIOKeywords):
		inferred, expected = "Conversion", []string{"CPA"}
	default:
		return false, ""
	}

	if row.Empty("Kpi Type") {
		return true, fmt.Sprintf("IO Objective/KPI Mismatch: Name suggests %s but KPI type is missing;", inferred)
	}
	kpiType := row.Str("Kpi Type")

	match := false
	for _, e := range expected {
		if kpiType == e {
			match = true
			break
		}
	}
	if !match {
		return true, fmt.Sprintf("IO Objective/KPI Mismatch: Name suggests %s (expects %s) but KPI is %s;",
			inferred, strings.Join(expected, "/"), kpiType)
	}

	if inferred == "Consideration" && kpiType == "CTR" {
		if v, ok := row.Float("Kpi Value"); ok && (v < 0.2 || v > 0.4) {
			return true, fmt.Sprintf("IO CTR target mismatch: Consideration campaign has CTR target %s%% outside typical range (0.2%%-0.4%%);", formatNum(v))
		}
	}

	return false, ""
}

// kpiObjectiveMapping lists the objective substrings acceptable per KPI.
var kpiObjectiveMapping = map[string][]string{
	"CPM": {"Reach", "Brand awareness and reach", "Viewable impressions", "No Objective"},
	"CTR": {"Click", "Clicks", "Traffic", "Engagement", "No Objective"},
	"CPA": {"Conversion", "Conversions", "Sales", "Lead", "No Objective"},
	"CPC": {"Click", "Clicks", "Traffic", "No Objective"},
}

func checkIOKPIObjective(row dataset.Row, _ *Tables) (bool, string) {
	if row.Empty("Kpi Type") {
		return false, ""
	}
	kpiType := row.Str("Kpi Type")

	if row.Empty("Io Objective") {
		return true, fmt.Sprintf("IO KPI/Objective Mismatch: KPI is %s but IO Objective is not set;", kpiType)
	}
	objective := row.Str("Io Objective")

	acceptable, known := kpiObjectiveMapping[kpiType]
	if !known {
		return false, ""
	}

	objectiveLower := strings.ToLower(objective)
	for _, a := range acceptable {
		if strings.Contains(objectiveLower, strings.ToLower(a)) {
			return false, ""
		}
	}
	if objective == "No Objective" {
		return false, ""
	}
	return true, fmt.Sprintf("IO KPI/Objective Mismatch: KPI is %s but IO Objective is '%s' (expected: %s);",
		kpiType, objective, strings.Join(acceptable, "/"))
}

// checkIOKPIOptimization validates funnel, KPI, bid strategy and line
// item type coherence against the DV360 compatibility rules. It only
// applies when Insertion Order Optimization is enabled and the funnel
// can be parsed from the second segment of the IO name.
func checkIOKPIOptimization(row dataset.Row, tables *Tables) (bool, string) {
	if row.Str("Insertion Order Optimization") != "True" {
		return false, ""
	}

	ioName := row.Str("Name")
	ioKPI := row.Str("Kpi Type")
	bidStrategy := row.Str("Bid Strategy Unit")
	if ioName == "" || ioKPI == "" || bidStrategy == "" {
		return false, ""
	}

	var funnel string
	if parts := strings.Split(ioName, " - "); len(parts) >= 2 {
		funnel = strings.ToLower(strings.TrimSpace(parts[1]))
	}

	var objectiveKey string
	switch {
	case strings.Contains(funnel, "awareness"):
		objectiveKey = "brand_awareness"
	case strings.Contains(funnel, "consideration"):
		objectiveKey = "clicks"
	case strings.Contains(funnel, "conversion"):
		objectiveKey = "conversions"
	}

	spec, ok := dv360CampaignMapping[objectiveKey]
	if !ok {
		return false, ""
	}

	var anomalies []string

	// Objective to KPI compatibility.
	var matched *kpiSpec
	kpiLower := strings.ToLower(ioKPI)
	for i := range spec.KPIs {
		nameLower := strings.ToLower(spec.KPIs[i].Name)
		if strings.Contains(kpiLower, nameLower) || strings.Contains(nameLower, kpiLower) {
			matched = &spec.KPIs[i]
			break
		}
	}
	if matched == nil {
		available := make([]string, len(spec.KPIs))
		for i, k := range spec.KPIs {
			available[i] = k.Name
		}
		anomalies = append(anomalies, fmt.Sprintf(
			"KPI '%s' is not compatible with funnel '%s' (objective: %s). Compatible KPIs: %s;",
			ioKPI, funnel, spec.Objective, strings.Join(available, ", ")))
	}

	// KPI to bid strategy compatibility.
	if matched != nil {
		strategyLower := strings.ToLower(bidStrategy)
		compatible := false
		for _, s := range matched.CompatibleBidStrategies {
			sLower := strings.ToLower(s)
			if strings.Contains(strategyLower, sLower) || strings.Contains(sLower, strategyLower) {
				compatible = true
				break
			}
		}
		if !compatible {
			anomalies = append(anomalies, fmt.Sprintf(
				"Bid strategy '%s' is not compatible with KPI '%s'. Compatible strategies: %s;",
				bidStrategy, ioKPI, strings.Join(matched.CompatibleBidStrategies, ", ")))
		}
	}

	// Line item types under this IO must suit the funnel objective.
	if tables != nil && tables.LineItems != nil && tables.LineItems.HasColumn("Insertion order") && tables.LineItems.HasColumn("Type") {
		var unsupported []string
		for i := 0; i < tables.LineItems.Len(); i++ {
			li := tables.LineItems.Row(i)
			if li.Str("Insertion order") != ioName || li.Empty("Type") {
				continue
			}
			liType := li.Str("Type")
			liTypeLower := strings.ToLower(liType)
			supported := false
			for _, st := range spec.SupportedLineItemTypes {
				stLower := strings.ToLower(st)
				if strings.Contains(liTypeLower, stLower) || strings.Contains(stLower, liTypeLower) {
					supported = true
					break
				}
			}
			if !supported && !containsString(unsupported, liType) {
				unsupported = append(unsupported, liType)
			}
		}
		if len(unsupported) > 0 {
			anomalies = append(anomalies, fmt.Sprintf(
				"Line item type(s) '%s' not supported for funnel '%s' (objective: %s). Supported types: %s;",
				strings.Join(unsupported, ", "), funnel, spec.Objective,
				strings.Join(spec.SupportedLineItemTypes, ", ")))
		}
	}

	// Known severe misconfigurations.
	if objectiveKey == "brand_awareness" && containsAnyExact(ioKPI, []string{"CPA", "Click CVR", "Impression CVR"}) {
		anomalies = append(anomalies, fmt.Sprintf("HIGH SEVERITY: Using conversion-focused KPI '%s' with awareness funnel;", ioKPI))
	}
	if objectiveKey == "conversions" && containsAnyExact(ioKPI, []string{"CPM", "% Viewability", "VTR", "VCPM"}) {
		anomalies = append(anomalies, fmt.Sprintf("HIGH SEVERITY: Using brand awareness KPI '%s' with conversion funnel;", ioKPI))
	}
	if bidStrategy == "CPA" && ioKPI != "CPA" {
		anomalies = append(anomalies, fmt.Sprintf("HIGH SEVERITY: CPA bid strategy without CPA KPI (current KPI: %s);", ioKPI))
	}
	if bidStrategy == "CPC" && objectiveKey == "brand_awareness" {
		anomalies = append(anomalies, "MEDIUM SEVERITY: CPC bid strategy with awareness funnel;")
	}

	if len(anomalies) > 0 {
		return true, fmt.Sprintf("Funnel-KPI-Optimization Compatibility Issues: %s;", strings.Join(anomalies, " | "))
	}
	return false, ""
}

// newCPMCappingCheck builds the CPM cap check against the given ceiling.
// It only applies to insertion orders whose KPI is CPM.
func newCPMCappingCheck(cap float64) CheckFunc {
	return func(row dataset.Row, _ *Tables) (bool, string) {
		if row.Str("Kpi Type") != "CPM" {
			return false, ""
		}
		if row.Empty("Kpi Value") {
			return true, "IO Missing/Invalid CPM Cap: KPI is CPM but no CPM cap is set;"
		}
		v, ok := row.Float("Kpi Value")
		if !ok {
			return true, fmt.Sprintf("IO Missing/Invalid CPM Cap: CPM cap value '%s' is invalid;", row.Str("Kpi Value"))
		}
		if v == 0 {
			return true, "IO Missing/Invalid CPM Cap: KPI is CPM but CPM cap is set to 0 (no cap);"
		}
		if v > cap {
			return true, fmt.Sprintf("IO Missing/Invalid CPM Cap: CPM cap (%s) exceeds agreed ceiling (%s);",
				formatNum(v), formatNum(cap))
		}
		return false, ""
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsAnyExact(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
