package anomaly

import (
	"fmt"
	"strings"

	"github.com/adam-setup/server/internal/dataset"
)

// expectedCampaignGoal is the goal most partner campaigns should carry.
const expectedCampaignGoal = "Drive online action or visits"

func checkCampaignGoal(row dataset.Row, _ *Tables) (bool, string) {
	if row.Empty("Campaign Goal") {
		return true, "Campaign Goal is missing;"
	}
	goal := row.Str("Campaign Goal")
	if goal != expectedCampaignGoal {
		return true, fmt.Sprintf("Campaign Goal Mismatch: Expected '%s' but found '%s';", expectedCampaignGoal, goal)
	}
	return false, ""
}

func checkCampaignKPI(row dataset.Row, _ *Tables) (bool, string) {
	if row.Empty("Campaign Goal KPI") {
		return true, "Campaign KPI type is missing;"
	}
	kpi := row.Str("Campaign Goal KPI")
	kpiValue, hasValue := row.Float("Campaign Goal KPI Value")

	switch kpi {
	case "CTR", "CPA", "CPM":
		if !hasValue || kpiValue == 0 {
			return true, fmt.Sprintf("Campaign KPI value is missing or zero for %s;", kpi)
		}
	}

	// Funnel-stage keywords in the name imply the KPI that should be set.
	name := strings.ToLower(row.Str("Name"))
	if strings.Contains(name, "awareness") && kpi != "CPM" && kpi != "CTR" {
		return true, fmt.Sprintf("Campaign name suggests Awareness but KPI is %s (expected CPM or CTR);", kpi)
	}
	if strings.Contains(name, "consideration") && kpi != "CTR" {
		return true, fmt.Sprintf("Campaign name suggests Consideration but KPI is %s (expected CTR);", kpi)
	}
	if strings.Contains(name, "conversion") && kpi != "CPA" {
		return true, fmt.Sprintf("Campaign name suggests Conversion but KPI is %s (expected CPA);", kpi)
	}

	if kpi == "CTR" && hasValue && (kpiValue < 0.1 || kpiValue > 0.5) {
		return true, fmt.Sprintf("CTR target %v%% is outside typical range (0.1%%-0.5%%);", kpiValue)
	}

	return false, ""
}

func checkCampaignFrequency(row dataset.Row, _ *Tables) (bool, string) {
	if !row.Bool("Frequency Enabled") {
		return true, "Frequency capping is disabled;"
	}

	exposures, hasExposures := row.Float("Frequency Exposures")
	if !hasExposures || exposures == 0 {
		return true, "Frequency exposures is not set or is zero;"
	}

	amount, hasAmount := row.Float("Frequency Amount")
	if !hasAmount || amount == 0 {
		return true, "Frequency amount is not set or is zero;"
	}

	if row.Empty("Frequency Period") {
		return true, "Frequency period is not specified;"
	}

	if exposures > 20 {
		return true, fmt.Sprintf("Frequency exposures (%v) is unusually high (>20);", exposures)
	}

	return false, ""
}
