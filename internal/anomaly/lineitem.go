package anomaly

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/adam-setup/server/internal/dataset"
)

var conversionKeywords = []string{"conversion", "convert", "performance", "cpa", "acquisition"}

// checkLISafeguards validates that active line items carry the mandatory
// protection settings: brand safety exclusions, environment, viewability
// on public inventory, language, device, frequency capping, floodlight
// for conversion-named items, and the blacklist exclusions.
func checkLISafeguards(row dataset.Row, _ *Tables) (bool, string) {
	if row.Str("Status") != "Active" {
		return false, ""
	}

	var missing []string

	if row.Empty("Digital Content Labels - Exclude") {
		missing = append(missing, "Digital Content Label exclusions")
	}
	if row.Empty("Brand Safety Custom Settings") {
		missing = append(missing, "Brand Safety sensitive category exclusions")
	}

	// App inventory in use without matching exclusions.
	if !row.Empty("App Targeting - Include") && row.Empty("App Targeting - Exclude") {
		missing = append(missing, "App URL exclusions (app inventory detected)")
	}

	isTrueView := row.Str("Type") == "TrueView"

	if row.Empty("Environment Targeting") && !isTrueView {
		missing = append(missing, "Environment targeting")
	}

	if isPublicInventory(row) {
		viewability := row.Str("Viewability Targeting Active View")
		if row.Empty("Viewability Targeting Active View") || viewability == "All" {
			missing = append(missing, "Viewability targeting (required for public inventory)")
		}
	}

	if row.Empty("Language Targeting - Include") {
		missing = append(missing, "Language targeting settings")
	}

	if row.Empty("Device Targeting - Include") {
		missing = append(missing, "Device targeting configuration")
	}

	missing = appendFrequencyGaps(missing, row, isTrueView)

	// Conversion-named items need a floodlight activity attached.
	liName := strings.ToLower(row.Str("Name"))
	ioName := strings.ToLower(row.Str("Io Name"))
	for _, kw := range conversionKeywords {
		if strings.Contains(liName, kw) || strings.Contains(ioName, kw) {
			if row.Empty("Conversion Floodlight Activity Ids") {
				missing = append(missing, "Floodlight activity (required for conversion campaigns)")
			}
			break
		}
	}

	if row.Empty("Channel Targeting - Exclude") {
		missing = append(missing, "Channel blacklist exclusions")
	}
	if row.Empty("Keyword List Targeting - Exclude") {
		missing = append(missing, "Keyword blacklist exclusions")
	}

	if len(missing) > 0 {
		return true, fmt.Sprintf("LI Missing Safeguards: %s;", strings.Join(missing, ", "))
	}
	return false, ""
}

func appendFrequencyGaps(missing []string, row dataset.Row, isTrueView bool) []string {
	enabledCol, exposuresCol, periodCol := "Frequency Enabled", "Frequency Exposures", "Frequency Period"
	if isTrueView {
		enabledCol = "TrueView View Frequency Enabled"
		exposuresCol = "TrueView View Frequency Exposures"
		periodCol = "TrueView View Frequency Period"
	}

	if !row.Bool(enabledCol) {
		return append(missing, "Frequency capping (disabled)")
	}
	if exposures, ok := row.Float(exposuresCol); !ok || exposures == 0 {
		return append(missing, "Frequency exposures (not set or zero)")
	}
	// Amount does not apply to TrueView line items.
	if !isTrueView {
		if amount, ok := row.Float("Frequency Amount"); !ok || amount == 0 {
			return append(missing, "Frequency amount (not set or zero)")
		}
	}
	if row.Empty(periodCol) {
		return append(missing, "Frequency period (not set or zero)")
	}
	return missing
}

func isPublicInventory(row dataset.Row) bool {
	return !row.Empty("Inventory Source Targeting - Include") &&
		row.Empty("Private Deal Group Targeting Include")
}

// checkLIInventory flags line items under a Premium-labeled insertion
// order that still include public inventory sources.
func checkLIInventory(row dataset.Row, _ *Tables) (bool, string) {
	ioName := row.Str("Io Name")
	if !strings.Contains(strings.ToLower(ioName), "premium") {
		return false, ""
	}
	if isPublicInventory(row) {
		return true, "Premium IO Uses Public Inventory: IO labeled as Premium but includes public inventory sources;"
	}
	return false, ""
}

// newMarkupCheck builds the markup consistency check for a caller
// supplied expected percentage.
func newMarkupCheck(expected float64) CheckFunc {
	return func(row dataset.Row, _ *Tables) (bool, string) {
		revenueEmpty := row.Empty("Partner Revenue Amount")
		markupEmpty := row.Empty("Markup")
		if revenueEmpty && markupEmpty {
			return true, "LI Markup Missing: No partner revenue amount or markup configured;"
		}

		col := "Partner Revenue Amount"
		if revenueEmpty {
			col = "Markup"
		}
		actual, ok := row.Float(col)
		if !ok {
			return true, fmt.Sprintf("LI Markup Invalid: Markup value '%s' is not a valid number;", row.Str(col))
		}
		if diff := actual - expected; diff > 0.01 || diff < -0.01 {
			return true, fmt.Sprintf("LI Markup Mismatch: Expected %s%% but found %s%%;",
				formatNum(expected), formatNum(actual))
		}
		return false, ""
	}
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
