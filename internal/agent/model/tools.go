package model

// DetectionArgs are the arguments the detection agent passes to the
// per-entity anomaly tools.
type DetectionArgs struct {
	// CheckTypes selects specific preset checks. Empty runs the
	// entity's default set.
	CheckTypes []string `json:"check_types,omitempty"`
	// NamingConvention overrides the partner default naming pattern.
	NamingConvention string `json:"naming_convention,omitempty"`
	// ExpectedMarkup enables the line item markup consistency check.
	ExpectedMarkup *float64 `json:"expected_markup,omitempty"`
	// CPMCap overrides the default CPM ceiling.
	CPMCap *float64 `json:"cpm_cap,omitempty"`
}

// SupportArgs are the arguments of the platform support lookup tools.
type SupportArgs struct {
	Query string `json:"query"`
}
