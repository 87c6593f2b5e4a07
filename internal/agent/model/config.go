package model

// ================ Config ================
type ConversationConfig struct {
	TTL string `envconfig:"CONVERSATION_TTL" default:"24h"`
	History struct {
		MaxTurns int `envconfig:"CONVERSATION_HISTORY_MAX_TURNS" default:"10"`
	}
	Execution struct {
		MaxRetries     int    `envconfig:"EXECUTION_MAX_RETRIES" default:"2"`
		TimeoutSeconds int    `envconfig:"EXECUTION_TIMEOUT_SECONDS" default:"30"`
		DataRoot       string `envconfig:"SNAPSHOT_DATA_ROOT" default:"./data"`
		SnapshotDate   string `envconfig:"SNAPSHOT_DATE"`
	}
	Results struct {
		// Cell count above which full tables are offloaded to the
		// artifact store. Zero offloads every non-empty table.
		OffloadCellThreshold int    `envconfig:"RESULTS_OFFLOAD_CELL_THRESHOLD" default:"0"`
		ArtifactTTL          string `envconfig:"RESULTS_ARTIFACT_TTL" default:"168h"`
	}
	Detection struct {
		DefaultCPMCap    float64 `envconfig:"DETECTION_DEFAULT_CPM_CAP" default:"5.0"`
		NamingConvention string  `envconfig:"DETECTION_NAMING_CONVENTION"`
	}
	Memory struct {
		Enabled bool `envconfig:"MEMORY_ENABLED" default:"true"`
	}
}

type ClassifierModelConfig struct {
	Model       string  `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"CLASSIFIER_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" default:"0.1"`
}

type AnalyserModelConfig struct {
	Model       string  `envconfig:"ANALYSER_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"ANALYSER_MAX_TOKENS" default:"4000"`
	Temperature float32 `envconfig:"ANALYSER_TEMPERATURE" default:"0.3"`
}

type CoderModelConfig struct {
	Model       string  `envconfig:"CODER_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"CODER_MAX_TOKENS" default:"8000"`
	Temperature float32 `envconfig:"CODER_TEMPERATURE" default:"0.0"`
}

type ResponderModelConfig struct {
	Model       string  `envconfig:"RESPONDER_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONDER_MAX_TOKENS" default:"4000"`
	Temperature float32 `envconfig:"RESPONDER_TEMPERATURE" default:"0.4"`
}

// UtilityModelConfig drives the cheap side calls: language detection,
// memory distillation and the batched naming checks.
type UtilityModelConfig struct {
	Model       string  `envconfig:"UTILITY_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"UTILITY_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"UTILITY_TEMPERATURE" default:"0.1"`
}
