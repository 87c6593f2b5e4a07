package parsers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/adam-setup/server/internal/agent/model"
	errx "github.com/adam-setup/server/internal/core/error"
	logx "github.com/adam-setup/server/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 128 * 1024 // 128KB
	maxErrSnippet = 200        // limit error snippet size
)

// ErrNotStructured reports classifier output that is prose rather than
// the expected JSON object. Callers relay the raw text as a
// clarification question instead of failing the turn.
var ErrNotStructured = fmt.Errorf("response is not a structured intent")

// ParseIntent extracts the classifier's JSON verdict from its reply.
// Code fences are stripped first, then the outermost JSON object is
// located and decoded. Unknown categories and missing summaries count
// as unstructured output.
func ParseIntent(content string) (result *model.IntentResult, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "intent_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("intent parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			result = nil
		}
	}()

	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}
	if !utf8.ValidString(content) {
		return nil, fmt.Errorf("intent content invalid utf8")
	}

	candidate := ExtractFencedBlock(content, "json")
	obj, ok := extractJSONObject(candidate)
	if !ok {
		return nil, ErrNotStructured
	}

	var parsed model.IntentResult
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		logx.Debug().Str("snippet", snippet(obj)).Msg("Intent JSON did not decode")
		return nil, ErrNotStructured
	}

	parsed.IntentCategory = strings.TrimSpace(parsed.IntentCategory)
	parsed.IntentSummary = strings.TrimSpace(parsed.IntentSummary)
	if !model.IsKnownIntent(parsed.IntentCategory) {
		logx.Debug().Str("category", parsed.IntentCategory).Msg("Unknown intent category")
		return nil, ErrNotStructured
	}
	if parsed.IntentSummary == "" {
		return nil, ErrNotStructured
	}
	return &parsed, nil
}

// ParseNameMap decodes a JSON object of string keys to string values,
// the shape the batched naming checks return.
func ParseNameMap(content string) (map[string]string, error) {
	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}
	obj, ok := extractJSONObject(ExtractFencedBlock(content, "json"))
	if !ok {
		return nil, fmt.Errorf("no JSON object in response")
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(obj), &m); err != nil {
		return nil, fmt.Errorf("decode name map: %w", err)
	}
	return m, nil
}

// extractJSONObject returns the outermost {...} span of s.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func snippet(s string) string {
	if len(s) > maxErrSnippet {
		return s[:maxErrSnippet]
	}
	return s
}
