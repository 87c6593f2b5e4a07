package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntentPlainJSON(t *testing.T) {
	res, err := ParseIntent(`{"intent_category": "targeting_check", "intent_summary": "Review geo targeting on BE campaigns"}`)
	require.NoError(t, err)
	assert.Equal(t, "targeting_check", res.IntentCategory)
	assert.Equal(t, "Review geo targeting on BE campaigns", res.IntentSummary)
}

func TestParseIntentFencedJSON(t *testing.T) {
	content := "Here is my verdict:\n```json\n{\"intent_category\": \"anomaly_det_run\", \"intent_summary\": \"Run all preset checks\"}\n```\n"
	res, err := ParseIntent(content)
	require.NoError(t, err)
	assert.Equal(t, "anomaly_det_run", res.IntentCategory)
}

func TestParseIntentEmbeddedObject(t *testing.T) {
	content := `Sure. {"intent_category":"dsp_support","intent_summary":"How to set up floodlight"} Done.`
	res, err := ParseIntent(content)
	require.NoError(t, err)
	assert.Equal(t, "dsp_support", res.IntentCategory)
}

func TestParseIntentProseIsClarification(t *testing.T) {
	_, err := ParseIntent("Could you tell me whether you want ALL line items checked, or just a few?")
	assert.ErrorIs(t, err, ErrNotStructured)
}

func TestParseIntentUnknownCategory(t *testing.T) {
	_, err := ParseIntent(`{"intent_category": "world_domination", "intent_summary": "x"}`)
	assert.ErrorIs(t, err, ErrNotStructured)
}

func TestParseIntentMissingSummary(t *testing.T) {
	_, err := ParseIntent(`{"intent_category": "budget_check", "intent_summary": "  "}`)
	assert.ErrorIs(t, err, ErrNotStructured)
}

func TestParseNameMap(t *testing.T) {
	m, err := ParseNameMap("```json\n{\"li a\": \"Naming Convention Non-Compliance: bad;\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Naming Convention Non-Compliance: bad;", m["li a"])

	_, err = ParseNameMap("not json at all")
	assert.Error(t, err)
}

func TestExtractFencedBlock(t *testing.T) {
	content := "intro\n```python\ndef main(a, b, c):\n    return a\n```\noutro"
	assert.Equal(t, "def main(a, b, c):\n    return a", ExtractFencedBlock(content, "python"))

	// No fence returns the trimmed input.
	assert.Equal(t, "plain text", ExtractFencedBlock("  plain text \n", "python"))

	// An unlabeled fence matches any requested language.
	content = "```\nx = 1\n```"
	assert.Equal(t, "x = 1", ExtractFencedBlock(content, "json"))
}

func TestExtractTagged(t *testing.T) {
	content := "Thinking...\n<briefing>\nFilter active line items.\n</briefing>"
	got, ok := ExtractTagged(content, "briefing")
	require.True(t, ok)
	assert.Equal(t, "Filter active line items.", got)

	_, ok = ExtractTagged("no tags here", "briefing")
	assert.False(t, ok)

	_, ok = ExtractTagged("<briefing>unclosed", "briefing")
	assert.False(t, ok)
}
