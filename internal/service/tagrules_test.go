package service

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestExtractTags_RuleMatching(t *testing.T) {
	engine := NewTagRuleEngine(testLogger())

	rules := "has-venue,venue_name|virtual,event_type_title == 'Virtual Event type'"
	payload := map[string]interface{}{
		"venue_name":       "Hall A",
		"event_type_title": "In Person",
	}

	tags, err := engine.ExtractTags(rules, payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"has-venue"}, tags)
}

func TestExtractTags_Truthiness(t *testing.T) {
	engine := NewTagRuleEngine(testLogger())

	testCases := []struct {
		name     string
		payload  map[string]interface{}
		expected []string
	}{
		{"false excluded", map[string]interface{}{"flag": false}, []string{}},
		{"missing excluded", map[string]interface{}{}, []string{}},
		{"empty string included", map[string]interface{}{"flag": ""}, []string{"tagged"}},
		{"zero included", map[string]interface{}{"flag": 0.0}, []string{"tagged"}},
		{"true included", map[string]interface{}{"flag": true}, []string{"tagged"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tags, err := engine.ExtractTags("tagged,flag", tc.payload)
			require.NoError(t, err)
			if len(tc.expected) == 0 {
				assert.Empty(t, tags)
			} else {
				assert.Equal(t, tc.expected, tags)
			}
		})
	}
}

func TestExtractTags_NestedExpression(t *testing.T) {
	engine := NewTagRuleEngine(testLogger())

	payload := map[string]interface{}{
		"chapter": map[string]interface{}{
			"chapter_location": "Berlin",
		},
	}

	tags, err := engine.ExtractTags("chaptered,chapter.chapter_location", payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"chaptered"}, tags)
}

func TestParseRules_DropsMalformedRules(t *testing.T) {
	engine := NewTagRuleEngine(testLogger())

	// Second rule has no expression, third has a blank name.
	rules := " keep , venue_name | broken | ,expr "
	tags, err := engine.ExtractTags(rules, map[string]interface{}{"venue_name": "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, tags)
}

func TestParseRules_EmptyConfig(t *testing.T) {
	engine := NewTagRuleEngine(testLogger())

	tags, err := engine.ExtractTags("   ", map[string]interface{}{"venue_name": "x"})
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestParseRules_CompileErrorPropagates(t *testing.T) {
	engine := NewTagRuleEngine(testLogger())

	_, err := engine.ExtractTags("bad,][", map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile tag rule")
}

func TestParseRules_CachedPerConfigString(t *testing.T) {
	engine := NewTagRuleEngine(testLogger())

	rules := "has-venue,venue_name"
	_, err := engine.ExtractTags(rules, map[string]interface{}{})
	require.NoError(t, err)

	engine.mu.RLock()
	_, cached := engine.cache[rules]
	engine.mu.RUnlock()
	assert.True(t, cached, "parsed rule set should be cached by raw config string")

	// A different config string is a different cache entry.
	_, err = engine.ExtractTags("virtual,event_type_title", map[string]interface{}{})
	require.NoError(t, err)
	engine.mu.RLock()
	assert.Len(t, engine.cache, 2)
	engine.mu.RUnlock()
}

func TestExtractTags_DeduplicatesNames(t *testing.T) {
	engine := NewTagRuleEngine(testLogger())

	tags, err := engine.ExtractTags("dup,venue_name|dup,event_type_title", map[string]interface{}{
		"venue_name":       "Hall A",
		"event_type_title": "In Person",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"dup"}, tags)
}
