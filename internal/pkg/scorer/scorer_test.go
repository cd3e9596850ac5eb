package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mugulhan/smart-crawler/internal/pkg/types"
)

func allLandmarks() map[string]bool {
	return map[string]bool{
		"header": true, "nav": true, "main": true,
		"footer": true, "article": true, "section": true,
	}
}

// A page with every signal in order.
func perfectSignals() types.PageSignals {
	return types.PageSignals{
		StatusCode:   200,
		HTTPS:        true,
		FetchMillis:  200,
		PageSize:     50 * 1024,
		Title:        "A perfectly sized page title for testing use",
		TitleCount:   1,
		MetaDesc:     "This description is long enough to satisfy the lower bound of the meta description length check, but not so long it exceeds it.",
		HasMetaDesc:  true,
		HasCanonical: true,
		HasViewport:  true,
		HasDoctype:   true,
		HasCharset:   true,
		H1Count:      1,
		Landmarks:    allLandmarks(),
		SchemaCount:  1,
	}
}

func TestPerfectPageScoresFull(t *testing.T) {
	score := Score(perfectSignals())
	assert.Equal(t, 100, score.Performance)
	assert.Equal(t, 100, score.Accessibility)
	assert.Equal(t, 100, score.BestPractices)
	assert.Equal(t, 100, score.SEO)
	assert.Equal(t, 100, score.Overall)
	assert.Equal(t, RulesVersion, score.RulesVersion)
	assert.Empty(t, score.Audits)
}

func TestMissingTitleAndAltScenario(t *testing.T) {
	s := perfectSignals()
	s.Title = ""
	s.TitleCount = 0
	s.ImageCount = 1
	s.ImagesNoAlt = 1

	score := Score(s)
	// 100 - (missing-title 15 + image-missing-alt 5)
	assert.Equal(t, 80, score.Accessibility)
	// 100 - missing-title 20 + structured-data 10, clamped at 100
	assert.Equal(t, 90, score.SEO)

	categories := make(map[string]bool)
	for _, finding := range score.Audits {
		categories[finding.Category] = true
	}
	assert.True(t, categories["seo"], "missing title must surface as a finding")
	assert.True(t, categories["accessibility"])
}

func TestFetchFailureZeroesPerformance(t *testing.T) {
	score := Score(types.PageSignals{StatusCode: 0})
	assert.Equal(t, 0, score.Performance)
	assert.GreaterOrEqual(t, score.Accessibility, 0)
	assert.GreaterOrEqual(t, score.SEO, 0)
}

func TestInvalidJSONLDPenalizesBestPractices(t *testing.T) {
	s := perfectSignals()
	base := Score(s).BestPractices
	s.SchemaErrors = 1
	assert.Equal(t, base-10, Score(s).BestPractices)
}

func TestPerformanceBands(t *testing.T) {
	tests := []struct {
		millis int64
		size   int
		want   int
	}{
		{200, 1000, 100},
		{600, 1000, 90},
		{1500, 1000, 80},
		{2500, 1000, 70},
		{3500, 1000, 60},
		{200, 2 * 1024 * 1024, 90},
		{200, 4 * 1024 * 1024, 80},
		{200, 6 * 1024 * 1024, 70},
		{3500, 6 * 1024 * 1024, 30},
	}
	for _, tc := range tests {
		s := perfectSignals()
		s.FetchMillis = tc.millis
		s.PageSize = tc.size
		assert.Equal(t, tc.want, Score(s).Performance,
			"millis=%d size=%d", tc.millis, tc.size)
	}
}

func TestScoresAreBounded(t *testing.T) {
	worst := types.PageSignals{
		StatusCode:     500,
		FetchMillis:    60000,
		PageSize:       50 * 1024 * 1024,
		TitleCount:     3,
		ImageCount:     200,
		ImagesNoAlt:    200,
		SkippedLevels:  12,
		SchemaCount:    5,
		SchemaErrors:   5,
		MixedResources: 99,
	}
	for _, s := range []types.PageSignals{worst, {}, perfectSignals()} {
		score := Score(s)
		for name, value := range map[string]int{
			"performance":    score.Performance,
			"accessibility":  score.Accessibility,
			"best_practices": score.BestPractices,
			"seo":            score.SEO,
			"overall":        score.Overall,
		} {
			assert.GreaterOrEqual(t, value, 0, name)
			assert.LessOrEqual(t, value, 100, name)
		}
	}
}

func TestScoringIsDeterministic(t *testing.T) {
	inputs := []types.PageSignals{
		perfectSignals(),
		{StatusCode: 404, FetchMillis: 2100},
		{StatusCode: 200, HTTPS: true, ImagesNoAlt: 3, SkippedLevels: 1},
	}
	for _, s := range inputs {
		first := Score(s)
		for i := 0; i < 10; i++ {
			require.Equal(t, first, Score(s))
		}
	}
}

func TestCapsLimitRepeatedViolations(t *testing.T) {
	s := perfectSignals()
	s.ImageCount = 50
	s.ImagesNoAlt = 50
	// 50 * 5 capped at 30.
	assert.Equal(t, 70, Score(s).Accessibility)

	s = perfectSignals()
	s.MixedResources = 40
	// 40 * 2 capped at 20.
	assert.Equal(t, 80, Score(s).BestPractices)
}
