package scorer

import (
	"fmt"
	"math"

	"github.com/mugulhan/smart-crawler/internal/pkg/types"
)

// Overall score weights, matching Lighthouse's category emphasis.
const (
	weightPerformance   = 0.30
	weightAccessibility = 0.25
	weightBestPractices = 0.25
	weightSEO           = 0.20
)

// Score evaluates all four rule tables against one page's signals. The
// result is a pure function of the input: same signals, same scores.
func Score(s types.PageSignals) types.AuditScore {
	score := types.AuditScore{
		Performance:   evaluate(performanceRules, s),
		Accessibility: evaluate(accessibilityRules, s),
		BestPractices: evaluate(bestPracticesRules, s),
		SEO:           evaluate(seoRules, s),
		RulesVersion:  RulesVersion,
	}

	// A page that never produced a response has nothing to measure.
	if s.StatusCode == 0 {
		score.Performance = 0
	}

	score.Overall = int(math.Round(
		float64(score.Performance)*weightPerformance +
			float64(score.Accessibility)*weightAccessibility +
			float64(score.BestPractices)*weightBestPractices +
			float64(score.SEO)*weightSEO))
	score.Audits = findings(s)
	return score
}

func evaluate(rules []Rule, s types.PageSignals) int {
	score := 100
	for _, rule := range rules {
		count := rule.Count(s)
		if count == 0 {
			continue
		}
		deduction := rule.Weight * count
		if rule.Cap > 0 && deduction > rule.Cap {
			deduction = rule.Cap
		}
		score -= deduction
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// findings produces the human-readable audit notes shown alongside the
// numbers. Only the conditions worth calling out get an entry.
func findings(s types.PageSignals) []types.AuditFinding {
	var audits []types.AuditFinding

	if s.FetchMillis > 1000 {
		severity := "warning"
		if s.FetchMillis > 3000 {
			severity = "error"
		}
		audits = append(audits, types.AuditFinding{
			Category:    "performance",
			Title:       "Server Response Time",
			Description: fmt.Sprintf("Response time is %dms. Aim for under 600ms.", s.FetchMillis),
			Severity:    severity,
		})
	}

	if s.ImagesNoAlt > 0 {
		audits = append(audits, types.AuditFinding{
			Category:    "accessibility",
			Title:       "Image Alt Attributes",
			Description: fmt.Sprintf("%d images missing alt attributes.", s.ImagesNoAlt),
			Severity:    "warning",
		})
	}

	if s.Title == "" {
		audits = append(audits, types.AuditFinding{
			Category:    "seo",
			Title:       "Document Title",
			Description: "The page is missing a title tag.",
			Severity:    "error",
		})
	}

	if !s.HasMetaDesc {
		audits = append(audits, types.AuditFinding{
			Category:    "seo",
			Title:       "Meta Description",
			Description: "The page is missing a meta description.",
			Severity:    "error",
		})
	}

	if !s.HTTPS {
		audits = append(audits, types.AuditFinding{
			Category:    "best_practices",
			Title:       "HTTPS Usage",
			Description: "The page is not served over HTTPS.",
			Severity:    "error",
		})
	}

	if s.SchemaErrors > 0 {
		audits = append(audits, types.AuditFinding{
			Category:    "best_practices",
			Title:       "Structured Data",
			Description: fmt.Sprintf("%d JSON-LD blocks failed to parse.", s.SchemaErrors),
			Severity:    "warning",
		})
	}

	return audits
}
