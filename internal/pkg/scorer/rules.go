package scorer

import "github.com/mugulhan/smart-crawler/internal/pkg/types"

// RulesVersion identifies this weight table. Bump it whenever any weight,
// cap or predicate below changes, so stored scores remain comparable.
const RulesVersion = 1

// Rule is one row of a category table. The deduction is Weight multiplied
// by the violation count, limited by Cap when Cap is non-zero. A negative
// weight is a bonus. The final category score is 100 minus all deductions,
// clamped to [0, 100].
type Rule struct {
	Name   string
	Weight int
	Cap    int
	Count  func(s types.PageSignals) int
}

func boolCount(failed bool) int {
	if failed {
		return 1
	}
	return 0
}

// Performance bands over fetch time and payload size. Time and size bands
// are each mutually exclusive, so at most one row of each group fires.
var performanceRules = []Rule{
	{Name: "response-over-3s", Weight: 40, Count: func(s types.PageSignals) int {
		return boolCount(s.FetchMillis > 3000)
	}},
	{Name: "response-over-2s", Weight: 30, Count: func(s types.PageSignals) int {
		return boolCount(s.FetchMillis > 2000 && s.FetchMillis <= 3000)
	}},
	{Name: "response-over-1s", Weight: 20, Count: func(s types.PageSignals) int {
		return boolCount(s.FetchMillis > 1000 && s.FetchMillis <= 2000)
	}},
	{Name: "response-over-500ms", Weight: 10, Count: func(s types.PageSignals) int {
		return boolCount(s.FetchMillis > 500 && s.FetchMillis <= 1000)
	}},
	{Name: "page-over-5mb", Weight: 30, Count: func(s types.PageSignals) int {
		return boolCount(s.PageSize > 5*1024*1024)
	}},
	{Name: "page-over-3mb", Weight: 20, Count: func(s types.PageSignals) int {
		return boolCount(s.PageSize > 3*1024*1024 && s.PageSize <= 5*1024*1024)
	}},
	{Name: "page-over-1mb", Weight: 10, Count: func(s types.PageSignals) int {
		return boolCount(s.PageSize > 1024*1024 && s.PageSize <= 3*1024*1024)
	}},
}

var accessibilityRules = []Rule{
	{Name: "missing-title", Weight: 15, Count: func(s types.PageSignals) int {
		return boolCount(s.Title == "")
	}},
	{Name: "duplicate-title", Weight: 10, Count: func(s types.PageSignals) int {
		return boolCount(s.TitleCount > 1)
	}},
	{Name: "image-missing-alt", Weight: 5, Cap: 30, Count: func(s types.PageSignals) int {
		return s.ImagesNoAlt
	}},
	{Name: "no-h1", Weight: 15, Count: func(s types.PageSignals) int {
		return boolCount(s.H1Count == 0)
	}},
	{Name: "multiple-h1", Weight: 10, Count: func(s types.PageSignals) int {
		return boolCount(s.H1Count > 1)
	}},
	{Name: "skipped-heading-level", Weight: 10, Cap: 20, Count: func(s types.PageSignals) int {
		return s.SkippedLevels
	}},
	{Name: "missing-landmarks", Weight: 5, Count: func(s types.PageSignals) int {
		missing := 0
		for _, landmark := range []string{"header", "nav", "main", "footer"} {
			if !s.Landmarks[landmark] {
				missing++
			}
		}
		return missing
	}},
}

const (
	titleMinLen = 30
	titleMaxLen = 60
	descMinLen  = 120
	descMaxLen  = 160
)

var seoRules = []Rule{
	{Name: "missing-title", Weight: 20, Count: func(s types.PageSignals) int {
		return boolCount(s.Title == "")
	}},
	{Name: "title-length", Weight: 10, Count: func(s types.PageSignals) int {
		length := len([]rune(s.Title))
		return boolCount(s.Title != "" && (length < titleMinLen || length > titleMaxLen))
	}},
	{Name: "missing-meta-description", Weight: 20, Count: func(s types.PageSignals) int {
		return boolCount(!s.HasMetaDesc)
	}},
	{Name: "meta-description-length", Weight: 10, Count: func(s types.PageSignals) int {
		length := len([]rune(s.MetaDesc))
		return boolCount(s.HasMetaDesc && (length < descMinLen || length > descMaxLen))
	}},
	{Name: "no-h1", Weight: 15, Count: func(s types.PageSignals) int {
		return boolCount(s.H1Count == 0)
	}},
	{Name: "no-canonical", Weight: 10, Count: func(s types.PageSignals) int {
		return boolCount(!s.HasCanonical)
	}},
	{Name: "robots-noindex", Weight: 15, Count: func(s types.PageSignals) int {
		return boolCount(s.RobotsNoindex)
	}},
	{Name: "structured-data-bonus", Weight: -10, Count: func(s types.PageSignals) int {
		return boolCount(s.SchemaCount > 0)
	}},
}

var bestPracticesRules = []Rule{
	{Name: "no-https", Weight: 20, Count: func(s types.PageSignals) int {
		return boolCount(!s.HTTPS)
	}},
	{Name: "no-viewport", Weight: 15, Count: func(s types.PageSignals) int {
		return boolCount(!s.HasViewport)
	}},
	{Name: "no-doctype", Weight: 10, Count: func(s types.PageSignals) int {
		return boolCount(!s.HasDoctype)
	}},
	{Name: "no-charset", Weight: 10, Count: func(s types.PageSignals) int {
		return boolCount(!s.HasCharset)
	}},
	{Name: "mixed-content", Weight: 2, Cap: 20, Count: func(s types.PageSignals) int {
		return s.MixedResources
	}},
	{Name: "invalid-json-ld", Weight: 10, Cap: 20, Count: func(s types.PageSignals) int {
		return s.SchemaErrors
	}},
}
