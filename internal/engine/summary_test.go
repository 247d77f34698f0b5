package engine

import (
	"strings"
	"testing"

	"github.com/miradorstack/mirador-explain/internal/models"
)

func analysisWith(insights ...models.ComprehensiveAnalysis) *models.AnalysisResult {
	return &models.AnalysisResult{Insights: insights}
}

func comprehensive(title string, question models.QuestionTag) models.ComprehensiveAnalysis {
	return models.ComprehensiveAnalysis{
		Insight: models.Insight{
			Title:       title,
			Description: "details for " + title,
			Question:    question,
			Severity:    models.SeverityMedium,
		},
		Priority: 5,
	}
}

func TestFormatAnalysisFallback(t *testing.T) {
	if got := FormatAnalysis(nil); got != noFindingsSummary {
		t.Fatalf("nil result must fall back, got %q", got)
	}
	if got := FormatAnalysis(analysisWith()); got != noFindingsSummary {
		t.Fatalf("empty insights must fall back, got %q", got)
	}
}

func TestFormatAnalysisOmitsEmptySections(t *testing.T) {
	result := analysisWith(
		comprehensive("volume spiked", models.QuestionWhatHappened),
		comprehensive("restart the pool", models.QuestionRecommendations),
	)
	text := FormatAnalysis(result)

	if !strings.Contains(text, "What Was Happening:") {
		t.Fatal("populated section missing")
	}
	if !strings.Contains(text, "What Should We Do Next:") {
		t.Fatal("recommendations section missing")
	}
	if strings.Contains(text, "What Might Have Caused This") {
		t.Fatal("empty root-cause section must be omitted")
	}
	if strings.Contains(text, "What Patterns Were Found") {
		t.Fatal("empty patterns section must be omitted")
	}
}

func TestFormatAnalysisSectionOrderAndCap(t *testing.T) {
	result := analysisWith(
		comprehensive("rec one", models.QuestionRecommendations),
		comprehensive("happened one", models.QuestionWhatHappened),
		comprehensive("happened two", models.QuestionWhatHappened),
		comprehensive("happened three", models.QuestionWhatHappened),
		comprehensive("happened four", models.QuestionWhatHappened),
	)
	text := FormatAnalysis(result)

	happeningIdx := strings.Index(text, "What Was Happening:")
	nextIdx := strings.Index(text, "What Should We Do Next:")
	if happeningIdx < 0 || nextIdx < 0 || happeningIdx > nextIdx {
		t.Fatalf("sections out of order:\n%s", text)
	}
	if strings.Contains(text, "happened four") {
		t.Fatal("sections must cap at three insights")
	}
	if !strings.Contains(text, "happened three") {
		t.Fatal("the first three insights must render")
	}
}
