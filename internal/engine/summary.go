package engine

import (
	"fmt"
	"strings"

	"github.com/miradorstack/mirador-explain/internal/models"
)

// noFindingsSummary is returned when no insight survived the analysis.
const noFindingsSummary = "No significant patterns or issues detected in the logs."

// maxInsightsPerSection bounds each question section of the rendered summary.
const maxInsightsPerSection = 3

var summarySections = []struct {
	question models.QuestionTag
	heading  string
}{
	{models.QuestionWhatHappened, "What Was Happening"},
	{models.QuestionRootCause, "What Might Have Caused This"},
	{models.QuestionPatterns, "What Patterns Were Found"},
	{models.QuestionRecommendations, "What Should We Do Next"},
}

// FormatAnalysis renders the four fixed question sections as plain text.
// Each section lists up to three insights; sections with none are omitted
// entirely.
func FormatAnalysis(result *models.AnalysisResult) string {
	if result == nil || len(result.Insights) == 0 {
		return noFindingsSummary
	}

	byQuestion := make(map[models.QuestionTag][]models.ComprehensiveAnalysis)
	for _, in := range result.Insights {
		byQuestion[in.Question] = append(byQuestion[in.Question], in)
	}

	var b strings.Builder
	for _, section := range summarySections {
		insights := byQuestion[section.question]
		if len(insights) == 0 {
			continue
		}
		if len(insights) > maxInsightsPerSection {
			insights = insights[:maxInsightsPerSection]
		}

		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(section.heading)
		b.WriteString(":\n")
		for _, in := range insights {
			fmt.Fprintf(&b, "- %s: %s\n", in.Title, in.Description)
		}
	}

	if b.Len() == 0 {
		return noFindingsSummary
	}
	return b.String()
}
