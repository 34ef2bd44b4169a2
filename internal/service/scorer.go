package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/mentor-assessment-api/internal/dto"
	"github.com/noah-isme/mentor-assessment-api/internal/models"
)

// DefaultPassThreshold is the minimum percentage needed to pass.
const DefaultPassThreshold = 70.0

// Score is the outcome of grading one set of answers.
type Score struct {
	Total   int
	Correct int
	Percent float64
	Passed  bool
}

// Scorer grades answers against an answer key. It holds no state besides the threshold.
type Scorer struct {
	threshold decimal.Decimal
}

// NewScorer builds a scorer; a non-positive threshold falls back to DefaultPassThreshold.
func NewScorer(passThreshold float64) *Scorer {
	if passThreshold <= 0 {
		passThreshold = DefaultPassThreshold
	}
	return &Scorer{threshold: decimal.NewFromFloat(passThreshold)}
}

// Score counts answers matching key among questionIDs. Answers for ids outside
// questionIDs are ignored and unanswered questions count as incorrect.
func (s *Scorer) Score(questionIDs []int64, key map[int64]string, answers models.Answers) Score {
	correct := 0
	for _, id := range questionIDs {
		if matches(answers[id], key[id]) {
			correct++
		}
	}
	percent := percentage(correct, len(questionIDs))
	value, _ := percent.Float64()
	return Score{
		Total:   len(questionIDs),
		Correct: correct,
		Percent: value,
		Passed:  percent.GreaterThanOrEqual(s.threshold),
	}
}

// Breakdown lists per-question correctness for reviewers, in questionIDs order.
func (s *Scorer) Breakdown(questionIDs []int64, questions map[int64]models.Question, answers models.Answers) []dto.AnswerReview {
	lines := make([]dto.AnswerReview, 0, len(questionIDs))
	for _, id := range questionIDs {
		q := questions[id]
		given := strings.ToUpper(strings.TrimSpace(answers[id]))
		lines = append(lines, dto.AnswerReview{
			QuestionID:    id,
			Difficulty:    q.Difficulty,
			QuestionText:  q.QuestionText,
			Given:         given,
			CorrectAnswer: q.CorrectAnswer,
			Correct:       matches(given, q.CorrectAnswer),
			Explanation:   q.Explanation,
		})
	}
	return lines
}

func matches(given, expected string) bool {
	given = strings.TrimSpace(given)
	return given != "" && strings.EqualFold(given, strings.TrimSpace(expected))
}

func percentage(correct, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(correct)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
}
