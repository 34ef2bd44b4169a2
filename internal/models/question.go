package models

// Difficulty buckets questions for the selection mix.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Difficulties lists buckets in selection order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// GeneralCategory holds questions shared by every specialization.
const GeneralCategory = "General"

// Question is a read-only question bank entry.
type Question struct {
	ID            int64      `db:"id" json:"id"`
	Category      string     `db:"category" json:"category"`
	Difficulty    Difficulty `db:"difficulty" json:"difficulty"`
	QuestionText  string     `db:"question_text" json:"questionText"`
	OptionA       string     `db:"option_a" json:"optionA"`
	OptionB       string     `db:"option_b" json:"optionB"`
	OptionC       string     `db:"option_c" json:"optionC"`
	OptionD       string     `db:"option_d" json:"optionD"`
	CorrectAnswer string     `db:"correct_answer" json:"correctAnswer"`
	Explanation   *string    `db:"explanation" json:"explanation,omitempty"`
	IsActive      bool       `db:"is_active" json:"isActive"`
}

// QuestionRef is the lightweight pool entry used by the selector.
type QuestionRef struct {
	ID         int64      `db:"id" json:"id"`
	Category   string     `db:"category" json:"category"`
	Difficulty Difficulty `db:"difficulty" json:"difficulty"`
}
