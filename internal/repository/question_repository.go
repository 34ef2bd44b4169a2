package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/mentor-assessment-api/internal/models"
)

// QuestionRepository reads the question bank. The engine never writes to it.
type QuestionRepository struct {
	db *sqlx.DB
}

// NewQuestionRepository constructs the repository.
func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// ListActiveRefs returns id, category and difficulty of active questions in the given categories.
func (r *QuestionRepository) ListActiveRefs(ctx context.Context, categories []string) ([]models.QuestionRef, error) {
	const query = `SELECT id, category, difficulty FROM questions
	WHERE is_active = TRUE AND category = ANY($1) ORDER BY id`
	var refs []models.QuestionRef
	if err := r.db.SelectContext(ctx, &refs, query, pq.Array(categories)); err != nil {
		return nil, fmt.Errorf("list active questions: %w", err)
	}
	return refs, nil
}

// GetByIDs loads full question rows, including answer keys, for the given ids.
// Rows come back in id order; callers restore presentation order themselves.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, category, difficulty, question_text, option_a, option_b, option_c, option_d,
       correct_answer, explanation, is_active
	FROM questions WHERE id = ANY($1) ORDER BY id`
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, pq.Int64Array(ids)); err != nil {
		return nil, fmt.Errorf("get questions by ids: %w", err)
	}
	return questions, nil
}
