package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentor-assessment-api/internal/models"
	"github.com/noah-isme/mentor-assessment-api/pkg/database"
)

var (
	// ErrTokenNotConsumable reports that the consume CAS matched no row.
	ErrTokenNotConsumable = errors.New("token not consumable")
	// ErrLiveTokenExists reports that a reissue found an unexpired unused token.
	ErrLiveTokenExists = errors.New("live token exists")
)

// TokenRepository persists single-use test tokens.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository constructs the repository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// IssueTokenParams describes a token issuance.
type IssueTokenParams struct {
	Token *models.TestToken
	// Transition moves the application PENDING -> TEST_ISSUED. When false the
	// application must already be TEST_ISSUED without a live token.
	Transition bool
	Actor      string
	Reason     string
}

// Issue stores the token digest and, for first issuance, transitions the
// application and expires any unconsumed token left from an earlier round.
// All of it happens under a lock on the application row.
func (r *TokenRepository) Issue(ctx context.Context, params IssueTokenParams) (*models.MentorApplication, error) {
	token := params.Token
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.IssuedAt.IsZero() {
		token.IssuedAt = time.Now().UTC()
	}
	var app *models.MentorApplication
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		current, err := lockApplication(ctx, tx, token.ApplicationID)
		if err != nil {
			return err
		}

		if params.Transition {
			if current.Status != models.ApplicationStatusPending {
				return ErrStatusMismatch
			}
			const update = `UPDATE mentor_applications SET status = $2, updated_at = $3 WHERE id = $1`
			if _, err := tx.ExecContext(ctx, update, current.ID, models.ApplicationStatusTestIssued, token.IssuedAt); err != nil {
				return fmt.Errorf("mark application test issued: %w", err)
			}
			if err := insertEvent(ctx, tx, models.ApplicationEvent{
				ApplicationID: current.ID,
				FromStatus:    current.Status,
				ToStatus:      models.ApplicationStatusTestIssued,
				Reason:        params.Reason,
				Actor:         params.Actor,
				CreatedAt:     token.IssuedAt,
			}); err != nil {
				return err
			}
			// tokens left over from before a withdrawal must not start a session
			const supersede = `UPDATE test_tokens SET expires_at = $2
			WHERE application_id = $1 AND consumed = FALSE AND expires_at > $2`
			if _, err := tx.ExecContext(ctx, supersede, current.ID, token.IssuedAt); err != nil {
				return fmt.Errorf("supersede previous tokens: %w", err)
			}
			current.Status = models.ApplicationStatusTestIssued
			current.UpdatedAt = token.IssuedAt
		} else {
			if current.Status != models.ApplicationStatusTestIssued {
				return ErrStatusMismatch
			}
			const live = `SELECT EXISTS (SELECT 1 FROM test_tokens
			WHERE application_id = $1 AND consumed = FALSE AND expires_at > $2)`
			var exists bool
			if err := tx.GetContext(ctx, &exists, live, current.ID, token.IssuedAt); err != nil {
				return fmt.Errorf("check live tokens: %w", err)
			}
			if exists {
				return ErrLiveTokenExists
			}
		}

		const insert = `INSERT INTO test_tokens (id, application_id, token_hash, token_hint, issued_at, expires_at, consumed, consumed_at)
		VALUES (:id, :application_id, :token_hash, :token_hint, :issued_at, :expires_at, :consumed, :consumed_at)`
		if _, err := tx.NamedExecContext(ctx, insert, token); err != nil {
			return fmt.Errorf("insert test token: %w", err)
		}
		app = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// FindState loads a token by digest together with its application status.
func (r *TokenRepository) FindState(ctx context.Context, tokenHash string) (*models.TokenState, error) {
	return findTokenState(ctx, r.db, tokenHash)
}

// Consume atomically marks a token used. It returns ErrTokenNotConsumable when
// the token is unknown, expired, already consumed, or its application left
// TEST_ISSUED.
func (r *TokenRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (*models.TestToken, error) {
	return consumeToken(ctx, r.db, tokenHash, now)
}

// PurgeExpired deletes unconsumed tokens that expired before cutoff.
func (r *TokenRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM test_tokens WHERE consumed = FALSE AND expires_at < $1`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge expired tokens: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check purged token rows: %w", err)
	}
	return rows, nil
}

func findTokenState(ctx context.Context, q sqlx.QueryerContext, tokenHash string) (*models.TokenState, error) {
	const query = `SELECT t.id, t.application_id, t.token_hash, t.token_hint, t.issued_at, t.expires_at, t.consumed,
       t.consumed_at, a.status AS application_status, a.full_name, a.specialization
	FROM test_tokens t JOIN mentor_applications a ON a.id = t.application_id
	WHERE t.token_hash = $1`
	var state models.TokenState
	if err := sqlx.GetContext(ctx, q, &state, query, tokenHash); err != nil {
		return nil, err
	}
	return &state, nil
}

func consumeToken(ctx context.Context, q sqlx.QueryerContext, tokenHash string, now time.Time) (*models.TestToken, error) {
	const query = `UPDATE test_tokens t SET consumed = TRUE, consumed_at = $2
	FROM mentor_applications a
	WHERE t.application_id = a.id AND t.token_hash = $1 AND t.consumed = FALSE AND t.expires_at > $2 AND a.status = $3
	RETURNING t.id, t.application_id, t.token_hash, t.token_hint, t.issued_at, t.expires_at, t.consumed, t.consumed_at`
	var token models.TestToken
	if err := sqlx.GetContext(ctx, q, &token, query, tokenHash, now, models.ApplicationStatusTestIssued); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotConsumable
		}
		return nil, fmt.Errorf("consume test token: %w", err)
	}
	return &token, nil
}
