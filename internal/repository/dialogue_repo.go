package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dialogue-backend/internal/models"
)

const dialogueColumns = `d.id, d.user_id, u.username, d.status, d.type, d.content,
	d.model_id, d.model_version_id, d.reply_to, d.created_timestamp, d.updated_timestamp`

const dialogueFrom = "FROM dialogues d JOIN users u ON u.id = d.user_id"

type DialogueRepo struct {
	db DBTX
}

func NewDialogueRepo(db DBTX) *DialogueRepo {
	return &DialogueRepo{db: db}
}

// Create inserts the user's prompt as an ACTIVE USER dialogue.
func (r *DialogueRepo) Create(ctx context.Context, d *models.Dialogue) error {
	d.Status = models.StatusActive
	d.Type = models.TypeUser

	query := `INSERT INTO dialogues (user_id, status, type, content, model_id, model_version_id)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_timestamp, updated_timestamp`

	err := r.db.QueryRow(ctx, query,
		d.UserID, d.Status, d.Type, d.Content, d.ModelID, d.ModelVersionID,
	).Scan(&d.ID, &d.CreatedTimestamp, &d.UpdatedTimestamp)
	return mapError(err, "User, AI model or model version not found")
}

func (r *DialogueRepo) GetByID(ctx context.Context, id int64) (*models.Dialogue, error) {
	query := "SELECT " + dialogueColumns + " " + dialogueFrom + " WHERE d.id = $1"
	d, err := scanDialogue(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "Dialogue not found")
	}
	return d, nil
}

// ListCompleted returns the user's COMPLETED dialogues by ascending id.
func (r *DialogueRepo) ListCompleted(ctx context.Context, userID uuid.UUID) ([]*models.Dialogue, error) {
	query := "SELECT " + dialogueColumns + " " + dialogueFrom +
		" WHERE d.user_id = $1 AND d.status = $2 ORDER BY d.id"
	return r.list(ctx, query, userID, models.StatusCompleted)
}

// ListCompletedAfter is ListCompleted restricted to ids greater than afterID.
func (r *DialogueRepo) ListCompletedAfter(ctx context.Context, userID uuid.UUID, afterID int64) ([]*models.Dialogue, error) {
	query := "SELECT " + dialogueColumns + " " + dialogueFrom +
		" WHERE d.user_id = $1 AND d.status = $2 AND d.id > $3 ORDER BY d.id"
	return r.list(ctx, query, userID, models.StatusCompleted, afterID)
}

// LatestForUser returns the most recently created dialogue of any status.
func (r *DialogueRepo) LatestForUser(ctx context.Context, userID uuid.UUID) (*models.Dialogue, error) {
	query := "SELECT " + dialogueColumns + " " + dialogueFrom +
		" WHERE d.user_id = $1 ORDER BY d.created_timestamp DESC, d.id DESC LIMIT 1"
	d, err := scanDialogue(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, mapError(err, "No dialogues found for this user.")
	}
	return d, nil
}

// MarkCompleted flips id to COMPLETED. Repeating it is harmless.
func (r *DialogueRepo) MarkCompleted(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE dialogues SET status = $1, updated_timestamp = NOW() WHERE id = $2",
		models.StatusCompleted, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "Dialogue not found")
	}
	return nil
}

// CompleteInPlace overwrites the prompt with the reply and completes it in one
// statement. It reports false when the dialogue was no longer ACTIVE.
func (r *DialogueRepo) CompleteInPlace(ctx context.Context, id int64, reply string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE dialogues SET content = $1, type = $2, status = $3, updated_timestamp = NOW()
		WHERE id = $4 AND status = $5`,
		reply, models.TypeAI, models.StatusCompleted, id, models.StatusActive,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// AppendReply stores reply as a COMPLETED AI row pointing at prompt. A second
// call for the same prompt inserts nothing and returns (nil, nil).
func (r *DialogueRepo) AppendReply(ctx context.Context, prompt *models.Dialogue, reply string) (*models.Dialogue, error) {
	d := &models.Dialogue{
		UserID:         prompt.UserID,
		Username:       prompt.Username,
		Status:         models.StatusCompleted,
		Type:           models.TypeAI,
		Content:        reply,
		ModelID:        prompt.ModelID,
		ModelVersionID: prompt.ModelVersionID,
		ReplyTo:        &prompt.ID,
	}

	query := `INSERT INTO dialogues (user_id, status, type, content, model_id, model_version_id, reply_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (reply_to) DO NOTHING
		RETURNING id, created_timestamp, updated_timestamp`

	err := r.db.QueryRow(ctx, query,
		d.UserID, d.Status, d.Type, d.Content, d.ModelID, d.ModelVersionID, d.ReplyTo,
	).Scan(&d.ID, &d.CreatedTimestamp, &d.UpdatedTimestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "Dialogue not found")
	}
	return d, nil
}

func (r *DialogueRepo) list(ctx context.Context, query string, args ...any) ([]*models.Dialogue, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dialogues := []*models.Dialogue{}
	for rows.Next() {
		d, err := scanDialogue(rows)
		if err != nil {
			return nil, err
		}
		dialogues = append(dialogues, d)
	}
	return dialogues, rows.Err()
}

func scanDialogue(row pgx.Row) (*models.Dialogue, error) {
	d := &models.Dialogue{}
	err := row.Scan(
		&d.ID, &d.UserID, &d.Username, &d.Status, &d.Type, &d.Content,
		&d.ModelID, &d.ModelVersionID, &d.ReplyTo, &d.CreatedTimestamp, &d.UpdatedTimestamp,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}
