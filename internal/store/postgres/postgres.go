// Package postgres persists profiles, events, score history, training samples,
// notifications and contacts in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"microfinance-scoring/internal/models"
	"microfinance-scoring/internal/store"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetProfile(ctx context.Context, subjectID string) (*models.ApplicantProfile, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT profile FROM applicant_profiles WHERE subject_id = $1`, subjectID).Scan(&raw)
	if err != nil {
		return nil, notFound(err, "get profile")
	}
	var p models.ApplicantProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", subjectID, err)
	}
	return &p, nil
}

func (s *Store) SaveProfile(ctx context.Context, p *models.ApplicantProfile) error {
	return saveProfile(ctx, s.db, p)
}

// RecordTransaction writes the event, the profile it produced and the score
// record in one database transaction. Nothing is written when the event id was
// already recorded (store.ErrDuplicateEvent) or the score version is taken
// (store.ErrVersionConflict).
func (s *Store) RecordTransaction(ctx context.Context, e *models.TransactionEvent, p *models.ApplicantProfile, rec *models.ScoreRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertEvent(ctx, tx, e); err != nil {
		return err
	}
	if err := saveProfile(ctx, tx, p); err != nil {
		return err
	}
	if err := insertScore(ctx, tx, rec); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func saveProfile(ctx context.Context, ex execer, p *models.ApplicantProfile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO applicant_profiles (subject_id, profile, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (subject_id) DO UPDATE SET profile = EXCLUDED.profile, updated_at = now()`,
		p.SubjectID, raw)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func insertEvent(ctx context.Context, ex execer, e *models.TransactionEvent) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encode event metadata: %w", err)
	}
	res, err := ex.ExecContext(ctx, `
		INSERT INTO transaction_events (id, subject_id, event_type, amount, scheduled_date, actual_date, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.SubjectID, string(e.Type), e.Amount, e.ScheduledDate, e.ActualDate, meta)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	if n == 0 {
		return store.ErrDuplicateEvent
	}
	return nil
}

// ListEvents returns the events at or after since, oldest first.
func (s *Store) ListEvents(ctx context.Context, subjectID string, since time.Time) ([]models.TransactionEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject_id, event_type, amount, scheduled_date, actual_date, metadata
		FROM transaction_events
		WHERE subject_id = $1 AND actual_date >= $2
		ORDER BY actual_date ASC, recorded_at ASC`, subjectID, since)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []models.TransactionEvent
	for rows.Next() {
		var (
			e         models.TransactionEvent
			scheduled sql.NullTime
			meta      []byte
		)
		if err := rows.Scan(&e.ID, &e.SubjectID, &e.Type, &e.Amount, &scheduled, &e.ActualDate, &meta); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if scheduled.Valid {
			t := scheduled.Time
			e.ScheduledDate = &t
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode event metadata %s: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const scoreColumns = `id, subject_id, version, score, score_850, risk_tier, eligible_amount, model_type,
	confidence, product_type, source, details, recommendations, profile_fingerprint, computed_at`

func (s *Store) CurrentScore(ctx context.Context, subjectID string) (*models.ScoreRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scoreColumns+`
		FROM score_records WHERE subject_id = $1
		ORDER BY version DESC LIMIT 1`, subjectID)
	rec, err := scanScore(row)
	if err != nil {
		return nil, notFound(err, "current score")
	}
	return rec, nil
}

// AppendScore inserts rec; the (subject_id, version) uniqueness turns a lost
// race into store.ErrVersionConflict.
func (s *Store) AppendScore(ctx context.Context, rec *models.ScoreRecord) error {
	return insertScore(ctx, s.db, rec)
}

func insertScore(ctx context.Context, ex execer, rec *models.ScoreRecord) error {
	details, err := json.Marshal(rec.Details)
	if err != nil {
		return fmt.Errorf("encode score details: %w", err)
	}
	recs := rec.Recommendations
	if recs == nil {
		recs = []string{}
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO score_records (`+scoreColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		rec.ID, rec.SubjectID, rec.Version, rec.Score, rec.Score850, string(rec.RiskTier),
		rec.EligibleAmount, string(rec.ModelType), rec.Confidence, string(rec.ProductType),
		string(rec.Source), details, pq.Array(recs), rec.ProfileFingerprint, rec.ComputedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return store.ErrVersionConflict
		}
		return fmt.Errorf("append score: %w", err)
	}
	return nil
}

// ScoreHistory returns up to limit records, newest first.
func (s *Store) ScoreHistory(ctx context.Context, subjectID string, limit int) ([]models.ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+scoreColumns+`
		FROM score_records WHERE subject_id = $1
		ORDER BY version DESC LIMIT $2`, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("score history: %w", err)
	}
	defer rows.Close()

	var out []models.ScoreRecord
	for rows.Next() {
		rec, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// ListSubjects returns subject ids in a stable order. limit <= 0 means all.
func (s *Store) ListSubjects(ctx context.Context, limit int) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx,
			`SELECT subject_id FROM applicant_profiles ORDER BY subject_id LIMIT $1`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT subject_id FROM applicant_profiles ORDER BY subject_id`)
	}
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TrainingSamples returns the most recent labelled samples.
func (s *Store) TrainingSamples(ctx context.Context, limit int) ([]models.TrainingSample, error) {
	if limit <= 0 {
		limit = 10000
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT features, outcome_good FROM training_samples
		ORDER BY recorded_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("training samples: %w", err)
	}
	defer rows.Close()

	var out []models.TrainingSample
	for rows.Next() {
		var (
			raw    []byte
			sample models.TrainingSample
		)
		if err := rows.Scan(&raw, &sample.Good); err != nil {
			return nil, fmt.Errorf("scan training sample: %w", err)
		}
		if err := json.Unmarshal(raw, &sample.Features); err != nil {
			return nil, fmt.Errorf("decode training features: %w", err)
		}
		out = append(out, sample)
	}
	return out, rows.Err()
}

func (s *Store) AddTrainingSample(ctx context.Context, sample models.TrainingSample) error {
	raw, err := json.Marshal(sample.Features)
	if err != nil {
		return fmt.Errorf("encode training features: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO training_samples (features, outcome_good) VALUES ($1, $2)`, raw, sample.Good); err != nil {
		return fmt.Errorf("add training sample: %w", err)
	}
	return nil
}

func (s *Store) SaveNotification(ctx context.Context, n *models.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, subject_id, type, title, message, old_score, new_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.SubjectID, string(n.Type), n.Title, n.Message, n.OldScore, n.NewScore, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	return nil
}

func (s *Store) GetContact(ctx context.Context, subjectID string) (*models.Contact, error) {
	c := models.Contact{SubjectID: subjectID}
	err := s.db.QueryRowContext(ctx,
		`SELECT email, phone FROM subject_contacts WHERE subject_id = $1`, subjectID).Scan(&c.Email, &c.Phone)
	if err != nil {
		return nil, notFound(err, "get contact")
	}
	return &c, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanScore(row scanner) (*models.ScoreRecord, error) {
	var (
		rec     models.ScoreRecord
		details []byte
		recs    []string
	)
	err := row.Scan(&rec.ID, &rec.SubjectID, &rec.Version, &rec.Score, &rec.Score850, &rec.RiskTier,
		&rec.EligibleAmount, &rec.ModelType, &rec.Confidence, &rec.ProductType, &rec.Source,
		&details, pq.Array(&recs), &rec.ProfileFingerprint, &rec.ComputedAt)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &rec.Details); err != nil {
			return nil, fmt.Errorf("decode score details %s: %w", rec.ID, err)
		}
	}
	rec.Recommendations = recs
	return &rec, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
