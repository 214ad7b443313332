package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careassist/symptom-checker/internal/analysis"
	"github.com/careassist/symptom-checker/internal/shared/errors"
	"github.com/careassist/symptom-checker/internal/shared/metrics"
)

// Postgres persists records in the analysis_history table. Eviction
// runs in the same transaction as the insert, so a session never holds
// more than its cap even under concurrent appends.
type Postgres struct {
	pool       *pgxpool.Pool
	perSession int
}

// NewPostgres creates a database-backed store keeping perSession
// records per session.
func NewPostgres(pool *pgxpool.Pool, perSession int) *Postgres {
	if perSession < 1 {
		perSession = 1
	}
	return &Postgres{pool: pool, perSession: perSession}
}

// Append inserts the record and deletes anything beyond the session
// cap, oldest first.
func (p *Postgres) Append(ctx context.Context, sessionID string, result analysis.Result) (analysis.HistoryRecord, error) {
	start := time.Now()

	rec := analysis.HistoryRecord{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		CreatedAt: recordTime(result),
		Result:    result,
	}

	conditionsJSON, err := json.Marshal(result.Conditions)
	if err != nil {
		return analysis.HistoryRecord{}, errors.Wrap(err, "failed to marshal conditions")
	}
	recommendationsJSON, err := json.Marshal(result.Recommendations)
	if err != nil {
		return analysis.HistoryRecord{}, errors.Wrap(err, "failed to marshal recommendations")
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return analysis.HistoryRecord{}, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO analysis_history (
			id, session_id, created_at, symptoms,
			age, gender, duration, severity,
			urgency, conditions, recommendations, note, ai_model
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = tx.Exec(ctx, insert,
		rec.ID, sessionID, rec.CreatedAt, result.Input.Symptoms,
		string(result.Input.Age), result.Input.Gender, result.Input.Duration, result.Input.Severity,
		string(result.Urgency), conditionsJSON, recommendationsJSON, result.Note, result.Model,
	)
	if err != nil {
		return analysis.HistoryRecord{}, errors.Wrap(err, "failed to insert history record")
	}

	evict := `
		DELETE FROM analysis_history
		WHERE session_id = $1
		  AND seq NOT IN (
			SELECT seq FROM analysis_history
			WHERE session_id = $1
			ORDER BY seq DESC
			LIMIT $2
		  )`

	if _, err := tx.Exec(ctx, evict, sessionID, p.perSession); err != nil {
		return analysis.HistoryRecord{}, errors.Wrap(err, "failed to evict old history records")
	}

	if err := tx.Commit(ctx); err != nil {
		return analysis.HistoryRecord{}, errors.Wrap(err, "failed to commit transaction")
	}

	metrics.RecordDBQuery("history_append", time.Since(start))
	return rec, nil
}

// BySession returns the stored records, most recent first. Unknown
// sessions yield an empty slice.
func (p *Postgres) BySession(ctx context.Context, sessionID string) ([]analysis.HistoryRecord, error) {
	start := time.Now()

	query := `
		SELECT id, session_id, created_at, symptoms,
		       age, gender, duration, severity,
		       urgency, conditions, recommendations, note, ai_model
		FROM analysis_history
		WHERE session_id = $1
		ORDER BY seq DESC`

	rows, err := p.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query history")
	}
	defer rows.Close()

	records := []analysis.HistoryRecord{}
	for rows.Next() {
		var (
			rec                 analysis.HistoryRecord
			age                 string
			urgency             string
			conditionsJSON      []byte
			recommendationsJSON []byte
		)

		err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.CreatedAt, &rec.Result.Input.Symptoms,
			&age, &rec.Result.Input.Gender, &rec.Result.Input.Duration, &rec.Result.Input.Severity,
			&urgency, &conditionsJSON, &recommendationsJSON, &rec.Result.Note, &rec.Result.Model,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan history record")
		}

		rec.Result.Timestamp = rec.CreatedAt
		rec.Result.Input.Age = analysis.FlexString(age)
		rec.Result.Input.SessionID = rec.SessionID
		rec.Result.Urgency = analysis.Urgency(urgency)
		rec.Result.Disclaimer = true

		if err := json.Unmarshal(conditionsJSON, &rec.Result.Conditions); err != nil {
			return nil, errors.Wrap(err, "failed to decode stored conditions")
		}
		if err := json.Unmarshal(recommendationsJSON, &rec.Result.Recommendations); err != nil {
			return nil, errors.Wrap(err, "failed to decode stored recommendations")
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read history rows")
	}

	metrics.RecordDBQuery("history_by_session", time.Since(start))
	return records, nil
}
