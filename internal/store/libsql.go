package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/axiometa/academy/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db    *sql.DB
	retry RetryPolicy
}

var _ Store = (*LibSQLStore)(nil)

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/academy.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db, retry: DefaultRetryPolicy}, nil
}

// DB returns the underlying *sql.DB for the event log.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Learners ---

func (s *LibSQLStore) CreateLearner(ctx context.Context, l *Learner) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO learners (id, name, role, metadata, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, role=excluded.role, metadata=excluded.metadata`,
		l.ID, l.Name, l.Role, nullRaw(l.Metadata), timeOrNow(l.CreatedAt),
	)
	return err
}

func (s *LibSQLStore) GetLearner(ctx context.Context, id string) (*Learner, error) {
	l := &Learner{}
	var metadata sql.NullString
	var lastSeen sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, role, metadata, created_at, last_seen_at FROM learners WHERE id = ?`, id,
	).Scan(&l.ID, &l.Name, &l.Role, &metadata, &l.CreatedAt, &lastSeen)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("learner", id)
	}
	if err != nil {
		return nil, err
	}
	l.Metadata = rawOrNil(metadata)
	if lastSeen.Valid {
		l.LastSeenAt = &lastSeen.Time
	}
	return l, nil
}

func (s *LibSQLStore) TouchLearner(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE learners SET last_seen_at = ? WHERE id = ?`, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "learner", id)
}

func (s *LibSQLStore) ListLearners(ctx context.Context) ([]*Learner, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, role, metadata, created_at, last_seen_at FROM learners ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Learner
	for rows.Next() {
		l := &Learner{}
		var metadata sql.NullString
		var lastSeen sql.NullTime
		if err := rows.Scan(&l.ID, &l.Name, &l.Role, &metadata, &l.CreatedAt, &lastSeen); err != nil {
			return nil, err
		}
		l.Metadata = rawOrNil(metadata)
		if lastSeen.Valid {
			l.LastSeenAt = &lastSeen.Time
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// --- Progress ---

func (s *LibSQLStore) GetProgress(ctx context.Context, learnerID string) (*Progress, error) {
	p := &Progress{}
	var kit sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT learner_id, level, xp, next_level_xp, selected_kit, updated_at FROM progress WHERE learner_id = ?`, learnerID,
	).Scan(&p.LearnerID, &p.Level, &p.XP, &p.NextLevelXP, &kit, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("progress", learnerID)
	}
	if err != nil {
		return nil, err
	}
	p.SelectedKit = kit.String
	return p, nil
}

func (s *LibSQLStore) SaveProgress(ctx context.Context, p *Progress) error {
	p.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO progress (learner_id, level, xp, next_level_xp, selected_kit, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(learner_id) DO UPDATE SET level=excluded.level, xp=excluded.xp,
		   next_level_xp=excluded.next_level_xp, selected_kit=excluded.selected_kit, updated_at=excluded.updated_at`,
		p.LearnerID, p.Level, p.XP, p.NextLevelXP, nullStr(p.SelectedKit), p.UpdatedAt,
	)
	return err
}

// --- Completions ---

func (s *LibSQLStore) MarkLessonCompleted(ctx context.Context, c *CompletedLesson) (bool, error) {
	c.CompletedAt = timeOrNow(c.CompletedAt)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO completed_lessons (learner_id, lesson_id, xp_awarded, completed_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(learner_id, lesson_id) DO NOTHING`,
		c.LearnerID, c.LessonID, c.XPAwarded, c.CompletedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CompleteLesson records the completion and, when it is the first one, saves
// p in the same transaction.
func (s *LibSQLStore) CompleteLesson(ctx context.Context, c *CompletedLesson, p *Progress) (bool, error) {
	var first bool
	err := s.retry.run(ctx, func() error {
		var err error
		first, err = s.completeLesson(ctx, c, p)
		return err
	})
	return first, err
}

func (s *LibSQLStore) completeLesson(ctx context.Context, c *CompletedLesson, p *Progress) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	c.CompletedAt = timeOrNow(c.CompletedAt)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO completed_lessons (learner_id, lesson_id, xp_awarded, completed_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(learner_id, lesson_id) DO NOTHING`,
		c.LearnerID, c.LessonID, c.XPAwarded, c.CompletedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	updatedAt := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO progress (learner_id, level, xp, next_level_xp, selected_kit, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(learner_id) DO UPDATE SET level=excluded.level, xp=excluded.xp,
		   next_level_xp=excluded.next_level_xp, selected_kit=excluded.selected_kit, updated_at=excluded.updated_at`,
		p.LearnerID, p.Level, p.XP, p.NextLevelXP, nullStr(p.SelectedKit), updatedAt,
	); err != nil {
		return false, fmt.Errorf("save progress: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	p.UpdatedAt = updatedAt
	return true, nil
}

func (s *LibSQLStore) ListCompletedLessons(ctx context.Context, learnerID string) ([]*CompletedLesson, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT learner_id, lesson_id, xp_awarded, completed_at FROM completed_lessons
		 WHERE learner_id = ? ORDER BY completed_at ASC, lesson_id ASC`, learnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*CompletedLesson
	for rows.Next() {
		c := &CompletedLesson{}
		if err := rows.Scan(&c.LearnerID, &c.LessonID, &c.XPAwarded, &c.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Sessions ---

const sessionColumns = `id, learner_id, lesson_id, status, step_index, revealed_hints, started_at, updated_at, completed_at`

func (s *LibSQLStore) CreateSession(ctx context.Context, ls *LessonSession) error {
	hints, err := marshalHints(ls.RevealedHints)
	if err != nil {
		return err
	}
	ls.StartedAt = timeOrNow(ls.StartedAt)
	ls.UpdatedAt = timeOrNow(ls.UpdatedAt)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO lesson_sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ls.ID, ls.LearnerID, ls.LessonID, string(ls.Status), ls.StepIndex, hints,
		ls.StartedAt, ls.UpdatedAt, nullTime(ls.CompletedAt),
	)
	return err
}

func (s *LibSQLStore) GetSession(ctx context.Context, id string) (*LessonSession, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM lesson_sessions WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sessions, err := scanSessions(rows)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, storeNotFound("session", id)
	}
	return sessions[0], nil
}

func (s *LibSQLStore) UpdateSession(ctx context.Context, id string, update SessionUpdate) error {
	var sets []string
	var args []any

	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.StepIndex != nil {
		sets = append(sets, "step_index = ?")
		args = append(args, *update.StepIndex)
	}
	if update.RevealedHints != nil {
		hints, err := marshalHints(update.RevealedHints)
		if err != nil {
			return err
		}
		sets = append(sets, "revealed_hints = ?")
		args = append(args, hints)
	}
	if update.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, *update.CompletedAt)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE lesson_sessions SET %s WHERE id = ?", strings.Join(sets, ", ")), args...)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "session", id)
}

func (s *LibSQLStore) ListSessions(ctx context.Context, filter SessionFilter) ([]*LessonSession, error) {
	var where []string
	var args []any

	if filter.LearnerID != "" {
		where = append(where, "learner_id = ?")
		args = append(args, filter.LearnerID)
	}
	if filter.LessonID != "" {
		where = append(where, "lesson_id = ?")
		args = append(args, filter.LessonID)
	}
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}

	query := `SELECT ` + sessionColumns + ` FROM lesson_sessions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (s *LibSQLStore) AbandonIdleSessions(ctx context.Context, before time.Time) ([]*LessonSession, error) {
	var idle []*LessonSession
	err := s.retry.run(ctx, func() error {
		var err error
		idle, err = s.abandonIdle(ctx, before)
		return err
	})
	return idle, err
}

func (s *LibSQLStore) abandonIdle(ctx context.Context, before time.Time) ([]*LessonSession, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM lesson_sessions WHERE status = ? AND updated_at < ?`,
		string(schema.SessionInProgress), before)
	if err != nil {
		return nil, err
	}
	idle, err := scanSessions(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, ls := range idle {
		if _, err := tx.ExecContext(ctx,
			`UPDATE lesson_sessions SET status = ?, updated_at = ? WHERE id = ?`,
			string(schema.SessionAbandoned), now, ls.ID); err != nil {
			return nil, fmt.Errorf("abandon session %s: %w", ls.ID, err)
		}
		ls.Status = schema.SessionAbandoned
		ls.UpdatedAt = now
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit abandon: %w", err)
	}
	return idle, nil
}

func scanSessions(rows *sql.Rows) ([]*LessonSession, error) {
	var out []*LessonSession
	for rows.Next() {
		ls := &LessonSession{}
		var status, hints string
		var completed sql.NullTime
		if err := rows.Scan(&ls.ID, &ls.LearnerID, &ls.LessonID, &status, &ls.StepIndex, &hints,
			&ls.StartedAt, &ls.UpdatedAt, &completed); err != nil {
			return nil, err
		}
		ls.Status = schema.SessionStatus(status)
		if hints != "" {
			if err := json.Unmarshal([]byte(hints), &ls.RevealedHints); err != nil {
				return nil, fmt.Errorf("unmarshal revealed_hints: %w", err)
			}
		}
		if completed.Valid {
			ls.CompletedAt = &completed.Time
		}
		out = append(out, ls)
	}
	return out, rows.Err()
}

// --- Challenge ratings ---

func (s *LibSQLStore) RateChallenge(ctx context.Context, r *ChallengeRating) error {
	if r.Stars < 1 || r.Stars > 3 {
		return schema.NewErrorf(schema.ErrCodeOutOfRange, "stars must be between 1 and 3, got %d", r.Stars).WithStep(r.StepID)
	}
	r.RatedAt = timeOrNow(r.RatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO challenge_ratings (learner_id, lesson_id, step_id, stars, rated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(learner_id, lesson_id, step_id) DO UPDATE SET stars=excluded.stars, rated_at=excluded.rated_at`,
		r.LearnerID, r.LessonID, r.StepID, r.Stars, r.RatedAt,
	)
	return err
}

func (s *LibSQLStore) ListChallengeRatings(ctx context.Context, learnerID string) ([]*ChallengeRating, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT learner_id, lesson_id, step_id, stars, rated_at FROM challenge_ratings
		 WHERE learner_id = ? ORDER BY lesson_id, step_id`, learnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ChallengeRating
	for rows.Next() {
		r := &ChallengeRating{}
		if err := rows.Scan(&r.LearnerID, &r.LessonID, &r.StepID, &r.Stars, &r.RatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Events ---

const eventColumns = `id, learner_id, session_id, lesson_id, step_id, event_type, payload, timestamp, sequence`

func (s *LibSQLStore) AppendEvent(ctx context.Context, event *Event) error {
	return s.retry.run(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		if err := insertEvent(ctx, tx, event); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit event: %w", err)
		}
		return nil
	})
}

// insertEvent assigns the next per-learner sequence and inserts the event inside tx.
func insertEvent(ctx context.Context, tx *sql.Tx, event *Event) error {
	var seq int64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM events WHERE learner_id = ?`, event.LearnerID,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("get next sequence: %w", err)
	}
	event.Sequence = seq
	event.Timestamp = timeOrNow(event.Timestamp)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO events (learner_id, session_id, lesson_id, step_id, event_type, payload, timestamp, sequence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.LearnerID, nullStr(event.SessionID), nullStr(event.LessonID), nullStr(event.StepID),
		event.Type, nullRaw(event.Payload), event.Timestamp, seq,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		event.ID = id
	}
	return nil
}

func (s *LibSQLStore) GetEvents(ctx context.Context, learnerID string, since int64) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE learner_id = ? AND sequence > ? ORDER BY sequence ASC`,
		learnerID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *LibSQLStore) GetEventsByType(ctx context.Context, eventType string, filter EventFilter) ([]*Event, error) {
	where := []string{"event_type = ?"}
	args := []any{eventType}

	if filter.LearnerID != "" {
		where = append(where, "learner_id = ?")
		args = append(args, filter.LearnerID)
	}
	if filter.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.Since != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, *filter.Since)
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]*Event, error) {
	var events []*Event
	for rows.Next() {
		e := &Event{}
		var sessionID, lessonID, stepID, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.LearnerID, &sessionID, &lessonID, &stepID, &e.Type, &payload, &e.Timestamp, &e.Sequence); err != nil {
			return nil, err
		}
		e.SessionID = sessionID.String
		e.LessonID = lessonID.String
		e.StepID = stepID.String
		e.Payload = rawOrNil(payload)
		events = append(events, e)
	}
	return events, rows.Err()
}

// --- Helpers ---

func storeNotFound(resource, id string) *schema.AcademyError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullRaw(r json.RawMessage) any {
	if len(r) == 0 {
		return nil
	}
	return string(r)
}

func rawOrNil(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}

func marshalHints(h map[string]int) (string, error) {
	if len(h) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("marshal revealed_hints: %w", err)
	}
	return string(b), nil
}
