package study

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anatolykoptev/go_tutor/internal/engine"
)

// SQLiteStore is the file-backed Store for local single-user use.
// SQLite lacks server-side JSON merge, so progress upserts do a
// read-modify-write under mu.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// DefaultSQLitePath returns (and creates the directory for) the default
// local database path under the user's home.
func DefaultSQLitePath() (string, error) {
	dir := filepath.Join(os.Getenv("HOME"), ".go_tutor")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return filepath.Join(dir, "study.db"), nil
}

// OpenSQLite opens (or creates) the SQLite study database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() {
	_ = s.db.Close()
}

func initSQLiteSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transcripts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id   TEXT NOT NULL,
			video_id   TEXT NOT NULL,
			title      TEXT NOT NULL DEFAULT '',
			language   TEXT NOT NULL DEFAULT '',
			body       TEXT NOT NULL,
			favorite   INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			UNIQUE (owner_id, video_id)
		)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			transcript_id    INTEGER NOT NULL,
			owner_id         TEXT NOT NULL,
			video_id         TEXT NOT NULL,
			qtype            TEXT NOT NULL,
			question         TEXT NOT NULL,
			answer           TEXT NOT NULL,
			options          TEXT NOT NULL DEFAULT '[]',
			favorite         INTEGER NOT NULL DEFAULT 0,
			attempts         INTEGER NOT NULL DEFAULT 0,
			correct_attempts INTEGER NOT NULL DEFAULT 0,
			created_at       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS questions_transcript_idx ON questions (transcript_id)`,
		`CREATE INDEX IF NOT EXISTS questions_set_idx ON questions (owner_id, video_id, qtype)`,
		`CREATE TABLE IF NOT EXISTS progress (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id         TEXT NOT NULL,
			video_id         TEXT NOT NULL,
			qtype            TEXT NOT NULL,
			answers          TEXT NOT NULL DEFAULT '{}',
			total_attempts   INTEGER NOT NULL DEFAULT 0,
			correct_attempts INTEGER NOT NULL DEFAULT 0,
			percent          REAL NOT NULL DEFAULT 0,
			started_at       TEXT NOT NULL,
			updated_at       TEXT NOT NULL,
			UNIQUE (owner_id, video_id, qtype)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		slog.Warn("sqlite: bad stored timestamp", slog.String("value", s), slog.Any("error", err))
	}
	return t
}

// --- Transcripts ---

func (s *SQLiteStore) InsertTranscriptIfAbsent(ctx context.Context, t *Transcript) (*Transcript, error) {
	now := nowRFC3339()
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO transcripts (owner_id, video_id, title, language, body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.OwnerID, t.VideoID, t.Title, t.Language, t.Text, now)
	if err != nil {
		return nil, fmt.Errorf("insert transcript: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		existing, ferr := s.FindTranscript(ctx, t.OwnerID, t.VideoID)
		if ferr != nil {
			return nil, fmt.Errorf("transcript conflict lookup: %w", ferr)
		}
		return nil, &DuplicateError{Existing: existing}
	}

	out := *t
	out.ID, _ = res.LastInsertId()
	out.CreatedAt = parseTime(now)
	return &out, nil
}

const sqliteTranscriptCols = `id, owner_id, video_id, title, language, body, favorite, created_at`

func scanSQLiteTranscript(row *sql.Row) (*Transcript, error) {
	var t Transcript
	var createdAt string
	err := row.Scan(&t.ID, &t.OwnerID, &t.VideoID, &t.Title, &t.Language, &t.Text, &t.Favorite, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}

func (s *SQLiteStore) GetTranscript(ctx context.Context, id int64) (*Transcript, error) {
	return scanSQLiteTranscript(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteTranscriptCols+` FROM transcripts WHERE id = ?`, id))
}

func (s *SQLiteStore) FindTranscript(ctx context.Context, ownerID, videoID string) (*Transcript, error) {
	return scanSQLiteTranscript(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteTranscriptCols+` FROM transcripts WHERE owner_id = ? AND video_id = ?`,
		ownerID, videoID))
}

func (s *SQLiteStore) ListTranscripts(ctx context.Context, ownerID string, favoritesOnly bool) ([]Transcript, error) {
	q := `SELECT ` + sqliteTranscriptCols + ` FROM transcripts WHERE owner_id = ?`
	if favoritesOnly {
		q += ` AND favorite = 1`
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	var out []Transcript
	for rows.Next() {
		var t Transcript
		var createdAt string
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.VideoID, &t.Title, &t.Language, &t.Text, &t.Favorite, &createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt = parseTime(createdAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ToggleTranscriptFavorite(ctx context.Context, id int64) (bool, error) {
	return s.toggleFavorite(ctx, "transcripts", id)
}

func (s *SQLiteStore) toggleFavorite(ctx context.Context, table string, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+table+` SET favorite = 1 - favorite WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, ErrNotFound
	}
	var fav bool
	err = s.db.QueryRowContext(ctx,
		`SELECT favorite FROM `+table+` WHERE id = ?`, id).Scan(&fav)
	return fav, err
}

// --- Questions ---

func (s *SQLiteStore) InsertQuestionBatch(ctx context.Context, items []QuestionItem) ([]QuestionItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin question batch: %w", err)
	}
	defer tx.Rollback()

	now := nowRFC3339()
	out := make([]QuestionItem, 0, len(items))
	for _, q := range items {
		optionsJSON, _ := json.Marshal(q.Options)
		if q.Options == nil {
			optionsJSON = []byte(`[]`)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO questions (transcript_id, owner_id, video_id, qtype, question, answer, options, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			q.TranscriptID, q.OwnerID, q.VideoID, string(q.Type), q.Question, q.Answer, string(optionsJSON), now)
		if err != nil {
			return nil, fmt.Errorf("insert question: %w", err)
		}
		q.ID, _ = res.LastInsertId()
		q.CreatedAt = parseTime(now)
		out = append(out, q)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit question batch: %w", err)
	}
	return out, nil
}

const sqliteQuestionCols = `id, transcript_id, owner_id, video_id, qtype, question, answer, options, favorite, attempts, correct_attempts, created_at`

func scanSQLiteQuestion(scan func(dest ...any) error) (*QuestionItem, error) {
	var q QuestionItem
	var qtype, optionsJSON, createdAt string
	err := scan(&q.ID, &q.TranscriptID, &q.OwnerID, &q.VideoID, &qtype,
		&q.Question, &q.Answer, &optionsJSON, &q.Favorite,
		&q.Attempts, &q.CorrectAttempts, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	q.Type = engine.QuestionType(qtype)
	_ = json.Unmarshal([]byte(optionsJSON), &q.Options)
	q.CreatedAt = parseTime(createdAt)
	return &q, nil
}

func (s *SQLiteStore) GetQuestion(ctx context.Context, id int64) (*QuestionItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteQuestionCols+` FROM questions WHERE id = ?`, id)
	return scanSQLiteQuestion(row.Scan)
}

func (s *SQLiteStore) queryQuestions(ctx context.Context, q string, args ...any) ([]QuestionItem, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []QuestionItem
	for rows.Next() {
		item, err := scanSQLiteQuestion(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListQuestions(ctx context.Context, transcriptID int64) ([]QuestionItem, error) {
	return s.queryQuestions(ctx,
		`SELECT `+sqliteQuestionCols+` FROM questions WHERE transcript_id = ? ORDER BY id`, transcriptID)
}

func (s *SQLiteStore) ListQuestionsBySet(ctx context.Context, ownerID, videoID string, qtype engine.QuestionType) ([]QuestionItem, error) {
	return s.queryQuestions(ctx,
		`SELECT `+sqliteQuestionCols+` FROM questions
		 WHERE owner_id = ? AND video_id = ? AND qtype = ? ORDER BY id`,
		ownerID, videoID, string(qtype))
}

func (s *SQLiteStore) ToggleQuestionFavorite(ctx context.Context, id int64) (bool, error) {
	return s.toggleFavorite(ctx, "questions", id)
}

func (s *SQLiteStore) IncrementQuestionAttempt(ctx context.Context, id int64, correct bool) error {
	inc := 0
	if correct {
		inc = 1
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions
		 SET attempts = attempts + 1, correct_attempts = correct_attempts + ?
		 WHERE id = ?`, inc, id)
	if err != nil {
		return fmt.Errorf("increment attempt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CountQuestions(ctx context.Context, ownerID, videoID string, qtype engine.QuestionType) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM questions WHERE owner_id = ? AND video_id = ? AND qtype = ?`,
		ownerID, videoID, string(qtype)).Scan(&n)
	return n, err
}

// --- Progress ---

func (s *SQLiteStore) UpsertProgressAnswer(ctx context.Context, ownerID, videoID string, qtype engine.QuestionType, questionID int64, ans AnswerEntry) (*ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowRFC3339()
	rec, err := s.GetProgress(ctx, ownerID, videoID, qtype)
	if errors.Is(err, ErrNotFound) {
		rec = &ProgressRecord{
			OwnerID:   ownerID,
			VideoID:   videoID,
			Type:      qtype,
			Answers:   map[string]AnswerEntry{},
			StartedAt: parseTime(now),
		}
	} else if err != nil {
		return nil, err
	}
	if rec.Answers == nil {
		rec.Answers = map[string]AnswerEntry{}
	}
	rec.Answers[strconv.FormatInt(questionID, 10)] = ans
	rec.TotalAttempts++
	if ans.Correct {
		rec.CorrectAttempts++
	}

	answersJSON, err := json.Marshal(rec.Answers)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO progress (owner_id, video_id, qtype, answers, total_attempts, correct_attempts, percent, started_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (owner_id, video_id, qtype)
		 DO UPDATE SET answers = excluded.answers,
		               total_attempts = excluded.total_attempts,
		               correct_attempts = excluded.correct_attempts,
		               updated_at = excluded.updated_at`,
		ownerID, videoID, string(qtype), string(answersJSON),
		rec.TotalAttempts, rec.CorrectAttempts, rec.Percent,
		rec.StartedAt.Format(time.RFC3339), now)
	if err != nil {
		return nil, fmt.Errorf("upsert progress: %w", err)
	}
	if rec.ID == 0 {
		rec.ID, _ = res.LastInsertId()
	}
	rec.UpdatedAt = parseTime(now)
	return rec, nil
}

func (s *SQLiteStore) SetProgressPercent(ctx context.Context, ownerID, videoID string, qtype engine.QuestionType, percent float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE progress SET percent = ?, updated_at = ?
		 WHERE owner_id = ? AND video_id = ? AND qtype = ?`,
		percent, nowRFC3339(), ownerID, videoID, string(qtype))
	if err != nil {
		return fmt.Errorf("set progress percent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetProgress(ctx context.Context, ownerID, videoID string, qtype engine.QuestionType) (*ProgressRecord, error) {
	rec := ProgressRecord{OwnerID: ownerID, VideoID: videoID, Type: qtype}
	var answersJSON, startedAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, answers, total_attempts, correct_attempts, percent, started_at, updated_at FROM progress
		 WHERE owner_id = ? AND video_id = ? AND qtype = ?`,
		ownerID, videoID, string(qtype),
	).Scan(&rec.ID, &answersJSON, &rec.TotalAttempts, &rec.CorrectAttempts, &rec.Percent, &startedAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(answersJSON), &rec.Answers); err != nil {
		return nil, fmt.Errorf("decode progress answers: %w", err)
	}
	rec.StartedAt = parseTime(startedAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return &rec, nil
}

func (s *SQLiteStore) ListPracticeSets(ctx context.Context, ownerID string) ([]PracticeSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT q.video_id, COALESCE(t.title, ''), q.qtype, COUNT(*), COALESCE(MAX(p.percent), 0)
		 FROM questions q
		 LEFT JOIN transcripts t ON t.owner_id = q.owner_id AND t.video_id = q.video_id
		 LEFT JOIN progress p ON p.owner_id = q.owner_id AND p.video_id = q.video_id AND p.qtype = q.qtype
		 WHERE q.owner_id = ?
		 GROUP BY q.video_id, t.title, q.qtype
		 ORDER BY q.video_id, q.qtype`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list practice sets: %w", err)
	}
	defer rows.Close()

	var out []PracticeSet
	for rows.Next() {
		var ps PracticeSet
		var qtype string
		if err := rows.Scan(&ps.VideoID, &ps.Title, &qtype, &ps.Questions, &ps.Percent); err != nil {
			return nil, err
		}
		ps.Type = engine.QuestionType(qtype)
		out = append(out, ps)
	}
	return out, rows.Err()
}
