package study

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anatolykoptev/go_tutor/internal/engine"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// PGStore is the Postgres-backed Store, for shared deployments.
type PGStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres creates a pgx pool and runs schema migrations.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PGStore, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PGStore{pool: pool}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("study postgres connected", slog.String("addr", config.ConnConfig.Host))
	return s, nil
}

func (s *PGStore) Close() {
	s.pool.Close()
}

func (s *PGStore) runMigrations(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := s.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
		slog.Info("migration applied", slog.String("file", entry.Name()))
	}
	return nil
}

// --- Transcripts ---

func (s *PGStore) InsertTranscriptIfAbsent(ctx context.Context, t *Transcript) (*Transcript, error) {
	out := *t
	err := s.pool.QueryRow(ctx,
		`INSERT INTO transcripts (owner_id, video_id, title, language, body)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (owner_id, video_id) DO NOTHING
		 RETURNING id, created_at`,
		t.OwnerID, t.VideoID, t.Title, t.Language, t.Text,
	).Scan(&out.ID, &out.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, ferr := s.FindTranscript(ctx, t.OwnerID, t.VideoID)
		if ferr != nil {
			return nil, fmt.Errorf("transcript conflict lookup: %w", ferr)
		}
		return nil, &DuplicateError{Existing: existing}
	}
	if err != nil {
		return nil, fmt.Errorf("insert transcript: %w", err)
	}
	return &out, nil
}

const transcriptCols = `id, owner_id, video_id, title, language, body, favorite, created_at`

func scanTranscript(row pgx.Row) (*Transcript, error) {
	var t Transcript
	err := row.Scan(&t.ID, &t.OwnerID, &t.VideoID, &t.Title, &t.Language, &t.Text, &t.Favorite, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PGStore) GetTranscript(ctx context.Context, id int64) (*Transcript, error) {
	return scanTranscript(s.pool.QueryRow(ctx,
		`SELECT `+transcriptCols+` FROM transcripts WHERE id = $1`, id))
}

func (s *PGStore) FindTranscript(ctx context.Context, ownerID, videoID string) (*Transcript, error) {
	return scanTranscript(s.pool.QueryRow(ctx,
		`SELECT `+transcriptCols+` FROM transcripts WHERE owner_id = $1 AND video_id = $2`,
		ownerID, videoID))
}

func (s *PGStore) ListTranscripts(ctx context.Context, ownerID string, favoritesOnly bool) ([]Transcript, error) {
	q := `SELECT ` + transcriptCols + ` FROM transcripts WHERE owner_id = $1`
	if favoritesOnly {
		q += ` AND favorite`
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	var out []Transcript
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *PGStore) ToggleTranscriptFavorite(ctx context.Context, id int64) (bool, error) {
	var fav bool
	err := s.pool.QueryRow(ctx,
		`UPDATE transcripts SET favorite = NOT favorite WHERE id = $1 RETURNING favorite`,
		id).Scan(&fav)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	return fav, err
}

// --- Questions ---

func (s *PGStore) InsertQuestionBatch(ctx context.Context, items []QuestionItem) ([]QuestionItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin question batch: %w", err)
	}
	defer tx.Rollback(ctx)

	out := make([]QuestionItem, 0, len(items))
	for _, q := range items {
		optionsJSON, _ := json.Marshal(q.Options)
		if q.Options == nil {
			optionsJSON = []byte(`[]`)
		}
		row := tx.QueryRow(ctx,
			`INSERT INTO questions (transcript_id, owner_id, video_id, qtype, question, answer, options)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id, created_at`,
			q.TranscriptID, q.OwnerID, q.VideoID, string(q.Type), q.Question, q.Answer, optionsJSON)
		if err := row.Scan(&q.ID, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("insert question: %w", err)
		}
		out = append(out, q)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit question batch: %w", err)
	}
	return out, nil
}

const questionCols = `id, transcript_id, owner_id, video_id, qtype, question, answer, options, favorite, attempts, correct_attempts, created_at`

func scanQuestion(row pgx.Row) (*QuestionItem, error) {
	var q QuestionItem
	var qtype string
	var optionsJSON []byte
	err := row.Scan(&q.ID, &q.TranscriptID, &q.OwnerID, &q.VideoID, &qtype,
		&q.Question, &q.Answer, &optionsJSON, &q.Favorite,
		&q.Attempts, &q.CorrectAttempts, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	q.Type = engine.QuestionType(qtype)
	_ = json.Unmarshal(optionsJSON, &q.Options)
	return &q, nil
}

func (s *PGStore) GetQuestion(ctx context.Context, id int64) (*QuestionItem, error) {
	return scanQuestion(s.pool.QueryRow(ctx,
		`SELECT `+questionCols+` FROM questions WHERE id = $1`, id))
}

func (s *PGStore) queryQuestions(ctx context.Context, q string, args ...any) ([]QuestionItem, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []QuestionItem
	for rows.Next() {
		item, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func (s *PGStore) ListQuestions(ctx context.Context, transcriptID int64) ([]QuestionItem, error) {
	return s.queryQuestions(ctx,
		`SELECT `+questionCols+` FROM questions WHERE transcript_id = $1 ORDER BY id`, transcriptID)
}

func (s *PGStore) ListQuestionsBySet(ctx context.Context, ownerID, videoID string, qtype engine.QuestionType) ([]QuestionItem, error) {
	return s.queryQuestions(ctx,
		`SELECT `+questionCols+` FROM questions
		 WHERE owner_id = $1 AND video_id = $2 AND qtype = $3 ORDER BY id`,
		ownerID, videoID, string(qtype))
}

func (s *PGStore) ToggleQuestionFavorite(ctx context.Context, id int64) (bool, error) {
	var fav bool
	err := s.pool.QueryRow(ctx,
		`UPDATE questions SET favorite = NOT favorite WHERE id = $1 RETURNING favorite`,
		id).Scan(&fav)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	return fav, err
}

// IncrementQuestionAttempt bumps the counters in a single statement so
// concurrent submissions never lose an increment.
func (s *PGStore) IncrementQuestionAttempt(ctx context.Context, id int64, correct bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE questions
		 SET attempts = attempts + 1,
		     correct_attempts = correct_attempts + CASE WHEN $2 THEN 1 ELSE 0 END
		 WHERE id = $1`,
		id, correct)
	if err != nil {
		return fmt.Errorf("increment attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) CountQuestions(ctx context.Context, ownerID, videoID string, qtype engine.QuestionType) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE owner_id = $1 AND video_id = $2 AND qtype = $3`,
		ownerID, videoID, string(qtype)).Scan(&n)
	return n, err
}

// --- Progress ---

// UpsertProgressAnswer merges one answer into the progress record's
// answers map server-side, so concurrent submissions for different
// questions of the same set never clobber each other.
func (s *PGStore) UpsertProgressAnswer(ctx context.Context, ownerID, videoID string, qtype engine.QuestionType, questionID int64, ans AnswerEntry) (*ProgressRecord, error) {
	ansJSON, err := json.Marshal(ans)
	if err != nil {
		return nil, err
	}

	rec := ProgressRecord{OwnerID: ownerID, VideoID: videoID, Type: qtype}
	var answersJSON []byte
	err = s.pool.QueryRow(ctx,
		`INSERT INTO progress (owner_id, video_id, qtype, answers, total_attempts, correct_attempts, started_at, updated_at)
		 VALUES ($1, $2, $3, jsonb_build_object($4::text, $5::jsonb), 1, CASE WHEN $6 THEN 1 ELSE 0 END, now(), now())
		 ON CONFLICT (owner_id, video_id, qtype)
		 DO UPDATE SET answers = progress.answers || EXCLUDED.answers,
		               total_attempts = progress.total_attempts + 1,
		               correct_attempts = progress.correct_attempts + CASE WHEN $6 THEN 1 ELSE 0 END,
		               updated_at = now()
		 RETURNING id, answers, total_attempts, correct_attempts, percent, started_at, updated_at`,
		ownerID, videoID, string(qtype), strconv.FormatInt(questionID, 10), ansJSON, ans.Correct,
	).Scan(&rec.ID, &answersJSON, &rec.TotalAttempts, &rec.CorrectAttempts, &rec.Percent, &rec.StartedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert progress: %w", err)
	}
	if err := json.Unmarshal(answersJSON, &rec.Answers); err != nil {
		return nil, fmt.Errorf("decode progress answers: %w", err)
	}
	return &rec, nil
}

func (s *PGStore) SetProgressPercent(ctx context.Context, ownerID, videoID string, qtype engine.QuestionType, percent float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE progress SET percent = $4, updated_at = now()
		 WHERE owner_id = $1 AND video_id = $2 AND qtype = $3`,
		ownerID, videoID, string(qtype), percent)
	if err != nil {
		return fmt.Errorf("set progress percent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) GetProgress(ctx context.Context, ownerID, videoID string, qtype engine.QuestionType) (*ProgressRecord, error) {
	rec := ProgressRecord{OwnerID: ownerID, VideoID: videoID, Type: qtype}
	var answersJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, answers, total_attempts, correct_attempts, percent, started_at, updated_at FROM progress
		 WHERE owner_id = $1 AND video_id = $2 AND qtype = $3`,
		ownerID, videoID, string(qtype),
	).Scan(&rec.ID, &answersJSON, &rec.TotalAttempts, &rec.CorrectAttempts, &rec.Percent, &rec.StartedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answersJSON, &rec.Answers); err != nil {
		return nil, fmt.Errorf("decode progress answers: %w", err)
	}
	return &rec, nil
}

func (s *PGStore) ListPracticeSets(ctx context.Context, ownerID string) ([]PracticeSet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT q.video_id, COALESCE(t.title, ''), q.qtype, COUNT(*), COALESCE(MAX(p.percent), 0)
		 FROM questions q
		 LEFT JOIN transcripts t ON t.owner_id = q.owner_id AND t.video_id = q.video_id
		 LEFT JOIN progress p ON p.owner_id = q.owner_id AND p.video_id = q.video_id AND p.qtype = q.qtype
		 WHERE q.owner_id = $1
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
