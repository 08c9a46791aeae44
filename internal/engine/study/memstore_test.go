package study

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/anatolykoptev/go_tutor/internal/engine"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu          sync.Mutex
	nextID      int64
	transcripts map[int64]*Transcript
	questions   map[int64]*QuestionItem
	progress    map[string]*ProgressRecord
}

func newMemStore() *memStore {
	return &memStore{
		transcripts: map[int64]*Transcript{},
		questions:   map[int64]*QuestionItem{},
		progress:    map[string]*ProgressRecord{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func progressKey(ownerID, videoID string, qtype engine.QuestionType) string {
	return ownerID + "|" + videoID + "|" + string(qtype)
}

func (m *memStore) Close() {}

func (m *memStore) InsertTranscriptIfAbsent(_ context.Context, t *Transcript) (*Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.transcripts {
		if existing.OwnerID == t.OwnerID && existing.VideoID == t.VideoID {
			cp := *existing
			return nil, &DuplicateError{Existing: &cp}
		}
	}
	cp := *t
	cp.ID = m.id()
	cp.CreatedAt = time.Now().UTC()
	m.transcripts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) GetTranscript(_ context.Context, id int64) (*Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transcripts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) FindTranscript(_ context.Context, ownerID, videoID string) (*Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.transcripts {
		if t.OwnerID == ownerID && t.VideoID == videoID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) ListTranscripts(_ context.Context, ownerID string, favoritesOnly bool) ([]Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Transcript
	for _, t := range m.transcripts {
		if t.OwnerID != ownerID || (favoritesOnly && !t.Favorite) {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (m *memStore) ToggleTranscriptFavorite(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transcripts[id]
	if !ok {
		return false, ErrNotFound
	}
	t.Favorite = !t.Favorite
	return t.Favorite, nil
}

func (m *memStore) InsertQuestionBatch(_ context.Context, items []QuestionItem) ([]QuestionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]QuestionItem, 0, len(items))
	for _, q := range items {
		q.ID = m.id()
		q.CreatedAt = time.Now().UTC()
		cp := q
		m.questions[q.ID] = &cp
		out = append(out, q)
	}
	return out, nil
}

func (m *memStore) GetQuestion(_ context.Context, id int64) (*QuestionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (m *memStore) ListQuestions(_ context.Context, transcriptID int64) ([]QuestionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []QuestionItem
	for _, q := range m.questions {
		if q.TranscriptID == transcriptID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *memStore) ListQuestionsBySet(_ context.Context, ownerID, videoID string, qtype engine.QuestionType) ([]QuestionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []QuestionItem
	for _, q := range m.questions {
		if q.OwnerID == ownerID && q.VideoID == videoID && q.Type == qtype {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *memStore) ToggleQuestionFavorite(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return false, ErrNotFound
	}
	q.Favorite = !q.Favorite
	return q.Favorite, nil
}

func (m *memStore) IncrementQuestionAttempt(_ context.Context, id int64, correct bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return ErrNotFound
	}
	q.Attempts++
	if correct {
		q.CorrectAttempts++
	}
	return nil
}

func (m *memStore) CountQuestions(_ context.Context, ownerID, videoID string, qtype engine.QuestionType) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, q := range m.questions {
		if q.OwnerID == ownerID && q.VideoID == videoID && q.Type == qtype {
			n++
		}
	}
	return n, nil
}

func (m *memStore) UpsertProgressAnswer(_ context.Context, ownerID, videoID string, qtype engine.QuestionType, questionID int64, ans AnswerEntry) (*ProgressRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := progressKey(ownerID, videoID, qtype)
	rec, ok := m.progress[key]
	if !ok {
		rec = &ProgressRecord{
			ID:        m.id(),
			OwnerID:   ownerID,
			VideoID:   videoID,
			Type:      qtype,
			Answers:   map[string]AnswerEntry{},
			StartedAt: time.Now().UTC(),
		}
		m.progress[key] = rec
	}
	rec.Answers[strconv.FormatInt(questionID, 10)] = ans
	rec.TotalAttempts++
	if ans.Correct {
		rec.CorrectAttempts++
	}
	rec.UpdatedAt = time.Now().UTC()

	cp := *rec
	cp.Answers = make(map[string]AnswerEntry, len(rec.Answers))
	for k, v := range rec.Answers {
		cp.Answers[k] = v
	}
	return &cp, nil
}

func (m *memStore) SetProgressPercent(_ context.Context, ownerID, videoID string, qtype engine.QuestionType, percent float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.progress[progressKey(ownerID, videoID, qtype)]
	if !ok {
		return ErrNotFound
	}
	rec.Percent = percent
	return nil
}

func (m *memStore) GetProgress(_ context.Context, ownerID, videoID string, qtype engine.QuestionType) (*ProgressRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.progress[progressKey(ownerID, videoID, qtype)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	cp.Answers = make(map[string]AnswerEntry, len(rec.Answers))
	for k, v := range rec.Answers {
		cp.Answers[k] = v
	}
	return &cp, nil
}

func (m *memStore) ListPracticeSets(_ context.Context, ownerID string) ([]PracticeSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]*PracticeSet{}
	for _, q := range m.questions {
		if q.OwnerID != ownerID {
			continue
		}
		key := q.VideoID + "|" + string(q.Type)
		ps, ok := counts[key]
		if !ok {
			ps = &PracticeSet{VideoID: q.VideoID, Type: q.Type}
			if rec, ok := m.progress[progressKey(ownerID, q.VideoID, q.Type)]; ok {
				ps.Percent = rec.Percent
			}
			counts[key] = ps
		}
		ps.Questions++
	}
	var out []PracticeSet
	for _, ps := range counts {
		out = append(out, *ps)
	}
	return out, nil
}
