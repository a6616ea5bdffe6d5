package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"bookexam/internal/model"
)

// Sessions is the session-scoped in-memory state: generated question
// sets keyed by chapter+spec, and in-progress test sessions. It lives
// for the process lifetime and is never persisted; only completed
// results reach the durable store.
type Sessions struct {
	mu        sync.Mutex
	setsByKey map[string]string // chapter+spec key -> set ID
	sets      map[string]model.QuestionSet
	tests     map[string]*model.TestSession
}

func NewSessions() *Sessions {
	return &Sessions{
		setsByKey: make(map[string]string),
		sets:      make(map[string]model.QuestionSet),
		tests:     make(map[string]*model.TestSession),
	}
}

// PutSet caches a question set under its chapter+spec key.
func (s *Sessions) PutSet(set model.QuestionSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[set.ID] = set
	s.setsByKey[set.Spec.Key(set.ChapterID)] = set.ID
}

// SetForSpec returns the cached set for a chapter+spec, if any.
func (s *Sessions) SetForSpec(chapterID string, spec model.QuestionSpec) (model.QuestionSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.setsByKey[spec.Key(chapterID)]
	if !ok {
		return model.QuestionSet{}, false
	}
	set, ok := s.sets[id]
	return set, ok
}

// GetSet returns a cached set by ID.
func (s *Sessions) GetSet(id string) (model.QuestionSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[id]
	return set, ok
}

// StartTest opens a test session over a cached question set.
func (s *Sessions) StartTest(setID string) (*model.TestSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[setID]
	if !ok {
		return nil, fmt.Errorf("question set %s not found", setID)
	}
	sess := &model.TestSession{
		ID:          uuid.NewString(),
		Set:         set,
		Answers:     make(map[string]model.Answer),
		Evaluations: make(map[string]model.Evaluation),
		StartedAt:   time.Now(),
	}
	s.tests[sess.ID] = sess
	return sess, nil
}

// GetTest returns an in-progress test session.
func (s *Sessions) GetTest(id string) (*model.TestSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.tests[id]
	return sess, ok
}

// RecordAnswer stores an answer and its evaluation in the session.
// Re-answering a question replaces the previous pair.
func (s *Sessions) RecordAnswer(testID string, a model.Answer, ev model.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.tests[testID]
	if !ok {
		return fmt.Errorf("test %s not found", testID)
	}
	sess.Answers[a.QuestionID] = a
	sess.Evaluations[a.QuestionID] = ev
	return nil
}

// FinishTest removes the session and returns it for aggregation.
func (s *Sessions) FinishTest(id string) (*model.TestSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.tests[id]
	if !ok {
		return nil, fmt.Errorf("test %s not found", id)
	}
	delete(s.tests, id)
	return sess, nil
}
