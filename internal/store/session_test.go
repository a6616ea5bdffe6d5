package store

import (
	"testing"

	"bookexam/internal/model"
)

func testSet() model.QuestionSet {
	return model.QuestionSet{
		ID:        "set-1",
		ChapterID: "ch-1",
		Spec:      model.QuestionSpec{Type: model.TypeMCQ, Marks: 1, Count: 2},
		Questions: []model.Question{
			{ID: "q-1", Marks: 1, Type: model.TypeMCQ},
			{ID: "q-2", Marks: 1, Type: model.TypeMCQ},
		},
	}
}

func TestSetCache(t *testing.T) {
	sessions := NewSessions()
	set := testSet()
	sessions.PutSet(set)

	got, ok := sessions.GetSet("set-1")
	if !ok || got.ID != "set-1" {
		t.Fatalf("GetSet() = %+v, %v", got, ok)
	}

	// Same chapter and spec map to the same cached set.
	cached, ok := sessions.SetForSpec("ch-1", set.Spec)
	if !ok || cached.ID != set.ID {
		t.Errorf("SetForSpec() = %+v, %v, want cached set", cached, ok)
	}

	// A different spec misses.
	other := model.QuestionSpec{Type: model.TypeMCQ, Marks: 1, Count: 3}
	if _, ok := sessions.SetForSpec("ch-1", other); ok {
		t.Error("SetForSpec() should miss for a different count")
	}
	if _, ok := sessions.SetForSpec("ch-2", set.Spec); ok {
		t.Error("SetForSpec() should miss for a different chapter")
	}
}

func TestTestLifecycle(t *testing.T) {
	sessions := NewSessions()
	sessions.PutSet(testSet())

	sess, err := sessions.StartTest("set-1")
	if err != nil {
		t.Fatalf("StartTest() error = %v", err)
	}
	if sess.ID == "" || sess.Set.ID != "set-1" {
		t.Fatalf("session malformed: %+v", sess)
	}

	a := model.Answer{QuestionID: "q-1", Text: "A"}
	ev := model.Evaluation{QuestionID: "q-1", Score: 1, MaxScore: 1}
	if err := sessions.RecordAnswer(sess.ID, a, ev); err != nil {
		t.Fatalf("RecordAnswer() error = %v", err)
	}

	// Re-answering replaces the previous pair.
	ev2 := model.Evaluation{QuestionID: "q-1", Score: 0, MaxScore: 1}
	if err := sessions.RecordAnswer(sess.ID, a, ev2); err != nil {
		t.Fatalf("RecordAnswer() error = %v", err)
	}
	got, _ := sessions.GetTest(sess.ID)
	if got.Evaluations["q-1"].Score != 0 {
		t.Error("re-answer should replace the stored evaluation")
	}

	finished, err := sessions.FinishTest(sess.ID)
	if err != nil {
		t.Fatalf("FinishTest() error = %v", err)
	}
	if len(finished.Answers) != 1 {
		t.Errorf("finished session has %d answers, want 1", len(finished.Answers))
	}

	// The session is gone after completion.
	if _, ok := sessions.GetTest(sess.ID); ok {
		t.Error("finished test should be removed")
	}
	if err := sessions.RecordAnswer(sess.ID, a, ev); err == nil {
		t.Error("RecordAnswer() should fail for a finished test")
	}
}

func TestStartTestUnknownSet(t *testing.T) {
	if _, err := NewSessions().StartTest("missing"); err == nil {
		t.Error("StartTest() should fail for an unknown set")
	}
}
