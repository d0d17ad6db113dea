package session_test

import (
	"QuestionnaireBot/model"
	"QuestionnaireBot/session"
	"QuestionnaireBot/session/sessiontest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func sampleQuestions() []model.Question {
	return []model.Question{
		{ID: 1, Text: "Name?", Modality: model.TextModality{}},
		{ID: 2, Text: "Rate it", Modality: model.RatingModality{Min: 1, Max: 5}},
	}
}

func newMachine(t *testing.T, opts ...session.Option) (*session.Machine, *sessiontest.Clock) {
	t.Helper()
	clock := sessiontest.NewClock()
	opts = append([]session.Option{
		session.WithScheduler(clock),
		session.WithPicker(sessiontest.NewPicker(0)),
	}, opts...)
	m, err := session.New(opts...)
	require.NoError(t, err)
	return m, clock
}

func started(t *testing.T, questions []model.Question, fillers []string) (*session.Machine, *sessiontest.Clock) {
	t.Helper()
	m, clock := newMachine(t)
	require.NoError(t, m.Initialize(questions, fillers))
	clock.Advance(time.Second)
	require.Equal(t, session.PhaseAwaitingInput, m.Phase())
	return m, clock
}

func TestInitialize_FirstQuestionAfterDelay(t *testing.T) {
	m, clock := newMachine(t)
	require.NoError(t, m.Initialize(sampleQuestions(), []string{"Got it!"}))

	snap := m.Snapshot()
	assert.Equal(t, session.PhaseBotTyping, snap.Phase)
	assert.True(t, snap.Typing)
	assert.Empty(t, snap.Messages)

	clock.Advance(999 * time.Millisecond)
	assert.Empty(t, m.Snapshot().Messages)

	clock.Advance(time.Millisecond)
	snap = m.Snapshot()
	assert.Equal(t, session.PhaseAwaitingInput, snap.Phase)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "Name?", snap.Messages[0].Text)
	assert.Equal(t, model.SenderBot, snap.Messages[0].Sender)
}

func TestInitialize_Errors(t *testing.T) {
	m, _ := newMachine(t)

	assert.ErrorIs(t, m.Initialize(nil, []string{"ok"}), model.ErrNoQuestions)
	assert.ErrorIs(t, m.Initialize(sampleQuestions(), nil), model.ErrNoFillers)
	assert.ErrorIs(t, m.Reset(), model.ErrNoQuestions)

	bad := []model.Question{{ID: 1, Text: "Rate", Modality: model.RatingModality{Min: 5, Max: 1}}}
	assert.ErrorIs(t, m.Initialize(bad, []string{"ok"}), model.ErrInvalidModality)
	assert.Equal(t, session.PhaseUninitialized, m.Phase())
}

func TestNew_RejectsBadDelays(t *testing.T) {
	_, err := session.New(session.WithDelays(session.Delays{
		Greeting:     time.Second,
		Filler:       3 * time.Second,
		NextQuestion: 2 * time.Second,
		Completion:   4 * time.Second,
	}))
	assert.ErrorIs(t, err, session.ErrInvalidDelays)
}

func TestSubmit_FullScenario(t *testing.T) {
	m, clock := started(t, sampleQuestions(), []string{"Got it!"})

	require.True(t, m.Submit("Alice"))
	clock.Advance(sessiontest.Settle)
	require.True(t, m.Submit("4"))
	clock.Advance(sessiontest.Settle)

	snap := m.Snapshot()
	assert.Equal(t, session.PhaseCompleted, snap.Phase)
	assert.True(t, snap.Completed)
	assert.False(t, snap.Typing)
	assert.Equal(t, []model.Answer{
		{QuestionID: 1, QuestionText: "Name?", AnswerText: "Alice"},
		{QuestionID: 2, QuestionText: "Rate it", AnswerText: "4"},
	}, snap.Answers)

	var texts []string
	for _, msg := range snap.Messages {
		texts = append(texts, string(msg.Sender)+":"+msg.Text)
	}
	assert.Equal(t, []string{
		"bot:Name?",
		"user:Alice",
		"bot:Got it!",
		"bot:Rate it",
		"user:4",
		"bot:" + session.CompletionNotice,
	}, texts)
}

func TestSubmit_StagedReveal(t *testing.T) {
	m, clock := started(t, sampleQuestions(), []string{"Got it!"})

	require.True(t, m.Submit("Alice"))
	snap := m.Snapshot()
	assert.Equal(t, 1, snap.QuestionIndex)
	assert.Len(t, snap.Answers, 1)
	assert.Len(t, snap.Messages, 2)
	assert.True(t, snap.Typing)

	clock.Advance(time.Second)
	snap = m.Snapshot()
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, "Got it!", snap.Messages[2].Text)
	assert.True(t, snap.Typing, "next question is not visible yet")

	clock.Advance(1500 * time.Millisecond)
	snap = m.Snapshot()
	require.Len(t, snap.Messages, 4)
	assert.Equal(t, "Rate it", snap.Messages[3].Text)
	assert.False(t, snap.Typing)
}

func TestSubmit_CompletionTiming(t *testing.T) {
	questions := sampleQuestions()[:1]
	m, clock := started(t, questions, []string{"Got it!"})

	require.True(t, m.Submit("Alice"))
	clock.Advance(time.Second)
	snap := m.Snapshot()
	assert.Equal(t, session.CompletionNotice, snap.Messages[len(snap.Messages)-1].Text)
	assert.False(t, snap.Completed)

	clock.Advance(2 * time.Second)
	assert.Equal(t, session.PhaseCompleted, m.Phase())
	assert.Nil(t, m.Snapshot().Question)
}

func TestSubmit_Rejections(t *testing.T) {
	t.Run("uninitialized", func(t *testing.T) {
		m, _ := newMachine(t)
		assert.False(t, m.Submit("hello"))
		assert.Empty(t, m.Snapshot().Messages)
	})

	t.Run("blank", func(t *testing.T) {
		m, _ := started(t, sampleQuestions(), []string{"ok"})
		before := m.Snapshot()
		for _, text := range []string{"", " ", "\t\n"} {
			assert.False(t, m.Submit(text))
		}
		assert.Equal(t, before, m.Snapshot())
	})

	t.Run("typing", func(t *testing.T) {
		m, clock := newMachine(t)
		require.NoError(t, m.Initialize(sampleQuestions(), []string{"ok"}))
		assert.False(t, m.Submit("early"))

		clock.Advance(time.Second)
		require.True(t, m.Submit("Alice"))
		before := m.Snapshot()
		assert.False(t, m.Submit("again"))
		assert.Equal(t, before, m.Snapshot())
	})

	t.Run("completed", func(t *testing.T) {
		m, clock := started(t, sampleQuestions()[:1], []string{"ok"})
		require.True(t, m.Submit("Alice"))
		clock.Advance(sessiontest.Settle)

		before := m.Snapshot()
		assert.False(t, m.Submit("more"))
		assert.Equal(t, before, m.Snapshot())
	})

	t.Run("stale index", func(t *testing.T) {
		m, clock := started(t, sampleQuestions(), []string{"ok"})
		snap := m.Snapshot()
		require.True(t, m.SubmitAt(snap.Run, snap.QuestionIndex, "Alice"))
		clock.Advance(sessiontest.Settle)

		assert.False(t, m.SubmitAt(snap.Run, snap.QuestionIndex, "Bob"))
		assert.False(t, m.SubmitAt(snap.Run+1, 1, "Bob"))
		assert.Len(t, m.Snapshot().Answers, 1)
	})
}

func TestAnswersTrackIndexWhenSettled(t *testing.T) {
	questions := []model.Question{
		{ID: 10, Text: "One", Modality: model.TextModality{}},
		{ID: 20, Text: "Two", Modality: model.SelectModality{Options: []string{"Yes", "No"}}},
		{ID: 30, Text: "Three", Modality: model.RatingModality{Min: 0, Max: 10}},
	}
	m, clock := started(t, questions, []string{"a", "b"})

	for i, answer := range []string{"first", "Yes", "7"} {
		snap := m.Snapshot()
		assert.Equal(t, i, snap.QuestionIndex)
		assert.Len(t, snap.Answers, snap.QuestionIndex)

		require.True(t, m.Submit(answer))
		clock.Advance(sessiontest.Settle)
	}

	snap := m.Snapshot()
	require.Len(t, snap.Answers, len(questions))
	for i, a := range snap.Answers {
		assert.Equal(t, questions[i].ID, a.QuestionID)
	}
	assert.Equal(t, "Yes", snap.Answers[1].AnswerText)
}

func TestMessageIDsStrictlyIncrease(t *testing.T) {
	m, clock := started(t, sampleQuestions(), []string{"ok"})
	require.True(t, m.Submit("Alice"))
	clock.Advance(sessiontest.Settle)

	first := m.Snapshot().Messages
	require.NoError(t, m.Reset())
	clock.Advance(sessiontest.Settle)
	second := m.Snapshot().Messages

	all := append(first, second...)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].ID, all[i-1].ID)
	}
}

func TestFillerDrawnWithReplacement(t *testing.T) {
	questions := []model.Question{
		{ID: 1, Text: "A", Modality: model.TextModality{}},
		{ID: 2, Text: "B", Modality: model.TextModality{}},
		{ID: 3, Text: "C", Modality: model.TextModality{}},
	}
	m, clock := newMachine(t, session.WithPicker(sessiontest.NewPicker(1, 1)))
	require.NoError(t, m.Initialize(questions, []string{"zero", "one"}))
	clock.Advance(sessiontest.Settle)

	require.True(t, m.Submit("a"))
	clock.Advance(sessiontest.Settle)
	require.True(t, m.Submit("b"))
	clock.Advance(sessiontest.Settle)

	var fillers []string
	for _, msg := range m.Snapshot().Messages {
		if msg.Text == "zero" || msg.Text == "one" {
			fillers = append(fillers, msg.Text)
		}
	}
	assert.Equal(t, []string{"one", "one"}, fillers)
}

func TestReset_AfterCompletion(t *testing.T) {
	m, clock := started(t, sampleQuestions(), []string{"Got it!"})
	require.True(t, m.Submit("Alice"))
	clock.Advance(sessiontest.Settle)
	require.True(t, m.Submit("4"))
	clock.Advance(sessiontest.Settle)
	run := m.Snapshot().Run

	require.NoError(t, m.Reset())
	snap := m.Snapshot()
	assert.Equal(t, run+1, snap.Run)
	assert.Empty(t, snap.Messages)
	assert.Empty(t, snap.Answers)
	assert.Equal(t, 0, snap.QuestionIndex)
	assert.False(t, snap.Completed)
	assert.Equal(t, session.PhaseBotTyping, snap.Phase)

	clock.Advance(time.Second)
	snap = m.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "Name?", snap.Messages[0].Text)
	assert.Equal(t, session.PhaseAwaitingInput, snap.Phase)
}

func TestReset_SuppressesStaleCallbacks(t *testing.T) {
	m, clock := started(t, sampleQuestions(), []string{"Got it!"})
	require.True(t, m.Submit("Alice"))
	require.Equal(t, 2, clock.Pending())

	require.NoError(t, m.Reset())
	assert.Equal(t, 1, clock.Pending(), "only the new greeting remains")

	clock.Advance(sessiontest.Settle)
	snap := m.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "Name?", snap.Messages[0].Text)
	assert.Empty(t, snap.Answers)
}

// ignoringScheduler never stops timers, so stale callbacks still fire.
type ignoringScheduler struct{ clock *sessiontest.Clock }

type unstoppable struct{}

func (unstoppable) Stop() bool { return false }

func (s ignoringScheduler) AfterFunc(d time.Duration, f func()) session.Timer {
	s.clock.AfterFunc(d, f)
	return unstoppable{}
}

func TestReset_StaleCallbackFiringIsNoop(t *testing.T) {
	clock := sessiontest.NewClock()
	m, err := session.New(
		session.WithScheduler(ignoringScheduler{clock: clock}),
		session.WithPicker(sessiontest.NewPicker(0)),
	)
	require.NoError(t, err)
	require.NoError(t, m.Initialize(sampleQuestions(), []string{"Got it!"}))
	clock.Advance(time.Second)
	require.True(t, m.Submit("Alice"))

	clock.Advance(500 * time.Millisecond)
	require.NoError(t, m.Reset())
	clock.Advance(sessiontest.Settle)

	snap := m.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "Name?", snap.Messages[0].Text)
	assert.Equal(t, 0, snap.QuestionIndex)
	assert.Equal(t, session.PhaseAwaitingInput, snap.Phase)
}

type recordingObserver struct {
	mu        sync.Mutex
	started   int
	accepted  []model.Kind
	rejected  []string
	completed int
}

func (r *recordingObserver) RunStarted() { r.mu.Lock(); r.started++; r.mu.Unlock() }
func (r *recordingObserver) AnswerAccepted(k model.Kind) {
	r.mu.Lock()
	r.accepted = append(r.accepted, k)
	r.mu.Unlock()
}
func (r *recordingObserver) SubmissionRejected(reason string) {
	r.mu.Lock()
	r.rejected = append(r.rejected, reason)
	r.mu.Unlock()
}
func (r *recordingObserver) RunCompleted() { r.mu.Lock(); r.completed++; r.mu.Unlock() }

func TestObserverAndListeners(t *testing.T) {
	obs := &recordingObserver{}
	m, clock := newMachine(t, session.WithObserver(obs))

	changes := 0
	m.Subscribe(func() {
		_ = m.Snapshot()
		changes++
	})

	require.NoError(t, m.Initialize(sampleQuestions(), []string{"ok"}))
	assert.False(t, m.Submit("too soon"))
	clock.Advance(time.Second)
	require.True(t, m.Submit("Alice"))
	assert.False(t, m.Submit(" "))
	clock.Advance(sessiontest.Settle)
	require.True(t, m.Submit("3"))
	clock.Advance(sessiontest.Settle)

	assert.Equal(t, 1, obs.started)
	assert.Equal(t, []model.Kind{model.KindText, model.KindRating}, obs.accepted)
	assert.Equal(t, []string{session.RejectTyping, session.RejectBlank}, obs.rejected)
	assert.Equal(t, 1, obs.completed)
	// initialize, greeting, 2 submissions, 2x2 callbacks
	assert.Equal(t, 8, changes)
}

func TestSystemScheduler(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, err := session.New(session.WithDelays(session.Delays{
		Greeting:     time.Millisecond,
		Filler:       2 * time.Millisecond,
		NextQuestion: 4 * time.Millisecond,
		Completion:   6 * time.Millisecond,
	}))
	require.NoError(t, err)

	require.NoError(t, m.Initialize(sampleQuestions()[:1], []string{"ok"}))
	require.Eventually(t, func() bool {
		return m.Phase() == session.PhaseAwaitingInput
	}, time.Second, time.Millisecond)

	require.True(t, m.Submit("Alice"))
	require.Eventually(t, func() bool {
		return m.Phase() == session.PhaseCompleted
	}, time.Second, time.Millisecond)
	assert.Len(t, m.Snapshot().Answers, 1)
}

func TestDefaultDelaysAreValid(t *testing.T) {
	d := session.DefaultDelays()
	require.NoError(t, d.Validate())
	assert.Less(t, d.Filler, d.NextQuestion)
	assert.Less(t, d.Filler, d.Completion)
}
