// Package session sequences a questionnaire run: it asks questions one at a
// time, records answers, paces bot messages with simulated typing delays and
// finally flags the run as completed.
package session

import (
	"QuestionnaireBot/model"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CompletionNotice is the bot's last message before the summary.
const CompletionNotice = "Thank you. All questions have been completed. Generating summary..."

// Phase is the externally visible state of a Machine.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseBotTyping
	PhaseAwaitingInput
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseBotTyping:
		return "bot_typing"
	case PhaseAwaitingInput:
		return "awaiting_input"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Reasons a submission is turned away.
const (
	RejectBlank         = "blank"
	RejectTyping        = "typing"
	RejectCompleted     = "completed"
	RejectUninitialized = "uninitialized"
	RejectStale         = "stale"
)

// Observer receives run lifecycle events. Calls may happen while the
// machine's lock is held, so implementations must not call back into it.
type Observer interface {
	RunStarted()
	AnswerAccepted(kind model.Kind)
	SubmissionRejected(reason string)
	RunCompleted()
}

type nopObserver struct{}

func (nopObserver) RunStarted()               {}
func (nopObserver) AnswerAccepted(model.Kind) {}
func (nopObserver) SubmissionRejected(string) {}
func (nopObserver) RunCompleted()             {}

// Snapshot is a copy of the machine state, safe to keep and read.
type Snapshot struct {
	Run           uint64
	Phase         Phase
	Messages      []model.Message
	Answers       []model.Answer
	QuestionIndex int
	QuestionCount int
	// Question is the question at QuestionIndex, nil once every question has
	// been answered.
	Question  *model.Question
	Typing    bool
	Completed bool
}

type Option func(*Machine)

func WithScheduler(s Scheduler) Option {
	return func(m *Machine) { m.sched = s }
}

func WithPicker(p Picker) Option {
	return func(m *Machine) { m.picker = p }
}

func WithDelays(d Delays) Option {
	return func(m *Machine) { m.delays = d }
}

func WithObserver(o Observer) Option {
	return func(m *Machine) { m.observer = o }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Machine) { m.log = l }
}

// Machine is the conversation state machine. All mutation goes through
// Initialize, Reset and Submit, plus the delayed callbacks they schedule.
type Machine struct {
	mu sync.Mutex

	sched    Scheduler
	picker   Picker
	delays   Delays
	observer Observer
	log      zerolog.Logger
	runLog   zerolog.Logger

	questions []model.Question
	fillers   []string

	run     uint64
	pending []Timer

	nextID    int64
	messages  []model.Message
	answers   []model.Answer
	index     int
	typing    bool
	completed bool

	listeners []func()
}

// New creates an uninitialized machine.
func New(opts ...Option) (*Machine, error) {
	m := &Machine{
		sched:    SystemScheduler,
		delays:   DefaultDelays(),
		observer: nopObserver{},
		log:      log.Logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.picker == nil {
		m.picker = newPicker()
	}
	if err := m.delays.Validate(); err != nil {
		return nil, err
	}
	m.runLog = m.log
	return m, nil
}

// Subscribe registers fn to be called after every state change. fn runs
// without the machine lock held and may read a Snapshot.
func (m *Machine) Subscribe(fn func()) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Initialize starts a new run over the given questions, discarding any
// previous transcript. Callbacks still pending from an earlier run are
// stopped and, should one fire anyway, ignored.
func (m *Machine) Initialize(questions []model.Question, fillers []string) error {
	if len(questions) == 0 {
		return model.ErrNoQuestions
	}
	if len(fillers) == 0 {
		return model.ErrNoFillers
	}
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.questions = append([]model.Question(nil), questions...)
	m.fillers = append([]string(nil), fillers...)
	m.startLocked()
	m.mu.Unlock()

	m.notify()
	return nil
}

// Reset restarts the questionnaire with the questions already loaded.
func (m *Machine) Reset() error {
	m.mu.Lock()
	if len(m.questions) == 0 {
		m.mu.Unlock()
		return model.ErrNoQuestions
	}
	m.startLocked()
	m.mu.Unlock()

	m.notify()
	return nil
}

func (m *Machine) startLocked() {
	for _, t := range m.pending {
		t.Stop()
	}
	m.pending = nil

	m.run++
	m.runLog = m.log.With().Str("run", uuid.NewString()).Logger()
	m.messages = nil
	m.answers = nil
	m.index = 0
	m.completed = false
	m.typing = true

	first := m.questions[0]
	m.scheduleLocked(m.run, m.delays.Greeting, func() {
		m.appendLocked(first.Text, model.SenderBot)
		m.typing = false
	})

	m.observer.RunStarted()
	m.runLog.Info().Int("questions", len(m.questions)).Msg("Questionnaire started")
}

// Submit answers the current question. It reports false and changes nothing
// when the text is blank, the bot is typing, the run is complete or no
// questions are loaded.
func (m *Machine) Submit(text string) bool {
	m.mu.Lock()
	return m.submitLocked(m.run, m.index, text)
}

// SubmitAt is Submit guarded by the run and question index the caller
// rendered. It rejects answers aimed at a question that is no longer current.
func (m *Machine) SubmitAt(run uint64, index int, text string) bool {
	m.mu.Lock()
	return m.submitLocked(run, index, text)
}

// submitLocked expects m.mu held and releases it.
func (m *Machine) submitLocked(run uint64, index int, text string) bool {
	if reason := m.rejectReasonLocked(run, index, text); reason != "" {
		m.observer.SubmissionRejected(reason)
		m.runLog.Debug().Str("reason", reason).Int("index", index).Msg("Submission rejected")
		m.mu.Unlock()
		return false
	}

	question := m.questions[m.index]
	m.appendLocked(text, model.SenderUser)
	m.answers = append(m.answers, model.Answer{
		QuestionID:   question.ID,
		QuestionText: question.Text,
		AnswerText:   text,
	})
	m.typing = true
	m.index++
	m.observer.AnswerAccepted(question.Modality.Kind())
	m.runLog.Debug().Int("question", question.ID).Int("index", m.index).Msg("Answer recorded")

	if m.index < len(m.questions) {
		filler := m.fillers[m.picker.Intn(len(m.fillers))]
		next := m.questions[m.index]
		m.scheduleLocked(m.run, m.delays.Filler, func() {
			m.appendLocked(filler, model.SenderBot)
		})
		m.scheduleLocked(m.run, m.delays.NextQuestion, func() {
			m.appendLocked(next.Text, model.SenderBot)
			m.typing = false
		})
	} else {
		m.scheduleLocked(m.run, m.delays.Filler, func() {
			m.appendLocked(CompletionNotice, model.SenderBot)
		})
		m.scheduleLocked(m.run, m.delays.Completion, func() {
			m.completed = true
			m.typing = false
			m.observer.RunCompleted()
			m.runLog.Info().Int("answers", len(m.answers)).Msg("Questionnaire completed")
		})
	}
	m.mu.Unlock()

	m.notify()
	return true
}

func (m *Machine) rejectReasonLocked(run uint64, index int, text string) string {
	switch {
	case len(m.questions) == 0:
		return RejectUninitialized
	case strings.TrimSpace(text) == "":
		return RejectBlank
	case m.completed:
		return RejectCompleted
	case m.typing:
		return RejectTyping
	case run != m.run || index != m.index || m.index >= len(m.questions):
		return RejectStale
	}
	return ""
}

// scheduleLocked arranges for fn to run under the lock after d, unless the
// run it was issued for has been replaced by then.
func (m *Machine) scheduleLocked(run uint64, d time.Duration, fn func()) {
	t := m.sched.AfterFunc(d, func() {
		m.mu.Lock()
		if m.run != run {
			m.mu.Unlock()
			m.log.Debug().Uint64("run", run).Msg("Dropped stale callback")
			return
		}
		fn()
		m.mu.Unlock()
		m.notify()
	})
	m.pending = append(m.pending, t)
}

func (m *Machine) appendLocked(text string, sender model.Sender) {
	m.nextID++
	m.messages = append(m.messages, model.Message{ID: m.nextID, Text: text, Sender: sender})
}

func (m *Machine) notify() {
	m.mu.Lock()
	listeners := append([]func(){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Phase reports the current state.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phaseLocked()
}

func (m *Machine) phaseLocked() Phase {
	switch {
	case len(m.questions) == 0:
		return PhaseUninitialized
	case m.completed:
		return PhaseCompleted
	case m.typing:
		return PhaseBotTyping
	default:
		return PhaseAwaitingInput
	}
}

// Snapshot copies the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Run:           m.run,
		Phase:         m.phaseLocked(),
		Messages:      append([]model.Message(nil), m.messages...),
		Answers:       append([]model.Answer(nil), m.answers...),
		QuestionIndex: m.index,
		QuestionCount: len(m.questions),
		Typing:        m.typing,
		Completed:     m.completed,
	}
	if m.index < len(m.questions) {
		q := m.questions[m.index]
		s.Question = &q
	}
	return s
}
