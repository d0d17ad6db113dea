// Package view maps questionnaire state to what a chat front end shows: the
// transcript, the input control for the current question, or the summary.
package view

import (
	"QuestionnaireBot/loader"
	"QuestionnaireBot/model"
	"QuestionnaireBot/session"
	"fmt"
	"strconv"
)

const (
	Title           = "Structured Questionnaire"
	LoadingText     = "Loading Questionnaire..."
	ErrorTitle      = "Error"
	AwaitingText    = "Awaiting response..."
	TextPlaceholder = "Type your answer here..."
	SummaryTitle    = "Questionnaire Summary"
	SummarySubtitle = "Here are the responses you provided."
	RestartLabel    = "Start Over"
)

type ScreenKind int

const (
	ScreenLoading ScreenKind = iota
	ScreenError
	ScreenChat
	ScreenSummary
)

// Bubble is one rendered chat message.
type Bubble struct {
	ID      int64
	Text    string
	FromBot bool
}

// Input is the control offered for the current question: TextInput or
// ChoiceInput.
type Input interface {
	input()
}

// TextInput is a single-line field; only non-blank text may be submitted.
type TextInput struct {
	Placeholder string
}

// ChoiceInput is a row of buttons, each submitting its Value immediately.
type ChoiceInput struct {
	Choices []Choice
}

type Choice struct {
	Label string
	Value string
}

func (TextInput) input()   {}
func (ChoiceInput) input() {}

type SummaryItem struct {
	QuestionID int
	Heading    string
	Question   string
	Answer     string
}

type Summary struct {
	Title        string
	Subtitle     string
	Items        []SummaryItem
	RestartLabel string
}

// Screen is everything a front end needs to draw one frame.
type Screen struct {
	Kind    ScreenKind
	Title   string
	Message string

	Run           uint64
	QuestionIndex int
	Transcript    []Bubble
	Typing        bool
	// Input is nil while the bot is typing; Placeholder is shown instead.
	Input       Input
	Placeholder string

	Summary *Summary
}

// Loading is shown until the data loader returns.
func Loading() Screen {
	return Screen{Kind: ScreenLoading, Title: Title, Message: LoadingText}
}

// Failure is the blocking screen for a failed load.
func Failure(err error) Screen {
	return Screen{Kind: ScreenError, Title: ErrorTitle, Message: loader.Describe(err)}
}

// Render builds the screen for a machine snapshot.
func Render(s session.Snapshot) Screen {
	switch s.Phase {
	case session.PhaseUninitialized:
		return Loading()
	case session.PhaseCompleted:
		return Screen{
			Kind:          ScreenSummary,
			Title:         SummaryTitle,
			Run:           s.Run,
			QuestionIndex: s.QuestionIndex,
			Summary:       summarize(s.Answers),
		}
	}

	screen := Screen{
		Kind:          ScreenChat,
		Title:         Title,
		Run:           s.Run,
		QuestionIndex: s.QuestionIndex,
		Transcript:    make([]Bubble, 0, len(s.Messages)),
		Typing:        s.Typing,
	}
	for _, msg := range s.Messages {
		screen.Transcript = append(screen.Transcript, Bubble{
			ID:      msg.ID,
			Text:    msg.Text,
			FromBot: msg.Sender == model.SenderBot,
		})
	}

	if s.Typing {
		screen.Placeholder = AwaitingText
	} else if s.Question != nil {
		screen.Input = InputFor(*s.Question)
	}
	return screen
}

// InputFor picks the control matching a question's modality.
func InputFor(q model.Question) Input {
	switch m := q.Modality.(type) {
	case model.SelectModality:
		choices := make([]Choice, 0, len(m.Options))
		for _, opt := range m.Options {
			choices = append(choices, Choice{Label: opt, Value: opt})
		}
		return ChoiceInput{Choices: choices}
	case model.RatingModality:
		values := m.Values()
		choices := make([]Choice, 0, len(values))
		for _, v := range values {
			s := strconv.Itoa(v)
			choices = append(choices, Choice{Label: s, Value: s})
		}
		return ChoiceInput{Choices: choices}
	default:
		return TextInput{Placeholder: TextPlaceholder}
	}
}

func summarize(answers []model.Answer) *Summary {
	items := make([]SummaryItem, 0, len(answers))
	for _, a := range answers {
		items = append(items, SummaryItem{
			QuestionID: a.QuestionID,
			Heading:    fmt.Sprintf("Question %d", a.QuestionID),
			Question:   a.QuestionText,
			Answer:     a.AnswerText,
		})
	}
	return &Summary{
		Title:        SummaryTitle,
		Subtitle:     SummarySubtitle,
		Items:        items,
		RestartLabel: RestartLabel,
	}
}
