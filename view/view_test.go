package view

import (
	"QuestionnaireBot/loader"
	"QuestionnaireBot/model"
	"QuestionnaireBot/session"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputFor_Rating(t *testing.T) {
	q := model.Question{ID: 2, Text: "Rate it", Modality: model.RatingModality{Min: 1, Max: 5}}

	in, ok := InputFor(q).(ChoiceInput)
	require.True(t, ok)
	var values []string
	for _, c := range in.Choices {
		values = append(values, c.Value)
		assert.Equal(t, c.Value, c.Label)
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, values)
	assert.Equal(t, "3", in.Choices[2].Value)
}

func TestInputFor_Select(t *testing.T) {
	q := model.Question{ID: 3, Text: "Happy?", Modality: model.SelectModality{Options: []string{"Yes", "No"}}}

	in, ok := InputFor(q).(ChoiceInput)
	require.True(t, ok)
	assert.Equal(t, []Choice{{Label: "Yes", Value: "Yes"}, {Label: "No", Value: "No"}}, in.Choices)
}

func TestInputFor_Text(t *testing.T) {
	q := model.Question{ID: 1, Text: "Name?", Modality: model.TextModality{}}
	assert.Equal(t, TextInput{Placeholder: TextPlaceholder}, InputFor(q))
}

func TestRender_Chat(t *testing.T) {
	q := model.Question{ID: 1, Text: "Name?", Modality: model.TextModality{}}
	snap := session.Snapshot{
		Run:   1,
		Phase: session.PhaseAwaitingInput,
		Messages: []model.Message{
			{ID: 1, Text: "Name?", Sender: model.SenderBot},
		},
		Question: &q,
	}

	screen := Render(snap)
	assert.Equal(t, ScreenChat, screen.Kind)
	assert.Equal(t, Title, screen.Title)
	assert.Equal(t, []Bubble{{ID: 1, Text: "Name?", FromBot: true}}, screen.Transcript)
	assert.IsType(t, TextInput{}, screen.Input)
	assert.Empty(t, screen.Placeholder)
}

func TestRender_TypingHidesInput(t *testing.T) {
	q := model.Question{ID: 2, Text: "Pick", Modality: model.SelectModality{Options: []string{"A"}}}
	snap := session.Snapshot{
		Phase: session.PhaseBotTyping,
		Messages: []model.Message{
			{ID: 1, Text: "Name?", Sender: model.SenderBot},
			{ID: 2, Text: "Alice", Sender: model.SenderUser},
		},
		QuestionIndex: 1,
		Question:      &q,
		Typing:        true,
	}

	screen := Render(snap)
	assert.Nil(t, screen.Input)
	assert.True(t, screen.Typing)
	assert.Equal(t, AwaitingText, screen.Placeholder)
	assert.False(t, screen.Transcript[1].FromBot)
}

func TestRender_Summary(t *testing.T) {
	snap := session.Snapshot{
		Phase: session.PhaseCompleted,
		Messages: []model.Message{
			{ID: 1, Text: "Name?", Sender: model.SenderBot},
		},
		Answers: []model.Answer{
			{QuestionID: 1, QuestionText: "Name?", AnswerText: "Alice"},
			{QuestionID: 2, QuestionText: "Rate it", AnswerText: "4"},
		},
		Completed: true,
	}

	screen := Render(snap)
	assert.Equal(t, ScreenSummary, screen.Kind)
	assert.Empty(t, screen.Transcript)
	assert.Nil(t, screen.Input)
	require.NotNil(t, screen.Summary)
	assert.Equal(t, RestartLabel, screen.Summary.RestartLabel)
	assert.Equal(t, []SummaryItem{
		{QuestionID: 1, Heading: "Question 1", Question: "Name?", Answer: "Alice"},
		{QuestionID: 2, Heading: "Question 2", Question: "Rate it", Answer: "4"},
	}, screen.Summary.Items)
}

func TestRender_UninitializedIsLoading(t *testing.T) {
	assert.Equal(t, Loading(), Render(session.Snapshot{}))
}

func TestFailure(t *testing.T) {
	err := &loader.LoadError{Source: loader.SourceQuestions, Err: errors.New("404 Not Found")}
	screen := Failure(err)
	assert.Equal(t, ScreenError, screen.Kind)
	assert.Equal(t, "Failed to load questionnaire: failed to load questions: 404 Not Found. Please try refreshing the page.", screen.Message)
}
