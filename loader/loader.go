// Package loader fetches the question set and the bot response pool before a
// questionnaire can start.
package loader

import (
	"QuestionnaireBot/model"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	SourceQuestions = "questions"
	SourceResponses = "responses"
)

// Store is anything that can serve both datasets. The two reads are
// independent of each other.
type Store interface {
	FetchQuestions(ctx context.Context) ([]model.Question, error)
	FetchFillers(ctx context.Context) ([]string, error)
}

// Recorder is notified of failed loads.
type Recorder interface {
	LoadFailed(source string)
}

// Dataset is the result of a successful load.
type Dataset struct {
	Questions []model.Question
	Fillers   []string
}

// LoadError names the dataset that could not be loaded and why.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load fetches both datasets concurrently. Either failing fails the whole
// load; there is no retry. rec may be nil.
func Load(ctx context.Context, store Store, rec Recorder) (*Dataset, error) {
	var ds Dataset

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		questions, err := store.FetchQuestions(gctx)
		if err == nil && len(questions) == 0 {
			err = model.ErrNoQuestions
		}
		if err != nil {
			return &LoadError{Source: SourceQuestions, Err: err}
		}
		ds.Questions = questions
		return nil
	})
	g.Go(func() error {
		fillers, err := store.FetchFillers(gctx)
		if err == nil && len(fillers) == 0 {
			err = model.ErrNoFillers
		}
		if err != nil {
			return &LoadError{Source: SourceResponses, Err: err}
		}
		ds.Fillers = fillers
		return nil
	})

	if err := g.Wait(); err != nil {
		var le *LoadError
		if rec != nil && errors.As(err, &le) {
			rec.LoadFailed(le.Source)
		}
		log.Error().Err(err).Msg("Failed to fetch questionnaire data")
		return nil, err
	}

	log.Info().
		Int("questions", len(ds.Questions)).
		Int("responses", len(ds.Fillers)).
		Msg("Questionnaire data loaded")
	return &ds, nil
}

// Describe turns a load failure into the single line shown to the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSuffix(err.Error(), ".")
	return fmt.Sprintf("Failed to load questionnaire: %s. Please try refreshing the page.", msg)
}
