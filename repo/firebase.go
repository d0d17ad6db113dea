package repo

import (
	"QuestionnaireBot/model"
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

const (
	DefaultQuestionsPath = "questions"
	DefaultResponsesPath = "responses"
)

// FirebaseConnector reads the questionnaire from a Firebase Realtime Database,
// authenticated with a service account key file. It never writes.
type FirebaseConnector struct {
	client *db.Client

	QuestionsPath string
	ResponsesPath string
}

func NewFirebaseConnector(ctx context.Context, keyPath, databaseURL string) (*FirebaseConnector, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: databaseURL}, option.WithCredentialsFile(keyPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting database client: %w", err)
	}
	return &FirebaseConnector{
		client:        client,
		QuestionsPath: DefaultQuestionsPath,
		ResponsesPath: DefaultResponsesPath,
	}, nil
}

// FetchQuestions reads the ordered question list stored under QuestionsPath.
func (fc *FirebaseConnector) FetchQuestions(ctx context.Context) ([]model.Question, error) {
	var questions []model.Question
	if err := fc.client.NewRef(fc.QuestionsPath).Get(ctx, &questions); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", fc.QuestionsPath, err)
	}
	return questions, nil
}

// FetchFillers reads the bot response pool stored under ResponsesPath.
func (fc *FirebaseConnector) FetchFillers(ctx context.Context) ([]string, error) {
	var fillers []string
	if err := fc.client.NewRef(fc.ResponsesPath).Get(ctx, &fillers); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", fc.ResponsesPath, err)
	}
	return fillers, nil
}
