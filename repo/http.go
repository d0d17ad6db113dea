package repo

import (
	"QuestionnaireBot/model"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	QuestionsFile = "questions.json"
	ResponsesFile = "responses.json"
)

// StatusError reports a non-2xx answer from the data server.
type StatusError struct {
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %s", e.URL, e.Status)
}

// HTTPStore serves the questionnaire from two static JSON documents below
// BaseURL.
type HTTPStore struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPStore creates a store rooted at baseURL.
func NewHTTPStore(baseURL string) *HTTPStore {
	return &HTTPStore{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *HTTPStore) FetchQuestions(ctx context.Context) ([]model.Question, error) {
	var questions []model.Question
	if err := s.getJSON(ctx, QuestionsFile, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *HTTPStore) FetchFillers(ctx context.Context) ([]string, error) {
	var fillers []string
	if err := s.getJSON(ctx, ResponsesFile, &fillers); err != nil {
		return nil, err
	}
	return fillers, nil
}

func (s *HTTPStore) getJSON(ctx context.Context, name string, v any) error {
	target, err := url.JoinPath(s.BaseURL, name)
	if err != nil {
		return fmt.Errorf("error building url for %s: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error getting %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{URL: target, Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("error parsing %s: %w", name, err)
	}
	return nil
}
