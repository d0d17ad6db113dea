package repo

import (
	"QuestionnaireBot/model"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var dataExtensions = []string{".json", ".yaml", ".yml"}

// FileStore reads questions and responses from a local directory. Each
// dataset may be JSON or YAML.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) FetchQuestions(ctx context.Context) ([]model.Question, error) {
	var questions []model.Question
	if err := s.read(ctx, "questions", &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *FileStore) FetchFillers(ctx context.Context) ([]string, error) {
	var fillers []string
	if err := s.read(ctx, "responses", &fillers); err != nil {
		return nil, err
	}
	return fillers, nil
}

func (s *FileStore) read(ctx context.Context, base string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, ext := range dataExtensions {
		path := filepath.Join(s.Dir, base+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("error reading %s: %w", path, err)
		}

		if ext == ".json" {
			err = json.Unmarshal(data, v)
		} else {
			err = yaml.Unmarshal(data, v)
		}
		if err != nil {
			return fmt.Errorf("error parsing %s: %w", path, err)
		}
		return nil
	}

	return fmt.Errorf("no %s file in %s: %w", base, s.Dir, fs.ErrNotExist)
}
