package model

import "errors"

var (
	ErrNoQuestions     = errors.New("questionnaire has no questions")
	ErrNoFillers       = errors.New("questionnaire has no bot responses")
	ErrUnknownModality = errors.New("unknown question type")
	ErrInvalidModality = errors.New("invalid question parameters")
)
