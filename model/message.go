package model

// Sender identifies who produced a chat message.
type Sender string

const (
	SenderBot  Sender = "bot"
	SenderUser Sender = "user"
)

// Message is one entry of the chat transcript. IDs grow strictly in creation
// order and double as list keys.
type Message struct {
	ID     int64
	Text   string
	Sender Sender
}

// Answer records the reply to one question. QuestionText is copied at answer
// time so the summary does not depend on the question set.
type Answer struct {
	QuestionID   int
	QuestionText string
	AnswerText   string
}
