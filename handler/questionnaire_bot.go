package handler

import (
	"QuestionnaireBot/loader"
	"QuestionnaireBot/model"
	"QuestionnaireBot/session"
	"QuestionnaireBot/view"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
)

const (
	greetingText = "Hello! I'm your questionnaire bot. I'll ask you a few questions one at a time. Use /restart to start over at any point."
	helpText     = `Commands:
/start – Start the questionnaire.
/restart – Throw away your answers and start over.
/help – Show this message.`
	busyText        = "Sorry, this questionnaire is already in use by someone else."
	useButtonsText  = "Please choose one of the options above."
	useRestartText  = "The questionnaire is complete. Tap Start Over or send /restart to begin again."
	notStartedText  = "Send /start to begin the questionnaire."
	staleButtonText = "This question is no longer open."
	startOverEmoji  = "🔁 "
)

// Sender is the part of *bot.Bot the questionnaire handler talks to.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	EditMessageReplyMarkup(ctx context.Context, params *bot.EditMessageReplyMarkupParams) (*models.Message, error)
}

// QuestionnaireBotHandler runs one questionnaire over Telegram. It serves a
// single chat: the configured one, or else the first chat that writes.
type QuestionnaireBotHandler struct {
	ctx     context.Context
	machine *session.Machine
	sender  Sender

	mu       sync.Mutex
	chatID   int64
	dataset  *loader.Dataset
	failure  string
	run      uint64
	lastSent int64
	typing   bool
	summary  bool
}

// NewQuestionnaireBotHandler wires the handler to machine. ctx bounds the
// messages sent in response to delayed machine updates.
func NewQuestionnaireBotHandler(
	ctx context.Context,
	machine *session.Machine,
	sender Sender,
	chatID int64,
) *QuestionnaireBotHandler {
	h := &QuestionnaireBotHandler{
		ctx:     ctx,
		machine: machine,
		sender:  sender,
		chatID:  chatID,
	}
	machine.Subscribe(h.sync)
	return h
}

// SetDataset makes loaded questions available to /start.
func (h *QuestionnaireBotHandler) SetDataset(ds *loader.Dataset) {
	h.mu.Lock()
	h.dataset = ds
	h.failure = ""
	h.mu.Unlock()
}

// SetLoadError puts the bot into its blocking error state.
func (h *QuestionnaireBotHandler) SetLoadError(err error) {
	h.mu.Lock()
	h.failure = view.Failure(err).Message
	h.mu.Unlock()
}

// Handler is the bot's default update handler.
func (h *QuestionnaireBotHandler) Handler(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		h.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	text := update.Message.Text
	logger := log.With().Int64("chat", chatID).Logger()
	if update.Message.From != nil {
		logger = logger.With().Str("user", update.Message.From.Username).Logger()
	}
	logger.Debug().Str("text", text).Msg("Message received")

	if !h.bind(chatID) {
		h.send(ctx, chatID, busyText)
		return
	}
	if failure := h.loadFailure(); failure != "" {
		h.send(ctx, chatID, failure)
		return
	}

	switch command(text) {
	case "/start":
		h.send(ctx, chatID, greetingText)
		h.start(ctx, chatID)
		return
	case "/restart":
		h.start(ctx, chatID)
		return
	case "/help":
		h.send(ctx, chatID, helpText)
		return
	}

	snap := h.machine.Snapshot()
	screen := view.Render(snap)
	switch screen.Kind {
	case view.ScreenLoading:
		h.send(ctx, chatID, notStartedText)
	case view.ScreenSummary:
		h.send(ctx, chatID, useRestartText)
	case view.ScreenChat:
		switch screen.Input.(type) {
		case view.TextInput:
			if !h.machine.SubmitAt(snap.Run, snap.QuestionIndex, text) {
				logger.Debug().Msg("Answer ignored")
			}
		case view.ChoiceInput:
			h.send(ctx, chatID, useButtonsText)
		default:
			// The bot is typing; input is not accepted until the next question.
		}
	}
}

func (h *QuestionnaireBotHandler) handleCallback(ctx context.Context, cq *models.CallbackQuery) {
	chatID := callbackChatID(cq)
	if !h.bind(chatID) {
		h.answerCallback(ctx, cq.ID, busyText)
		return
	}
	if h.loadFailure() != "" {
		h.answerCallback(ctx, cq.ID, "")
		return
	}

	action, err := parseCallbackData(cq.Data)
	if err != nil {
		log.Warn().Err(err).Str("data", cq.Data).Msg("Unexpected callback data")
		h.answerCallback(ctx, cq.ID, "")
		return
	}

	snap := h.machine.Snapshot()
	if action.restart {
		if !snap.Completed || action.run != snap.Run {
			h.answerCallback(ctx, cq.ID, staleButtonText)
			return
		}
		h.answerCallback(ctx, cq.ID, "")
		h.clearKeyboard(ctx, cq)
		h.start(ctx, chatID)
		return
	}

	choices, ok := view.Render(snap).Input.(view.ChoiceInput)
	if !ok || action.run != snap.Run || action.index != snap.QuestionIndex ||
		action.choice < 0 || action.choice >= len(choices.Choices) {
		h.answerCallback(ctx, cq.ID, staleButtonText)
		return
	}

	if !h.machine.SubmitAt(action.run, action.index, choices.Choices[action.choice].Value) {
		h.answerCallback(ctx, cq.ID, staleButtonText)
		return
	}
	h.answerCallback(ctx, cq.ID, "")
	h.clearKeyboard(ctx, cq)
}

func (h *QuestionnaireBotHandler) start(ctx context.Context, chatID int64) {
	h.mu.Lock()
	ds := h.dataset
	h.mu.Unlock()

	if ds == nil {
		h.send(ctx, chatID, view.LoadingText)
		return
	}
	if err := h.machine.Initialize(ds.Questions, ds.Fillers); err != nil {
		log.Error().Err(err).Msg("error starting questionnaire")
		h.send(ctx, chatID, "An error occurred.")
	}
}

// bind claims the bot for chatID if no chat holds it yet and reports
// whether chatID may use it.
func (h *QuestionnaireBotHandler) bind(chatID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.chatID == 0 {
		h.chatID = chatID
		log.Info().Int64("chat", chatID).Msg("Questionnaire bound to chat")
	}
	return h.chatID == chatID
}

func (h *QuestionnaireBotHandler) loadFailure() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failure
}

// sync pushes whatever the machine produced since the last call to the chat.
// User messages are skipped; Telegram already shows them.
func (h *QuestionnaireBotHandler) sync() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.chatID == 0 {
		return
	}

	snap := h.machine.Snapshot()
	if snap.Run != h.run {
		h.run = snap.Run
		h.typing = false
		h.summary = false
	}
	screen := view.Render(snap)

	for i, msg := range snap.Messages {
		if msg.ID <= h.lastSent {
			continue
		}
		h.lastSent = msg.ID
		if msg.Sender != model.SenderBot {
			continue
		}

		params := &bot.SendMessageParams{ChatID: h.chatID, Text: msg.Text}
		if choices, ok := screen.Input.(view.ChoiceInput); ok && i == len(snap.Messages)-1 {
			params.ReplyMarkup = choiceKeyboard(snap.Run, snap.QuestionIndex, choices)
		}
		if _, err := h.sender.SendMessage(h.ctx, params); err != nil {
			log.Error().Err(err).Msg("error sending message")
		}
	}

	if snap.Typing && !h.typing {
		_, err := h.sender.SendChatAction(h.ctx, &bot.SendChatActionParams{
			ChatID: h.chatID,
			Action: models.ChatActionTyping,
		})
		if err != nil {
			log.Warn().Err(err).Msg("error sending typing action")
		}
	}
	h.typing = snap.Typing

	if screen.Kind == view.ScreenSummary && !h.summary {
		h.summary = true
		_, err := h.sender.SendMessage(h.ctx, &bot.SendMessageParams{
			ChatID:      h.chatID,
			Text:        summaryText(screen.Summary),
			ReplyMarkup: restartKeyboard(snap.Run),
		})
		if err != nil {
			log.Error().Err(err).Msg("error sending summary")
		}
	}
}

func (h *QuestionnaireBotHandler) send(ctx context.Context, chatID int64, text string) {
	_, err := h.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		log.Error().Err(err).Msg("error sending message")
	}
}

func (h *QuestionnaireBotHandler) answerCallback(ctx context.Context, id, text string) {
	_, err := h.sender.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: id,
		Text:            text,
	})
	if err != nil {
		log.Warn().Err(err).Msg("error answering callback query")
	}
}

// clearKeyboard removes the buttons from an answered message so they cannot
// be tapped again.
func (h *QuestionnaireBotHandler) clearKeyboard(ctx context.Context, cq *models.CallbackQuery) {
	if cq.Message.Message == nil {
		return
	}
	_, err := h.sender.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      cq.Message.Message.Chat.ID,
		MessageID:   cq.Message.Message.ID,
		ReplyMarkup: models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{}},
	})
	if err != nil {
		log.Warn().Err(err).Msg("error clearing keyboard")
	}
}

// command strips the "@botname" suffix Telegram appends to commands in
// group chats.
func command(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	name, _, _ := strings.Cut(text, "@")
	return name
}

func callbackChatID(cq *models.CallbackQuery) int64 {
	switch {
	case cq.Message.Message != nil:
		return cq.Message.Message.Chat.ID
	case cq.Message.InaccessibleMessage != nil:
		return cq.Message.InaccessibleMessage.Chat.ID
	default:
		return cq.From.ID
	}
}

// Callback data is "a:<run>:<question index>:<choice index>" for an answer
// and "r:<run>" for a restart. Indexes keep the payload well under
// Telegram's 64 byte limit whatever the option labels are.
type callbackAction struct {
	restart bool
	run     uint64
	index   int
	choice  int
}

func answerData(run uint64, index, choice int) string {
	return fmt.Sprintf("a:%d:%d:%d", run, index, choice)
}

func restartData(run uint64) string {
	return "r:" + strconv.FormatUint(run, 10)
}

func parseCallbackData(data string) (callbackAction, error) {
	var a callbackAction
	switch {
	case strings.HasPrefix(data, "a:"):
		if _, err := fmt.Sscanf(data, "a:%d:%d:%d", &a.run, &a.index, &a.choice); err != nil {
			return callbackAction{}, fmt.Errorf("error parsing answer callback: %w", err)
		}
	case strings.HasPrefix(data, "r:"):
		run, err := strconv.ParseUint(strings.TrimPrefix(data, "r:"), 10, 64)
		if err != nil {
			return callbackAction{}, fmt.Errorf("error parsing restart callback: %w", err)
		}
		a.restart = true
		a.run = run
	default:
		return callbackAction{}, fmt.Errorf("unknown callback %q", data)
	}
	return a, nil
}

// choiceKeyboard lays out select options one per row and ratings in rows of
// five.
func choiceKeyboard(run uint64, index int, in view.ChoiceInput) models.InlineKeyboardMarkup {
	perRow := 1
	if allNumeric(in.Choices) {
		perRow = 5
	}

	var rows [][]models.InlineKeyboardButton
	for i, c := range in.Choices {
		if i%perRow == 0 {
			rows = append(rows, nil)
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], models.InlineKeyboardButton{
			Text:         c.Label,
			CallbackData: answerData(run, index, i),
		})
	}
	return models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func restartKeyboard(run uint64) models.InlineKeyboardMarkup {
	return models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: startOverEmoji + view.RestartLabel, CallbackData: restartData(run)},
		}},
	}
}

func allNumeric(choices []view.Choice) bool {
	for _, c := range choices {
		if _, err := strconv.Atoi(c.Value); err != nil {
			return false
		}
	}
	return len(choices) > 0
}

func summaryText(s *view.Summary) string {
	var b strings.Builder
	b.WriteString(s.Title)
	b.WriteString("\n")
	b.WriteString(s.Subtitle)
	for _, item := range s.Items {
		fmt.Fprintf(&b, "\n\n%s\n%s\n→ %s", item.Heading, item.Question, item.Answer)
	}
	return b.String()
}
