package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/StockPredictor/internal/app"
	"github.com/Alias1177/StockPredictor/internal/config"
	"github.com/Alias1177/StockPredictor/internal/database"
	"github.com/Alias1177/StockPredictor/internal/report"
	"github.com/Alias1177/StockPredictor/internal/service"
	"github.com/Alias1177/StockPredictor/models"
)

var (
	popularTickers = []string{
		"AAPL", "MSFT", "GOOGL", "AMZN",
		"NVDA", "TSLA", "META", "NFLX",
	}

	supportedLookbacks = []string{
		"1mo", "3mo", "6mo", "1y", "2y", "5y",
	}
)

// UserState represents the current settings of a chat user
type UserState struct {
	Lookback     string
	LastSymbol   string
	LastActivity time.Time
}

// messenger is the part of the Telegram API the bot talks to
type messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// analyzer runs one analysis request
type analyzer interface {
	Analyze(ctx context.Context, req service.Request) (*models.Report, error)
}

// bot bundles the Telegram client with the analysis dependencies
type bot struct {
	api      messenger
	analyzer analyzer
	db       *database.DB
	lookback string
	logger   zerolog.Logger

	mu         sync.Mutex
	userStates map[int64]*UserState

	// running tracks analyses still using the database
	running sync.WaitGroup
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	app.SetupLogging(cfg.LogLevel)

	if cfg.TelegramBotToken == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN not set in environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx, cfg, false)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer deps.Close()

	// Initialize Telegram bot
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	b := &bot{
		api:        api,
		analyzer:   deps.Analyzer,
		db:         deps.DB,
		lookback:   cfg.Lookback,
		logger:     log.With().Str("component", "tgbot").Logger(),
		userStates: make(map[int64]*UserState),
	}
	b.logger.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")

	// Setup update configuration
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			b.logger.Info().Msg("Shutdown signal received, waiting for running analyses...")
			b.running.Wait()
			return
		case update := <-updates:
			if update.Message != nil {
				b.handleMessage(ctx, update.Message)
			} else if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
			}
		}
	}
}

func (b *bot) state(userID int64) *UserState {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.userStates[userID]
	if !ok {
		state = &UserState{Lookback: b.lookback}
		b.userStates[userID] = state
	}
	state.LastActivity = time.Now()
	return state
}

// handleMessage processes incoming text messages
func (b *bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil {
		return
	}
	chatID := message.Chat.ID
	userID := message.From.ID
	text := strings.TrimSpace(message.Text)

	switch {
	case message.IsCommand() && message.Command() == "start":
		msg := tgbotapi.NewMessage(chatID,
			"Send me a stock ticker (for example AAPL) and I will reply with indicators, "+
				"trend, trading signals and a short price forecast.\n\n"+
				"/lookback changes how much history is analysed.\n/last repeats your previous ticker.")
		msg.ReplyMarkup = tickerKeyboard()
		b.send(msg)

	case message.IsCommand() && message.Command() == "lookback":
		msg := tgbotapi.NewMessage(chatID, "Select the history period:")
		msg.ReplyMarkup = lookbackKeyboard()
		b.send(msg)

	case message.IsCommand() && message.Command() == "last":
		symbol := b.lastSymbol(ctx, userID)
		if symbol == "" {
			b.send(tgbotapi.NewMessage(chatID, "You have not analysed any ticker yet."))
			return
		}
		b.startAnalysis(ctx, userID, chatID, symbol)

	case message.IsCommand():
		b.send(tgbotapi.NewMessage(chatID, "Unknown command. Send a ticker or use /start."))

	case text != "":
		b.startAnalysis(ctx, userID, chatID, text)
	}
}

// handleCallback processes inline keyboard selections
func (b *bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to answer callback")
	}
	if callback.Message == nil {
		return
	}

	lookback, ok := strings.CutPrefix(callback.Data, "lookback:")
	if !ok || !contains(supportedLookbacks, lookback) {
		return
	}

	state := b.state(callback.From.ID)
	b.mu.Lock()
	state.Lookback = lookback
	b.mu.Unlock()

	b.send(tgbotapi.NewMessage(callback.Message.Chat.ID, fmt.Sprintf("History period set to %s.", lookback)))
}

// startAnalysis runs an analysis in the background
func (b *bot) startAnalysis(ctx context.Context, userID, chatID int64, symbol string) {
	b.running.Add(1)
	go func() {
		defer b.running.Done()
		b.runAnalysis(ctx, userID, chatID, symbol)
	}()
}

// runAnalysis analyses a ticker and replies with the formatted report
func (b *bot) runAnalysis(ctx context.Context, userID, chatID int64, symbol string) {
	symbol = models.NormalizeSymbol(symbol)
	state := b.state(userID)
	b.mu.Lock()
	lookback := state.Lookback
	state.LastSymbol = symbol
	b.mu.Unlock()

	processingMsg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Analyzing %s over %s...", symbol, lookback))
	messageID := 0
	if sentMsg, err := b.api.Send(processingMsg); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send processing message")
	} else {
		messageID = sentMsg.MessageID
	}

	result, err := b.analyzer.Analyze(ctx, service.Request{Symbol: symbol, Lookback: lookback})
	if err != nil {
		b.logger.Error().Err(err).Str("symbol", symbol).Int64("user_id", userID).Msg("Analysis failed")
		b.reply(chatID, messageID, userError(symbol, err), "")
		return
	}

	if b.db != nil {
		pref := models.UserPreference{
			UserID:        userID,
			ChatID:        chatID,
			Symbol:        symbol,
			Lookback:      lookback,
			LastRequested: time.Now().UTC(),
		}
		if err := b.db.SaveUserPreference(ctx, pref); err != nil {
			b.logger.Warn().Err(err).Int64("user_id", userID).Msg("Failed to save user preference")
		}
	}

	b.reply(chatID, messageID, report.FormatMarkdown(result), tgbotapi.ModeMarkdown)
}

// reply replaces the processing message, or sends a new one when there is none
func (b *bot) reply(chatID int64, messageID int, text, parseMode string) {
	if messageID == 0 {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = parseMode
		b.send(msg)
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = parseMode
	b.send(edit)
}

// lastSymbol returns the user's previous ticker from memory or the database
func (b *bot) lastSymbol(ctx context.Context, userID int64) string {
	state := b.state(userID)
	b.mu.Lock()
	symbol := state.LastSymbol
	b.mu.Unlock()
	if symbol != "" || b.db == nil {
		return symbol
	}

	pref, err := b.db.GetUserPreference(ctx, userID)
	if err != nil {
		b.logger.Warn().Err(err).Int64("user_id", userID).Msg("Failed to load user preference")
		return ""
	}
	if pref == nil {
		return ""
	}

	b.mu.Lock()
	state.Lookback = pref.Lookback
	b.mu.Unlock()
	return pref.Symbol
}

func (b *bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to send Telegram message")
	}
}

// userError turns an analysis error into a chat reply
func userError(symbol string, err error) string {
	var insufficient *models.InsufficientHistoryError
	switch {
	case errors.Is(err, models.ErrInvalidSymbol):
		return "Please send a ticker symbol, for example AAPL."
	case errors.Is(err, models.ErrEmptySeries):
		return fmt.Sprintf("No data found for %s. Please check the ticker or try again later.", symbol)
	case errors.As(err, &insufficient):
		return fmt.Sprintf("Not enough history for %s to build a forecast (%d days available). Try a longer period with /lookback.",
			symbol, insufficient.Available)
	default:
		return fmt.Sprintf("Could not analyse %s: %v", symbol, err)
	}
}

func tickerKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for i := 0; i < len(popularTickers); i += 4 {
		var row []tgbotapi.KeyboardButton
		for _, t := range popularTickers[i:min(i+4, len(popularTickers))] {
			row = append(row, tgbotapi.NewKeyboardButton(t))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewReplyKeyboard(rows...)
}

func lookbackKeyboard() tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, l := range supportedLookbacks {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(l, "lookback:"+l))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// contains checks if a string exists in a slice
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
