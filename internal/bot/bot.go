package bot

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/example/seamanship/internal/progress"
	"github.com/example/seamanship/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the part of the Telegram API the handlers use
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot is the Telegram front end of the progress service
type Bot struct {
	api          *tgbotapi.BotAPI
	sender       sender
	service      *progress.Service
	adminChatIDs []int64
}

// New creates a bot authorized with token
func New(token string, service *progress.Service, adminChatIDs []int64) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is not set")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	log.Printf("Authorized on account %s", api.Self.UserName)

	b := newBot(api, service, adminChatIDs)
	b.api = api
	return b, nil
}

func newBot(s sender, service *progress.Service, adminChatIDs []int64) *Bot {
	return &Bot{
		sender:       s,
		service:      service,
		adminChatIDs: adminChatIDs,
	}
}

// Start handles incoming updates until ctx is cancelled. It returns once
// every command already being handled has finished.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := b.api.GetUpdatesChan(updateConfig)
	return b.serve(ctx, updates, b.api.StopReceivingUpdates)
}

func (b *Bot) serve(ctx context.Context, updates tgbotapi.UpdatesChannel, stop func()) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	// Commands in flight finish their writes after shutdown begins.
	handlerCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			stop()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			wg.Add(1)
			go func(message *tgbotapi.Message) {
				defer wg.Done()
				if err := b.HandleCommand(handlerCtx, message); err != nil {
					log.Printf("Error handling /%s from %d: %v", message.Command(), message.Chat.ID, err)
				}
			}(update.Message)
		}
	}
}

// ReportLeaderboard broadcasts a leaderboard snapshot to the admin chats
func (b *Bot) ReportLeaderboard(entries []models.LeaderboardEntry) error {
	if len(b.adminChatIDs) == 0 {
		return nil
	}

	text := "🏆 Leaderboard\n\n" + formatLeaderboard(entries)
	var firstErr error
	for _, chatID := range b.adminChatIDs {
		if err := b.reply(chatID, text); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (b *Bot) reply(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// userID maps a Telegram user to a progress user id
func userID(user *tgbotapi.User) string {
	return fmt.Sprintf("tg:%d", user.ID)
}
