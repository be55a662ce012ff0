package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/seamanship/internal/progress"
	"github.com/example/seamanship/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const leaderboardSize = 10

const helpText = "📖 Seamanship progress\n\n" +
	"/complete <topic> [score] [points] - mark a topic completed\n" +
	"/progress - show your topics\n" +
	"/points - show your points\n" +
	"/reset <topic> - reset one topic (points stay)\n" +
	"/top - show the leaderboard\n" +
	"/help - show this help"

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	if message == nil || message.From == nil || message.Chat == nil {
		return fmt.Errorf("invalid message: required fields are missing")
	}

	var err error
	switch message.Command() {
	case "start", "help":
		err = b.reply(message.Chat.ID, helpText)
	case "complete":
		err = b.handleComplete(ctx, message)
	case "progress":
		err = b.handleProgress(ctx, message)
	case "points":
		err = b.handlePoints(ctx, message)
	case "reset":
		err = b.handleReset(ctx, message)
	case "top":
		err = b.handleTop(ctx, message)
	default:
		err = b.reply(message.Chat.ID, "Unknown command. Use /help to see the list of commands.")
	}
	return err
}

func (b *Bot) handleComplete(ctx context.Context, message *tgbotapi.Message) error {
	topicID, ev, err := parseCompleteArgs(message.CommandArguments())
	if err != nil {
		return b.reply(message.Chat.ID, "⚠️ "+err.Error()+"\nUsage: /complete <topic> [score] [points]")
	}

	outcome, err := b.service.Reconcile(ctx, userID(message.From), topicID, ev)
	if err != nil {
		return b.replyError(message.Chat.ID, err)
	}
	return b.reply(message.Chat.ID, formatOutcome(topicID, ev.PointsEarned, outcome))
}

func (b *Bot) handleProgress(ctx context.Context, message *tgbotapi.Message) error {
	recs, err := b.service.ListProgress(ctx, userID(message.From))
	if err != nil {
		return b.replyError(message.Chat.ID, err)
	}
	return b.reply(message.Chat.ID, formatProgress(recs))
}

func (b *Bot) handlePoints(ctx context.Context, message *tgbotapi.Message) error {
	points, err := b.service.Points(ctx, userID(message.From))
	if err != nil {
		return b.replyError(message.Chat.ID, err)
	}
	return b.reply(message.Chat.ID, fmt.Sprintf("⭐ You have %d points", points))
}

func (b *Bot) handleReset(ctx context.Context, message *tgbotapi.Message) error {
	topicID := strings.TrimSpace(message.CommandArguments())
	if topicID == "" {
		return b.reply(message.Chat.ID, "Usage: /reset <topic>")
	}

	if err := b.service.Reset(ctx, userID(message.From), topicID); err != nil {
		return b.replyError(message.Chat.ID, err)
	}
	return b.reply(message.Chat.ID, fmt.Sprintf("🔄 Progress for %s reset. Your points stay.", topicID))
}

func (b *Bot) handleTop(ctx context.Context, message *tgbotapi.Message) error {
	entries, err := b.service.Leaderboard(ctx, leaderboardSize)
	if err != nil {
		return b.replyError(message.Chat.ID, err)
	}
	return b.reply(message.Chat.ID, "🏆 Leaderboard\n\n"+formatLeaderboard(entries))
}

// replyError shows a failure to the user and still returns it for logging
func (b *Bot) replyError(chatID int64, err error) error {
	text := "❌ Could not save your progress, please try again later."
	if errors.Is(err, progress.ErrInvalidEvent) {
		text = "⚠️ " + err.Error()
	}
	if sendErr := b.reply(chatID, text); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return err
}

// parseCompleteArgs parses "<topic> [score] [points]"
func parseCompleteArgs(args string) (string, progress.Event, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", progress.Event{}, errors.New("topic is required")
	}
	if len(fields) > 3 {
		return "", progress.Event{}, errors.New("too many arguments")
	}

	ev := progress.Event{Completed: true, Score: 100}
	if len(fields) > 1 {
		score, err := strconv.Atoi(fields[1])
		if err != nil {
			return "", progress.Event{}, fmt.Errorf("score must be a number, got %q", fields[1])
		}
		ev.Score = score
	}
	if len(fields) > 2 {
		points, err := strconv.Atoi(fields[2])
		if err != nil {
			return "", progress.Event{}, fmt.Errorf("points must be a number, got %q", fields[2])
		}
		ev.PointsEarned = points
	}
	return fields[0], ev, nil
}

func formatOutcome(topicID string, points int, outcome progress.Outcome) string {
	var sb strings.Builder
	if outcome.CompletionAwarded {
		sb.WriteString(fmt.Sprintf("🏅 %s completed!", topicID))
	} else {
		sb.WriteString(fmt.Sprintf("✅ Progress saved for %s.", topicID))
	}
	if outcome.PointsAwarded {
		sb.WriteString(fmt.Sprintf("\n⭐ +%d points", points))
	} else if points > 0 {
		sb.WriteString("\nAlready completed, no new points.")
	}
	return sb.String()
}

func formatProgress(recs []models.UserProgress) string {
	if len(recs) == 0 {
		return "You have no progress yet. Use /complete <topic> to record one."
	}

	var sb strings.Builder
	sb.WriteString("📚 Your topics\n\n")
	for _, rec := range recs {
		mark := "▫️"
		if rec.Completed {
			mark = "✅"
		}
		sb.WriteString(fmt.Sprintf("%s %s - %d%%\n", mark, rec.TopicID, rec.Score))
	}
	return sb.String()
}

func formatLeaderboard(entries []models.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "No points awarded yet."
	}

	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("%d. %s - %d\n", e.Rank, e.UserID, e.Points))
	}
	return sb.String()
}
