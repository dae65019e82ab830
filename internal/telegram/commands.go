package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/oddswatch/internal/logger"
)

// Commands forwarded to the poll loop.
const (
	CommandRules = "rules"
	CommandReset = "reset"
	CommandPicks = "picks"
)

// Command is a bot command that needs the engine to answer.
type Command struct {
	Name   string
	Args   string
	ChatID int64
}

// ListenForCommands starts a goroutine that polls for Telegram updates. /ping is answered
// directly; engine commands are delivered on the returned channel so the poll loop can
// execute them between passes. The channel is closed when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) <-chan Command {
	out := make(chan Command, 8)
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.api.GetUpdatesChan(u)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				c.api.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				cmd, ok := c.handleUpdate(update)
				if !ok {
					continue
				}
				select {
				case out <- cmd:
				case <-ctx.Done():
					c.api.StopReceivingUpdates()
					return
				}
			}
		}
	}()
	return out
}

func (c *Client) handleUpdate(update tgbotapi.Update) (Command, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return Command{}, false
	}

	switch name := msg.Command(); name {
	case "ping":
		if _, err := c.bot.Send(tgbotapi.NewMessage(msg.Chat.ID, "Pong")); err != nil {
			logger.Warn("Failed to answer /ping: %v", err)
		}
	case CommandRules, CommandReset, CommandPicks:
		if !c.authorized(msg.Chat.ID) {
			logger.Warn("Ignoring /%s from unauthorized chat %d", name, msg.Chat.ID)
			return Command{}, false
		}
		return Command{Name: name, Args: msg.CommandArguments(), ChatID: msg.Chat.ID}, true
	}
	return Command{}, false
}

// authorized reports whether chatID is the update chat or a broadcast chat.
func (c *Client) authorized(chatID int64) bool {
	if chatID == c.chatID {
		return true
	}
	for _, id := range c.broadcastIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

// Reply answers a command in the chat it came from, as plain text.
func (c *Client) Reply(cmd Command, text string) error {
	_, err := c.bot.Send(tgbotapi.NewMessage(cmd.ChatID, text))
	return err
}
