// Package telegram delivers update and pick messages via the Telegram Bot API and
// relays bot commands to the poll loop.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/oddswatch/internal/compose"
	"github.com/rewired-gh/oddswatch/internal/logger"
)

// sender is the subset of *tgbotapi.BotAPI used for outgoing messages.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications.
type Client struct {
	bot            sender
	api            *tgbotapi.BotAPI
	chatID         int64
	broadcastIDs   []int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client. Update messages go to chatID; picks are
// broadcast to broadcastIDs, or to chatID when that list is empty.
func NewClient(botToken, chatID string, broadcastIDs []string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}
	ids, err := parseChatIDs(broadcastIDs)
	if err != nil {
		return nil, err
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	c := newClient(bot, chatIDInt, ids, maxRetries, retryDelayBase)
	c.api = bot
	return c, nil
}

func newClient(bot sender, chatID int64, broadcastIDs []int64, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	if len(broadcastIDs) == 0 {
		broadcastIDs = []int64{chatID}
	}
	return &Client{
		bot:            bot,
		chatID:         chatID,
		broadcastIDs:   broadcastIDs,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

func parseChatIDs(raw []string) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid broadcast chat ID %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(chatID int64, text string, silent bool) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableNotification = silent

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
		}
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// Send delivers a pre-rendered MarkdownV2 payload to the update chat.
// Silent messages are delivered without a notification sound.
func (c *Client) Send(text string, silent bool) error {
	return c.sendMarkdownV2(c.chatID, text, silent)
}

// Broadcast delivers a pre-rendered MarkdownV2 payload to every broadcast chat
// concurrently. Each failed destination is logged; the first failure is returned.
func (c *Client) Broadcast(text string) error {
	var g errgroup.Group
	for _, id := range c.broadcastIDs {
		g.Go(func() error {
			if err := c.sendMarkdownV2(id, text, false); err != nil {
				logger.Error("Failed to broadcast to chat %d: %v", id, err)
				return fmt.Errorf("chat %d: %w", id, err)
			}
			logger.Debug("Broadcast delivered to chat %d", id)
			return nil
		})
	}
	return g.Wait()
}

// SendError sends a monitoring error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Monitoring error*\n`%s`", compose.EscapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(c.chatID, text, false)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Monitoring recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(c.chatID, text, false)
}
