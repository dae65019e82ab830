// Package compose renders diff results and picks as Telegram MarkdownV2 messages.
package compose

import (
	"strings"

	"github.com/rewired-gh/oddswatch/internal/models"
)

const (
	handEmoji  = "👉"
	clockEmoji = "⏰"
	pickEmoji  = "🎯"
	fireEmoji  = "🔥"
)

// builder writes MarkdownV2, escaping every literal fragment.
type builder struct {
	strings.Builder
}

func (b *builder) text(s string) *builder {
	b.WriteString(EscapeMarkdownV2(s))
	return b
}

func (b *builder) bold(s string) *builder {
	b.WriteByte('*')
	b.WriteString(EscapeMarkdownV2(s))
	b.WriteByte('*')
	return b
}

func (b *builder) raw(s string) *builder {
	b.WriteString(s)
	return b
}

// UpdateMessage renders one block per change. Start times are shown only for newly
// identified matches. It returns "" when there is nothing to send.
func UpdateMessage(snap models.EventSnapshot, changes []models.Change) string {
	var body builder
	for _, c := range changes {
		p1 := strings.TrimSpace(c.Quote.Player1)
		p2 := strings.TrimSpace(c.Quote.Player2)
		if p1 == "" || p2 == "" {
			continue
		}
		body.raw(handEmoji + " ").text(p1 + ": = ").bold("@" + c.Quote.Odd1).raw("\n")
		body.raw(handEmoji + " ").text(p2 + ": = ").bold("@" + c.Quote.Odd2).raw("\n")
		if c.ShowsStartTime() && c.Quote.StartTime != "" {
			body.raw(clockEmoji).bold(c.Quote.StartTime).raw("\n")
		}
		body.raw("\n")
	}
	if body.Len() == 0 {
		return ""
	}

	var b builder
	b.bold(snap.Tournament).text(" - ").bold(snap.Kind.String()).raw("\n\n")
	b.raw(body.String())
	return b.String()
}

// PicksMessage renders one line per single pick and one block per combo pick.
// It returns "" when there are no picks.
func PicksMessage(snap models.EventSnapshot, picks []models.Pick, combos []models.ComboPick) string {
	if len(picks) == 0 && len(combos) == 0 {
		return ""
	}

	var b builder
	b.raw(fireEmoji + " ").bold("Picks Alert!").raw(" " + fireEmoji + "\n")
	b.text("Event: " + snap.Tournament + " - " + snap.Kind.String()).raw("\n\n")

	for _, p := range picks {
		b.raw(pickEmoji + " ").text("Pick → ").bold(p.Player).
			text(" @ " + p.Odd.StringFixed(2) + " – Value: " + p.Value()).raw("\n")
	}

	for _, c := range combos {
		b.raw(pickEmoji + " ").bold("New COMBI Pick").text(" — Value: " + c.Value()).raw("\n")
		for _, l := range c.Legs {
			b.text("  — ").bold(l.Player).text(" @ " + l.Odd.StringFixed(2)).raw("\n")
		}
		b.bold("Combined Odds:").text(" " + c.CombinedOdd.StringFixed(2)).raw("\n")
	}

	return b.String()
}

// EscapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func EscapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '\\', '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
