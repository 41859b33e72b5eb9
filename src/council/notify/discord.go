package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/stake-plus/council-treasury/src/council/governance"
	"github.com/stake-plus/council-treasury/src/logging"
)

const (
	maxMessageLen = 2000
	boxWidth      = 60
)

type messenger interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Announcer posts lifecycle milestones (new proposals, releases, role
// changes) to a Discord channel.
type Announcer struct {
	s         messenger
	channelID string
	log       *zap.Logger
	attempts  int
	backoff   time.Duration
}

func NewAnnouncer(s messenger, channelID string, log *zap.Logger) *Announcer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Announcer{s: s, channelID: channelID, log: log, attempts: 3, backoff: 2 * time.Second}
}

// OpenDiscord returns a REST session for a bot token.
func OpenDiscord(token string) (*discordgo.Session, error) {
	return discordgo.New("Bot " + token)
}

func (a *Announcer) Publish(ctx context.Context, ev governance.Event) error {
	title, body, ok := Describe(ev)
	if !ok {
		return nil
	}
	content := renderBox(title, body)

	var err error
	for i := 0; i < a.attempts; i++ {
		if _, err = a.s.ChannelMessageSend(a.channelID, content); err == nil || !logging.IsRateLimit(err) {
			return err
		}
		a.log.Debug("discord rate limited", zap.String("kind", ev.Kind), zap.Int("attempt", i+1))
		select {
		case <-time.After(a.backoff * time.Duration(i+1)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Describe renders the announcement for ev. Votes, reviews and other
// intermediate steps are not announced.
func Describe(ev governance.Event) (title, body string, ok bool) {
	switch ev.Kind {
	case governance.EventInitialized:
		return "DAO created", fmt.Sprintf("DAO %s\nCreator %s", short(ev.Dao), short(ev.Actor)), true
	case governance.EventProposalSubmitted:
		return "New proposal", fmt.Sprintf("%s\nRequesting %d\nBy %s", ev.Detail, ev.Amount, short(ev.Actor)), true
	case governance.EventProposalResolved:
		return "Proposal " + ev.Status, fmt.Sprintf("%s\nResolved by %s", ev.Detail, short(ev.Actor)), true
	case governance.EventFundsReleased:
		return "Treasury release", fmt.Sprintf("%d released to %s", ev.Amount, ev.Detail), true
	case governance.EventRoleResolved:
		return "Role change " + ev.Status, fmt.Sprintf("%s request %s", ev.Detail, short(ev.Ref)), true
	case governance.EventMemberRemoved:
		return "Member removed", "Member " + short(ev.Ref), true
	}
	return "", "", false
}

func short(addr string) string {
	if utf8.RuneCountInString(addr) <= 14 {
		return addr
	}
	return addr[:8] + "…" + addr[len(addr)-4:]
}

func renderBox(title, body string) string {
	border := strings.Repeat("─", boxWidth+2)
	var b strings.Builder
	b.WriteString("```\n╭" + border + "╮\n")
	b.WriteString(boxLine(title))
	b.WriteString("├" + border + "┤\n")
	for _, line := range strings.Split(body, "\n") {
		for _, part := range wrap(line, boxWidth) {
			b.WriteString(boxLine(part))
		}
	}
	b.WriteString("╰" + border + "╯\n```")

	out := b.String()
	if len(out) > maxMessageLen {
		cut := maxMessageLen - 4
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut] + "\n```"
	}
	return out
}

func boxLine(s string) string {
	pad := boxWidth - utf8.RuneCountInString(s)
	if pad < 0 {
		pad = 0
	}
	return "│ " + s + strings.Repeat(" ", pad) + " │\n"
}

func wrap(line string, width int) []string {
	runes := []rune(line)
	if len(runes) == 0 {
		return []string{""}
	}
	var out []string
	for len(runes) > width {
		out = append(out, string(runes[:width]))
		runes = runes[width:]
	}
	return append(out, string(runes))
}
