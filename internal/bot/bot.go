// Package bot implements the slash command surface on top of the engine.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/pauljones0/epic-free-games-bot/internal/config"
	"github.com/pauljones0/epic-free-games-bot/internal/models"
	"github.com/pauljones0/epic-free-games-bot/internal/notifier"
	"github.com/pauljones0/epic-free-games-bot/internal/processor"
)

const (
	presence       = "Epic Games | /commands"
	helpColor      = 0x1E3A8A
	commandTimeout = 4 * time.Minute
	maxEmbeds      = 10
)

// Engine is the subset of the reconciliation engine used by commands.
type Engine interface {
	Reconcile(ctx context.Context, tc processor.TriggerContext) processor.Outcome
	Current() []models.Offer
	Upcoming() []models.Offer
	Confirm(requesterID string) ([]models.Offer, bool)
	ConfirmWindow() time.Duration
}

// Schedule reports when the unattended check fires next.
type Schedule interface {
	NextRun() (time.Time, error)
	DailyTime() string
}

// Responder is the interaction API the handlers write to.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// CommandObserver counts handled commands.
type CommandObserver interface {
	ObserveCommand(name string)
}

// Option configures a Bot.
type Option func(*Bot)

func WithCommandObserver(o CommandObserver) Option {
	return func(b *Bot) { b.observer = o }
}

// WithContext sets the parent context of every command. Cancelling it
// aborts commands still running.
func WithContext(ctx context.Context) Option {
	return func(b *Bot) { b.ctx = ctx }
}

// Bot dispatches slash commands.
type Bot struct {
	engine   Engine
	schedule Schedule
	renderer notifier.Renderer
	ownerID  string
	shutdown func()
	observer CommandObserver
	now      func() time.Time
	ctx      context.Context

	mu       sync.Mutex
	draining bool
	inflight sync.WaitGroup

	readyOnce sync.Once
	ready     chan struct{}
}

// New builds a Bot. shutdown is invoked after the owner's /shutdown reply.
func New(engine Engine, schedule Schedule, renderer notifier.Renderer, cfg *config.Config, shutdown func(), opts ...Option) *Bot {
	b := &Bot{
		engine:   engine,
		schedule: schedule,
		renderer: renderer,
		ownerID:  cfg.OwnerID,
		shutdown: shutdown,
		now:      time.Now,
		ctx:      context.Background(),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// IsOwner is the only authorization check the bot performs.
func IsOwner(ownerID, userID string) bool {
	return ownerID != "" && userID == ownerID
}

// Attach registers the gateway handlers on s.
func (b *Bot) Attach(s *discordgo.Session) {
	s.AddHandler(b.onReady)
	s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		b.Handle(s, ic.Interaction)
	})
}

// Ready is closed after the first gateway Ready event.
func (b *Bot) Ready() <-chan struct{} {
	return b.ready
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	slog.Info("Bot logged in", "user", r.User.Username, "guilds", len(r.Guilds))

	synced, err := s.ApplicationCommandBulkOverwrite(r.User.ID, "", Commands())
	if err != nil {
		slog.Error("Failed to sync commands", "error", err)
	} else {
		slog.Info("Synced slash commands", "count", len(synced))
	}
	if err := s.UpdateWatchStatus(0, presence); err != nil {
		slog.Warn("Failed to set presence", "error", err)
	}
	b.readyOnce.Do(func() { close(b.ready) })
}

// Handle routes one interaction to its command handler.
func (b *Bot) Handle(api Responder, i *discordgo.Interaction) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name
	if !b.begin() {
		slog.Info("Ignoring command during shutdown", "command", name)
		return
	}
	defer b.inflight.Done()
	if b.observer != nil {
		b.observer.ObserveCommand(name)
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	user := interactionUser(i)
	if user == nil {
		slog.Warn("Interaction without user", "command", name)
		return
	}
	logger := slog.With("command", name, "user_id", user.ID)
	logger.Info("Handling command")

	var err error
	switch name {
	case cmdCommands:
		err = b.help(ctx, api, i)
	case cmdGetGame:
		err = b.getGame(ctx, api, i, user)
	case cmdShowCurrent:
		err = b.showOffers(ctx, api, i, b.engine.Current(), false, user)
	case cmdShowUpcoming:
		err = b.showOffers(ctx, api, i, b.engine.Upcoming(), true, user)
	case cmdNextCheck:
		err = b.nextCheck(ctx, api, i)
	case cmdConfirm:
		err = b.confirm(ctx, api, i, user)
	case cmdShutdown:
		err = b.shutdownCmd(ctx, api, i, user)
	default:
		err = fmt.Errorf("unknown command %q", name)
	}
	if err != nil {
		logger.Error("Command failed", "error", err)
	}
}

// begin registers a running command unless Wait has been called.
func (b *Bot) begin() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.draining {
		return false
	}
	b.inflight.Add(1)
	return true
}

// Wait stops accepting commands and blocks until running ones return.
func (b *Bot) Wait() {
	b.mu.Lock()
	b.draining = true
	b.mu.Unlock()
	b.inflight.Wait()
}

func (b *Bot) help(ctx context.Context, api Responder, i *discordgo.Interaction) error {
	embed := &discordgo.MessageEmbed{
		Title:       "Epic Games Tracker",
		Description: "Track free Epic Games Store games automatically",
		Color:       helpColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Daily automatic check at " + b.schedule.DailyTime()},
	}
	for _, c := range Commands() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "/" + c.Name, Value: c.Description})
	}
	return respond(ctx, api, i, "", embed)
}

func (b *Bot) getGame(ctx context.Context, api Responder, i *discordgo.Interaction, user *discordgo.User) error {
	if err := respond(ctx, api, i, "Manual check triggered by "+user.Mention()); err != nil {
		return err
	}

	out := b.engine.Reconcile(ctx, processor.TriggerContext{
		Requester: &processor.Requester{ID: user.ID, Name: displayName(user)},
		Target:    i.ChannelID,
	})
	switch out.Status {
	case processor.StatusUnchanged:
		if !out.ConfirmationIssued {
			return nil
		}
		return followup(ctx, api, i, fmt.Sprintf("%s, games are the same as last check. Use /confirm within %s to see them again.",
			user.Mention(), formatWindow(b.engine.ConfirmWindow())))
	case processor.StatusFetchFailed, processor.StatusNoDestination:
		return followup(ctx, api, i, "Failed to fetch games.")
	case processor.StatusPersistFailed:
		return followup(ctx, api, i, "Failed to save game state, nothing was announced.")
	}
	if out.FailedDeliveries > 0 {
		return followup(ctx, api, i, "Some announcements could not be delivered.")
	}
	return nil
}

func (b *Bot) showOffers(ctx context.Context, api Responder, i *discordgo.Interaction, offers []models.Offer, upcoming bool, user *discordgo.User) error {
	if len(offers) == 0 {
		if upcoming {
			return respond(ctx, api, i, "No upcoming games to display.")
		}
		return respond(ctx, api, i, "No current games to display.")
	}

	header := notifier.HeaderCurrent
	if upcoming {
		header = notifier.HeaderUpcoming
	}
	if err := respond(ctx, api, i, header); err != nil {
		return err
	}
	embeds := b.renderer.Embeds(offers, upcoming, displayName(user))
	for start := 0; start < len(embeds); start += maxEmbeds {
		end := min(start+maxEmbeds, len(embeds))
		if _, err := api.FollowupMessageCreate(i, true, &discordgo.WebhookParams{Embeds: embeds[start:end]}, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("failed to send embeds: %w", err)
		}
	}
	return nil
}

func (b *Bot) nextCheck(ctx context.Context, api Responder, i *discordgo.Interaction) error {
	next, err := b.schedule.NextRun()
	if err != nil {
		slog.Warn("Next run unavailable", "error", err)
		return respond(ctx, api, i, "The daily check is not scheduled yet.")
	}
	until := next.Sub(b.now())
	return respond(ctx, api, i, fmt.Sprintf("Next automatic check in %s (%s).", formatUntil(until), next.Format("2006-01-02 15:04 MST")))
}

func (b *Bot) confirm(ctx context.Context, api Responder, i *discordgo.Interaction, user *discordgo.User) error {
	offers, ok := b.engine.Confirm(user.ID)
	if !ok {
		return respond(ctx, api, i, "No pending confirmation or it expired.")
	}
	return b.showOffers(ctx, api, i, offers, false, user)
}

func (b *Bot) shutdownCmd(ctx context.Context, api Responder, i *discordgo.Interaction, user *discordgo.User) error {
	if !IsOwner(b.ownerID, user.ID) {
		slog.Warn("Unauthorized shutdown attempt", "user_id", user.ID)
		return respond(ctx, api, i, "You don't have permission.")
	}
	err := respond(ctx, api, i, "Shutting down...")
	slog.Info("Shutdown requested by owner")
	b.shutdown()
	return err
}

func respond(ctx context.Context, api Responder, i *discordgo.Interaction, content string, embeds ...*discordgo.MessageEmbed) error {
	err := api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Embeds: embeds},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to respond: %w", err)
	}
	return nil
}

func followup(ctx context.Context, api Responder, i *discordgo.Interaction, content string) error {
	if _, err := api.FollowupMessageCreate(i, true, &discordgo.WebhookParams{Content: content}, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send followup: %w", err)
	}
	return nil
}

func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func formatWindow(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%d min", int(d/time.Minute))
	}
	return d.String()
}

func formatUntil(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Minute)
	return fmt.Sprintf("%dh %dm", int(d/time.Hour), int(d%time.Hour/time.Minute))
}
