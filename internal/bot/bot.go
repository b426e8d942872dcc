// Package bot owns the Discord connection: gateway event handling, command
// registration, and the adapter between disgo and the moderation pipelines.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo"
	disgobot "github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/bot/commands"
	"github.com/robalyx/warden/internal/bot/session"
	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/filter"
	"github.com/robalyx/warden/internal/moderation"
	"github.com/robalyx/warden/internal/redis"
	"github.com/robalyx/warden/internal/setup/config"
	"go.uber.org/zap"
)

// Bot bundles the Discord client with the moderation pipelines and filters
// it drives from gateway events.
type Bot struct {
	cfg         *config.Config
	client      disgobot.Client
	platform    *discordPlatform
	scheduler   *moderation.Scheduler
	hoistFilter *filter.HoistFilter
	linkFilter  *filter.LinkFilter
	handler     *commands.Handler
	logger      *zap.Logger
}

// New builds the bot: the disgo client with its gateway intents and event
// listeners, the platform adapter, and the moderation pipelines wired to the
// database models.
func New(
	cfg *config.Config,
	db database.Client,
	redisManager *redis.Manager,
	logger *zap.Logger,
) (*Bot, error) {
	b := &Bot{
		cfg:    cfg,
		logger: logger.Named("bot"),
	}

	client, err := disgo.New(cfg.Bot.Token,
		disgobot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentMessageContent,
				gateway.IntentGuildMembers,
			),
		),
		disgobot.WithEventListeners(&events.ListenerAdapter{
			OnApplicationCommandInteraction: b.handleApplicationCommand,
			OnComponentInteraction:          b.handleComponent,
			OnModalSubmit:                   b.handleModal,
			OnGuildMemberJoin:               b.handleGuildMemberJoin,
			OnGuildMemberUpdate:             b.handleGuildMemberUpdate,
			OnMessageCreate:                 b.handleMessageCreate,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord client: %w", err)
	}

	sessionManager, err := session.NewManager(redisManager, &cfg.Session, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	platform := newDiscordPlatform(client, &cfg.Bot)
	scheduler := moderation.NewScheduler(platform, db.Model().Mute(), cfg, logger)
	escalator := moderation.NewEscalator(
		db.Model().Warning(), db.Model().Mute(), db.Model().Activity(), &cfg.Warnings, logger)
	orchestrator := moderation.NewOrchestrator(
		platform, escalator, scheduler,
		db.Model().Warning(), db.Model().Mute(), db.Model().Note(),
		db.Model().Ban(), db.Model().Activity(),
		cfg, logger)

	b.client = client
	b.platform = platform
	b.scheduler = scheduler
	b.hoistFilter = filter.NewHoistFilter(platform, orchestrator, cfg, logger)
	b.linkFilter = filter.NewLinkFilter(platform, orchestrator, db.Model().Activity(), cfg, logger)
	b.handler = commands.New(client, cfg, db.Model(), orchestrator, scheduler, sessionManager, logger)

	return b, nil
}

// Start registers the guild commands, primes guild metadata, resumes mute
// expiry timers, and opens the gateway connection.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Registering commands")

	_, err := b.client.Rest().SetGuildCommands(
		b.client.ApplicationID(), snowflake.ID(b.cfg.Bot.GuildID), commands.Definitions())
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	if err := b.platform.prime(ctx); err != nil {
		return err
	}

	if err := b.scheduler.ResumeAll(ctx); err != nil {
		return fmt.Errorf("failed to resume mute timers: %w", err)
	}

	b.logger.Info("Starting bot")

	return b.client.OpenGateway(ctx)
}

// Close gracefully shuts down the gateway connection.
func (b *Bot) Close() {
	b.logger.Info("Closing bot")
	b.client.Close(context.Background())
}

// handleApplicationCommand processes slash commands in a goroutine so slow
// pipelines never block the gateway reader.
func (b *Bot) handleApplicationCommand(event *events.ApplicationCommandInteractionCreate) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
		defer cancel()

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in application command handler", zap.Any("panic", r))
			}

			b.logger.Debug("Application command handled",
				zap.String("command", event.SlashCommandInteractionData().CommandName()),
				zap.Duration("duration", time.Since(start)))
		}()

		b.handler.HandleCommand(ctx, event)
	}()
}

// handleComponent processes button clicks and select menu choices.
func (b *Bot) handleComponent(event *events.ComponentInteractionCreate) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
		defer cancel()

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in component handler", zap.Any("panic", r))
			}

			b.logger.Debug("Component interaction handled",
				zap.String("customID", event.Data.CustomID()),
				zap.Duration("duration", time.Since(start)))
		}()

		b.handler.HandleComponent(ctx, event)
	}()
}

// handleModal processes modal submissions.
func (b *Bot) handleModal(event *events.ModalSubmitInteractionCreate) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
		defer cancel()

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in modal submit handler", zap.Any("panic", r))
			}

			b.logger.Debug("Modal submission handled",
				zap.String("customID", event.Data.CustomID),
				zap.Duration("duration", time.Since(start)))
		}()

		b.handler.HandleModal(ctx, event)
	}()
}

// handleGuildMemberJoin runs the hoist filter on new members.
func (b *Bot) handleGuildMemberJoin(event *events.GuildMemberJoin) {
	if uint64(event.GuildID) != b.cfg.Bot.GuildID {
		return
	}

	member := memberView(event.Member)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in member join handler", zap.Any("panic", r))
			}
		}()

		b.hoistFilter.Handle(ctx, member)
	}()
}

// handleGuildMemberUpdate re-runs the hoist filter when a member changes
// their nickname.
func (b *Bot) handleGuildMemberUpdate(event *events.GuildMemberUpdate) {
	if uint64(event.GuildID) != b.cfg.Bot.GuildID {
		return
	}

	member := memberView(event.Member)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in member update handler", zap.Any("panic", r))
			}
		}()

		b.hoistFilter.Handle(ctx, member)
	}()
}

// handleMessageCreate runs the link filter on guild messages.
func (b *Bot) handleMessageCreate(event *events.MessageCreate) {
	if event.GuildID == nil || uint64(*event.GuildID) != b.cfg.Bot.GuildID {
		return
	}

	msg := filter.Message{
		ID:        uint64(event.MessageID),
		ChannelID: uint64(event.ChannelID),
		AuthorID:  uint64(event.Message.Author.ID),
		AuthorBot: event.Message.Author.Bot,
		Content:   event.Message.Content,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in message handler", zap.Any("panic", r))
			}
		}()

		b.linkFilter.Handle(ctx, msg)
	}()
}

// memberView converts a gateway member payload to the pipeline view.
func memberView(member discord.Member) *moderation.Member {
	view := &moderation.Member{
		UserID:      uint64(member.User.ID),
		Username:    member.User.Username,
		DisplayName: member.EffectiveName(),
		RoleIDs:     make([]uint64, 0, len(member.RoleIDs)),
	}

	for _, roleID := range member.RoleIDs {
		view.RoleIDs = append(view.RoleIDs, uint64(roleID))
	}

	return view
}
