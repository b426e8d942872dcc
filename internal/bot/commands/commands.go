// Package commands implements the slash command surface: the command
// definitions registered with Discord, the dispatch table routing
// interactions to handlers, and the interactive flows built on sessions.
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/bot/session"
	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/moderation"
	"github.com/robalyx/warden/internal/setup/config"
	"go.uber.org/zap"
)

// customIDPrefix namespaces every component custom ID the bot emits.
const customIDPrefix = "warden"

// Handler owns the slash command surface. Slash commands, components, and
// modal submissions are routed through dispatch tables resolved once at
// construction; an unknown command name is a wiring bug, not a user error.
type Handler struct {
	client       bot.Client
	cfg          *config.Config
	db           *database.Repository
	orchestrator *moderation.Orchestrator
	scheduler    *moderation.Scheduler
	sessions     *session.Manager
	logger       *zap.Logger

	commands map[string]func(ctx context.Context, event *events.ApplicationCommandInteractionCreate)
}

// New creates the command handler and resolves the dispatch table.
func New(
	client bot.Client,
	cfg *config.Config,
	db *database.Repository,
	orchestrator *moderation.Orchestrator,
	scheduler *moderation.Scheduler,
	sessions *session.Manager,
	logger *zap.Logger,
) *Handler {
	h := &Handler{
		client:       client,
		cfg:          cfg,
		db:           db,
		orchestrator: orchestrator,
		scheduler:    scheduler,
		sessions:     sessions,
		logger:       logger.Named("commands"),
	}

	h.commands = map[string]func(context.Context, *events.ApplicationCommandInteractionCreate){
		"warn":     h.handleWarn,
		"warnings": h.handleWarnings,
		"mute":     h.handleMute,
		"unmute":   h.handleUnmute,
		"ban":      h.handleBan,
		"notes":    h.handleNotes,
		"info":     h.handleInfo,
		"modstats": h.handleModStats,
	}

	return h
}

// Definitions returns the guild command set registered at startup.
func Definitions() []discord.ApplicationCommandCreate {
	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:        "warn",
			Description: "Warn a user",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "User to warn",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "reason",
					Description: "Reason for the warning (omit to pick from presets)",
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        "warnings",
			Description: "View and manage a user's active warnings",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "User to inspect",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        "mute",
			Description: "Mute a user",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "User to mute",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "duration",
					Description: "Mute duration in hours",
				},
				discord.ApplicationCommandOptionString{
					Name:        "reason",
					Description: "Reason for the mute (omit to pick from presets)",
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        "unmute",
			Description: "Lift a user's mute early",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "User to unmute",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        "ban",
			Description: "Ban a user",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "User to ban",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "reason",
					Description: "Reason for the ban (omit to pick from presets)",
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        "notes",
			Description: "Staff notes about a user",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionSubCommand{
					Name:        "add",
					Description: "Add a note",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionUser{
							Name:        "user",
							Description: "Subject of the note",
							Required:    true,
						},
						discord.ApplicationCommandOptionString{
							Name:        "content",
							Description: "Note content",
							Required:    true,
						},
					},
				},
				discord.ApplicationCommandOptionSubCommand{
					Name:        "view",
					Description: "View a user's notes",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionUser{
							Name:        "user",
							Description: "Subject to inspect",
							Required:    true,
						},
					},
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        "info",
			Description: "Moderation summary for a user",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "User to inspect",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        "modstats",
			Description: "Moderator activity over a rolling window",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "days",
					Description: "Window length in days (default 30)",
				},
			},
		},
	}
}

// HandleCommand routes a slash command to its handler.
func (h *Handler) HandleCommand(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	name := event.SlashCommandInteractionData().CommandName()

	handler, ok := h.commands[name]
	if !ok {
		h.logger.Error("No handler for command", zap.String("command", name))

		// No defer has happened yet, so this must be the initial response.
		err := event.CreateMessage(discord.NewMessageCreateBuilder().
			SetContent("This command is not available.").
			SetEphemeral(true).
			Build())
		if err != nil {
			h.logger.Error("Failed to respond to unknown command", zap.Error(err))
		}

		return
	}

	if err := event.DeferCreateMessage(true); err != nil {
		h.logger.Error("Failed to defer command response",
			zap.Error(err),
			zap.String("command", name))

		return
	}

	handler(ctx, event)
}

// HandleComponent routes a component interaction by its custom ID.
func (h *Handler) HandleComponent(ctx context.Context, event *events.ComponentInteractionCreate) {
	kind, action, sessionID, ok := parseCustomID(event.Data.CustomID())
	if !ok {
		return
	}

	// Modals must be the first response; everything else defers.
	opensModal := false
	if data, isSelect := event.Data.(discord.StringSelectMenuInteractionData); isSelect {
		opensModal = action == "reason" && len(data.Values) > 0 && data.Values[0] == customReasonValue
	}

	if !opensModal {
		if err := event.DeferUpdateMessage(); err != nil {
			h.logger.Error("Failed to defer component response", zap.Error(err))
			return
		}
	}

	state, err := h.sessions.Get(ctx, uint64(event.User().ID), sessionID)
	if err != nil {
		h.logger.Debug("Component interaction without session",
			zap.Error(err),
			zap.String("customID", event.Data.CustomID()))

		if !opensModal {
			h.updateContent(event.ApplicationID(), event.Token(),
				"This interaction has expired. Run the command again.")
		}

		return
	}

	switch {
	case action == "reason" && opensModal:
		h.openReasonModal(event, state)
	case action == "reason":
		h.handleReasonChosen(ctx, event, state)
	case kind == session.KindBan && action == "confirm":
		h.handleBanConfirm(ctx, event, state)
	case kind == session.KindBan && action == "cancel":
		h.handleBanCancel(ctx, event, state)
	case kind == session.KindWarn && action == "remove":
		h.handleWarningRemove(ctx, event, state)
	case kind == session.KindNote && action == "remove":
		h.handleNoteRemove(ctx, event, state)
	case kind == session.KindNote && (action == "prev" || action == "next"):
		h.handleNotesPage(ctx, event, state, action)
	default:
		h.logger.Error("No handler for component",
			zap.String("customID", event.Data.CustomID()))
	}
}

// HandleModal routes a modal submission by its custom ID.
func (h *Handler) HandleModal(ctx context.Context, event *events.ModalSubmitInteractionCreate) {
	_, action, sessionID, ok := parseCustomID(event.Data.CustomID)
	if !ok || action != "modal" {
		return
	}

	if err := event.DeferUpdateMessage(); err != nil {
		h.logger.Error("Failed to defer modal response", zap.Error(err))
		return
	}

	state, err := h.sessions.Get(ctx, uint64(event.User().ID), sessionID)
	if err != nil {
		h.updateContent(event.ApplicationID(), event.Token(),
			"This interaction has expired. Run the command again.")

		return
	}

	reason := strings.TrimSpace(event.Data.Text("reason"))
	if reason == "" {
		h.updateContent(event.ApplicationID(), event.Token(), "A reason is required.")
		return
	}

	state.Reason = reason
	h.completeFlow(ctx, event.ApplicationID(), event.Token(), actorFromMember(event.Member()), state)
}

// completeFlow runs the pipeline a flow was collecting input for and reports
// the outcome.
func (h *Handler) completeFlow(
	ctx context.Context, appID snowflake.ID, token string, invoker moderation.Actor, state *session.State,
) {
	var outcome moderation.Outcome

	switch state.Kind {
	case session.KindWarn:
		outcome = h.orchestrator.Warn(ctx, invoker, state.TargetID, state.Reason)
	case session.KindMute:
		outcome = h.orchestrator.Mute(ctx, invoker, state.TargetID, state.Reason, state.DurationHours)
	case session.KindBan:
		// Bans always pass through the confirmation step.
		h.showBanConfirmation(ctx, appID, token, state)
		return
	default:
		h.logger.Error("Flow completion for unknown kind", zap.String("kind", string(state.Kind)))
		return
	}

	if err := h.sessions.Delete(ctx, invoker.ID, state.ID); err != nil {
		h.logger.Debug("Failed to delete completed session", zap.Error(err))
	}

	h.updateContent(appID, token, formatOutcome(outcome))
}

// updateContent replaces the deferred response with plain content and no
// components.
func (h *Handler) updateContent(appID snowflake.ID, token, content string) {
	_, err := h.client.Rest().UpdateInteractionResponse(appID, token,
		discord.NewMessageUpdateBuilder().
			SetContent(content).
			ClearContainerComponents().
			ClearEmbeds().
			Build())
	if err != nil {
		h.logger.Error("Failed to update interaction response", zap.Error(err))
	}
}

// updateResponse replaces the deferred response with a full message update.
func (h *Handler) updateResponse(appID snowflake.ID, token string, update discord.MessageUpdate) {
	_, err := h.client.Rest().UpdateInteractionResponse(appID, token, update)
	if err != nil {
		h.logger.Error("Failed to update interaction response", zap.Error(err))
	}
}

// formatOutcome renders an outcome with its annotations for the invoker.
func formatOutcome(outcome moderation.Outcome) string {
	var b strings.Builder

	switch outcome.Status {
	case moderation.StatusDone:
		b.WriteString(outcome.Message)
	case moderation.StatusRejected:
		b.WriteString("Cannot do that: ")
		b.WriteString(outcome.Message)
	case moderation.StatusFailed:
		b.WriteString("Something went wrong: ")
		b.WriteString(outcome.Message)
	}

	for _, note := range outcome.Annotations {
		b.WriteString("\n- ")
		b.WriteString(note)
	}

	return b.String()
}

// actorFromMember builds the pipeline view of the invoker.
func actorFromMember(member *discord.ResolvedMember) moderation.Actor {
	if member == nil {
		return moderation.Actor{}
	}

	actor := moderation.Actor{
		ID:      uint64(member.User.ID),
		RoleIDs: make([]uint64, 0, len(member.RoleIDs)),
	}

	for _, roleID := range member.RoleIDs {
		actor.RoleIDs = append(actor.RoleIDs, uint64(roleID))
	}

	return actor
}

func customID(kind session.Kind, action, sessionID string) string {
	return fmt.Sprintf("%s:%s:%s:%s", customIDPrefix, kind, action, sessionID)
}

func parseCustomID(id string) (session.Kind, string, string, bool) {
	parts := strings.SplitN(id, ":", 4)
	if len(parts) != 4 || parts[0] != customIDPrefix {
		return "", "", "", false
	}

	return session.Kind(parts[1]), parts[2], parts[3], true
}
