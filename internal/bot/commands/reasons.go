package commands

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/robalyx/warden/internal/bot/session"
	"github.com/robalyx/warden/internal/setup/config"
	"go.uber.org/zap"
)

// customReasonValue marks the menu option that opens the free-text modal.
const customReasonValue = "custom"

// startReasonFlow stores a new session and replaces the deferred response
// with the preset reason menu.
func (h *Handler) startReasonFlow(
	ctx context.Context, event *events.ApplicationCommandInteractionCreate,
	state *session.State, presets []config.Reason,
) {
	if _, err := h.sessions.Create(ctx, state); err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		h.updateContent(event.ApplicationID(), event.Token(), "Something went wrong: could not start the flow.")

		return
	}

	menu := reasonSelectMenu(state, presets)

	h.updateResponse(event.ApplicationID(), event.Token(),
		discord.NewMessageUpdateBuilder().
			SetContent(fmt.Sprintf("Pick a reason to %s <@%d>:", state.Kind, state.TargetID)).
			AddActionRow(menu).
			Build())
}

// reasonSelectMenu builds the preset reason menu with a trailing custom
// reason option.
func reasonSelectMenu(state *session.State, presets []config.Reason) discord.StringSelectMenuComponent {
	options := make([]discord.StringSelectMenuOption, 0, len(presets)+1)

	for _, preset := range presets {
		option := discord.NewStringSelectMenuOption(preset.Title, preset.Title).
			WithDescription(preset.Description)

		if preset.Emoji != "" {
			option = option.WithEmoji(discord.ComponentEmoji{Name: preset.Emoji})
		}

		options = append(options, option)
	}

	options = append(options,
		discord.NewStringSelectMenuOption("Custom reason...", customReasonValue).
			WithDescription("Type your own reason"))

	return discord.NewStringSelectMenu(
		customID(state.Kind, "reason", state.ID),
		"Select a reason",
		options...,
	)
}

// openReasonModal responds with the free-text reason modal. Must be the
// interaction's first response.
func (h *Handler) openReasonModal(event *events.ComponentInteractionCreate, state *session.State) {
	modal := discord.NewModalCreateBuilder().
		SetCustomID(customID(state.Kind, "modal", state.ID)).
		SetTitle("Custom reason").
		AddActionRow(
			discord.NewParagraphTextInput("reason", "Reason").
				WithRequired(true).
				WithMaxLength(512),
		).
		Build()

	if err := event.Modal(modal); err != nil {
		h.logger.Error("Failed to open reason modal", zap.Error(err))
	}
}

// handleReasonChosen completes the flow with a preset reason.
func (h *Handler) handleReasonChosen(
	ctx context.Context, event *events.ComponentInteractionCreate, state *session.State,
) {
	data, ok := event.Data.(discord.StringSelectMenuInteractionData)
	if !ok || len(data.Values) == 0 {
		return
	}

	state.Reason = data.Values[0]
	h.completeFlow(ctx, event.ApplicationID(), event.Token(), actorFromMember(event.Member()), state)
}
