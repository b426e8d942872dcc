package commands

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/bot/session"
	"go.uber.org/zap"
)

// handleBan starts the ban flow. Bans are irreversible from the bot's side,
// so every path goes through an explicit confirmation step.
func (h *Handler) handleBan(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	targetID := uint64(data.Snowflake("user"))

	state := &session.State{
		Kind:      session.KindBan,
		InvokerID: uint64(event.User().ID),
		TargetID:  targetID,
	}

	if reason, ok := data.OptString("reason"); ok && reason != "" {
		state.Reason = reason

		if _, err := h.sessions.Create(ctx, state); err != nil {
			h.logger.Error("Failed to create session", zap.Error(err))
			h.updateContent(event.ApplicationID(), event.Token(), "Something went wrong: could not start the flow.")

			return
		}

		h.showBanConfirmation(ctx, event.ApplicationID(), event.Token(), state)

		return
	}

	h.startReasonFlow(ctx, event, state, h.cfg.Ban.Reasons)
}

// showBanConfirmation persists the collected reason and replaces the
// response with confirm and cancel buttons.
func (h *Handler) showBanConfirmation(ctx context.Context, appID snowflake.ID, token string, state *session.State) {
	if err := h.sessions.Update(ctx, state); err != nil {
		h.logger.Error("Failed to update session", zap.Error(err))
		h.updateContent(appID, token, "Something went wrong: could not continue the flow.")

		return
	}

	h.updateResponse(appID, token,
		discord.NewMessageUpdateBuilder().
			SetContent(fmt.Sprintf("Ban <@%d> for **%s**?", state.TargetID, state.Reason)).
			ClearContainerComponents().
			AddActionRow(
				discord.NewDangerButton("Ban", customID(session.KindBan, "confirm", state.ID)),
				discord.NewSecondaryButton("Cancel", customID(session.KindBan, "cancel", state.ID)),
			).
			Build())
}

// handleBanConfirm runs the ban pipeline after confirmation.
func (h *Handler) handleBanConfirm(
	ctx context.Context, event *events.ComponentInteractionCreate, state *session.State,
) {
	outcome := h.orchestrator.Ban(ctx, actorFromMember(event.Member()), state.TargetID, state.Reason)

	if err := h.sessions.Delete(ctx, state.InvokerID, state.ID); err != nil {
		h.logger.Debug("Failed to delete completed session", zap.Error(err))
	}

	h.updateContent(event.ApplicationID(), event.Token(), formatOutcome(outcome))
}

// handleBanCancel tears the flow down without acting.
func (h *Handler) handleBanCancel(
	ctx context.Context, event *events.ComponentInteractionCreate, state *session.State,
) {
	if err := h.sessions.Delete(ctx, state.InvokerID, state.ID); err != nil {
		h.logger.Debug("Failed to delete cancelled session", zap.Error(err))
	}

	h.updateContent(event.ApplicationID(), event.Token(), "Ban cancelled. Nothing happened.")
}
