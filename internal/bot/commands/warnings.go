package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/bot/session"
	"github.com/robalyx/warden/internal/moderation"
	"go.uber.org/zap"
)

// handleWarnings shows a user's active warnings with a removal menu. Reading
// a subject's records doubles as a reconciliation point for their mute state.
func (h *Handler) handleWarnings(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	invoker := actorFromMember(event.Member())
	if err := h.orchestrator.Authorize(ctx, invoker); err != nil {
		h.updateContent(event.ApplicationID(), event.Token(), formatOutcome(moderation.Rejected(err)))
		return
	}

	targetID := uint64(event.SlashCommandInteractionData().Snowflake("user"))

	if err := h.scheduler.Reconcile(ctx, targetID); err != nil {
		h.logger.Error("Reconciliation failed during warnings lookup",
			zap.Error(err),
			zap.Uint64("targetID", targetID))
	}

	state := &session.State{
		Kind:      session.KindWarn,
		InvokerID: uint64(event.User().ID),
		TargetID:  targetID,
	}

	if _, err := h.sessions.Create(ctx, state); err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		h.updateContent(event.ApplicationID(), event.Token(), "Something went wrong: could not start the flow.")

		return
	}

	h.renderWarnings(ctx, event.ApplicationID(), event.Token(), state, "")
}

// renderWarnings rebuilds the warnings view, optionally prefixed with the
// outcome of a removal.
func (h *Handler) renderWarnings(
	ctx context.Context, appID snowflake.ID, token string, state *session.State, notice string,
) {
	warnings, err := h.db.Warning().GetActive(ctx, state.TargetID)
	if err != nil {
		h.logger.Error("Failed to load warnings", zap.Error(err), zap.Uint64("targetID", state.TargetID))
		h.updateContent(appID, token, "Something went wrong: could not load the warnings.")

		return
	}

	builder := discord.NewMessageUpdateBuilder().ClearContainerComponents().ClearEmbeds()

	if notice != "" {
		builder.SetContent(notice)
	} else {
		builder.SetContent(fmt.Sprintf("Active warnings for <@%d>:", state.TargetID))
	}

	if len(warnings) == 0 {
		empty := fmt.Sprintf("<@%d> has no active warnings.", state.TargetID)
		if notice != "" {
			empty = notice + "\n" + empty
		}

		builder.SetContent(empty)
		h.updateResponse(appID, token, builder.Build())

		return
	}

	embed := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("Active Warnings (%d/%d)", len(warnings), h.cfg.Warnings.MaxWarnings)).
		SetColor(0xFFA500)

	options := make([]discord.StringSelectMenuOption, 0, len(warnings))

	for _, warning := range warnings {
		embed.AddField(
			fmt.Sprintf("#%d", warning.ID),
			fmt.Sprintf("%s\nIssued by <@%d> <t:%d:R>, expires <t:%d:R>",
				warning.Reason, warning.WarnedBy, warning.CreatedAt.Unix(), warning.ExpiresAt.Unix()),
			false,
		)

		label := warning.Reason
		if len(label) > 90 {
			label = label[:90] + "..."
		}

		options = append(options, discord.NewStringSelectMenuOption(
			fmt.Sprintf("#%d %s", warning.ID, label),
			strconv.FormatInt(warning.ID, 10),
		))
	}

	builder.SetEmbeds(embed.Build()).
		AddActionRow(discord.NewStringSelectMenu(
			customID(session.KindWarn, "remove", state.ID),
			"Remove a warning",
			options...,
		))

	h.updateResponse(appID, token, builder.Build())
}

// handleWarningRemove removes the selected warning and re-renders the view.
func (h *Handler) handleWarningRemove(
	ctx context.Context, event *events.ComponentInteractionCreate, state *session.State,
) {
	data, ok := event.Data.(discord.StringSelectMenuInteractionData)
	if !ok || len(data.Values) == 0 {
		return
	}

	warningID, err := strconv.ParseInt(data.Values[0], 10, 64)
	if err != nil {
		return
	}

	outcome := h.orchestrator.RemoveWarning(ctx, actorFromMember(event.Member()), warningID)

	h.renderWarnings(ctx, event.ApplicationID(), event.Token(), state, formatOutcome(outcome))
}
