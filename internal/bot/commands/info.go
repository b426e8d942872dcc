package commands

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/robalyx/warden/internal/moderation"
	"go.uber.org/zap"
)

// handleInfo shows the moderation summary for a user: active warnings, mute
// state, ban record, and note count. The lookup reconciles the subject's
// mute state first so the summary reflects reality.
func (h *Handler) handleInfo(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	invoker := actorFromMember(event.Member())
	if err := h.orchestrator.Authorize(ctx, invoker); err != nil {
		h.updateContent(event.ApplicationID(), event.Token(), formatOutcome(moderation.Rejected(err)))
		return
	}

	targetID := uint64(event.SlashCommandInteractionData().Snowflake("user"))

	if err := h.scheduler.Reconcile(ctx, targetID); err != nil {
		h.logger.Error("Reconciliation failed during info lookup",
			zap.Error(err),
			zap.Uint64("targetID", targetID))
	}

	warnings, err := h.db.Warning().GetActive(ctx, targetID)
	if err != nil {
		h.updateContent(event.ApplicationID(), event.Token(), "Something went wrong: could not load the summary.")
		return
	}

	mutes, err := h.db.Mute().GetActive(ctx, targetID)
	if err != nil {
		h.updateContent(event.ApplicationID(), event.Token(), "Something went wrong: could not load the summary.")
		return
	}

	banned, err := h.db.Ban().IsBanned(ctx, targetID)
	if err != nil {
		h.updateContent(event.ApplicationID(), event.Token(), "Something went wrong: could not load the summary.")
		return
	}

	notes, err := h.db.Note().GetActive(ctx, targetID)
	if err != nil {
		h.updateContent(event.ApplicationID(), event.Token(), "Something went wrong: could not load the summary.")
		return
	}

	muteStatus := "Not muted"
	if len(mutes) > 0 {
		muteStatus = fmt.Sprintf("Muted until <t:%d:R>", mutes[0].ExpiresAt.Unix())
	}

	banStatus := "No ban record"
	if banned {
		banStatus = "Has a ban record"
	}

	embed := discord.NewEmbedBuilder().
		SetTitle("Moderation Summary").
		SetDescription(mention(targetID)).
		SetColor(0x95A5A6).
		AddField("Active Warnings", fmt.Sprintf("%d/%d", len(warnings), h.cfg.Warnings.MaxWarnings), true).
		AddField("Mute", muteStatus, true).
		AddField("Ban", banStatus, true).
		AddField("Active Notes", fmt.Sprintf("%d", len(notes)), true).
		Build()

	h.updateResponse(event.ApplicationID(), event.Token(),
		discord.NewMessageUpdateBuilder().SetEmbeds(embed).Build())
}

func mention(userID uint64) string {
	return fmt.Sprintf("<@%d>", userID)
}
