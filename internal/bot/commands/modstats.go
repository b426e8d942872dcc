package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/moderation"
)

const defaultStatsWindowDays = 30

// handleModStats reports per-moderator activity counts over a rolling
// window.
func (h *Handler) handleModStats(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	invoker := actorFromMember(event.Member())
	if err := h.orchestrator.Authorize(ctx, invoker); err != nil {
		h.updateContent(event.ApplicationID(), event.Token(), formatOutcome(moderation.Rejected(err)))
		return
	}

	days, ok := event.SlashCommandInteractionData().OptInt("days")
	if !ok || days <= 0 {
		days = defaultStatsWindowDays
	}

	window := time.Duration(days) * 24 * time.Hour

	warningStats, err := h.db.Activity().GetStats(ctx, types.ActionTypeWarningIssued, window)
	if err != nil {
		h.updateContent(event.ApplicationID(), event.Token(), "Something went wrong: could not load the stats.")
		return
	}

	deletionStats, err := h.db.Activity().GetStats(ctx, types.ActionTypeMessageDeleted, window)
	if err != nil {
		h.updateContent(event.ApplicationID(), event.Token(), "Something went wrong: could not load the stats.")
		return
	}

	embed := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("Moderator Activity (last %d days)", days)).
		SetColor(0x95A5A6).
		AddField("Warnings Issued", formatStats(warningStats), false).
		AddField("Messages Deleted", formatStats(deletionStats), false).
		Build()

	h.updateResponse(event.ApplicationID(), event.Token(),
		discord.NewMessageUpdateBuilder().SetEmbeds(embed).Build())
}

func formatStats(stats []*types.ModeratorStats) string {
	if len(stats) == 0 {
		return "None"
	}

	var b strings.Builder

	for i, stat := range stats {
		if i > 0 {
			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "%d. <@%d>: %d", i+1, stat.ModeratorID, stat.Count)
	}

	return b.String()
}
