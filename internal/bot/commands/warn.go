package commands

import (
	"context"

	"github.com/disgoorg/disgo/events"
	"github.com/robalyx/warden/internal/bot/session"
)

// handleWarn runs the warning pipeline directly when a reason was supplied,
// otherwise starts the reason selection flow.
func (h *Handler) handleWarn(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	targetID := uint64(data.Snowflake("user"))

	if reason, ok := data.OptString("reason"); ok && reason != "" {
		outcome := h.orchestrator.Warn(ctx, actorFromMember(event.Member()), targetID, reason)
		h.updateContent(event.ApplicationID(), event.Token(), formatOutcome(outcome))

		return
	}

	h.startReasonFlow(ctx, event, &session.State{
		Kind:      session.KindWarn,
		InvokerID: uint64(event.User().ID),
		TargetID:  targetID,
	}, h.cfg.Warnings.Reasons)
}
