package commands

import (
	"context"

	"github.com/disgoorg/disgo/events"
	"github.com/robalyx/warden/internal/bot/session"
)

// handleMute runs the mute pipeline directly when a reason was supplied,
// otherwise starts the reason selection flow with the duration captured in
// the session.
func (h *Handler) handleMute(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	targetID := uint64(data.Snowflake("user"))

	durationHours, _ := data.OptInt("duration")

	if reason, ok := data.OptString("reason"); ok && reason != "" {
		outcome := h.orchestrator.Mute(ctx, actorFromMember(event.Member()), targetID, reason, durationHours)
		h.updateContent(event.ApplicationID(), event.Token(), formatOutcome(outcome))

		return
	}

	h.startReasonFlow(ctx, event, &session.State{
		Kind:          session.KindMute,
		InvokerID:     uint64(event.User().ID),
		TargetID:      targetID,
		DurationHours: durationHours,
	}, h.cfg.Mute.Reasons)
}

// handleUnmute lifts a mute early. No interactive flow; the pipeline either
// runs or rejects.
func (h *Handler) handleUnmute(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	targetID := uint64(event.SlashCommandInteractionData().Snowflake("user"))

	outcome := h.orchestrator.Unmute(ctx, actorFromMember(event.Member()), targetID)
	h.updateContent(event.ApplicationID(), event.Token(), formatOutcome(outcome))
}
