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

const notesPerPage = 5

// handleNotes routes the notes subcommands.
func (h *Handler) handleNotes(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()

	sub := ""
	if data.SubCommandName != nil {
		sub = *data.SubCommandName
	}

	switch sub {
	case "add":
		targetID := uint64(data.Snowflake("user"))
		content := data.String("content")

		outcome := h.orchestrator.AddNote(ctx, actorFromMember(event.Member()), targetID, content)
		h.updateContent(event.ApplicationID(), event.Token(), formatOutcome(outcome))

	case "view":
		h.handleNotesView(ctx, event)

	default:
		h.updateContent(event.ApplicationID(), event.Token(), "This command is not available.")
	}
}

// handleNotesView opens the paginated notes browser for a subject.
func (h *Handler) handleNotesView(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	invoker := actorFromMember(event.Member())
	if err := h.orchestrator.Authorize(ctx, invoker); err != nil {
		h.updateContent(event.ApplicationID(), event.Token(), formatOutcome(moderation.Rejected(err)))
		return
	}

	targetID := uint64(event.SlashCommandInteractionData().Snowflake("user"))

	if err := h.scheduler.Reconcile(ctx, targetID); err != nil {
		h.logger.Error("Reconciliation failed during notes lookup",
			zap.Error(err),
			zap.Uint64("targetID", targetID))
	}

	state := &session.State{
		Kind:      session.KindNote,
		InvokerID: uint64(event.User().ID),
		TargetID:  targetID,
	}

	if _, err := h.sessions.Create(ctx, state); err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		h.updateContent(event.ApplicationID(), event.Token(), "Something went wrong: could not start the flow.")

		return
	}

	h.renderNotesPage(ctx, event.ApplicationID(), event.Token(), state, "")
}

// renderNotesPage rebuilds one page of the notes view with paging buttons
// and a removal menu.
func (h *Handler) renderNotesPage(
	ctx context.Context, appID snowflake.ID, token string, state *session.State, notice string,
) {
	notes, err := h.db.Note().GetActive(ctx, state.TargetID)
	if err != nil {
		h.logger.Error("Failed to load notes", zap.Error(err), zap.Uint64("targetID", state.TargetID))
		h.updateContent(appID, token, "Something went wrong: could not load the notes.")

		return
	}

	if len(notes) == 0 {
		empty := fmt.Sprintf("<@%d> has no notes.", state.TargetID)
		if notice != "" {
			empty = notice + "\n" + empty
		}

		h.updateResponse(appID, token, discord.NewMessageUpdateBuilder().
			SetContent(empty).
			ClearContainerComponents().
			ClearEmbeds().
			Build())

		return
	}

	lastPage := (len(notes) - 1) / notesPerPage
	if state.Page > lastPage {
		state.Page = lastPage
	}

	if state.Page < 0 {
		state.Page = 0
	}

	start := state.Page * notesPerPage
	end := min(start+notesPerPage, len(notes))
	pageNotes := notes[start:end]

	embed := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("Staff Notes (page %d/%d)", state.Page+1, lastPage+1)).
		SetDescription(fmt.Sprintf("<@%d> has %d active notes.", state.TargetID, len(notes))).
		SetColor(0x3498DB)

	options := make([]discord.StringSelectMenuOption, 0, len(pageNotes))

	for _, note := range pageNotes {
		embed.AddField(
			fmt.Sprintf("#%d", note.ID),
			fmt.Sprintf("%s\nBy <@%d> <t:%d:R>", note.Content, note.AuthorID, note.CreatedAt.Unix()),
			false,
		)

		label := note.Content
		if len(label) > 90 {
			label = label[:90] + "..."
		}

		options = append(options, discord.NewStringSelectMenuOption(
			fmt.Sprintf("#%d %s", note.ID, label),
			strconv.FormatInt(note.ID, 10),
		))
	}

	builder := discord.NewMessageUpdateBuilder().
		SetContent(notice).
		ClearContainerComponents().
		SetEmbeds(embed.Build()).
		AddActionRow(discord.NewStringSelectMenu(
			customID(session.KindNote, "remove", state.ID),
			"Remove a note",
			options...,
		))

	if lastPage > 0 {
		builder.AddActionRow(
			discord.NewSecondaryButton("Previous", customID(session.KindNote, "prev", state.ID)),
			discord.NewSecondaryButton("Next", customID(session.KindNote, "next", state.ID)),
		)
	}

	h.updateResponse(appID, token, builder.Build())
}

// handleNotesPage moves the notes view one page in either direction.
func (h *Handler) handleNotesPage(
	ctx context.Context, event *events.ComponentInteractionCreate, state *session.State, action string,
) {
	if action == "next" {
		state.Page++
	} else {
		state.Page--
	}

	if state.Page < 0 {
		state.Page = 0
	}

	if err := h.sessions.Update(ctx, state); err != nil {
		h.logger.Error("Failed to update session", zap.Error(err))
	}

	h.renderNotesPage(ctx, event.ApplicationID(), event.Token(), state, "")
}

// handleNoteRemove removes the selected note and re-renders the page.
func (h *Handler) handleNoteRemove(
	ctx context.Context, event *events.ComponentInteractionCreate, state *session.State,
) {
	data, ok := event.Data.(discord.StringSelectMenuInteractionData)
	if !ok || len(data.Values) == 0 {
		return
	}

	noteID, err := strconv.ParseInt(data.Values[0], 10, 64)
	if err != nil {
		return
	}

	outcome := h.orchestrator.RemoveNote(ctx, actorFromMember(event.Member()), state.TargetID, noteID)

	h.renderNotesPage(ctx, event.ApplicationID(), event.Token(), state, formatOutcome(outcome))
}
