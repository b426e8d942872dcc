// Package filter contains the passive content filters: the hoisted
// display-name filter and the blocked-link filter. Both follow the same
// shape: detect, remediate, log, then apply the configured consequence, with
// each step isolated so one failure does not skip the rest.
package filter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/warden/internal/moderation"
	"github.com/robalyx/warden/internal/setup/config"
	"go.uber.org/zap"
)

// hoistChars are the leading characters that sort a display name above
// alphanumeric names in the member list.
const hoistChars = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

const maxNicknameLength = 32

const hoistWarnReason = "Hoisted display name"

// HoistFilter renames members whose display name starts with a hoisting
// character. Runs on member join and on member update.
type HoistFilter struct {
	platform     moderation.Platform
	orchestrator *moderation.Orchestrator
	cfg          *config.Config
	logger       *zap.Logger
}

// NewHoistFilter creates the hoisted display-name filter.
func NewHoistFilter(
	platform moderation.Platform, orchestrator *moderation.Orchestrator,
	cfg *config.Config, logger *zap.Logger,
) *HoistFilter {
	return &HoistFilter{
		platform:     platform,
		orchestrator: orchestrator,
		cfg:          cfg,
		logger:       logger.Named("anti_hoist"),
	}
}

// IsHoisted reports whether the display name starts with a hoisting
// character.
func IsHoisted(name string) bool {
	if name == "" {
		return false
	}

	return strings.ContainsRune(hoistChars, rune(name[0]))
}

// DehoistedName returns the corrected nickname: the configured prefix
// prepended to the display name, which is kept intact so the member is still
// recognizable. Truncated to the platform nickname limit on a rune boundary.
func (f *HoistFilter) DehoistedName(name string) string {
	nick := f.cfg.AntiHoist.Prefix + name

	if runes := []rune(nick); len(runes) > maxNicknameLength {
		nick = string(runes[:maxNicknameLength])
	}

	return nick
}

// Handle inspects a member's display name, renaming and escalating when it
// hoists. Returns whether the member was flagged.
func (f *HoistFilter) Handle(ctx context.Context, member *moderation.Member) bool {
	if !f.cfg.AntiHoist.Enabled {
		return false
	}

	for _, roleID := range f.cfg.AntiHoist.ExemptRoleIDs {
		if member.HasRole(roleID) {
			return false
		}
	}

	if !IsHoisted(member.DisplayName) {
		return false
	}

	f.logger.Info("Hoisted display name detected",
		zap.Uint64("userID", member.UserID),
		zap.String("displayName", member.DisplayName))

	newNick := f.DehoistedName(member.DisplayName)

	if err := f.platform.SetNickname(ctx, member.UserID, newNick); err != nil {
		f.logger.Error("Failed to rename hoisted member",
			zap.Error(err),
			zap.Uint64("userID", member.UserID))
	}

	embed := hoistLogEmbed(member.UserID, member.DisplayName, newNick)
	if err := f.platform.PostEmbed(ctx, f.cfg.AntiHoist.LogChannelID, embed); err != nil {
		f.logger.Error("Failed to post anti-hoist log",
			zap.Error(err),
			zap.Uint64("userID", member.UserID))
	}

	f.applyConsequence(ctx, member.UserID)

	return true
}

func (f *HoistFilter) applyConsequence(ctx context.Context, userID uint64) {
	switch f.cfg.AntiHoist.Action {
	case config.FilterActionWarn:
		if err := f.orchestrator.IssueAutoWarning(ctx, userID, hoistWarnReason); err != nil {
			f.logger.Error("Failed to warn hoisted member",
				zap.Error(err),
				zap.Uint64("userID", userID))
		}
	case config.FilterActionMute:
		err := f.orchestrator.AutoMute(ctx, userID, hoistWarnReason, f.cfg.Mute.DefaultDurationHours)
		if err != nil {
			f.logger.Error("Failed to mute hoisted member",
				zap.Error(err),
				zap.Uint64("userID", userID))
		}
	case config.FilterActionNone:
	}
}

func hoistLogEmbed(userID uint64, oldName, newName string) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("Hoisted Name Corrected").
		SetColor(0xF1C40F).
		AddField("User", fmt.Sprintf("<@%d>", userID), true).
		AddField("Old Name", oldName, true).
		AddField("New Name", newName, true).
		SetTimestamp(time.Now()).
		Build()
}
