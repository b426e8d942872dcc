package filter

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/moderation"
	"github.com/robalyx/warden/internal/setup/config"
	"go.uber.org/zap"
)

// urlPattern matches URL tokens. Only text inside a URL can flag a message;
// a blocked domain mentioned in prose is ignored.
var urlPattern = regexp.MustCompile(`(?i)https?://\S+`)

const linkWarnReason = "Posted a blocked link"

// Message is the view of an incoming message the link filter inspects.
type Message struct {
	ID        uint64
	ChannelID uint64
	AuthorID  uint64
	AuthorBot bool
	Content   string
}

// LinkFilter deletes messages containing URLs that mention a blocked domain.
type LinkFilter struct {
	platform     moderation.Platform
	orchestrator *moderation.Orchestrator
	activity     moderation.ActivityStore
	cfg          *config.Config
	logger       *zap.Logger
}

// NewLinkFilter creates the blocked-link filter.
func NewLinkFilter(
	platform moderation.Platform, orchestrator *moderation.Orchestrator,
	activity moderation.ActivityStore, cfg *config.Config, logger *zap.Logger,
) *LinkFilter {
	return &LinkFilter{
		platform:     platform,
		orchestrator: orchestrator,
		activity:     activity,
		cfg:          cfg,
		logger:       logger.Named("anti_link"),
	}
}

// ContainsBlockedLink reports whether any URL in the content mentions one of
// the blocked domains. Matching is case-insensitive substring over the URL
// token.
func ContainsBlockedLink(content string, blockedDomains []string) bool {
	urls := urlPattern.FindAllString(content, -1)
	if len(urls) == 0 {
		return false
	}

	for _, url := range urls {
		lowered := strings.ToLower(url)
		for _, domain := range blockedDomains {
			if domain == "" {
				continue
			}

			if strings.Contains(lowered, strings.ToLower(domain)) {
				return true
			}
		}
	}

	return false
}

// Handle inspects a message, deleting and escalating when it carries a
// blocked link. Returns whether the message was flagged.
func (f *LinkFilter) Handle(ctx context.Context, msg Message) bool {
	if !f.cfg.AntiLink.Enabled || msg.AuthorBot {
		return false
	}

	for _, channelID := range f.cfg.AntiLink.ExemptChannelIDs {
		if msg.ChannelID == channelID {
			return false
		}
	}

	if !ContainsBlockedLink(msg.Content, f.cfg.AntiLink.BlockedDomains) {
		return false
	}

	// Role exemption needs a member fetch, so it runs only after the cheap
	// content match.
	member, err := f.platform.FetchMember(ctx, msg.AuthorID)
	if err != nil {
		f.logger.Error("Failed to fetch author of flagged message",
			zap.Error(err),
			zap.Uint64("authorID", msg.AuthorID))
	} else {
		for _, roleID := range f.cfg.AntiLink.ExemptRoleIDs {
			if member.HasRole(roleID) {
				return false
			}
		}
	}

	f.logger.Info("Blocked link detected",
		zap.Uint64("authorID", msg.AuthorID),
		zap.Uint64("channelID", msg.ChannelID))

	if err := f.platform.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		f.logger.Error("Failed to delete flagged message",
			zap.Error(err),
			zap.Uint64("messageID", msg.ID))
	} else {
		f.activity.Log(ctx, f.platform.BotUserID(), types.ActionTypeMessageDeleted)
	}

	embed := linkLogEmbed(msg.AuthorID, msg.ChannelID, msg.Content)
	if err := f.platform.PostEmbed(ctx, f.cfg.AntiLink.LogChannelID, embed); err != nil {
		f.logger.Error("Failed to post anti-link log",
			zap.Error(err),
			zap.Uint64("authorID", msg.AuthorID))
	}

	f.applyConsequence(ctx, msg.AuthorID)

	return true
}

func (f *LinkFilter) applyConsequence(ctx context.Context, userID uint64) {
	switch f.cfg.AntiLink.Action {
	case config.FilterActionWarn:
		if err := f.orchestrator.IssueAutoWarning(ctx, userID, linkWarnReason); err != nil {
			f.logger.Error("Failed to warn link poster",
				zap.Error(err),
				zap.Uint64("userID", userID))
		}
	case config.FilterActionMute:
		err := f.orchestrator.AutoMute(ctx, userID, linkWarnReason, f.cfg.Mute.DefaultDurationHours)
		if err != nil {
			f.logger.Error("Failed to mute link poster",
				zap.Error(err),
				zap.Uint64("userID", userID))
		}
	case config.FilterActionNone:
	}
}

func linkLogEmbed(authorID, channelID uint64, content string) discord.Embed {
	if len(content) > 1024 {
		content = content[:1021] + "..."
	}

	return discord.NewEmbedBuilder().
		SetTitle("Blocked Link Removed").
		SetColor(0xE67E22).
		AddField("Author", fmt.Sprintf("<@%d>", authorID), true).
		AddField("Channel", fmt.Sprintf("<#%d>", channelID), true).
		AddField("Message", content, false).
		SetTimestamp(time.Now()).
		Build()
}
