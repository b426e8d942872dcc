package moderation

import (
	"context"

	"github.com/disgoorg/disgo/discord"
)

// Member is the platform view of a guild member used by the pipelines.
type Member struct {
	UserID          uint64
	Username        string
	DisplayName     string
	RoleIDs         []uint64
	TopRolePosition int
}

// HasRole reports whether the member holds the given role.
func (m *Member) HasRole(roleID uint64) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}

	return false
}

// Platform is the narrow chat-platform surface the moderation pipelines
// depend on. The production implementation talks to Discord; tests supply
// an in-memory fake.
type Platform interface {
	// FetchMember resolves a guild member by user ID.
	FetchMember(ctx context.Context, userID uint64) (*Member, error)
	// GrantRole adds a role to a member.
	GrantRole(ctx context.Context, userID, roleID uint64, reason string) error
	// RevokeRole removes a role from a member.
	RevokeRole(ctx context.Context, userID, roleID uint64, reason string) error
	// BanUser bans a user from the guild.
	BanUser(ctx context.Context, userID uint64, reason string) error
	// SetNickname overwrites a member's guild nickname.
	SetNickname(ctx context.Context, userID uint64, nick string) error
	// SendDirectMessage delivers an embed to the user's DM channel.
	SendDirectMessage(ctx context.Context, userID uint64, embed discord.Embed) error
	// PostEmbed posts an embed to a guild channel.
	PostEmbed(ctx context.Context, channelID uint64, embed discord.Embed) error
	// DeleteMessage removes a message from a channel.
	DeleteMessage(ctx context.Context, channelID, messageID uint64) error
	// RolePosition returns the hierarchy position of a role, or
	// ErrMuteRoleNotFound when the role does not exist in the guild.
	RolePosition(ctx context.Context, roleID uint64) (int, error)
	// BotTopRolePosition returns the hierarchy position of the bot's
	// highest role.
	BotTopRolePosition(ctx context.Context) (int, error)
	// GuildOwnerID returns the user ID of the guild owner.
	GuildOwnerID(ctx context.Context) (uint64, error)
	// BotUserID returns the bot's own user ID, used as the issuer of
	// automatic actions.
	BotUserID() uint64
	// GuildName returns the guild's display name for notifications.
	GuildName() string
}
