package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/moderation"
	"github.com/robalyx/warden/internal/setup/config"
)

// discordPlatform adapts the disgo client to the narrow platform surface the
// moderation pipelines depend on.
type discordPlatform struct {
	client  bot.Client
	guildID snowflake.ID

	mu        sync.Mutex
	guildName string
	ownerID   uint64
}

func newDiscordPlatform(client bot.Client, cfg *config.Bot) *discordPlatform {
	return &discordPlatform{
		client:  client,
		guildID: snowflake.ID(cfg.GuildID),
	}
}

// prime fetches and caches guild metadata. Called once at startup.
func (p *discordPlatform) prime(ctx context.Context) error {
	guild, err := p.client.Rest().GetGuild(p.guildID, false, rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to fetch guild: %w", err)
	}

	p.mu.Lock()
	p.guildName = guild.Name
	p.ownerID = uint64(guild.OwnerID)
	p.mu.Unlock()

	return nil
}

func (p *discordPlatform) FetchMember(ctx context.Context, userID uint64) (*moderation.Member, error) {
	member, err := p.client.Rest().GetMember(p.guildID, snowflake.ID(userID), rest.WithCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member %d: %w", userID, err)
	}

	positions, err := p.rolePositions(ctx)
	if err != nil {
		return nil, err
	}

	view := &moderation.Member{
		UserID:      userID,
		Username:    member.User.Username,
		DisplayName: member.EffectiveName(),
		RoleIDs:     make([]uint64, 0, len(member.RoleIDs)),
	}

	for _, roleID := range member.RoleIDs {
		view.RoleIDs = append(view.RoleIDs, uint64(roleID))

		if pos, ok := positions[uint64(roleID)]; ok && pos > view.TopRolePosition {
			view.TopRolePosition = pos
		}
	}

	return view, nil
}

func (p *discordPlatform) GrantRole(ctx context.Context, userID, roleID uint64, reason string) error {
	err := p.client.Rest().AddMemberRole(p.guildID, snowflake.ID(userID), snowflake.ID(roleID),
		rest.WithCtx(ctx), rest.WithReason(reason))
	if err != nil {
		return fmt.Errorf("failed to grant role %d to %d: %w", roleID, userID, err)
	}

	return nil
}

func (p *discordPlatform) RevokeRole(ctx context.Context, userID, roleID uint64, reason string) error {
	err := p.client.Rest().RemoveMemberRole(p.guildID, snowflake.ID(userID), snowflake.ID(roleID),
		rest.WithCtx(ctx), rest.WithReason(reason))
	if err != nil {
		return fmt.Errorf("failed to revoke role %d from %d: %w", roleID, userID, err)
	}

	return nil
}

func (p *discordPlatform) BanUser(ctx context.Context, userID uint64, reason string) error {
	err := p.client.Rest().AddBan(p.guildID, snowflake.ID(userID), 0,
		rest.WithCtx(ctx), rest.WithReason(reason))
	if err != nil {
		return fmt.Errorf("failed to ban %d: %w", userID, err)
	}

	return nil
}

func (p *discordPlatform) SetNickname(ctx context.Context, userID uint64, nick string) error {
	_, err := p.client.Rest().UpdateMember(p.guildID, snowflake.ID(userID),
		discord.MemberUpdate{Nick: &nick},
		rest.WithCtx(ctx), rest.WithReason("Hoisted display name"))
	if err != nil {
		return fmt.Errorf("failed to set nickname for %d: %w", userID, err)
	}

	return nil
}

func (p *discordPlatform) SendDirectMessage(ctx context.Context, userID uint64, embed discord.Embed) error {
	channel, err := p.client.Rest().CreateDMChannel(snowflake.ID(userID), rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to create DM channel for %d: %w", userID, err)
	}

	_, err = p.client.Rest().CreateMessage(channel.ID(), discord.NewMessageCreateBuilder().
		SetEmbeds(embed).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to DM %d: %w", userID, err)
	}

	return nil
}

func (p *discordPlatform) PostEmbed(ctx context.Context, channelID uint64, embed discord.Embed) error {
	_, err := p.client.Rest().CreateMessage(snowflake.ID(channelID), discord.NewMessageCreateBuilder().
		SetEmbeds(embed).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to post to channel %d: %w", channelID, err)
	}

	return nil
}

func (p *discordPlatform) DeleteMessage(ctx context.Context, channelID, messageID uint64) error {
	err := p.client.Rest().DeleteMessage(snowflake.ID(channelID), snowflake.ID(messageID),
		rest.WithCtx(ctx), rest.WithReason("Blocked link"))
	if err != nil {
		return fmt.Errorf("failed to delete message %d: %w", messageID, err)
	}

	return nil
}

func (p *discordPlatform) RolePosition(ctx context.Context, roleID uint64) (int, error) {
	positions, err := p.rolePositions(ctx)
	if err != nil {
		return 0, err
	}

	pos, ok := positions[roleID]
	if !ok {
		return 0, moderation.ErrMuteRoleNotFound
	}

	return pos, nil
}

func (p *discordPlatform) BotTopRolePosition(ctx context.Context) (int, error) {
	member, err := p.FetchMember(ctx, p.BotUserID())
	if err != nil {
		return 0, err
	}

	return member.TopRolePosition, nil
}

func (p *discordPlatform) GuildOwnerID(ctx context.Context) (uint64, error) {
	p.mu.Lock()
	ownerID := p.ownerID
	p.mu.Unlock()

	if ownerID != 0 {
		return ownerID, nil
	}

	if err := p.prime(ctx); err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ownerID, nil
}

func (p *discordPlatform) BotUserID() uint64 {
	return uint64(p.client.ApplicationID())
}

func (p *discordPlatform) GuildName() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.guildName == "" {
		return "this server"
	}

	return p.guildName
}

// rolePositions fetches the guild's role hierarchy. Role sets are small and
// change rarely; a fresh fetch per precondition check keeps hierarchy
// decisions current.
func (p *discordPlatform) rolePositions(ctx context.Context) (map[uint64]int, error) {
	roles, err := p.client.Rest().GetRoles(p.guildID, rest.WithCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guild roles: %w", err)
	}

	positions := make(map[uint64]int, len(roles))
	for _, role := range roles {
		positions[uint64(role.ID)] = role.Position
	}

	return positions, nil
}

var _ moderation.Platform = (*discordPlatform)(nil)

// interactionTimeout bounds the work done for a single gateway event.
const interactionTimeout = 30 * time.Second
