package filter_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/filter"
	"github.com/robalyx/warden/internal/moderation"
	"github.com/robalyx/warden/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubPlatform records the side effects the filters apply.
type stubPlatform struct {
	mu       sync.Mutex
	members  map[uint64]*moderation.Member
	nicks    map[uint64]string
	posts    map[uint64]int
	deleted  int
	fetchErr error
}

func newStubPlatform() *stubPlatform {
	return &stubPlatform{
		members: make(map[uint64]*moderation.Member),
		nicks:   make(map[uint64]string),
		posts:   make(map[uint64]int),
	}
}

func (p *stubPlatform) FetchMember(_ context.Context, userID uint64) (*moderation.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fetchErr != nil {
		return nil, p.fetchErr
	}

	member, ok := p.members[userID]
	if !ok {
		return nil, context.DeadlineExceeded
	}

	return member, nil
}

func (p *stubPlatform) GrantRole(context.Context, uint64, uint64, string) error  { return nil }
func (p *stubPlatform) RevokeRole(context.Context, uint64, uint64, string) error { return nil }
func (p *stubPlatform) BanUser(context.Context, uint64, string) error            { return nil }

func (p *stubPlatform) SetNickname(_ context.Context, userID uint64, nick string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nicks[userID] = nick

	return nil
}

func (p *stubPlatform) SendDirectMessage(context.Context, uint64, discord.Embed) error { return nil }

func (p *stubPlatform) PostEmbed(_ context.Context, channelID uint64, _ discord.Embed) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.posts[channelID]++

	return nil
}

func (p *stubPlatform) DeleteMessage(context.Context, uint64, uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.deleted++

	return nil
}

func (p *stubPlatform) RolePosition(context.Context, uint64) (int, error) { return 1, nil }
func (p *stubPlatform) BotTopRolePosition(context.Context) (int, error)   { return 10, nil }
func (p *stubPlatform) GuildOwnerID(context.Context) (uint64, error)      { return 1, nil }
func (p *stubPlatform) BotUserID() uint64                                 { return 999 }
func (p *stubPlatform) GuildName() string                                 { return "Test Guild" }

type stubActivity struct {
	mu     sync.Mutex
	counts map[types.ActionType]int
}

func (s *stubActivity) Log(_ context.Context, _ uint64, actionType types.ActionType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.counts == nil {
		s.counts = make(map[types.ActionType]int)
	}

	s.counts[actionType]++
}

func hoistConfig() *config.Config {
	return &config.Config{
		AntiHoist: config.AntiHoist{
			Enabled:       true,
			Prefix:        "z!",
			ExemptRoleIDs: []uint64{500},
			LogChannelID:  2000,
			Action:        config.FilterActionNone,
		},
		Mute: config.Mute{DefaultDurationHours: 12},
	}
}

func linkConfig() *config.Config {
	return &config.Config{
		AntiLink: config.AntiLink{
			Enabled:          true,
			BlockedDomains:   []string{"scam.example", "phish.test"},
			ExemptRoleIDs:    []uint64{500},
			ExemptChannelIDs: []uint64{3000},
			LogChannelID:     2001,
			Action:           config.FilterActionNone,
		},
		Mute: config.Mute{DefaultDurationHours: 12},
	}
}

func TestIsHoisted(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		input   string
		hoisted bool
	}{
		{"exclamation prefix", "!zoomer", true},
		{"dot prefix", ".dot", true},
		{"bracket prefix", "[tag] user", true},
		{"plain name", "alice", false},
		{"digit prefix", "0xdeadbeef", false},
		{"empty", "", false},
		{"punctuation inside", "al!ce", false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.hoisted, filter.IsHoisted(tc.input))
		})
	}
}

func TestDehoistedName(t *testing.T) {
	t.Parallel()

	f := filter.NewHoistFilter(newStubPlatform(), nil, hoistConfig(), zap.NewNop())

	// The hoisting characters stay; only the prefix is added.
	assert.Equal(t, "z!!Admin", f.DehoistedName("!Admin"))
	assert.Equal(t, "z!!!!zoomer", f.DehoistedName("!!!zoomer"))
	assert.Equal(t, "z![.tag user", f.DehoistedName("[.tag user"))

	// Nickname limit is enforced after prefixing.
	long := f.DehoistedName("!" + strings.Repeat("a", 40))
	assert.Equal(t, 32, len([]rune(long)))

	// Truncation never splits a multi-byte rune.
	wide := f.DehoistedName("!" + strings.Repeat("é", 40))
	assert.True(t, utf8.ValidString(wide))
	assert.Equal(t, 32, len([]rune(wide)))
}

func TestHoistHandleRenamesAndLogs(t *testing.T) {
	t.Parallel()

	platform := newStubPlatform()
	cfg := hoistConfig()
	f := filter.NewHoistFilter(platform, nil, cfg, zap.NewNop())

	member := &moderation.Member{UserID: 3, DisplayName: "!loud"}

	flagged := f.Handle(context.Background(), member)

	assert.True(t, flagged)
	assert.Equal(t, "z!!loud", platform.nicks[3])
	assert.Equal(t, 1, platform.posts[cfg.AntiHoist.LogChannelID])
}

func TestHoistHandleSkipsExemptRole(t *testing.T) {
	t.Parallel()

	platform := newStubPlatform()
	f := filter.NewHoistFilter(platform, nil, hoistConfig(), zap.NewNop())

	member := &moderation.Member{UserID: 3, DisplayName: "!loud", RoleIDs: []uint64{500}}

	assert.False(t, f.Handle(context.Background(), member))
	assert.Empty(t, platform.nicks)
}

func TestHoistHandleDisabled(t *testing.T) {
	t.Parallel()

	platform := newStubPlatform()
	cfg := hoistConfig()
	cfg.AntiHoist.Enabled = false
	f := filter.NewHoistFilter(platform, nil, cfg, zap.NewNop())

	assert.False(t, f.Handle(context.Background(), &moderation.Member{UserID: 3, DisplayName: "!loud"}))
}

func TestContainsBlockedLink(t *testing.T) {
	t.Parallel()

	domains := []string{"scam.example"}

	cases := []struct {
		name    string
		content string
		match   bool
	}{
		{"plain url", "visit https://scam.example/free now", true},
		{"case insensitive", "HTTPS://SCAM.EXAMPLE", true},
		{"subdomain", "http://promo.scam.example/deal", true},
		{"domain in prose only", "scam.example is a bad site", false},
		{"other url", "https://example.com", false},
		{"no urls", "nothing to see here", false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.match, filter.ContainsBlockedLink(tc.content, domains))
		})
	}
}

func TestLinkHandleDeletesAndLogs(t *testing.T) {
	t.Parallel()

	platform := newStubPlatform()
	platform.members[3] = &moderation.Member{UserID: 3}
	activity := &stubActivity{}
	cfg := linkConfig()
	f := filter.NewLinkFilter(platform, nil, activity, cfg, zap.NewNop())

	msg := filter.Message{
		ID:        10,
		ChannelID: 20,
		AuthorID:  3,
		Content:   "free stuff at https://scam.example/x",
	}

	flagged := f.Handle(context.Background(), msg)

	assert.True(t, flagged)
	assert.Equal(t, 1, platform.deleted)
	assert.Equal(t, 1, platform.posts[cfg.AntiLink.LogChannelID])
	assert.Equal(t, 1, activity.counts[types.ActionTypeMessageDeleted])
}

func TestLinkHandleSkipsExemptions(t *testing.T) {
	t.Parallel()

	platform := newStubPlatform()
	platform.members[3] = &moderation.Member{UserID: 3, RoleIDs: []uint64{500}}
	f := filter.NewLinkFilter(platform, nil, &stubActivity{}, linkConfig(), zap.NewNop())

	ctx := context.Background()
	content := "https://scam.example"

	// Exempt author role.
	assert.False(t, f.Handle(ctx, filter.Message{ID: 1, ChannelID: 20, AuthorID: 3, Content: content}))

	// Exempt channel.
	assert.False(t, f.Handle(ctx, filter.Message{ID: 2, ChannelID: 3000, AuthorID: 4, Content: content}))

	// Bot author.
	assert.False(t, f.Handle(ctx, filter.Message{ID: 3, ChannelID: 20, AuthorID: 4, AuthorBot: true, Content: content}))

	assert.Equal(t, 0, platform.deleted)
}

func TestLinkHandleCleanMessage(t *testing.T) {
	t.Parallel()

	platform := newStubPlatform()
	platform.members[3] = &moderation.Member{UserID: 3}
	f := filter.NewLinkFilter(platform, nil, &stubActivity{}, linkConfig(), zap.NewNop())

	msg := filter.Message{ID: 1, ChannelID: 20, AuthorID: 3, Content: "hello https://example.com"}

	require.False(t, f.Handle(context.Background(), msg))
	assert.Equal(t, 0, platform.deleted)
}
