package moderation_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/moderation"
	"github.com/robalyx/warden/internal/setup/config"
	"go.uber.org/zap"
)

const (
	staffRoleID = uint64(100)
	mutedRoleID = uint64(200)
	ownerID     = uint64(1)
	staffID     = uint64(2)
	targetID    = uint64(3)
	botID       = uint64(999)
)

type fakePlatform struct {
	mu        sync.Mutex
	members   map[uint64]*moderation.Member
	roles     map[uint64]int
	botPos    int
	guildName string

	dms     map[uint64]int
	posts   map[uint64]int
	banned  []uint64
	nicks   map[uint64]string
	deleted int

	grantErr error
	dmErr    error
	postErr  error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		members:   make(map[uint64]*moderation.Member),
		roles:     map[uint64]int{mutedRoleID: 1, staffRoleID: 5},
		botPos:    10,
		guildName: "Test Guild",
		dms:       make(map[uint64]int),
		posts:     make(map[uint64]int),
		nicks:     make(map[uint64]string),
	}
}

func (p *fakePlatform) addMember(userID uint64, topPos int, roleIDs ...uint64) *moderation.Member {
	member := &moderation.Member{
		UserID:          userID,
		Username:        "user",
		DisplayName:     "user",
		RoleIDs:         roleIDs,
		TopRolePosition: topPos,
	}
	p.members[userID] = member

	return member
}

func (p *fakePlatform) FetchMember(_ context.Context, userID uint64) (*moderation.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	member, ok := p.members[userID]
	if !ok {
		return nil, context.DeadlineExceeded
	}

	return member, nil
}

func (p *fakePlatform) GrantRole(_ context.Context, userID, roleID uint64, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.grantErr != nil {
		return p.grantErr
	}

	if member, ok := p.members[userID]; ok && !member.HasRole(roleID) {
		member.RoleIDs = append(member.RoleIDs, roleID)
	}

	return nil
}

func (p *fakePlatform) RevokeRole(_ context.Context, userID, roleID uint64, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if member, ok := p.members[userID]; ok {
		member.RoleIDs = slices.DeleteFunc(member.RoleIDs, func(id uint64) bool {
			return id == roleID
		})
	}

	return nil
}

func (p *fakePlatform) BanUser(_ context.Context, userID uint64, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.banned = append(p.banned, userID)

	return nil
}

func (p *fakePlatform) SetNickname(_ context.Context, userID uint64, nick string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nicks[userID] = nick

	return nil
}

func (p *fakePlatform) SendDirectMessage(_ context.Context, userID uint64, _ discord.Embed) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dmErr != nil {
		return p.dmErr
	}

	p.dms[userID]++

	return nil
}

func (p *fakePlatform) PostEmbed(_ context.Context, channelID uint64, _ discord.Embed) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.postErr != nil {
		return p.postErr
	}

	p.posts[channelID]++

	return nil
}

func (p *fakePlatform) DeleteMessage(_ context.Context, _, _ uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.deleted++

	return nil
}

func (p *fakePlatform) RolePosition(_ context.Context, roleID uint64) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.roles[roleID]
	if !ok {
		return 0, moderation.ErrMuteRoleNotFound
	}

	return pos, nil
}

func (p *fakePlatform) BotTopRolePosition(context.Context) (int, error) {
	return p.botPos, nil
}

func (p *fakePlatform) GuildOwnerID(context.Context) (uint64, error) {
	return ownerID, nil
}

func (p *fakePlatform) BotUserID() uint64 { return botID }

func (p *fakePlatform) GuildName() string { return p.guildName }

func (p *fakePlatform) postCount(channelID uint64) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.posts[channelID]
}

func (p *fakePlatform) hasRole(userID, roleID uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	member, ok := p.members[userID]

	return ok && member.HasRole(roleID)
}

type fakeWarningStore struct {
	mu    sync.Mutex
	seq   int64
	items []*types.Warning
}

func (s *fakeWarningStore) Add(
	_ context.Context, userID uint64, reason string, warnedBy uint64, expirationDays int,
) (*types.Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	now := time.Now()
	warning := &types.Warning{
		ID:        s.seq,
		UserID:    userID,
		Reason:    reason,
		WarnedBy:  warnedBy,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(expirationDays) * 24 * time.Hour),
	}
	s.items = append(s.items, warning)

	return warning, nil
}

func (s *fakeWarningStore) GetActive(_ context.Context, userID uint64) ([]*types.Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	var active []*types.Warning

	for _, w := range s.items {
		if w.UserID == userID && w.IsActive(now) {
			active = append(active, w)
		}
	}

	return active, nil
}

func (s *fakeWarningStore) CountActive(ctx context.Context, userID uint64) (int, error) {
	active, err := s.GetActive(ctx, userID)

	return len(active), err
}

func (s *fakeWarningStore) Remove(_ context.Context, warningID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.items)
	s.items = slices.DeleteFunc(s.items, func(w *types.Warning) bool {
		return w.ID == warningID
	})

	return len(s.items) < before, nil
}

type fakeMuteStore struct {
	mu    sync.Mutex
	seq   int64
	items []*types.Mute
}

func (s *fakeMuteStore) Add(
	_ context.Context, userID uint64, reason string, mutedBy uint64, durationHours int,
) (*types.Mute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	now := time.Now()
	mute := &types.Mute{
		ID:            s.seq,
		UserID:        userID,
		Reason:        reason,
		MutedBy:       mutedBy,
		DurationHours: durationHours,
		CreatedAt:     now,
		ExpiresAt:     now.Add(time.Duration(durationHours) * time.Hour),
	}
	s.items = append(s.items, mute)

	return mute, nil
}

func (s *fakeMuteStore) GetActive(_ context.Context, userID uint64) ([]*types.Mute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	var active []*types.Mute

	for _, m := range s.items {
		if m.UserID == userID && m.IsActive(now) {
			active = append(active, m)
		}
	}

	return active, nil
}

func (s *fakeMuteStore) IsMuted(ctx context.Context, userID uint64) (bool, error) {
	active, err := s.GetActive(ctx, userID)

	return len(active) > 0, err
}

func (s *fakeMuteStore) GetUnresolved(context.Context) ([]*types.Mute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.items), nil
}

func (s *fakeMuteStore) EndActive(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	for _, m := range s.items {
		if m.UserID == userID && m.IsActive(now) {
			m.ExpiresAt = now
		}
	}

	return nil
}

func (s *fakeMuteStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.items)
}

type fakeNoteStore struct {
	mu    sync.Mutex
	seq   int64
	items []*types.Note
}

func (s *fakeNoteStore) Add(_ context.Context, userID, authorID uint64, content string) (*types.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	note := &types.Note{
		ID:        s.seq,
		UserID:    userID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now(),
		Active:    true,
	}
	s.items = append(s.items, note)

	return note, nil
}

func (s *fakeNoteStore) GetActive(_ context.Context, userID uint64) ([]*types.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []*types.Note

	for _, n := range s.items {
		if n.UserID == userID && n.Active {
			active = append(active, n)
		}
	}

	return active, nil
}

func (s *fakeNoteStore) Deactivate(_ context.Context, noteID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.items {
		if n.ID == noteID && n.Active {
			n.Active = false
			return true, nil
		}
	}

	return false, nil
}

type fakeBanStore struct {
	mu    sync.Mutex
	items []*types.Ban
}

func (s *fakeBanStore) Add(_ context.Context, userID uint64, reason string, bannedBy uint64) (*types.Ban, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ban := &types.Ban{
		ID:        int64(len(s.items) + 1),
		UserID:    userID,
		Reason:    reason,
		BannedBy:  bannedBy,
		CreatedAt: time.Now(),
	}
	s.items = append(s.items, ban)

	return ban, nil
}

func (s *fakeBanStore) IsBanned(_ context.Context, userID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.items {
		if b.UserID == userID {
			return true, nil
		}
	}

	return false, nil
}

type fakeActivityStore struct {
	mu     sync.Mutex
	counts map[types.ActionType]int
}

func (s *fakeActivityStore) Log(_ context.Context, _ uint64, actionType types.ActionType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.counts == nil {
		s.counts = make(map[types.ActionType]int)
	}

	s.counts[actionType]++
}

type env struct {
	platform  *fakePlatform
	warnings  *fakeWarningStore
	mutes     *fakeMuteStore
	notes     *fakeNoteStore
	bans      *fakeBanStore
	activity  *fakeActivityStore
	escalator *moderation.Escalator
	scheduler *moderation.Scheduler
	orch      *moderation.Orchestrator
	cfg       *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		Roles: config.Roles{StaffRoleID: staffRoleID, MutedRoleID: mutedRoleID},
		Warnings: config.Warnings{
			ExpirationDays:        30,
			MaxWarnings:           3,
			AutoMuteDurationHours: 24,
			LogChannelID:          1000,
		},
		Mute:  config.Mute{DefaultDurationHours: 12, LogChannelID: 1001},
		Ban:   config.Ban{LogChannelID: 1002},
		Notes: config.Notes{LogChannelID: 1003},
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()

	cfg := testConfig()
	platform := newFakePlatform()
	warnings := &fakeWarningStore{}
	mutes := &fakeMuteStore{}
	notes := &fakeNoteStore{}
	bans := &fakeBanStore{}
	activity := &fakeActivityStore{}
	logger := zap.NewNop()

	escalator := moderation.NewEscalator(warnings, mutes, activity, &cfg.Warnings, logger)
	scheduler := moderation.NewScheduler(platform, mutes, cfg, logger)
	orch := moderation.NewOrchestrator(
		platform, escalator, scheduler, warnings, mutes, notes, bans, activity, cfg, logger)

	platform.addMember(staffID, 5, staffRoleID)
	platform.addMember(targetID, 0)

	return &env{
		platform:  platform,
		warnings:  warnings,
		mutes:     mutes,
		notes:     notes,
		bans:      bans,
		activity:  activity,
		escalator: escalator,
		scheduler: scheduler,
		orch:      orch,
		cfg:       cfg,
	}
}

func staffActor() moderation.Actor {
	return moderation.Actor{ID: staffID, RoleIDs: []uint64{staffRoleID}}
}
