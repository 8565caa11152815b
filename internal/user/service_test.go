// AngelaMos | 2026
// service_test.go

package user

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autowds/server/internal/config"
	"github.com/autowds/server/internal/core"
	"github.com/autowds/server/internal/credit"
	"github.com/autowds/server/internal/mail"
)

type ledgerEntry struct {
	userID  int64
	amount  int64
	op      string
	related *int64
}

// world is the shared in-memory state behind the repository and ledger
// fakes so the transaction fake can snapshot and restore all of it at once.
type world struct {
	users   map[int64]AccountUser
	nextID  int64
	credits map[int64]int64
	entries []ledgerEntry
}

func newWorld() *world {
	return &world{
		users:   map[int64]AccountUser{},
		credits: map[int64]int64{},
	}
}

func (w *world) clone() *world {
	c := newWorld()
	c.nextID = w.nextID
	for k, v := range w.users {
		c.users[k] = v
	}
	for k, v := range w.credits {
		c.credits[k] = v
	}
	c.entries = append([]ledgerEntry{}, w.entries...)
	return c
}

func (w *world) restore(saved *world) {
	w.users = saved.users
	w.nextID = saved.nextID
	w.credits = saved.credits
	w.entries = saved.entries
}

type fakeRepo struct {
	w *world
}

func (r *fakeRepo) CreateIn(_ context.Context, _ core.DBTX, u *AccountUser) error {
	for _, existing := range r.w.users {
		if existing.Email == u.Email {
			return core.ErrDuplicateKey
		}
	}
	r.w.nextID++
	u.ID = r.w.nextID
	r.w.users[u.ID] = *u
	r.w.credits[u.ID] = 0
	return nil
}

func (r *fakeRepo) UpdateInviteCodeIn(
	_ context.Context, _ core.DBTX, id int64, code string,
) error {
	u, ok := r.w.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.InviteCode = code
	r.w.users[id] = u
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id int64) (*AccountUser, error) {
	u, ok := r.w.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &u, nil
}

func (r *fakeRepo) GetByEmail(_ context.Context, email string) (*AccountUser, error) {
	for _, u := range r.w.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *fakeRepo) GetByInviteCode(_ context.Context, code string) (*AccountUser, error) {
	for _, u := range r.w.users {
		if u.InviteCode == code {
			return &u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *fakeRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, u := range r.w.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) TouchLastLogin(_ context.Context, _ int64) error { return nil }

func (r *fakeRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	u, ok := r.w.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswdHash = hash
	r.w.users[id] = u
	return nil
}

func (r *fakeRepo) UpdateName(_ context.Context, id int64, name string) error {
	u, ok := r.w.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.Name = name
	r.w.users[id] = u
	return nil
}

func (r *fakeRepo) UpgradeEdition(
	_ context.Context, id int64, edition string,
) (bool, error) {
	u, ok := r.w.users[id]
	if !ok {
		return false, nil
	}
	if u.Edition >= edition {
		return false, nil
	}
	u.Edition = edition
	r.w.users[id] = u
	return true, nil
}

func (r *fakeRepo) AdminUpdate(
	_ context.Context, id int64, locked *bool, edition *string,
) error {
	u, ok := r.w.users[id]
	if !ok {
		return core.ErrNotFound
	}
	if locked != nil {
		u.Locked = *locked
	}
	if edition != nil {
		u.Edition = *edition
	}
	r.w.users[id] = u
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.w.users[id]; !ok {
		return core.ErrNotFound
	}
	delete(r.w.users, id)
	return nil
}

func (r *fakeRepo) List(
	_ context.Context, _ ListUsersParams,
) ([]AccountUser, int, error) {
	out := make([]AccountUser, 0, len(r.w.users))
	for _, u := range r.w.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

type fakeLedger struct {
	w            *world
	failOnInvite bool
}

func (l *fakeLedger) AddCreditsIn(
	_ context.Context,
	_ core.DBTX,
	userID, amount int64,
	operation string,
	_ *string,
	relatedUserID *int64,
) (*credit.Log, error) {
	if l.failOnInvite && operation == credit.OpInvite {
		return nil, errors.New("ledger write failed")
	}
	l.w.credits[userID] += amount
	l.w.entries = append(l.w.entries, ledgerEntry{
		userID:  userID,
		amount:  amount,
		op:      operation,
		related: relatedUserID,
	})
	return &credit.Log{
		UserID:  userID,
		Amount:  amount,
		Balance: l.w.credits[userID],
	}, nil
}

type fakeTx struct {
	w *world
}

func (t *fakeTx) InTx(_ context.Context, fn func(tx core.DBTX) error) error {
	saved := t.w.clone()
	if err := fn(nil); err != nil {
		t.w.restore(saved)
		return err
	}
	return nil
}

type fakeCodes struct {
	issued map[string]string
}

func (c *fakeCodes) Issue(_ context.Context, email string) (string, error) {
	c.issued[email] = "ABC234"
	return "ABC234", nil
}

func (c *fakeCodes) Consume(_ context.Context, email, code string) error {
	stored, ok := c.issued[email]
	delete(c.issued, email)
	if !ok || stored != code {
		return mail.ErrCodeMismatch
	}
	return nil
}

type fakeMailer struct {
	sent []string
}

func (m *fakeMailer) SendValidationCode(_ context.Context, to, _ string) error {
	m.sent = append(m.sent, to)
	return nil
}

type fixture struct {
	svc    *Service
	w      *world
	codes  *fakeCodes
	mailer *fakeMailer
	ledger *fakeLedger
}

func newFixture() *fixture {
	w := newWorld()
	codes := &fakeCodes{issued: map[string]string{}}
	mailer := &fakeMailer{}
	ledger := &fakeLedger{w: w}

	svc := NewService(
		&fakeRepo{w: w},
		ledger,
		codes,
		mailer,
		&fakeTx{w: w},
		config.CreditConfig{RegisterBonus: 100, InviteBonus: 100, ExportCost: 1},
	)

	return &fixture{svc: svc, w: w, codes: codes, mailer: mailer, ledger: ledger}
}

func (f *fixture) registerRequest(t *testing.T, email string) RegisterRequest {
	t.Helper()
	require.NoError(t, f.svc.SendValidationCode(context.Background(), email))
	return RegisterRequest{
		Email:    email,
		Name:     "tester",
		Password: "hunter22",
		Code:     "ABC234",
	}
}

func TestRegister_AssignsInviteCodeAndBonus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	u, err := f.svc.Register(ctx, f.registerRequest(t, "a@example.com"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(u.InviteCode, "INV"))
	assert.Equal(t, int64(100), u.Credits)
	assert.Equal(t, int64(100), f.w.credits[u.ID])

	require.Len(t, f.w.entries, 1)
	assert.Equal(t, credit.OpRegister, f.w.entries[0].op)
}

func TestRegister_InviterGetsBonusWithRelatedUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inviter, err := f.svc.Register(ctx, f.registerRequest(t, "a@example.com"))
	require.NoError(t, err)

	req := f.registerRequest(t, "b@example.com")
	req.InviteCode = &inviter.InviteCode

	invitee, err := f.svc.Register(ctx, req)
	require.NoError(t, err)

	require.NotNil(t, invitee.InvitedBy)
	assert.Equal(t, inviter.ID, *invitee.InvitedBy)

	assert.Equal(t, int64(200), f.w.credits[inviter.ID],
		"register bonus plus invite bonus")

	var inviteEntry *ledgerEntry
	for i := range f.w.entries {
		if f.w.entries[i].op == credit.OpInvite {
			inviteEntry = &f.w.entries[i]
		}
	}
	require.NotNil(t, inviteEntry)
	assert.Equal(t, inviter.ID, inviteEntry.userID)
	require.NotNil(t, inviteEntry.related)
	assert.Equal(t, invitee.ID, *inviteEntry.related)
}

func TestRegister_InviteFlowIsAllOrNothing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inviter, err := f.svc.Register(ctx, f.registerRequest(t, "a@example.com"))
	require.NoError(t, err)

	f.ledger.failOnInvite = true

	req := f.registerRequest(t, "b@example.com")
	req.InviteCode = &inviter.InviteCode

	_, err = f.svc.Register(ctx, req)
	require.Error(t, err)

	_, getErr := f.svc.GetByEmail(ctx, "b@example.com")
	assert.ErrorIs(t, getErr, core.ErrNotFound, "failed registration must not persist the user")
	assert.Equal(t, int64(100), f.w.credits[inviter.ID],
		"inviter balance untouched on rollback")
}

func TestRegister_WrongCodeRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req := f.registerRequest(t, "a@example.com")
	req.Code = "WRONG1"

	_, err := f.svc.Register(ctx, req)
	require.ErrorIs(t, err, ErrInvalidCode)
	assert.Empty(t, f.w.users)
}

func TestRegister_DuplicateEmailRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Register(ctx, f.registerRequest(t, "a@example.com"))
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, f.registerRequest(t, "a@example.com"))
	require.ErrorIs(t, err, ErrEmailExists)
}

func TestRegister_UnknownInviteCodeRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	bogus := "INVzzzzzz"
	req := f.registerRequest(t, "a@example.com")
	req.InviteCode = &bogus

	_, err := f.svc.Register(ctx, req)
	require.ErrorIs(t, err, ErrInviteCodeInvalid)
	assert.Empty(t, f.w.users)
}

func TestUpgradeEdition_MonotonicAndIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	u, err := f.svc.Register(ctx, f.registerRequest(t, "a@example.com"))
	require.NoError(t, err)

	changed, err := f.svc.UpgradeEdition(ctx, u.ID, "L2")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = f.svc.UpgradeEdition(ctx, u.ID, "L2")
	require.NoError(t, err)
	assert.False(t, changed, "replay is a no-op")

	changed, err = f.svc.UpgradeEdition(ctx, u.ID, "L1")
	require.NoError(t, err)
	assert.False(t, changed, "downgrade is a no-op")

	got, err := f.svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "L2", got.Edition)
}
