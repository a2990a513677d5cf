package oath_test

import (
	"context"
	"sync"
	"testing"

	"github.com/dmitrymomot/oathkit/pkg/audit"
	"github.com/dmitrymomot/oathkit/pkg/oath"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu       sync.Mutex
	enabled  []string
	disabled []string
	selfInit []bool
}

func (n *recordingNotifier) NotifyEnabled(ctx context.Context, user string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = append(n.enabled, user)
}

func (n *recordingNotifier) NotifyDisabled(ctx context.Context, user string, selfInitiated bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disabled = append(n.disabled, user)
	n.selfInit = append(n.selfInit, selfInitiated)
}

func testResolver(ids map[string]int64) oath.CentralIDResolver {
	return func(ctx context.Context, identity string) (int64, error) {
		return ids[identity], nil
	}
}

type repoFixture struct {
	store    *oath.MemoryStore
	registry *oath.Registry
	repo     *oath.Repository
	notifier *recordingNotifier
	audit    *audit.MemoryStorage
}

func newRepoFixture(t *testing.T, opts ...oath.RepositoryOption) *repoFixture {
	t.Helper()

	store := oath.NewMemoryStore()
	registry, err := oath.NewRegistry(store,
		oath.NewTOTPModule(oath.WithIssuer("example.org")),
		stubModule{name: "u2f"},
	)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	auditStore := audit.NewMemoryStorage()

	opts = append([]oath.RepositoryOption{
		oath.WithNotifier(notifier),
		oath.WithAuditLogger(audit.NewLogger(auditStore)),
	}, opts...)

	repo := oath.NewRepository(store, registry,
		testResolver(map[string]int64{"alice": 101, "bob": 102}), opts...)

	return &repoFixture{
		store:    store,
		registry: registry,
		repo:     repo,
		notifier: notifier,
		audit:    auditStore,
	}
}

func (f *repoFixture) newTOTPKey(t *testing.T) oath.Key {
	t.Helper()
	module, err := f.registry.Module(oath.ModuleTOTP)
	require.NoError(t, err)
	key, err := module.NewKey(context.Background())
	require.NoError(t, err)
	return key
}

func TestFindByUserWithoutCredentials(t *testing.T) {
	t.Parallel()

	f := newRepoFixture(t)
	user, err := f.repo.FindByUser(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, "alice", user.Identity())
	assert.True(t, user.CanPersist())
	assert.False(t, user.HasKeys())
	assert.Empty(t, user.Module())
}

func TestFindByUserWithoutCentralID(t *testing.T) {
	t.Parallel()

	f := newRepoFixture(t)
	ctx := context.Background()

	user, err := f.repo.FindByUser(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, user.CanPersist())
	assert.False(t, user.HasKeys())

	_, err = f.repo.CreateKey(ctx, user, f.newTOTPKey(t), "")
	assert.ErrorIs(t, err, oath.ErrNoCentralID)
}

func TestCreateKeyPersistsAndReloads(t *testing.T) {
	t.Parallel()

	f := newRepoFixture(t)
	ctx := context.Background()

	user, err := f.repo.FindByUser(ctx, "alice")
	require.NoError(t, err)

	persisted, err := f.repo.CreateKey(ctx, user, f.newTOTPKey(t), "10.0.0.1")
	require.NoError(t, err)
	assert.NotZero(t, persisted.ID())
	assert.Equal(t, oath.ModuleTOTP, user.Module())

	reloaded, err := f.repo.FindByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, reloaded.Keys(), 1)

	got, ok := reloaded.Keys()[0].(*oath.TOTPKey)
	require.True(t, ok)
	want := persisted.(*oath.TOTPKey)
	assert.Equal(t, want.Secret(), got.Secret())
	assert.Equal(t, want.ScratchTokens(), got.ScratchTokens())
}

func TestCreateKeyMechanismConflict(t *testing.T) {
	t.Parallel()

	f := newRepoFixture(t)
	ctx := context.Background()

	user, err := f.repo.FindByUser(ctx, "alice")
	require.NoError(t, err)
	_, err = f.repo.CreateKey(ctx, user, f.newTOTPKey(t), "")
	require.NoError(t, err)

	u2f, err := f.registry.Module("u2f")
	require.NoError(t, err)
	other, err := u2f.NewKey(ctx)
	require.NoError(t, err)

	_, err = f.repo.CreateKey(ctx, user, other, "")
	require.ErrorIs(t, err, oath.ErrMechanismConflict)
	assert.Contains(t, err.Error(), "u2f")
	assert.Contains(t, err.Error(), "totp")

	// Nothing of the rejected mechanism reached storage.
	records, err := f.store.ListDevices(ctx, 101)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCreateKeySameMechanismTwice(t *testing.T) {
	t.Parallel()

	f := newRepoFixture(t)
	ctx := context.Background()

	user, err := f.repo.FindByUser(ctx, "alice")
	require.NoError(t, err)

	_, err = f.repo.CreateKey(ctx, user, f.newTOTPKey(t), "")
	require.NoError(t, err)
	_, err = f.repo.CreateKey(ctx, user, f.newTOTPKey(t), "")
	require.NoError(t, err)

	require.Len(t, user.Keys(), 2)

	// The enabled notification fires only on the zero-to-one transition.
	assert.Equal(t, []string{"alice"}, f.notifier.enabled)
}

func TestUpdateKeyRequiresPersistedID(t *testing.T) {
	t.Parallel()

	f := newRepoFixture(t)
	ctx := context.Background()

	user, err := f.repo.FindByUser(ctx, "alice")
	require.NoError(t, err)

	err = f.repo.UpdateKey(ctx, user, f.newTOTPKey(t))
	assert.ErrorIs(t, err, oath.ErrKeyNotPersisted)
}

func TestScratchTokenConsumptionIsPersisted(t *testing.T) {
	t.Parallel()

	f := newRepoFixture(t)
	ctx := context.Background()

	user, err := f.repo.FindByUser(ctx, "alice")
	require.NoError(t, err)
	persisted, err := f.repo.CreateKey(ctx, user, f.newTOTPKey(t), "")
	require.NoError(t, err)

	key := persisted.(*oath.TOTPKey)
	token := key.ScratchTokens()[0]

	res, err := key.Verify(ctx, token)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.True(t, res.KeyDirty)

	require.NoError(t, f.repo.UpdateKey(ctx, user, key))

	reloaded, err := f.repo.FindByUser(ctx, "alice")
	require.NoError(t, err)
	got := reloaded.Keys()[0].(*oath.TOTPKey)
	assert.Len(t, got.ScratchTokens(), 9)
	assert.NotContains(t, got.ScratchTokens(), token)

	// The consumed token never verifies again.
	res, err = got.Verify(ctx, token)
	require.NoError(t, err)
	assert.False(t, res.OK)
}

func TestRemoveKey(t *testing.T) {
	t.Parallel()

	f := newRepoFixture(t)
	ctx := context.Background()

	user, err := f.repo.FindByUser(ctx, "alice")
	require.NoError(t, err)
	persisted, err := f.repo.CreateKey(ctx, user, f.newTOTPKey(t), "")
	require.NoError(t, err)

	err = f.repo.RemoveKey(ctx, user, persisted, "10.0.0.1", true)
	require.NoError(t, err)
	assert.False(t, user.HasKeys())

	reloaded, err := f.repo.FindByUser(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, reloaded.HasKeys())

	assert.Equal(t, []string{"alice"}, f.notifier.disabled)
	assert.Equal(t, []bool{true}, f.notifier.selfInit)
}

func TestRemoveAllOfType(t *testing.T) {
	t.Parallel()

	f := newRepoFixture(t)
	ctx := context.Background()

	user, err := f.repo.FindByUser(ctx, "alice")
	require.NoError(t, err)
	_, err = f.repo.CreateKey(ctx, user, f.newTOTPKey(t), "")
	require.NoError(t, err)
	_, err = f.repo.CreateKey(ctx, user, f.newTOTPKey(t), "")
	require.NoError(t, err)

	err = f.repo.RemoveAllOfType(ctx, user, oath.ModuleTOTP, "", false)
	require.NoError(t, err)
	assert.False(t, user.HasKeys())

	reloaded, err := f.repo.FindByUser(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, reloaded.HasKeys())
	assert.Equal(t, []bool{false}, f.notifier.selfInit)
}

func TestRemoveAll(t *testing.T) {
	t.Parallel()

	f := newRepoFixture(t)
	ctx := context.Background()

	user, err := f.repo.FindByUser(ctx, "alice")
	require.NoError(t, err)
	_, err = f.repo.CreateKey(ctx, user, f.newTOTPKey(t), "")
	require.NoError(t, err)

	err = f.repo.RemoveAll(ctx, user, "", true)
	require.NoError(t, err)
	assert.False(t, user.HasKeys())
	assert.Empty(t, user.Module())

	reloaded, err := f.repo.FindByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, reloaded.Keys())
}

func TestRemoveAllDoesNotTouchOtherUsers(t *testing.T) {
	t.Parallel()

	f := newRepoFixture(t)
	ctx := context.Background()

	alice, err := f.repo.FindByUser(ctx, "alice")
	require.NoError(t, err)
	_, err = f.repo.CreateKey(ctx, alice, f.newTOTPKey(t), "")
	require.NoError(t, err)

	bob, err := f.repo.FindByUser(ctx, "bob")
	require.NoError(t, err)
	_, err = f.repo.CreateKey(ctx, bob, f.newTOTPKey(t), "")
	require.NoError(t, err)

	require.NoError(t, f.repo.RemoveAll(ctx, alice, "", true))

	reloaded, err := f.repo.FindByUser(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, reloaded.Keys(), 1)
}

func TestAuditTrail(t *testing.T) {
	t.Parallel()

	f := newRepoFixture(t)
	ctx := context.Background()

	user, err := f.repo.FindByUser(ctx, "alice")
	require.NoError(t, err)
	persisted, err := f.repo.CreateKey(ctx, user, f.newTOTPKey(t), "10.0.0.1")
	require.NoError(t, err)
	require.NoError(t, f.repo.RemoveKey(ctx, user, persisted, "10.0.0.1", true))

	events, err := f.audit.List(ctx, audit.Filter{UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Newest first.
	assert.Equal(t, oath.ActionKeyRemoved, events[0].Action)
	assert.Equal(t, oath.ActionKeyCreated, events[1].Action)
	assert.Equal(t, "10.0.0.1", events[1].ClientInfo)
	assert.Equal(t, oath.ModuleTOTP, events[1].Module)
	assert.Equal(t, persisted.ID(), events[1].KeyID)
}

// Two repositories over the same store model two processes racing on the
// same credential. Without conditional writes the second write silently
// un-consumes the first one's scratch token.
func TestConcurrentScratchConsumptionLostUpdate(t *testing.T) {
	t.Parallel()

	store := oath.NewMemoryStore()
	registry, err := oath.NewRegistry(store, oath.NewTOTPModule(oath.WithIssuer("example.org")))
	require.NoError(t, err)
	resolver := testResolver(map[string]int64{"alice": 101})

	repoA := oath.NewRepository(store, registry, resolver)
	repoB := oath.NewRepository(store, registry, resolver)
	ctx := context.Background()

	userA, err := repoA.FindByUser(ctx, "alice")
	require.NoError(t, err)
	module, err := registry.Module(oath.ModuleTOTP)
	require.NoError(t, err)
	fresh, err := module.NewKey(ctx)
	require.NoError(t, err)
	_, err = repoA.CreateKey(ctx, userA, fresh, "")
	require.NoError(t, err)

	userA, err = repoA.FindByUser(ctx, "alice")
	require.NoError(t, err)
	userB, err := repoB.FindByUser(ctx, "alice")
	require.NoError(t, err)

	keyA := userA.Keys()[0].(*oath.TOTPKey)
	keyB := userB.Keys()[0].(*oath.TOTPKey)
	tokenA := keyA.ScratchTokens()[0]
	tokenB := keyB.ScratchTokens()[1]

	resA, err := keyA.Verify(ctx, tokenA)
	require.NoError(t, err)
	require.True(t, resA.OK)
	resB, err := keyB.Verify(ctx, tokenB)
	require.NoError(t, err)
	require.True(t, resB.OK)

	require.NoError(t, repoA.UpdateKey(ctx, userA, keyA))
	require.NoError(t, repoB.UpdateKey(ctx, userB, keyB))

	// The second write won; tokenA is back even though it was consumed.
	final, err := repoA.FindByUser(ctx, "alice")
	require.NoError(t, err)
	tokens := final.Keys()[0].(*oath.TOTPKey).ScratchTokens()
	assert.Len(t, tokens, 9)
	assert.Contains(t, tokens, tokenA)
	assert.NotContains(t, tokens, tokenB)
}

// With conditional writes the same race surfaces as ErrConcurrentUpdate
// instead of a silent lost update.
func TestConcurrentScratchConsumptionConditionalWrite(t *testing.T) {
	t.Parallel()

	store := oath.NewMemoryStore()
	registry, err := oath.NewRegistry(store, oath.NewTOTPModule(oath.WithIssuer("example.org")))
	require.NoError(t, err)
	resolver := testResolver(map[string]int64{"alice": 101})

	repoA := oath.NewRepository(store, registry, resolver, oath.WithConditionalWrites())
	repoB := oath.NewRepository(store, registry, resolver, oath.WithConditionalWrites())
	ctx := context.Background()

	userA, err := repoA.FindByUser(ctx, "alice")
	require.NoError(t, err)
	module, err := registry.Module(oath.ModuleTOTP)
	require.NoError(t, err)
	fresh, err := module.NewKey(ctx)
	require.NoError(t, err)
	_, err = repoA.CreateKey(ctx, userA, fresh, "")
	require.NoError(t, err)

	userA, err = repoA.FindByUser(ctx, "alice")
	require.NoError(t, err)
	userB, err := repoB.FindByUser(ctx, "alice")
	require.NoError(t, err)

	keyA := userA.Keys()[0].(*oath.TOTPKey)
	keyB := userB.Keys()[0].(*oath.TOTPKey)

	resA, err := keyA.Verify(ctx, keyA.ScratchTokens()[0])
	require.NoError(t, err)
	require.True(t, resA.OK)
	resB, err := keyB.Verify(ctx, keyB.ScratchTokens()[1])
	require.NoError(t, err)
	require.True(t, resB.OK)

	require.NoError(t, repoA.UpdateKey(ctx, userA, keyA))
	err = repoB.UpdateKey(ctx, userB, keyB)
	assert.ErrorIs(t, err, oath.ErrConcurrentUpdate)

	final, err := repoA.FindByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, final.Keys()[0].(*oath.TOTPKey).ScratchTokens(), 9)
}
