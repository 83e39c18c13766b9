package passport

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Solsynth/DysonNetwork-sub002/cache"
	"github.com/Solsynth/DysonNetwork-sub002/domain"
	"github.com/Solsynth/DysonNetwork-sub002/errors"
)

// --- In-memory CheckInRepository ---
type memoryCheckInRepo struct {
	results []*domain.CheckInResult
}

func (r *memoryCheckInRepo) Create(_ context.Context, result *domain.CheckInResult) error {
	r.results = append(r.results, result)
	return nil
}

func sameUTCDay(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func (r *memoryCheckInRepo) ExistsOnDay(_ context.Context, accountID string, day time.Time) (bool, error) {
	for _, result := range r.results {
		if result.AccountID == accountID && sameUTCDay(result.CreatedAt, day) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryCheckInRepo) CountBackdatedInMonth(_ context.Context, accountID string, month time.Time) (int, error) {
	m := month.UTC()
	count := 0
	for _, result := range r.results {
		created := result.CreatedAt.UTC()
		if result.AccountID == accountID && result.BackdatedFrom != nil &&
			created.Year() == m.Year() && created.Month() == m.Month() {
			count++
		}
	}
	return count, nil
}

func (r *memoryCheckInRepo) ListByMonth(_ context.Context, accountID string, month time.Time) ([]*domain.CheckInResult, error) {
	m := month.UTC()
	var results []*domain.CheckInResult
	for _, result := range r.results {
		created := result.CreatedAt.UTC()
		if result.AccountID == accountID && created.Year() == m.Year() && created.Month() == m.Month() {
			results = append(results, result)
		}
	}
	return results, nil
}

// --- Recording ExperienceLedger ---
type ledgerEntry struct {
	accountID string
	amount    int64
	reason    string
}

type recordingLedger struct {
	entries []ledgerEntry
}

func (l *recordingLedger) Append(_ context.Context, accountID string, amount int64, reason string) error {
	l.entries = append(l.entries, ledgerEntry{accountID: accountID, amount: amount, reason: reason})
	return nil
}

func newTestEngine(t *testing.T) (*CheckInEngine, *memoryCheckInRepo, *recordingLedger) {
	t.Helper()
	repo := &memoryCheckInRepo{}
	ledger := &recordingLedger{}
	flags := cache.NewMemoryFlagCache()
	t.Cleanup(func() { _ = flags.Close() })

	engine := NewCheckInEngine(repo, ledger, cache.NewMemoryLocker(), flags)
	return engine, repo, ledger
}

func testAccount() *domain.Account {
	return &domain.Account{ID: "acct-1", Name: "tester", TimeZone: "UTC"}
}

func TestCheckInEngine_Execute_Live(t *testing.T) {
	engine, _, ledger := newTestEngine(t)
	ctx := context.Background()

	result, err := engine.Execute(ctx, testAccount(), nil)
	require.NoError(t, err)

	require.NotNil(t, result.RewardPoints)
	assert.Equal(t, float64(10), *result.RewardPoints)
	require.NotNil(t, result.RewardExperience)
	assert.Equal(t, int64(100), *result.RewardExperience)
	assert.Nil(t, result.BackdatedFrom)
	assert.NotEqual(t, domain.CheckInLevelSpecial, result.Level)

	require.Len(t, result.Tips, 4)
	positives, negatives := 0, 0
	seen := map[string]bool{}
	for _, tip := range result.Tips {
		assert.False(t, seen[tip.Title], "tips are sampled without replacement")
		seen[tip.Title] = true
		if tip.IsPositive {
			positives++
		} else {
			negatives++
		}
	}
	assert.Equal(t, 2, positives)
	assert.Equal(t, 2, negatives)

	require.Len(t, ledger.entries, 1)
	assert.Equal(t, ledgerEntry{accountID: "acct-1", amount: 100, reason: "check-in"}, ledger.entries[0])
}

func TestCheckInEngine_Execute_SameDayTwice(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()
	account := testAccount()

	_, err := engine.Execute(ctx, account, nil)
	require.NoError(t, err)

	_, err = engine.Execute(ctx, account, nil)
	assert.ErrorIs(t, err, errors.ErrAlreadyCheckedIn)

	available, err := engine.IsAvailableToday(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, available)
}

func TestCheckInEngine_Execute_LockContention(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	locker := cache.NewMemoryLocker()
	engine.locker = locker
	// Shorten the wait so the test does not stall for the full timeout.
	engine.lockAcquireWait = 50 * time.Millisecond

	handle, err := locker.Acquire(ctx, "checkin:acct-1", time.Minute, time.Second)
	require.NoError(t, err)
	defer handle.Release(ctx)

	_, err = engine.Execute(ctx, testAccount(), nil)
	assert.ErrorIs(t, err, errors.ErrCheckInInProgress)
}

func TestTierForDraw_Bands(t *testing.T) {
	cases := []struct {
		draw  float64
		level domain.CheckInLevel
	}{
		{0, domain.CheckInLevelWorst},
		{9.999, domain.CheckInLevelWorst},
		{10, domain.CheckInLevelWorse},
		{29.999, domain.CheckInLevelWorse},
		{30, domain.CheckInLevelNormal},
		{69.999, domain.CheckInLevelNormal},
		{70, domain.CheckInLevelBetter},
		{89.999, domain.CheckInLevelBetter},
		{90, domain.CheckInLevelBest},
		{99.999, domain.CheckInLevelBest},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, tierForDraw(tc.draw), "draw %v", tc.draw)
	}
}

func TestTierForDraw_Distribution(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const samples = 100000

	counts := map[domain.CheckInLevel]int{}
	for i := 0; i < samples; i++ {
		counts[tierForDraw(rng.Float64()*100)]++
	}

	expected := map[domain.CheckInLevel]float64{
		domain.CheckInLevelWorst:  0.10,
		domain.CheckInLevelWorse:  0.20,
		domain.CheckInLevelNormal: 0.40,
		domain.CheckInLevelBetter: 0.20,
		domain.CheckInLevelBest:   0.10,
	}
	for level, want := range expected {
		got := float64(counts[level]) / samples
		assert.InDelta(t, want, got, 0.01, "tier %s frequency", level)
	}
	assert.Zero(t, counts[domain.CheckInLevelSpecial], "special is never drawn randomly")
}

func TestCheckInEngine_BirthdayOverride(t *testing.T) {
	engine, _, ledger := newTestEngine(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 31, 3, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return now }
	// Force the unluckiest draw; the birthday branch must ignore it.
	engine.randFloat = func() float64 { return 0 }

	// 03:00 UTC on Aug 31 is still Aug 30 in Honolulu (UTC-10).
	birthday := time.Date(1999, 8, 30, 0, 0, 0, 0, time.UTC)
	account := &domain.Account{
		ID:       "acct-bday",
		TimeZone: "Pacific/Honolulu",
		Birthday: &birthday,
	}

	result, err := engine.Execute(ctx, account, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.CheckInLevelSpecial, result.Level)
	require.Len(t, result.Tips, 1)
	assert.True(t, result.Tips[0].IsPositive)
	require.NotNil(t, result.RewardExperience)
	assert.Equal(t, int64(100), *result.RewardExperience)
	require.Len(t, ledger.entries, 1)
	assert.Equal(t, int64(100), ledger.entries[0].amount)
}

func TestCheckInEngine_BirthdayElsewhereIsNormal(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 31, 3, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return now }

	// Same birthday but in UTC: Aug 31 is not Aug 30.
	birthday := time.Date(1999, 8, 30, 0, 0, 0, 0, time.UTC)
	account := &domain.Account{ID: "acct-2", TimeZone: "UTC", Birthday: &birthday}

	result, err := engine.Execute(ctx, account, nil)
	require.NoError(t, err)
	assert.NotEqual(t, domain.CheckInLevelSpecial, result.Level)
}

func TestCheckInEngine_UnknownTimezoneFallsBackToUTC(t *testing.T) {
	account := &domain.Account{ID: "acct-3", TimeZone: "Not/AZone"}
	assert.Equal(t, time.UTC, account.Location())
}

func TestCheckInEngine_Backdate(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()
	account := testAccount()

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return now }

	day := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	result, err := engine.Execute(ctx, account, &day)
	require.NoError(t, err)

	assert.Nil(t, result.RewardPoints, "backdated entries earn no points")
	require.NotNil(t, result.RewardExperience)
	assert.Equal(t, int64(100), *result.RewardExperience)
	require.NotNil(t, result.BackdatedFrom)
	assert.Equal(t, now, *result.BackdatedFrom)
	assert.Equal(t, day, result.CreatedAt)

	// The same day can never be filled twice.
	_, err = engine.Execute(ctx, account, &day)
	assert.ErrorIs(t, err, errors.ErrBackdateUnavailable)
}

func TestCheckInEngine_BackdateMonthlyCap(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()
	account := testAccount()

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return now }

	for i := 1; i <= 4; i++ {
		day := time.Date(2026, 8, i, 0, 0, 0, 0, time.UTC)
		_, err := engine.Execute(ctx, account, &day)
		require.NoError(t, err, "backdate %d", i)
	}

	fifth := time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)
	ok, err := engine.IsBackdateAvailable(ctx, account.ID, fifth)
	require.NoError(t, err)
	assert.False(t, ok, "monthly cap of 4 backdated entries")

	_, err = engine.Execute(ctx, account, &fifth)
	assert.ErrorIs(t, err, errors.ErrBackdateUnavailable)

	// A different month is unaffected by the cap.
	julyDay := time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC)
	ok, err = engine.IsBackdateAvailable(ctx, account.ID, julyDay)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckInEngine_BackdateRejectsTodayAndFuture(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return now }

	for _, day := range []time.Time{
		time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC),
	} {
		ok, err := engine.IsBackdateAvailable(ctx, "acct-1", day)
		require.NoError(t, err)
		assert.False(t, ok, "day %v", day)
	}
}

func TestCheckInEngine_NeedsCaptcha_StablePerDay(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	calls := 0
	engine.randFloat = func() float64 {
		calls++
		return 0.1 // below the 20% threshold: captcha required
	}

	first := engine.NeedsCaptcha(ctx, "acct-1")
	assert.True(t, first)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, engine.NeedsCaptcha(ctx, "acct-1"))
	}
	assert.Equal(t, 1, calls, "the coin is flipped once per account per day")
}

func TestCheckInEngine_NeedsCaptcha_PerAccount(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	draws := []float64{0.1, 0.9}
	engine.randFloat = func() float64 {
		draw := draws[0]
		draws = draws[1:]
		return draw
	}

	assert.True(t, engine.NeedsCaptcha(ctx, "acct-a"))
	assert.False(t, engine.NeedsCaptcha(ctx, "acct-b"))
}

func TestSampleDistinct(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 100; trial++ {
		picked := sampleDistinct(14, 2, rng.Intn)
		require.Len(t, picked, 2)
		assert.NotEqual(t, picked[0], picked[1])
		for _, idx := range picked {
			assert.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, 14)
		}
	}
}

func TestFortuneTipPools(t *testing.T) {
	assert.Len(t, positiveFortuneTips, 14)
	assert.Len(t, negativeFortuneTips, 14)
	for i, tip := range positiveFortuneTips {
		assert.True(t, tip.IsPositive, fmt.Sprintf("positive pool index %d", i))
	}
	for i, tip := range negativeFortuneTips {
		assert.False(t, tip.IsPositive, fmt.Sprintf("negative pool index %d", i))
	}
}
