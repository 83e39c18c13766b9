package passport

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Solsynth/DysonNetwork-sub002/cache"
	"github.com/Solsynth/DysonNetwork-sub002/domain"
	"github.com/Solsynth/DysonNetwork-sub002/errors"
)

const (
	checkInExperience       = int64(100)
	checkInPoints           = float64(10)
	captchaProbability      = 0.2
	maxBackdatedPerMonth    = 4
	tipsPerPolarity         = 2
	checkInLockTTL          = time.Minute
	checkInLockAcquireWait  = 5 * time.Second
	checkInExperienceReason = "check-in"
)

// Reward tier bands over a uniform [0,100) draw. The proportions
// (10/20/40/20/10) are a contract; the RNG behind the draw is not.
var tierBands = []struct {
	upper float64
	level domain.CheckInLevel
}{
	{10, domain.CheckInLevelWorst},
	{30, domain.CheckInLevelWorse},
	{70, domain.CheckInLevelNormal},
	{90, domain.CheckInLevelBetter},
	{100, domain.CheckInLevelBest},
}

// tierForDraw maps a uniform [0,100) draw onto a reward tier.
func tierForDraw(draw float64) domain.CheckInLevel {
	for _, band := range tierBands {
		if draw < band.upper {
			return band.level
		}
	}
	return domain.CheckInLevelBest
}

// sampleDistinct picks k distinct indices from [0,n) with a partial
// Fisher–Yates shuffle, so cost stays predictable instead of rejection
// looping on duplicates.
func sampleDistinct(n, k int, intn func(int) int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + intn(n-i)
		indices[i], indices[j] = indices[j], indices[i]
	}
	return indices[:k]
}

// CheckInEngine runs the daily check-in flow: eligibility, the captcha
// gate, weighted tier selection and the persisted reward, all under a
// short-lived per-account lock.
type CheckInEngine struct {
	repo   domain.CheckInRepository
	ledger domain.ExperienceLedger
	locker cache.Locker
	flags  cache.FlagCache

	lockTTL         time.Duration
	lockAcquireWait time.Duration

	now       func() time.Time
	randFloat func() float64
	randIntn  func(int) int
}

// NewCheckInEngine creates a new CheckInEngine instance.
func NewCheckInEngine(
	repo domain.CheckInRepository,
	ledger domain.ExperienceLedger,
	locker cache.Locker,
	flags cache.FlagCache,
) *CheckInEngine {
	return &CheckInEngine{
		repo:            repo,
		ledger:          ledger,
		locker:          locker,
		flags:           flags,
		lockTTL:         checkInLockTTL,
		lockAcquireWait: checkInLockAcquireWait,
		now:             time.Now,
		randFloat:       rand.Float64,
		randIntn:        rand.Intn,
	}
}

func startOfUTCDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsAvailableToday reports whether the account has not yet checked in
// during the current UTC calendar day.
func (e *CheckInEngine) IsAvailableToday(ctx context.Context, accountID string) (bool, error) {
	exists, err := e.repo.ExistsOnDay(ctx, accountID, e.now())
	if err != nil {
		return false, fmt.Errorf("failed to query check-in results: %w", err)
	}
	return !exists, nil
}

// NeedsCaptcha decides, once per account per UTC day, whether a captcha
// gate applies (20% of days). The decision is cached for 24h so repeated
// calls stay stable. This throttles automation; it is not a security
// boundary.
func (e *CheckInEngine) NeedsCaptcha(ctx context.Context, accountID string) bool {
	day := startOfUTCDay(e.now()).Format("2006-01-02")
	key := fmt.Sprintf("captcha:%s:%s", accountID, day)
	return e.flags.GetOrSet(ctx, key, 24*time.Hour, func() bool {
		return e.randFloat() < captchaProbability
	})
}

// IsBackdateAvailable reports whether the given past UTC day can still
// receive a retroactive check-in: the day has no result yet (backdated or
// not), and the calendar month holds fewer than four backdated entries.
func (e *CheckInEngine) IsBackdateAvailable(ctx context.Context, accountID string, date time.Time) (bool, error) {
	if !startOfUTCDay(date).Before(startOfUTCDay(e.now())) {
		return false, nil
	}

	exists, err := e.repo.ExistsOnDay(ctx, accountID, date)
	if err != nil {
		return false, fmt.Errorf("failed to query check-in results: %w", err)
	}
	if exists {
		return false, nil
	}

	count, err := e.repo.CountBackdatedInMonth(ctx, accountID, date)
	if err != nil {
		return false, fmt.Errorf("failed to count backdated check-ins: %w", err)
	}
	return count < maxBackdatedPerMonth, nil
}

// History returns the account's results for the UTC calendar month
// containing the given instant.
func (e *CheckInEngine) History(ctx context.Context, accountID string, month time.Time) ([]*domain.CheckInResult, error) {
	return e.repo.ListByMonth(ctx, accountID, month)
}

// Execute performs a check-in for the account, live when backdated is
// nil, retroactive otherwise. It holds the per-account lock for the whole
// critical section; the lock is released on every exit path.
func (e *CheckInEngine) Execute(ctx context.Context, account *domain.Account, backdated *time.Time) (*domain.CheckInResult, error) {
	handle, err := e.locker.Acquire(ctx, "checkin:"+account.ID, e.lockTTL, e.lockAcquireWait)
	if err != nil {
		if stderrors.Is(err, errors.ErrLockNotAcquired) {
			return nil, errors.ErrCheckInInProgress
		}
		return nil, fmt.Errorf("failed to acquire check-in lock: %w", err)
	}
	defer func() {
		if relErr := handle.Release(context.WithoutCancel(ctx)); relErr != nil {
			log.Warn().Err(relErr).Str("account_id", account.ID).Msg("failed to release check-in lock")
		}
	}()

	now := e.now()

	if backdated != nil {
		ok, err := e.IsBackdateAvailable(ctx, account.ID, *backdated)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.ErrBackdateUnavailable
		}
	} else {
		available, err := e.IsAvailableToday(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		if !available {
			return nil, errors.ErrAlreadyCheckedIn
		}
	}

	result := &domain.CheckInResult{
		ID:        uuid.NewString(),
		AccountID: account.ID,
	}

	if backdated == nil && account.IsBirthday(now) {
		result.Level = domain.CheckInLevelSpecial
		result.Tips = []domain.FortuneTip{birthdayFortuneTip}
	} else {
		result.Level = tierForDraw(e.randFloat() * 100)
		result.Tips = e.drawTips()
	}

	experience := checkInExperience
	result.RewardExperience = &experience
	if backdated == nil {
		points := checkInPoints
		result.RewardPoints = &points
		result.CreatedAt = now
	} else {
		// Backdated entries earn experience only, to discourage
		// retroactive abuse.
		result.CreatedAt = *backdated
		backdatedFrom := now
		result.BackdatedFrom = &backdatedFrom
	}

	if err := e.repo.Create(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to save check-in result: %w", err)
	}

	if err := e.ledger.Append(ctx, account.ID, experience, checkInExperienceReason); err != nil {
		return nil, fmt.Errorf("failed to append experience ledger: %w", err)
	}

	log.Info().Str("account_id", account.ID).Str("level", result.Level.String()).
		Bool("backdated", backdated != nil).Msg("check-in recorded")

	return result, nil
}

func (e *CheckInEngine) drawTips() []domain.FortuneTip {
	tips := make([]domain.FortuneTip, 0, 2*tipsPerPolarity)
	for _, i := range sampleDistinct(len(positiveFortuneTips), tipsPerPolarity, e.randIntn) {
		tips = append(tips, positiveFortuneTips[i])
	}
	for _, i := range sampleDistinct(len(negativeFortuneTips), tipsPerPolarity, e.randIntn) {
		tips = append(tips, negativeFortuneTips[i])
	}
	return tips
}
