/* lifecycle.go
 * Contains the battle lifecycle state machine: queue polling, the accept window, the in-battle
 * countdown, bounded submission polling and the once-per-battle result notification. All countdowns
 * are recomputed from server timestamps each tick, never decremented locally, so a client that stalls or
 * resumes cannot drift from the backend's clock
 * Authors: Zachary Bower
 */

package battle

import (
	"context"
	"errors"
	"sync"
	"time"

	"arena-bot/api/shared"
)

// Phase is the client's merged view of queue and battle state
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseSearching       Phase = "searching"
	PhaseFound           Phase = "found"
	PhaseWaitingOpponent Phase = "waiting_opponent"
	PhaseActive          Phase = "active"
	PhaseSubmitting      Phase = "submitting"
)

const (
	// AcceptWindowSeconds is how long the backend holds a pending match open
	AcceptWindowSeconds = 20
	// acceptStaleSeconds is the sanity cutoff: a createdAt older than this is a stale
	// read, and the countdown is suppressed rather than shown as expired
	acceptStaleSeconds = 25
	// DefaultBattleSeconds caps a battle when the exercise carries no time limit
	DefaultBattleSeconds = 1200
	// SubmissionMaxAttempts bounds the submission poll loop
	SubmissionMaxAttempts = 30

	tickTimeout = 10 * time.Second
)

var (
	ErrNotIdle            = errors.New("already queued or in a battle")
	ErrNotSearching       = errors.New("not currently searching")
	ErrNoPendingMatch     = errors.New("no pending match to accept")
	ErrNoActiveBattle     = errors.New("no active battle")
	ErrSubmissionInFlight = errors.New("a submission is already being judged")
	ErrSubmissionTimeout  = errors.New("submission timed out, try again")
)

// Intervals are the polling periods for each phase
type Intervals struct {
	Queue      time.Duration
	Pending    time.Duration
	Active     time.Duration
	Submission time.Duration
}

// DefaultIntervals returns the polling schedule the backend is provisioned for
func DefaultIntervals() Intervals {
	return Intervals{
		Queue:      2 * time.Second,
		Pending:    1500 * time.Millisecond,
		Active:     2 * time.Second,
		Submission: time.Second,
	}
}

// Lifecycle tracks one user's matchmaking and battle state. Each phase runs a single
// poller goroutine which is torn down before the next phase's poller starts, so a tick
// scheduled for an old phase can never clobber newer state
type Lifecycle struct {
	backend   Backend
	intervals Intervals
	now       func() time.Time

	mu               sync.Mutex
	phase            Phase
	pollKind         string
	stop             chan struct{}
	queuedAt         time.Time
	battle           *Battle
	opponent         *shared.Opponent
	exercise         *shared.Exercise
	ratingAtActive   *int
	resignDelta      *int
	notifiedBattleID int
	submitting       bool
	notify           func(Result)
}

// NewLifecycle creates an idle lifecycle over the given backend
func NewLifecycle(backend Backend, intervals Intervals) *Lifecycle {
	return &Lifecycle{
		backend:   backend,
		intervals: intervals,
		now:       time.Now,
		phase:     PhaseIdle,
	}
}

// SetNotify registers the callback for post-battle results. The callback fires at most
// once per battle id no matter how many polls observe the completed battle
func (l *Lifecycle) SetNotify(fn func(Result)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notify = fn
}

// Phase returns the current phase; an in-flight submission reports as submitting
func (l *Lifecycle) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.submitting && l.phase == PhaseActive {
		return PhaseSubmitting
	}
	return l.phase
}

// Snapshot is a point-in-time view of the lifecycle for rendering
type Snapshot struct {
	Phase           Phase
	QueueElapsed    int
	AcceptRemaining int
	AcceptVisible   bool
	BattleRemaining int
	Battle          *Battle
	Opponent        *shared.Opponent
	Exercise        *shared.Exercise
}

// Snapshot recomputes all derived counters from server timestamps at call time
func (l *Lifecycle) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := Snapshot{
		Phase:    l.phase,
		Battle:   l.battle,
		Opponent: l.opponent,
		Exercise: l.exercise,
	}
	if l.submitting && l.phase == PhaseActive {
		snap.Phase = PhaseSubmitting
	}
	now := l.now()
	if l.phase == PhaseSearching && !l.queuedAt.IsZero() {
		snap.QueueElapsed = int(now.Sub(l.queuedAt).Seconds())
	}
	if (l.phase == PhaseFound || l.phase == PhaseWaitingOpponent) && l.battle != nil {
		snap.AcceptRemaining, snap.AcceptVisible = AcceptCountdown(l.battle.CreatedAt, now)
	}
	if (l.phase == PhaseActive || snap.Phase == PhaseSubmitting) && l.battle != nil {
		limit := 0
		if l.exercise != nil {
			limit = l.exercise.TimeLimit
		}
		snap.BattleRemaining = BattleCountdown(l.battle.StartedAt, limit, now)
	}
	return snap
}

// AcceptCountdown derives the remaining accept window from the battle's server side
// creation timestamp. It clamps at zero and is suppressed (visible=false) when the
// timestamp is missing or implausibly old, since a stale read is more likely than a
// real timeout that the backend somehow kept pending
func AcceptCountdown(createdAt time.Time, now time.Time) (int, bool) {
	if createdAt.IsZero() {
		return 0, false
	}
	elapsed := int(now.Sub(createdAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > acceptStaleSeconds {
		return 0, false
	}
	remaining := AcceptWindowSeconds - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// BattleCountdown derives the remaining battle time from startedAt plus the exercise
// time limit, clamped at zero. A missing start timestamp reports the full limit
func BattleCountdown(startedAt time.Time, limitSeconds int, now time.Time) int {
	if limitSeconds <= 0 {
		limitSeconds = DefaultBattleSeconds
	}
	if startedAt.IsZero() {
		return limitSeconds
	}
	remaining := limitSeconds - int(now.Sub(startedAt).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// JoinQueue enters matchmaking and starts the queue poller. Calling it from any phase
// other than idle is rejected rather than relying on caller discipline
func (l *Lifecycle) JoinQueue(ctx context.Context) error {
	l.mu.Lock()
	if l.phase != PhaseIdle {
		l.mu.Unlock()
		return ErrNotIdle
	}
	// Claim the phase before the network call so a concurrent JoinQueue is rejected
	l.phase = PhaseSearching
	l.queuedAt = l.now()
	l.mu.Unlock()

	if _, err := l.backend.JoinQueue(ctx); err != nil {
		l.mu.Lock()
		l.resetLocked()
		l.mu.Unlock()
		return err
	}

	l.mu.Lock()
	l.ensurePollerLocked("queue")
	l.mu.Unlock()
	return nil
}

// CancelQueue leaves matchmaking and returns the lifecycle to idle
func (l *Lifecycle) CancelQueue(ctx context.Context) error {
	l.mu.Lock()
	if l.phase != PhaseSearching {
		l.mu.Unlock()
		return ErrNotSearching
	}
	l.resetLocked()
	l.mu.Unlock()
	return l.backend.LeaveQueue(ctx)
}

// Accept confirms the pending match and moves to waiting for the opponent. The shared
// battle flipping to active is observed by the pending poller
func (l *Lifecycle) Accept(ctx context.Context) error {
	l.mu.Lock()
	if l.phase != PhaseFound || l.battle == nil {
		l.mu.Unlock()
		return ErrNoPendingMatch
	}
	battleID := l.battle.ID
	l.mu.Unlock()

	if err := l.backend.Accept(ctx, battleID); err != nil {
		return err
	}

	l.mu.Lock()
	if l.phase == PhaseFound && l.battle != nil && l.battle.ID == battleID {
		l.phase = PhaseWaitingOpponent
	}
	l.mu.Unlock()

	// Refresh immediately; the opponent may already have accepted
	l.refreshBattle(ctx)
	return nil
}

// SubmitCode posts the code and polls the submission until a terminal status, with a
// bounded attempt budget. Queued/running are never surfaced; on anything but passed the
// result is returned immediately, on passed the active poller keeps watching the battle
// until the backend declares it terminal. Overlapping submissions are rejected
func (l *Lifecycle) SubmitCode(ctx context.Context, code string) (shared.Submission, error) {
	l.mu.Lock()
	if l.phase != PhaseActive || l.battle == nil {
		l.mu.Unlock()
		return shared.Submission{}, ErrNoActiveBattle
	}
	if l.submitting {
		l.mu.Unlock()
		return shared.Submission{}, ErrSubmissionInFlight
	}
	l.submitting = true
	battleID := l.battle.ID
	exerciseID := l.battle.ExerciseID
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.submitting = false
		l.mu.Unlock()
	}()

	submissionID, err := l.backend.Submit(ctx, battleID, exerciseID, code)
	if err != nil {
		return shared.Submission{}, err
	}
	return l.waitForSubmission(ctx, submissionID)
}

// waitForSubmission polls until the submission is terminal or the attempt budget runs out.
// Transport errors consume an attempt and are retried on the next one
func (l *Lifecycle) waitForSubmission(ctx context.Context, submissionID int) (shared.Submission, error) {
	for attempt := 0; attempt < SubmissionMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return shared.Submission{}, ctx.Err()
			case <-time.After(l.intervals.Submission):
			}
		}
		sub, err := l.backend.Submission(ctx, submissionID)
		if err != nil {
			continue
		}
		if sub.Terminal() {
			return sub, nil
		}
	}
	return shared.Submission{}, ErrSubmissionTimeout
}

// Resign forfeits the current battle and refreshes battle state immediately instead of
// waiting for the next scheduled poll. The caller must have double confirmed intent;
// this is irreversible
func (l *Lifecycle) Resign(ctx context.Context) error {
	l.mu.Lock()
	if l.phase != PhaseActive || l.battle == nil {
		l.mu.Unlock()
		return ErrNoActiveBattle
	}
	battleID := l.battle.ID
	l.mu.Unlock()

	res, err := l.backend.Resign(ctx, battleID)
	if err != nil {
		return err
	}
	if res.RatingDelta != nil {
		l.mu.Lock()
		l.resignDelta = res.RatingDelta
		l.mu.Unlock()
	}
	l.refreshBattle(ctx)
	return nil
}

// Stop tears down any running poller. The lifecycle can be reused afterwards
func (l *Lifecycle) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetLocked()
}

// --- pollers ---

// ensurePollerLocked starts the poller for the given kind, replacing the current one
// unless it is already of that kind. Callers must hold mu
func (l *Lifecycle) ensurePollerLocked(kind string) {
	if l.pollKind == kind && l.stop != nil {
		return
	}
	l.stopPollerLocked()
	l.pollKind = kind

	var interval time.Duration
	var tick func(stop chan struct{})
	switch kind {
	case "queue":
		interval, tick = l.intervals.Queue, l.pollQueue
	case "pending":
		interval, tick = l.intervals.Pending, l.pollBattle
	case "active":
		interval, tick = l.intervals.Active, l.pollBattle
	default:
		return
	}

	stop := make(chan struct{})
	l.stop = stop
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				tick(stop)
			}
		}
	}()
}

// stopPollerLocked stops the current poller, if any. Callers must hold mu
func (l *Lifecycle) stopPollerLocked() {
	if l.stop != nil {
		close(l.stop)
		l.stop = nil
	}
	l.pollKind = ""
}

// current reports whether stop still identifies the live poller. Every tick rechecks
// this after its network calls; a response that raced a phase change is discarded
func (l *Lifecycle) currentLocked(stop chan struct{}) bool {
	return l.stop != nil && l.stop == stop
}

// pollQueue runs while searching. The instant the backend reports matched, the battle
// details are fetched within the same tick so no later tick can observe searching with
// a known battle id unacted upon. Transport errors are swallowed and retried next tick
func (l *Lifecycle) pollQueue(stop chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	status, err := l.backend.QueueStatus(ctx)
	if err != nil {
		return
	}

	if status.Status == "none" {
		// Backend dropped us from the queue (server side timeout)
		l.mu.Lock()
		if l.currentLocked(stop) && l.phase == PhaseSearching {
			l.resetLocked()
		}
		l.mu.Unlock()
		return
	}
	if !status.Matched() {
		return
	}

	active, err := l.backend.Active(ctx)
	if err != nil {
		return
	}

	l.mu.Lock()
	if !l.currentLocked(stop) || l.phase != PhaseSearching {
		l.mu.Unlock()
		return
	}
	becameActive, completed := l.applyActiveLocked(active)
	l.mu.Unlock()

	l.afterApply(ctx, becameActive, completed)
}

// pollBattle runs in the pending and active phases, refreshing the cached battle copy
func (l *Lifecycle) pollBattle(stop chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	active, err := l.backend.Active(ctx)
	if err != nil {
		return
	}

	l.mu.Lock()
	if !l.currentLocked(stop) {
		l.mu.Unlock()
		return
	}
	becameActive, completed := l.applyActiveLocked(active)
	l.mu.Unlock()

	l.afterApply(ctx, becameActive, completed)
}

// refreshBattle is the immediate (non scheduled) variant used after accept and resign
func (l *Lifecycle) refreshBattle(ctx context.Context) {
	active, err := l.backend.Active(ctx)
	if err != nil {
		return
	}
	l.mu.Lock()
	becameActive, completed := l.applyActiveLocked(active)
	l.mu.Unlock()
	l.afterApply(ctx, becameActive, completed)
}

// applyActiveLocked folds a /battle/active response into the state machine. Callers must
// hold mu. It returns whether the battle just activated (the rating capture point) and,
// when the battle reached a result-worthy terminal status, the finished battle
func (l *Lifecycle) applyActiveLocked(active ActiveBattle) (becameActive bool, completed *Battle) {
	b := active.Battle
	if b == nil {
		// Declined, timed out, or torn down server side. No result will follow, so the
		// captures must not leak into the next battle's delta
		l.clearResultCapturesLocked()
		l.resetLocked()
		return false, nil
	}
	// Relevance guard: never let a response for some other battle clobber the one we hold
	if l.battle != nil && l.battle.ID != b.ID {
		return false, nil
	}

	l.battle = b
	if active.Opponent != nil {
		l.opponent = active.Opponent
	}
	if active.Exercise != nil {
		l.exercise = active.Exercise
	}

	switch {
	case b.Status == BattlePending:
		if b.acceptedByMe() {
			l.phase = PhaseWaitingOpponent
		} else {
			l.phase = PhaseFound
		}
		l.ensurePollerLocked("pending")

	case b.Status == BattleActive:
		becameActive = l.phase != PhaseActive
		l.phase = PhaseActive
		l.ensurePollerLocked("active")

	case b.Terminal():
		if b.Status != BattleAborted {
			completed = b
		} else {
			l.clearResultCapturesLocked()
		}
		l.resetLocked()
	}
	return becameActive, completed
}

// afterApply performs the pieces that need network calls and therefore cannot run under mu
func (l *Lifecycle) afterApply(ctx context.Context, becameActive bool, completed *Battle) {
	if becameActive {
		if me, err := l.backend.Me(ctx); err == nil {
			l.mu.Lock()
			// The battle may have been torn down while Me was in flight; a capture
			// stored now would outlive it
			if l.phase == PhaseActive {
				rating := me.Rating
				l.ratingAtActive = &rating
			}
			l.mu.Unlock()
		}
	}
	if completed != nil {
		l.notifyResult(ctx, completed)
	}
}

// notifyResult emits the {outcome, delta} notice for a finished battle, exactly once per
// battle id. The delta is the authoritative current rating diffed against the rating
// captured when the battle activated, unless the backend already reported it (resign)
func (l *Lifecycle) notifyResult(ctx context.Context, b *Battle) {
	l.mu.Lock()
	if l.notifiedBattleID == b.ID {
		l.mu.Unlock()
		return
	}
	l.notifiedBattleID = b.ID
	ratingAtActive := l.ratingAtActive
	overrideDelta := l.resignDelta
	l.ratingAtActive = nil
	l.resignDelta = nil
	notify := l.notify
	l.mu.Unlock()

	if notify == nil {
		return
	}

	outcome := "draw"
	delta := 0
	if me, err := l.backend.Me(ctx); err == nil {
		if b.WinnerID != 0 {
			if b.WinnerID == me.ID {
				outcome = "win"
			} else {
				outcome = "loss"
			}
		}
		if overrideDelta != nil {
			delta = *overrideDelta
		} else if ratingAtActive != nil {
			delta = me.Rating - *ratingAtActive
		}
	}
	notify(Result{BattleID: b.ID, Outcome: outcome, Delta: delta})
}

// clearResultCapturesLocked drops the captured rating and resign delta. Called on the
// teardown paths that announce no result; on the result path notifyResult consumes them
// instead. Callers must hold mu
func (l *Lifecycle) clearResultCapturesLocked() {
	l.ratingAtActive = nil
	l.resignDelta = nil
}

// resetLocked returns the machine to idle, tearing down the poller. Callers must hold mu.
// The notified battle id survives so late polls cannot re-announce a finished battle.
// The result captures also survive: on the result path resetLocked runs before
// notifyResult reads them
func (l *Lifecycle) resetLocked() {
	l.stopPollerLocked()
	l.phase = PhaseIdle
	l.queuedAt = time.Time{}
	l.battle = nil
	l.opponent = nil
	l.exercise = nil
}
