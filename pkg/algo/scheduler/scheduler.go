package scheduler

import (
	"algoexec/pkg/algo/params"
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

type Phase string

const (
	PhaseIdle         = Phase("idle")
	PhaseScheduled    = Phase("scheduled")
	PhaseSubmitting   = Phase("submitting")
	PhaseAwaitingFill = Phase("awaiting_fill")
	PhaseComplete     = Phase("complete")
	PhaseStopped      = Phase("stopped")
)

type Config struct {
	Amount             float64
	SliceAmount        float64
	SliceInterval      time.Duration
	IntervalDistortion float64 // percent
	AmountDistortion   float64 // percent
	CatchUp            bool
	AwaitFill          bool

	// venue quantity filters; zero disables them
	LotStep   float64
	LotMinQty float64
}

func ConfigFromArgs(a params.Args) Config {
	return Config{
		Amount:             a.Amount,
		SliceAmount:        a.SliceAmount,
		SliceInterval:      a.SliceInterval,
		IntervalDistortion: a.IntervalDistortion,
		AmountDistortion:   a.AmountDistortion,
		CatchUp:            a.CatchUp,
		AwaitFill:          a.AwaitFill,
	}
}

// Slice is one child order the scheduler wants submitted.
type Slice struct {
	Seq    int
	Amount float64 // signed like the parent amount
	DueAt  time.Time
}

// Decision tells the caller what to do after a transition. When Arm is set the
// single instance timer is (re)armed with Delay, replacing any armed timer.
type Decision struct {
	Arm      bool
	Delay    time.Duration
	Slice    *Slice
	Complete bool // whole amount submitted, no timer stays armed
}

type tracked struct {
	slice  Slice
	amount decimal.Decimal
	filled bool
}

// Progress is a read-only view of the scheduler for state snapshots.
type Progress struct {
	Phase     Phase
	Seq       int
	Submitted float64
	Filled    float64
	NextDueAt time.Time
}

// Scheduler decides slice timing and sizing. It is not safe for concurrent use;
// the owning instance drives it from a single goroutine.
type Scheduler struct {
	cfg Config
	rng *rand.Rand

	phase     Phase
	seq       int
	total     decimal.Decimal
	submitted decimal.Decimal // includes the slice being submitted
	filled    decimal.Decimal
	nextDue   time.Time

	pending  *tracked         // fired, submission not yet confirmed
	open     map[int]*tracked // submitted, not filled
	awaiting *tracked         // awaitFill head slice
	overdue  bool
}

func New(cfg Config, rng *rand.Rand) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{
		cfg:       cfg,
		rng:       rng,
		phase:     PhaseIdle,
		total:     decimal.NewFromFloat(cfg.Amount),
		submitted: decimal.Zero,
		filled:    decimal.Zero,
		open:      map[int]*tracked{},
	}
}

func (s *Scheduler) Phase() Phase {
	return s.phase
}

// Settled reports whether the whole amount is submitted and every slice filled.
func (s *Scheduler) Settled() bool {
	return s.phase == PhaseComplete && len(s.open) == 0 && s.pending == nil
}

func (s *Scheduler) Progress() Progress {
	submitted, _ := s.submitted.Float64()
	filled, _ := s.filled.Float64()
	return Progress{
		Phase:     s.phase,
		Seq:       s.seq,
		Submitted: submitted,
		Filled:    filled,
		NextDueAt: s.nextDue,
	}
}

// Start arms the first slice one jittered interval from now.
func (s *Scheduler) Start(now time.Time) Decision {
	if s.phase != PhaseIdle {
		return Decision{}
	}
	delay := s.jitterInterval()
	s.nextDue = now.Add(delay)
	s.phase = PhaseScheduled
	return Decision{Arm: true, Delay: delay}
}

// Fire handles the timer. It either produces the next slice or, while an
// awaitFill slice is still open, defers with a heartbeat at the nominal interval.
func (s *Scheduler) Fire(now time.Time) Decision {
	switch s.phase {
	case PhaseAwaitingFill:
		s.overdue = true
		s.nextDue = now.Add(s.cfg.SliceInterval)
		return Decision{Arm: true, Delay: s.cfg.SliceInterval}
	case PhaseScheduled:
	default:
		return Decision{}
	}

	amount := s.nextAmount()
	if amount.IsZero() {
		s.phase = PhaseComplete
		return Decision{Complete: true}
	}

	s.seq++
	f, _ := amount.Float64()
	s.pending = &tracked{
		slice:  Slice{Seq: s.seq, Amount: f, DueAt: s.nextDue},
		amount: amount,
	}
	s.submitted = s.submitted.Add(amount)
	s.phase = PhaseSubmitting

	slice := s.pending.slice
	return Decision{Slice: &slice}
}

// Submitted confirms the fired slice was handed to the venue and schedules the next one.
func (s *Scheduler) Submitted(seq int, now time.Time) Decision {
	if s.phase != PhaseSubmitting || s.pending == nil || s.pending.slice.Seq != seq {
		return Decision{}
	}
	t := s.pending
	s.pending = nil
	if !t.filled {
		s.open[seq] = t
	}

	if s.exhausted() {
		s.phase = PhaseComplete
		return Decision{Complete: true}
	}

	if s.cfg.AwaitFill && !t.filled {
		s.awaiting = t
		s.phase = PhaseAwaitingFill
	} else {
		s.phase = PhaseScheduled
	}

	interval := s.jitterInterval()
	if s.cfg.CatchUp {
		s.nextDue = t.slice.DueAt.Add(interval)
	} else {
		s.nextDue = now.Add(interval)
	}
	return Decision{Arm: true, Delay: nonNegative(s.nextDue.Sub(now))}
}

// Rejected rolls back a slice the venue refused or that could not be priced,
// and retries after the nominal interval.
func (s *Scheduler) Rejected(seq int, now time.Time) Decision {
	var t *tracked
	switch {
	case s.pending != nil && s.pending.slice.Seq == seq:
		t = s.pending
		s.pending = nil
	case s.open[seq] != nil:
		t = s.open[seq]
		delete(s.open, seq)
	default:
		return Decision{}
	}
	if s.phase == PhaseStopped {
		return Decision{}
	}

	s.submitted = s.submitted.Sub(t.amount)
	wasAwaiting := s.awaiting == t
	if wasAwaiting {
		s.awaiting = nil
		s.overdue = false
	}

	switch {
	case s.phase == PhaseSubmitting, s.phase == PhaseComplete, wasAwaiting:
		s.phase = PhaseScheduled
		s.nextDue = now.Add(s.cfg.SliceInterval)
		return Decision{Arm: true, Delay: s.cfg.SliceInterval}
	default:
		// timer for the next slice is already armed
		return Decision{}
	}
}

// Filled records the fill of a slice. qty is the absolute quantity the venue
// filled; what falls short of the planned amount goes back to the remainder.
func (s *Scheduler) Filled(seq int, qty float64, now time.Time) Decision {
	var t *tracked
	switch {
	case s.pending != nil && s.pending.slice.Seq == seq:
		t = s.pending
	case s.open[seq] != nil:
		t = s.open[seq]
		delete(s.open, seq)
	default:
		return Decision{}
	}
	if t.filled {
		return Decision{}
	}
	t.filled = true

	filled := decimal.NewFromFloat(math.Abs(qty))
	if filled.IsZero() || filled.GreaterThan(t.amount.Abs()) {
		filled = t.amount.Abs()
	}
	if t.amount.Sign() < 0 {
		filled = filled.Neg()
	}
	s.filled = s.filled.Add(filled)
	s.submitted = s.submitted.Sub(t.amount.Sub(filled))

	wasAwaiting := s.awaiting == t
	if wasAwaiting {
		s.awaiting = nil
	}

	switch {
	case s.phase == PhaseComplete && !s.exhausted():
		s.phase = PhaseScheduled
		s.nextDue = now.Add(s.cfg.SliceInterval)
		return Decision{Arm: true, Delay: s.cfg.SliceInterval}
	case !wasAwaiting || s.phase != PhaseAwaitingFill:
		return Decision{}
	}
	s.phase = PhaseScheduled
	if s.overdue {
		s.overdue = false
		if s.cfg.CatchUp {
			s.nextDue = now
			return Decision{Arm: true, Delay: 0}
		}
	}
	return Decision{}
}

// Stop halts scheduling for good; later calls are no-ops.
func (s *Scheduler) Stop() Decision {
	s.phase = PhaseStopped
	s.nextDue = time.Time{}
	return Decision{}
}

func (s *Scheduler) remaining() decimal.Decimal {
	return s.total.Sub(s.submitted)
}

// exhausted reports whether what is left is below one tradable slice.
func (s *Scheduler) exhausted() bool {
	remaining := s.remaining()
	return remaining.Sign() != s.total.Sign() || remaining.Abs().LessThan(s.minSlice())
}

// minSlice is the smallest quantity the venue accepts: the minimum rounded up to the step.
func (s *Scheduler) minSlice() decimal.Decimal {
	step := decimal.NewFromFloat(s.cfg.LotStep)
	minQty := decimal.NewFromFloat(s.cfg.LotMinQty)
	if step.Sign() <= 0 {
		return minQty
	}
	if minQty.LessThan(step) {
		return step
	}
	return minQty.Div(step).Ceil().Mul(step)
}

// nextAmount jitters the slice amount, floors it to the lot step and clamps it
// to what is left. A leftover too small to trade is folded into this slice so
// the last slice closes the parent amount.
func (s *Scheduler) nextAmount() decimal.Decimal {
	if s.exhausted() {
		return decimal.Zero
	}
	remaining := s.remaining()

	jittered := s.jitter(s.cfg.SliceAmount, s.cfg.AmountDistortion)
	if jittered == 0 || math.Signbit(jittered) != math.Signbit(s.cfg.SliceAmount) {
		jittered = s.cfg.SliceAmount
	}
	amount := decimal.NewFromFloat(jittered).Abs()
	if step := decimal.NewFromFloat(s.cfg.LotStep); step.Sign() > 0 {
		amount = amount.Div(step).Floor().Mul(step)
	}
	minSlice := s.minSlice()
	if amount.LessThan(minSlice) {
		amount = minSlice
	}
	if amount.Add(minSlice).GreaterThan(remaining.Abs()) {
		return remaining
	}
	if s.total.Sign() < 0 {
		amount = amount.Neg()
	}
	return amount
}

func (s *Scheduler) jitterInterval() time.Duration {
	d := time.Duration(s.jitter(float64(s.cfg.SliceInterval), s.cfg.IntervalDistortion))
	return nonNegative(d)
}

// jitter spreads base uniformly within ±pct percent.
func (s *Scheduler) jitter(base float64, pct float64) float64 {
	if pct == 0 {
		return base
	}
	u := s.rng.Float64()*2 - 1
	return base * (1 + u*pct/100)
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
