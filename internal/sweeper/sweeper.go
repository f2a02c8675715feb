package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medibook/hospital-booking/internal/booking"
	"github.com/medibook/hospital-booking/internal/prescription"
	redisclient "github.com/medibook/hospital-booking/internal/redis"
)

const jobName = "appointment-completion"

// CandidateSource finds confirmed appointments whose scheduled time has
// passed. Satisfied by booking.Repository.
type CandidateSource interface {
	FindDueConfirmed(ctx context.Context, now time.Time) ([]booking.Appointment, error)
}

// Completer drives the confirmed -> completed transition. Satisfied by
// *booking.Service.
type Completer interface {
	Complete(ctx context.Context, apptID uuid.UUID) (*booking.Appointment, error)
}

// Generator synthesizes the dependent prescription. Satisfied by
// *prescription.Generator.
type Generator interface {
	Generate(ctx context.Context, appt *booking.Appointment) (*prescription.Prescription, error)
}

// Result summarizes one sweep cycle.
type Result struct {
	Candidates int
	Completed  int
	Prescribed int
	Failed     int
	Skipped    bool // another replica held the sweep lock
}

// Sweeper periodically completes due appointments and generates their
// prescriptions. It is an explicit component with a caller-driven
// lifecycle; the clock is injectable for tests.
type Sweeper struct {
	candidates CandidateSource
	ledger     Completer
	gen        Generator
	locker     redisclient.Locker // nil disables cross-replica locking
	interval   time.Duration
	now        func() time.Time
}

func New(candidates CandidateSource, ledger Completer, gen Generator, locker redisclient.Locker, interval time.Duration) *Sweeper {
	return &Sweeper{
		candidates: candidates,
		ledger:     ledger,
		gen:        gen,
		locker:     locker,
		interval:   interval,
		now:        time.Now,
	}
}

// WithClock overrides the sweep clock. Test hook.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Run executes one sweep immediately, then on every tick until the context
// is cancelled. Cycles never overlap: each runs to completion before the
// next tick is consumed.
func (s *Sweeper) Run(ctx context.Context) {
	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("sweeper stopping")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Sweeper) runCycle(ctx context.Context) {
	start := time.Now()
	res, err := s.RunOnce(ctx)
	if err != nil {
		log.Error().Err(err).Msg("sweep cycle failed")
		return
	}
	if res.Skipped {
		log.Debug().Msg("sweep skipped, lock held elsewhere")
		return
	}
	log.Info().
		Int("candidates", res.Candidates).
		Int("completed", res.Completed).
		Int("prescribed", res.Prescribed).
		Int("failed", res.Failed).
		Dur("took", time.Since(start)).
		Msg("sweep cycle complete")
}

// RunOnce performs a single sweep. Per-appointment failures are logged and
// counted, never propagated: one patient's bad record must not stall
// everyone else's completion.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	if s.locker == nil {
		return s.sweep(ctx)
	}

	var res Result
	err := s.locker.WithJobLock(ctx, jobName, func(lockCtx context.Context) error {
		var sweepErr error
		res, sweepErr = s.sweep(lockCtx)
		return sweepErr
	})
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return Result{Skipped: true}, nil
	}
	return res, err
}

func (s *Sweeper) sweep(ctx context.Context) (Result, error) {
	var res Result

	due, err := s.candidates.FindDueConfirmed(ctx, s.now())
	if err != nil {
		return res, err
	}
	res.Candidates = len(due)

	for _, appt := range due {
		completed, err := s.ledger.Complete(ctx, appt.ID)
		if err != nil {
			if errors.Is(err, booking.ErrInvalidStatusTransition) {
				// Cancelled (or completed elsewhere) between the candidate
				// query and this write; terminal either way.
				continue
			}
			res.Failed++
			log.Error().Err(err).
				Str("appointment_id", appt.ID.String()).
				Str("patient_id", appt.PatientID.String()).
				Msg("failed to complete appointment")
			continue
		}
		res.Completed++

		if _, err := s.gen.Generate(ctx, completed); err != nil {
			// The appointment stays completed; a missing prescription can
			// be generated manually later.
			res.Failed++
			ev := log.Error()
			if errors.Is(err, prescription.ErrNoMedicines) {
				ev = log.Warn()
			}
			ev.Err(err).
				Str("appointment_id", appt.ID.String()).
				Str("patient_id", appt.PatientID.String()).
				Msg("prescription generation failed")
			continue
		}
		res.Prescribed++
	}

	return res, nil
}
