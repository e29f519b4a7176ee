package room

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Sweeper runs the periodic expiry sweep. Any interval at or below a minute
// preserves the 30-minute idle SLA.
type Sweeper struct {
	lifecycle *Lifecycle
	interval  time.Duration
	log       zerolog.Logger
	scheduler gocron.Scheduler
}

// NewSweeper creates a sweeper on the room lifecycle.
func NewSweeper(lifecycle *Lifecycle, interval time.Duration, log zerolog.Logger) *Sweeper {
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	return &Sweeper{
		lifecycle: lifecycle,
		interval:  interval,
		log:       log.With().Str("component", "room_sweeper").Logger(),
	}
}

// Start schedules the sweep job and begins running it.
func (s *Sweeper) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return eris.Wrap(err, "creating scheduler")
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			if _, err := s.lifecycle.SweepExpired(context.Background()); err != nil {
				s.log.Error().Err(err).Msg("expiry sweep failed")
			}
		}),
	)
	if err != nil {
		return eris.Wrap(err, "scheduling expiry sweep")
	}

	sched.Start()
	s.scheduler = sched
	s.log.Info().Dur("interval", s.interval).Msg("expiry sweep started")
	return nil
}

// Stop shuts the scheduler down, waiting for a running sweep to finish.
func (s *Sweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Shutdown()
}
