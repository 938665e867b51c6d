package syncer

import (
	"context"
	"time"

	"example.com/tableside/internal/events"
	"example.com/tableside/internal/remote"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Puller is a repository that can refresh its local cache from the remote.
type Puller interface {
	Kind() events.Kind
	PullRemote(ctx context.Context) error
}

// Scheduler drives the three pull triggers against the registered
// repositories: a bootstrap pull of every kind at startup, change-feed
// messages for the kinds they name, and a heartbeat for the kinds that must
// stay fresh even when the feed is silent. Cancelling the context stops all
// of them as a unit.
type Scheduler struct {
	pullers   map[events.Kind]Puller
	feed      *remote.FeedListener
	tenantID  string
	heartbeat time.Duration
}

func NewScheduler(feed *remote.FeedListener, tenantID string, heartbeat time.Duration, pullers ...Puller) *Scheduler {
	byKind := make(map[events.Kind]Puller, len(pullers))
	for _, p := range pullers {
		byKind[p.Kind()] = p
	}
	return &Scheduler{
		pullers:   byKind,
		feed:      feed,
		tenantID:  tenantID,
		heartbeat: heartbeat,
	}
}

// Run blocks until the context is cancelled or a component fails.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.bootstrap(ctx)
		return nil
	})

	g.Go(func() error {
		log.Info().Msg("Starting change feed listener")
		return s.feed.Listen(ctx, s.tenantID, s.onChange)
	})

	g.Go(func() error {
		log.Info().Dur("interval", s.heartbeat).Msg("Starting heartbeat pull as fallback mechanism")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(s.heartbeat),
			gocron.NewTask(func() {
				s.pull(ctx, events.KindOrders)
				s.pull(ctx, events.KindSettings)
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		<-ctx.Done()

		return scheduler.Shutdown()
	})

	return g.Wait()
}

// bootstrap pulls every registered kind once at startup. Per-kind failures
// are logged and skipped, the heartbeat and feed will catch up later.
func (s *Scheduler) bootstrap(ctx context.Context) {
	log.Info().Msg("Running bootstrap pull for all kinds")
	for kind := range s.pullers {
		s.pull(ctx, kind)
	}
}

// onChange reacts to one change-feed message. Unknown kinds are accepted
// and ignored so a newer peer cannot wedge the queue.
func (s *Scheduler) onChange(ctx context.Context, change remote.Change) error {
	p, ok := s.pullers[events.Kind(change.Kind)]
	if !ok {
		log.Debug().Str("kind", change.Kind).Msg("Ignoring change for unknown kind")
		return nil
	}
	return p.PullRemote(ctx)
}

func (s *Scheduler) pull(ctx context.Context, kind events.Kind) {
	p, ok := s.pullers[kind]
	if !ok {
		return
	}
	if err := p.PullRemote(ctx); err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("Pull failed")
	}
}
