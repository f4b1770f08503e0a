// Package refresher keeps the content caches warm. It refreshes on a
// cron schedule and, when enabled, on realtime row changes pushed by
// the backend.
package refresher

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/ViveCali/community_layer/internal/metrics"
	"github.com/ViveCali/community_layer/pkg/logger"
	"github.com/ViveCali/community_layer/services/content"
	"github.com/ViveCali/community_layer/supabase/client"
)

// ContentLoader is the slice of the content service the refresher
// drives.
type ContentLoader interface {
	LoadEvents(ctx context.Context, filter content.EventFilter) ([]content.Event, error)
	LoadCommunities(ctx context.Context) ([]content.Community, error)
	LoadPlaces(ctx context.Context) ([]content.Place, error)
}

// Config controls the refresh cadence.
type Config struct {
	// Schedule is a cron expression, e.g. "@every 5m".
	Schedule string
	// Realtime also refreshes when the backend pushes a row change.
	Realtime bool
}

// Refresher periodically reloads approved content.
type Refresher struct {
	loader   ContentLoader
	realtime *client.RealtimeClient
	cfg      Config
	log      *logger.Logger

	cron   *cron.Cron
	cancel context.CancelFunc
}

// New constructs a Refresher. realtime may be nil when push updates
// are disabled.
func New(loader ContentLoader, realtime *client.RealtimeClient, cfg Config, log *logger.Logger) *Refresher {
	return &Refresher{
		loader:   loader,
		realtime: realtime,
		cfg:      cfg,
		log:      log,
	}
}

// Start begins the scheduled refresh and performs one initial load.
func (r *Refresher) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	r.cron = cron.New()
	if _, err := r.cron.AddFunc(r.cfg.Schedule, func() { r.refresh(ctx, "schedule") }); err != nil {
		return fmt.Errorf("add refresh schedule %q: %w", r.cfg.Schedule, err)
	}
	r.cron.Start()

	if r.cfg.Realtime && r.realtime != nil {
		if err := r.subscribeRealtime(ctx); err != nil {
			r.log.WithError(err).Warn("Realtime refresh unavailable, falling back to schedule only")
		}
	}

	r.refresh(ctx, "startup")
	return nil
}

// Stop halts the schedule and the realtime subscription.
func (r *Refresher) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
	if r.realtime != nil {
		if err := r.realtime.Disconnect(); err != nil {
			r.log.WithError(err).Warn("Disconnect realtime failed")
		}
	}
}

func (r *Refresher) subscribeRealtime(ctx context.Context) error {
	if err := r.realtime.Connect(ctx); err != nil {
		return fmt.Errorf("connect realtime: %w", err)
	}

	for _, table := range []string{"events", "communities", "places"} {
		cfg := client.TableChangesConfig{Event: "*", Schema: "public", Table: table}
		if _, err := r.realtime.SubscribeToTableChanges(ctx, cfg, func(change *client.RowChange) {
			r.log.WithField("table", change.Table()).Debug("Row change received")
			r.refresh(ctx, "realtime")
		}); err != nil {
			return fmt.Errorf("subscribe %s changes: %w", table, err)
		}
	}
	return nil
}

func (r *Refresher) refresh(ctx context.Context, trigger string) {
	var failed bool
	if _, err := r.loader.LoadEvents(ctx, content.EventFilter{}); err != nil {
		r.log.WithError(err).Warn("Refresh events failed")
		failed = true
	}
	if _, err := r.loader.LoadCommunities(ctx); err != nil {
		r.log.WithError(err).Warn("Refresh communities failed")
		failed = true
	}
	if _, err := r.loader.LoadPlaces(ctx); err != nil {
		r.log.WithError(err).Warn("Refresh places failed")
		failed = true
	}

	result := "ok"
	if failed {
		result = "error"
	}
	metrics.ContentRefreshTotal.WithLabelValues(result).Inc()
	r.log.WithFields(map[string]any{"trigger": trigger, "result": result}).Debug("Content refresh")
}
