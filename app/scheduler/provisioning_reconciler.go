// Package scheduler runs background maintenance over the link store
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	businessflow "github.com/amirphl/utm-tracker/business_flow"
	"github.com/amirphl/utm-tracker/repository"
	"github.com/amirphl/utm-tracker/utils"
	"github.com/robfig/cron"
	"go.uber.org/zap"
)

const defaultReconcileBatch = 100

// ReconcileResult summarizes one reconciliation pass
type ReconcileResult struct {
	Scanned    int
	Completed  int
	Failed     int
	ShortLinks int // records that needed a new short URL
}

// ProvisioningReconciler completes link records left in provisioning after a crash
// between the insert and the tracking URL patch.
type ProvisioningReconciler struct {
	linkRepo      repository.UTMLinkRepository
	provisioner   businessflow.ShortLinkProvisioner
	publicBaseURL string
	spec          string
	batch         int
	logger        *zap.Logger
	now           func() time.Time

	mu sync.Mutex // one pass at a time
}

func NewProvisioningReconciler(
	linkRepo repository.UTMLinkRepository,
	provisioner businessflow.ShortLinkProvisioner,
	publicBaseURL string,
	spec string,
	batch int,
	logger *zap.Logger,
) *ProvisioningReconciler {
	if spec == "" {
		spec = "@every 5m"
	}
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &ProvisioningReconciler{
		linkRepo:      linkRepo,
		provisioner:   provisioner,
		publicBaseURL: publicBaseURL,
		spec:          spec,
		batch:         batch,
		logger:        utils.OrNop(logger),
		now:           utils.UTCNow,
	}
}

// Start schedules passes on the cron spec and returns a stop function
func (r *ProvisioningReconciler) Start(parent context.Context) (func(), error) {
	ctx, cancel := context.WithCancel(parent)

	c := cron.New()
	err := c.AddFunc(r.spec, func() {
		if !r.mu.TryLock() {
			r.logger.Warn("Reconcile pass still running, skipping tick")
			return
		}
		defer r.mu.Unlock()

		if _, err := r.reconcile(ctx); err != nil {
			r.logger.Error("Reconcile pass failed", zap.Error(err))
		}
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", r.spec, err)
	}

	c.Start()
	r.logger.Info("Provisioning reconciler started", zap.String("spec", r.spec), zap.Int("batch", r.batch))

	return func() {
		c.Stop()
		cancel()
	}, nil
}

// RunOnce performs a single pass, waiting for a scheduled pass to finish first
func (r *ProvisioningReconciler) RunOnce(ctx context.Context) (*ReconcileResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reconcile(ctx)
}

func (r *ProvisioningReconciler) reconcile(ctx context.Context) (*ReconcileResult, error) {
	cutoff := r.now().Add(-utils.ReconcileGracePeriod)
	stale, err := r.linkRepo.ListProvisioning(ctx, cutoff, r.batch)
	if err != nil {
		return nil, fmt.Errorf("failed to list provisioning links: %w", err)
	}

	result := &ReconcileResult{Scanned: len(stale)}
	for _, link := range stale {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		trackingURL := businessflow.TrackingURL(r.publicBaseURL, link.ID)
		shortURL := link.ShortURL
		if shortURL == "" {
			shortURL = r.provisioner.Provision(ctx, trackingURL, utils.Deref(link.Domain))
			result.ShortLinks++
		}

		if err := r.linkRepo.PatchTrackingURL(ctx, link.ID, trackingURL, shortURL); err != nil {
			result.Failed++
			r.logger.Error("Failed to reconcile link", zap.String("id", link.ID.String()), zap.Error(err))
			continue
		}
		result.Completed++
	}

	if result.Scanned > 0 {
		r.logger.Info("Reconcile pass finished",
			zap.Int("scanned", result.Scanned),
			zap.Int("completed", result.Completed),
			zap.Int("failed", result.Failed),
			zap.Int("short_links", result.ShortLinks),
		)
	}
	return result, nil
}
