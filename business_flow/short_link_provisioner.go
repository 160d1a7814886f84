package businessflow

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/amirphl/utm-tracker/app/services"
	"github.com/amirphl/utm-tracker/utils"
	"go.uber.org/zap"
)

// ShortLinkProvisioner turns a tracking URL into a short URL.
// Provision never fails and never returns an empty string: it degrades from the
// requested alias through alias variants and an unaliased link down to trackingURL itself.
type ShortLinkProvisioner interface {
	Provision(ctx context.Context, trackingURL, alias string) string
}

type ShortLinkProvisionerImpl struct {
	shortener  services.URLShortener
	timeout    time.Duration
	logger     *zap.Logger
	now        func() time.Time
	randSuffix func() string
}

func NewShortLinkProvisioner(shortener services.URLShortener, timeout time.Duration, logger *zap.Logger) *ShortLinkProvisionerImpl {
	return &ShortLinkProvisionerImpl{
		shortener:  shortener,
		timeout:    timeout,
		logger:     utils.OrNop(logger),
		now:        utils.UTCNow,
		randSuffix: randomBase36Suffix,
	}
}

func (p *ShortLinkProvisionerImpl) Provision(ctx context.Context, trackingURL, alias string) string {
	if p.shortener == nil {
		shortenerAttempts.WithLabelValues("fallback").Inc()
		return trackingURL
	}

	alias = strings.TrimSpace(alias)
	if alias != "" {
		if short, ok := p.provisionAliased(ctx, trackingURL, alias); ok {
			return short
		}
	}

	if short, err := p.attempt(ctx, trackingURL, ""); err == nil {
		return short
	}

	shortenerAttempts.WithLabelValues("fallback").Inc()
	utils.ContextLogger(ctx, p.logger).Warn("Shortener unavailable, using tracking URL as short URL", zap.String("tracking_url", trackingURL))
	return trackingURL
}

// provisionAliased walks the alias variants while the provider keeps reporting conflicts.
// Any other failure ends the walk.
func (p *ShortLinkProvisionerImpl) provisionAliased(ctx context.Context, trackingURL, alias string) (string, bool) {
	for _, candidate := range p.AliasCandidates(alias) {
		short, err := p.attempt(ctx, trackingURL, candidate)
		if err == nil {
			return short, true
		}
		if !errors.Is(err, services.ErrAliasTaken) {
			utils.ContextLogger(ctx, p.logger).Warn("Aliased short link failed", zap.String("alias", candidate), zap.Error(err))
			return "", false
		}
	}
	utils.ContextLogger(ctx, p.logger).Info("All alias variants taken", zap.String("alias", alias))
	return "", false
}

// AliasCandidates lists the literal alias followed by its fallback variants in try order
func (p *ShortLinkProvisionerImpl) AliasCandidates(alias string) []string {
	now := p.now().UTC()
	return []string{
		alias,
		alias + "-v2",
		alias + "-" + now.Format("2006"),
		alias + "-" + now.Format("150405"),
		alias + "-" + p.randSuffix(),
	}
}

func (p *ShortLinkProvisionerImpl) attempt(ctx context.Context, longURL, alias string) (string, error) {
	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	short, err := p.shortener.Shorten(callCtx, longURL, alias)
	if err == nil && strings.TrimSpace(short) == "" {
		err = services.ErrShortenerUnavailable
	}

	switch {
	case err == nil:
		shortenerAttempts.WithLabelValues("success").Inc()
	case errors.Is(err, services.ErrAliasTaken):
		shortenerAttempts.WithLabelValues("alias_taken").Inc()
	default:
		shortenerAttempts.WithLabelValues("error").Inc()
	}
	return strings.TrimSpace(short), err
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomBase36Suffix() string {
	b := make([]byte, 4)
	max := big.NewInt(int64(len(base36)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			n = big.NewInt(time.Now().UnixNano() % int64(len(base36)))
		}
		b[i] = base36[n.Int64()]
	}
	return string(b)
}
