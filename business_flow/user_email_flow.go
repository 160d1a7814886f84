package businessflow

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/utm-tracker/app/dto"
	"github.com/amirphl/utm-tracker/app/services"
	"github.com/amirphl/utm-tracker/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// EmailResolver maps user ids to email addresses. Every requested id is present in the result.
type EmailResolver interface {
	ResolveEmails(ctx context.Context, userIDs []string) map[string]string
}

// UserEmailFlow serves the dashboard's owner column
type UserEmailFlow interface {
	EmailResolver
	GetUserEmails(ctx context.Context, req *dto.UserEmailsRequest) (*dto.UserEmailsResponse, error)
}

type UserEmailFlowImpl struct {
	identity    services.IdentityClient
	cache       services.EmailCache
	batchSize   int
	itemTimeout time.Duration
	concurrency int
	logger      *zap.Logger
}

func NewUserEmailFlow(
	identity services.IdentityClient,
	cache services.EmailCache,
	batchSize int,
	itemTimeout time.Duration,
	concurrency int,
	logger *zap.Logger,
) *UserEmailFlowImpl {
	if batchSize <= 0 {
		batchSize = 50
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &UserEmailFlowImpl{
		identity:    identity,
		cache:       cache,
		batchSize:   batchSize,
		itemTimeout: itemTimeout,
		concurrency: concurrency,
		logger:      utils.OrNop(logger),
	}
}

// GetUserEmails validates the raw id list and resolves it
func (f *UserEmailFlowImpl) GetUserEmails(ctx context.Context, req *dto.UserEmailsRequest) (*dto.UserEmailsResponse, error) {
	raw := strings.TrimSpace(string(req.UserIDs))
	if raw == "" || raw == "null" || !strings.HasPrefix(raw, "[") {
		return nil, ErrInvalidUserIDs
	}

	var items []json.RawMessage
	if err := json.Unmarshal(req.UserIDs, &items); err != nil {
		return nil, ErrInvalidUserIDs
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		var id string
		if err := json.Unmarshal(item, &id); err != nil {
			// non-string entries keep their literal text as key and resolve to Unknown
			id = string(item)
		}
		ids = append(ids, id)
	}

	return &dto.UserEmailsResponse{EmailMap: f.ResolveEmails(ctx, ids)}, nil
}

// ResolveEmails looks up each distinct id once. Ids that are not uuids, unknown users and
// failed or timed out lookups all map to "Unknown".
func (f *UserEmailFlowImpl) ResolveEmails(ctx context.Context, userIDs []string) map[string]string {
	result := make(map[string]string, len(userIDs))
	pending := make(map[string]uuid.UUID)
	order := make([]string, 0, len(userIDs))

	for _, raw := range userIDs {
		if _, seen := result[raw]; seen {
			continue
		}
		result[raw] = utils.UnknownEmail

		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		if email, ok := f.cachedEmail(ctx, id); ok {
			result[raw] = email
			continue
		}
		pending[raw] = id
		order = append(order, raw)
	}

	if len(order) == 0 || f.identity == nil {
		return result
	}

	var mu sync.Mutex
	for start := 0; start < len(order); start += f.batchSize {
		end := min(start+f.batchSize, len(order))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(f.concurrency)
		for _, raw := range order[start:end] {
			id := pending[raw]
			g.Go(func() error {
				email := f.lookup(gctx, id)
				mu.Lock()
				result[raw] = email
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	return result
}

func (f *UserEmailFlowImpl) lookup(ctx context.Context, id uuid.UUID) string {
	itemCtx := ctx
	if f.itemTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(ctx, f.itemTimeout)
		defer cancel()
	}

	email, err := f.identity.EmailByID(itemCtx, id)
	if err != nil || strings.TrimSpace(email) == "" {
		utils.ContextLogger(ctx, f.logger).Warn("No email found for user", zap.String("user_id", id.String()), zap.Error(err))
		return utils.UnknownEmail
	}

	if f.cache != nil {
		if err := f.cache.SetEmail(ctx, id, email); err != nil {
			f.logger.Warn("Failed to cache user email", zap.String("user_id", id.String()), zap.Error(err))
		}
	}
	return email
}

func (f *UserEmailFlowImpl) cachedEmail(ctx context.Context, id uuid.UUID) (string, bool) {
	if f.cache == nil {
		return "", false
	}
	email, ok, err := f.cache.Email(ctx, id)
	if err != nil {
		f.logger.Warn("Email cache lookup failed", zap.String("user_id", id.String()), zap.Error(err))
		return "", false
	}
	return email, ok && email != ""
}
