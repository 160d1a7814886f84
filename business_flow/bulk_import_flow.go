package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/amirphl/utm-tracker/app/dto"
	"github.com/amirphl/utm-tracker/app/services"
	"github.com/amirphl/utm-tracker/models"
	"github.com/amirphl/utm-tracker/repository"
	"github.com/amirphl/utm-tracker/utils"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const bulkFixChunkSize = 200

// BulkImportFlow loads spreadsheet rows as link records and repairs their short links
type BulkImportFlow interface {
	ParseBulkPayload(raw json.RawMessage) ([]json.RawMessage, error)
	Import(ctx context.Context, items []json.RawMessage) *dto.BulkImportResponse
	ImportXLSX(ctx context.Context, r io.Reader) (*dto.BulkImportResponse, error)
	FixBulkLinks(ctx context.Context) (*dto.BulkFixResponse, error)
}

type BulkImportFlowImpl struct {
	linkRepo      repository.UTMLinkRepository
	shortener     services.URLShortener
	provisioner   ShortLinkProvisioner
	limiter       *rate.Limiter
	publicBaseURL string
	logger        *zap.Logger
}

func NewBulkImportFlow(
	linkRepo repository.UTMLinkRepository,
	shortener services.URLShortener,
	provisioner ShortLinkProvisioner,
	fixRatePerSecond float64,
	publicBaseURL string,
	logger *zap.Logger,
) *BulkImportFlowImpl {
	limit := rate.Inf
	if fixRatePerSecond > 0 {
		limit = rate.Limit(fixRatePerSecond)
	}
	return &BulkImportFlowImpl{
		linkRepo:      linkRepo,
		shortener:     shortener,
		provisioner:   provisioner,
		limiter:       rate.NewLimiter(limit, 1),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        utils.OrNop(logger),
	}
}

// ParseBulkPayload requires links to be a JSON array; items stay raw so one bad row
// does not reject the whole request
func (f *BulkImportFlowImpl) ParseBulkPayload(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "[") {
		return nil, ErrInvalidBulkPayload
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, ErrInvalidBulkPayload
	}
	return items, nil
}

// Import inserts every valid item. Item failures are reported, never returned as an error.
func (f *BulkImportFlowImpl) Import(ctx context.Context, items []json.RawMessage) *dto.BulkImportResponse {
	logger := utils.ContextLogger(ctx, f.logger)
	resp := &dto.BulkImportResponse{
		Success: true,
		Errors:  []dto.BulkImportError{},
		Results: []dto.BulkImportResult{},
	}

	rows := make([]bulkRow, 0, len(items))
	for _, raw := range items {
		var item dto.BulkLinkItem
		if err := json.Unmarshal(raw, &item); err != nil {
			resp.Errors = append(resp.Errors, dto.BulkImportError{Email: utils.UnknownClientValue, Error: err.Error()})
			continue
		}
		link, err := newBulkLink(&item)
		if err != nil {
			email := item.Email
			if email == "" {
				email = utils.UnknownClientValue
			}
			resp.Errors = append(resp.Errors, dto.BulkImportError{Email: email, Error: err.Error()})
			continue
		}
		rows = append(rows, bulkRow{email: item.Email, link: link})
	}

	for _, row := range f.insertBulkRows(ctx, rows, resp) {
		resp.Results = append(resp.Results, f.completeBulkRow(ctx, row))
	}

	resp.Processed = len(resp.Results)
	logger.Info("Bulk import completed",
		zap.Int("successful", len(resp.Results)),
		zap.Int("errors", len(resp.Errors)))
	return resp
}

type bulkRow struct {
	email string
	link  *models.UTMLink
}

func newBulkLink(item *dto.BulkLinkItem) (*models.UTMLink, error) {
	if blank(item.Email, item.Program, item.Channel, item.Platform, item.Placement, item.FullURL, item.ShortURL) {
		return nil, ErrMissingBulkFields
	}
	return &models.UTMLink{
		ID:                 uuid.New(),
		Program:            strings.TrimSpace(item.Program),
		Channel:            strings.TrimSpace(item.Channel),
		Platform:           strings.TrimSpace(item.Platform),
		Placement:          strings.TrimSpace(item.Placement),
		Code:               utils.StrPtrOrNil(item.Code),
		Domain:             utils.StrPtrOrNil(item.Domain),
		CBA:                utils.StrPtrOrNil(item.CBA),
		UTMSource:          item.UTMSource,
		UTMMedium:          item.UTMMedium,
		UTMCampaign:        item.UTMCampaign,
		FullURL:            strings.TrimSpace(item.FullURL),
		ShortURL:           strings.TrimSpace(item.ShortURL),
		Email:              utils.StrPtrOrNil(item.Email),
		Source:             models.UTMLinkSourceBulk,
		ProvisioningStatus: models.ProvisioningStatusProvisioning,
	}, nil
}

// insertBulkRows writes all rows in one batch. When the batch fails every row is
// retried on its own so only the rows that really fail are reported.
func (f *BulkImportFlowImpl) insertBulkRows(ctx context.Context, rows []bulkRow, resp *dto.BulkImportResponse) []bulkRow {
	if len(rows) == 0 {
		return nil
	}
	logger := utils.ContextLogger(ctx, f.logger)

	links := make([]*models.UTMLink, len(rows))
	for i, row := range rows {
		links[i] = row.link
	}
	err := f.linkRepo.SaveBatch(ctx, links)
	if err == nil {
		return rows
	}
	logger.Warn("Bulk batch insert failed, inserting rows one by one", zap.Int("rows", len(rows)), zap.Error(err))

	saved := make([]bulkRow, 0, len(rows))
	for _, row := range rows {
		if err := f.linkRepo.Save(ctx, row.link); err != nil {
			logger.Error("Bulk link insert failed", zap.String("email", row.email), zap.Error(err))
			resp.Errors = append(resp.Errors, dto.BulkImportError{Email: row.email, Error: err.Error()})
			continue
		}
		saved = append(saved, row)
	}
	return saved
}

// completeBulkRow patches the tracking URL of an inserted row; failures leave it provisioning
func (f *BulkImportFlowImpl) completeBulkRow(ctx context.Context, row bulkRow) dto.BulkImportResult {
	link := row.link
	trackingURL := TrackingURL(f.publicBaseURL, link.ID)
	status := models.ProvisioningStatusComplete
	if err := f.linkRepo.PatchTrackingURL(ctx, link.ID, trackingURL, ""); err != nil {
		status = models.ProvisioningStatusProvisioning
		utils.ContextLogger(ctx, f.logger).Error("Failed to patch tracking URL of bulk link", zap.String("link_id", link.ID.String()), zap.Error(err))
	}
	linksCreated.WithLabelValues(string(models.UTMLinkSourceBulk), string(status)).Inc()

	return dto.BulkImportResult{
		Email:       row.email,
		ID:          link.ID.String(),
		ShortURL:    link.ShortURL,
		TrackingURL: trackingURL,
		Status:      "success",
	}
}

// ImportXLSX reads the first sheet. The header row names the columns with the JSON field
// names; matching ignores case and treats spaces as underscores.
func (f *BulkImportFlowImpl) ImportXLSX(ctx context.Context, r io.Reader) (*dto.BulkImportResponse, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, NewBusinessError("SPREADSHEET_INVALID", "Failed to open spreadsheet", fmt.Errorf("%w: %v", ErrSpreadsheetInvalid, err))
	}
	defer func() { _ = xl.Close() }()

	sheet := xl.GetSheetName(0)
	rows, err := xl.GetRows(sheet)
	if err != nil {
		return nil, NewBusinessError("SPREADSHEET_INVALID", "Failed to read spreadsheet rows", fmt.Errorf("%w: %v", ErrSpreadsheetInvalid, err))
	}
	if len(rows) == 0 {
		return nil, NewBusinessError("SPREADSHEET_INVALID", "Spreadsheet has no header row", ErrSpreadsheetInvalid)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
	}

	items := make([]json.RawMessage, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]string, len(header))
		empty := true
		for i, name := range header {
			if name == "" || i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			if v != "" {
				empty = false
			}
			record[name] = v
		}
		if empty {
			continue
		}
		raw, err := json.Marshal(record)
		if err != nil {
			return nil, NewBusinessError("SPREADSHEET_INVALID", "Failed to encode spreadsheet row", err)
		}
		items = append(items, raw)
	}

	return f.Import(ctx, items), nil
}

// FixBulkLinks points the short URL of every bulk record at the tracker so clicks on
// imported links are counted. Shortener calls are throttled by the limiter.
func (f *BulkImportFlowImpl) FixBulkLinks(ctx context.Context) (*dto.BulkFixResponse, error) {
	if f.shortener == nil || !f.shortener.HasCredentials() {
		return nil, NewBusinessError("SHORTENER_NOT_CONFIGURED", "Please configure TINYURL_API_TOKEN", ErrShortenerNotConfigured)
	}

	links, err := f.bulkLinks(ctx)
	if err != nil {
		return nil, NewBusinessError("FETCH_BULK_LINKS_FAILED", "Failed to fetch bulk links", err)
	}

	resp := &dto.BulkFixResponse{
		Success: true,
		Errors:  []dto.BulkFixError{},
		Results: []dto.BulkFixResult{},
	}
	if len(links) == 0 {
		resp.Message = "No bulk links found to fix"
		return resp, nil
	}

	for _, link := range links {
		email := utils.Deref(link.Email)
		if f.alreadyTracking(link.ShortURL) {
			resp.Results = append(resp.Results, dto.BulkFixResult{
				ID:       link.ID.String(),
				Email:    email,
				Status:   "already_tracking",
				ShortURL: link.ShortURL,
			})
			continue
		}

		if err := f.limiter.Wait(ctx); err != nil {
			resp.Errors = append(resp.Errors, dto.BulkFixError{ID: link.ID.String(), Email: email, Error: err.Error()})
			continue
		}

		trackingURL := link.TrackingURL
		if trackingURL == "" {
			trackingURL = TrackingURL(f.publicBaseURL, link.ID)
		}
		newShort := f.provisioner.Provision(ctx, trackingURL, "")

		if link.TrackingURL == "" {
			err = f.linkRepo.PatchTrackingURL(ctx, link.ID, trackingURL, newShort)
		} else {
			err = f.linkRepo.UpdateShortURL(ctx, link.ID, newShort)
		}
		if err != nil {
			utils.ContextLogger(ctx, f.logger).Error("Failed to update bulk link", zap.String("link_id", link.ID.String()), zap.Error(err))
			resp.Errors = append(resp.Errors, dto.BulkFixError{ID: link.ID.String(), Email: email, Error: err.Error()})
			continue
		}

		resp.Results = append(resp.Results, dto.BulkFixResult{
			ID:           link.ID.String(),
			Email:        email,
			Status:       "fixed",
			OldShortURL:  link.ShortURL,
			NewShortURL:  newShort,
			TrackingFlow: fmt.Sprintf("%s → %s → %s", newShort, trackingURL, link.FullURL),
		})
	}

	resp.Processed = len(resp.Results)
	resp.Message = fmt.Sprintf("Fixed %d bulk links for click tracking", resp.Processed)
	resp.Summary = dto.BulkFixSummary{
		TotalLinks: len(links),
		Failed:     len(resp.Errors),
	}
	for _, r := range resp.Results {
		if r.Status == "fixed" {
			resp.Summary.Fixed++
		} else {
			resp.Summary.AlreadyTracking++
		}
	}

	utils.ContextLogger(ctx, f.logger).Info("Bulk links fix completed",
		zap.Int("fixed", resp.Summary.Fixed),
		zap.Int("already_tracking", resp.Summary.AlreadyTracking),
		zap.Int("failed", resp.Summary.Failed))
	return resp, nil
}

func (f *BulkImportFlowImpl) bulkLinks(ctx context.Context) ([]*models.UTMLink, error) {
	source := models.UTMLinkSourceBulk
	filter := models.UTMLinkFilter{Source: &source}

	var out []*models.UTMLink
	for offset := 0; ; offset += bulkFixChunkSize {
		chunk, err := f.linkRepo.ByFilter(ctx, filter, "created_at ASC, id ASC", bulkFixChunkSize, offset)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		if len(chunk) < bulkFixChunkSize {
			return out, nil
		}
	}
}

// alreadyTracking reports short URLs that already resolve through the tracker
func (f *BulkImportFlowImpl) alreadyTracking(shortURL string) bool {
	if shortURL == "" {
		return false
	}
	if strings.Contains(shortURL, utils.TrackPath) || strings.Contains(shortURL, utils.LegacyTrackPath) {
		return true
	}
	return f.publicBaseURL != "" && strings.HasPrefix(shortURL, f.publicBaseURL+"/")
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
