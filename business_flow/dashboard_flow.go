package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/utm-tracker/app/dto"
	"github.com/amirphl/utm-tracker/models"
	"github.com/amirphl/utm-tracker/repository"
	"github.com/amirphl/utm-tracker/utils"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	exportChunkSize = 500
	exportSheetName = "UTM Links"
)

// ExportHeaders is the column layout shared by the CSV and XLSX exports
var ExportHeaders = []string{
	"Full URL", "Short URL", "Tracking URL", "Clicks", "Unique Clicks",
	"Program", "Channel", "Platform", "Placement", "Email",
	"UTM Source", "UTM Medium", "UTM Campaign", "CBA", "Code", "Domain",
	"Source", "Status", "Created At",
}

// numeric export columns: Clicks and Unique Clicks
var numericExportColumns = map[int]bool{3: true, 4: true}

// DashboardFlow is the read side of the link records
type DashboardFlow interface {
	ListUTMLinks(ctx context.Context, req *dto.ListUTMLinksRequest) (*dto.ListUTMLinksResponse, error)
	ExportCSV(ctx context.Context, req *dto.ListUTMLinksRequest) (string, []byte, error)
	ExportXLSX(ctx context.Context, req *dto.ListUTMLinksRequest) (string, []byte, error)
	Catalog() *dto.CatalogResponse
}

type DashboardFlowImpl struct {
	linkRepo repository.UTMLinkRepository
	emails   EmailResolver
	logger   *zap.Logger
	now      func() time.Time
}

func NewDashboardFlow(linkRepo repository.UTMLinkRepository, emails EmailResolver, logger *zap.Logger) *DashboardFlowImpl {
	return &DashboardFlowImpl{
		linkRepo: linkRepo,
		emails:   emails,
		logger:   utils.OrNop(logger),
		now:      utils.UTCNow,
	}
}

func (f *DashboardFlowImpl) ListUTMLinks(ctx context.Context, req *dto.ListUTMLinksRequest) (*dto.ListUTMLinksResponse, error) {
	page, limit, err := normalizePagination(req.Page, req.Limit)
	if err != nil {
		return nil, NewBusinessError("VALIDATION_ERROR", err.Error(), err)
	}

	filter := dashboardFilter(req)
	total, err := f.linkRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_UTM_LINKS_FAILED", "Failed to count UTM links", err)
	}

	links, err := f.linkRepo.ByFilter(ctx, filter, dashboardOrder(req.OrderBy), limit, (page-1)*limit)
	if err != nil {
		return nil, NewBusinessError("LIST_UTM_LINKS_FAILED", "Failed to list UTM links", err)
	}

	emails := f.ownerEmails(ctx, links)
	items := make([]dto.UTMLinkDTO, 0, len(links))
	for _, l := range links {
		items = append(items, ToUTMLinkDTO(l, ownerEmail(l, emails)))
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &dto.ListUTMLinksResponse{
		Items: items,
		Pagination: dto.PaginationInfo{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
	}, nil
}

// ExportCSV writes one header line plus one line per matching record. Text cells are always
// quoted with embedded quotes doubled; the click columns are bare integers.
func (f *DashboardFlowImpl) ExportCSV(ctx context.Context, req *dto.ListUTMLinksRequest) (string, []byte, error) {
	rows, err := f.exportRows(ctx, req)
	if err != nil {
		return "", nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(strings.Join(ExportHeaders, ","))
	for _, row := range rows {
		buf.WriteByte('\n')
		for i, cell := range row {
			if i > 0 {
				buf.WriteByte(',')
			}
			if numericExportColumns[i] {
				buf.WriteString(cell)
				continue
			}
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(cell, `"`, `""`))
			buf.WriteByte('"')
		}
	}

	filename := fmt.Sprintf("utm-links-%s.csv", f.now().UTC().Format("2006-01-02"))
	return filename, buf.Bytes(), nil
}

func (f *DashboardFlowImpl) ExportXLSX(ctx context.Context, req *dto.ListUTMLinksRequest) (string, []byte, error) {
	rows, err := f.exportRows(ctx, req)
	if err != nil {
		return "", nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()
	xl.SetSheetName(xl.GetSheetName(0), exportSheetName)

	header := make([]any, len(ExportHeaders))
	for i, h := range ExportHeaders {
		header[i] = h
	}
	if err := xl.SetSheetRow(exportSheetName, "A1", &header); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel header", err)
	}

	for ri, row := range rows {
		record := make([]any, len(row))
		for i, cell := range row {
			if numericExportColumns[i] {
				n, _ := strconv.ParseInt(cell, 10, 64)
				record[i] = n
				continue
			}
			record[i] = cell
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		if err := xl.SetSheetRow(exportSheetName, cellRef, &record); err != nil {
			return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel row", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	filename := fmt.Sprintf("utm-links-%s.xlsx", f.now().UTC().Format("2006-01-02"))
	return filename, buf.Bytes(), nil
}

// exportRows loads every record matching the dashboard filters, ignoring pagination
func (f *DashboardFlowImpl) exportRows(ctx context.Context, req *dto.ListUTMLinksRequest) ([][]string, error) {
	filter := dashboardFilter(req)
	order := dashboardOrder(req.OrderBy) + ", id ASC"

	var links []*models.UTMLink
	for offset := 0; ; offset += exportChunkSize {
		chunk, err := f.linkRepo.ByFilter(ctx, filter, order, exportChunkSize, offset)
		if err != nil {
			return nil, NewBusinessError("EXPORT_UTM_LINKS_FAILED", "Failed to load UTM links for export", err)
		}
		links = append(links, chunk...)
		if len(chunk) < exportChunkSize {
			break
		}
	}

	emails := f.ownerEmails(ctx, links)
	rows := make([][]string, 0, len(links))
	for _, l := range links {
		rows = append(rows, []string{
			l.FullURL,
			l.ShortURL,
			l.TrackingURL,
			strconv.FormatInt(l.Clicks, 10),
			strconv.FormatInt(l.UniqueClicks, 10),
			l.Program,
			l.Channel,
			l.Platform,
			l.Placement,
			ownerEmail(l, emails),
			l.UTMSource,
			l.UTMMedium,
			l.UTMCampaign,
			utils.Deref(l.CBA),
			utils.Deref(l.Code),
			utils.Deref(l.Domain),
			string(l.Source),
			string(l.ProvisioningStatus),
			l.CreatedAt.UTC().Format("2006-01-02"),
		})
	}
	f.logger.Debug("Prepared UTM link export", zap.Int("rows", len(rows)))
	return rows, nil
}

// ownerEmails resolves the user ids of records that carry no email of their own
func (f *DashboardFlowImpl) ownerEmails(ctx context.Context, links []*models.UTMLink) map[string]string {
	if f.emails == nil {
		return nil
	}
	ids := make([]string, 0)
	for _, l := range links {
		if l.UserID != nil && utils.Deref(l.Email) == "" {
			ids = append(ids, l.UserID.String())
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return f.emails.ResolveEmails(ctx, ids)
}

func ownerEmail(l *models.UTMLink, resolved map[string]string) string {
	if e := utils.Deref(l.Email); e != "" {
		return e
	}
	if l.UserID != nil {
		return resolved[l.UserID.String()]
	}
	return ""
}

func (f *DashboardFlowImpl) Catalog() *dto.CatalogResponse {
	return &dto.CatalogResponse{
		Programs:     models.Programs,
		Channels:     models.Channels,
		Platforms:    models.Platforms,
		ChannelKeys:  models.ChannelKeys,
		PlatformKeys: models.PlatformKeys,
		Placements:   models.PlatformPlacements,
		LandingPages: models.LandingPages,
	}
}

func normalizePagination(page, limit int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = defaultPageSize
	}
	if page < 1 {
		return 0, 0, ErrInvalidPage
	}
	if limit < 1 || limit > maxPageSize {
		return 0, 0, ErrInvalidPageSize
	}
	return page, limit, nil
}

// dashboardFilter maps query values to a store filter; "all" and empty mean unfiltered
func dashboardFilter(req *dto.ListUTMLinksRequest) models.UTMLinkFilter {
	var filter models.UTMLinkFilter
	if s := strings.TrimSpace(req.Search); s != "" {
		filter.Search = &s
	}
	filter.Program = filterValue(req.Program)
	filter.Channel = filterValue(req.Channel)
	filter.Platform = filterValue(req.Platform)
	if v := filterValue(req.Source); v != nil {
		src := models.UTMLinkSource(*v)
		filter.Source = &src
	}
	if v := filterValue(req.Status); v != nil {
		status := models.ProvisioningStatus(*v)
		filter.ProvisioningStatus = &status
	}
	return filter
}

func filterValue(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "all") {
		return nil
	}
	return &v
}

func dashboardOrder(orderBy string) string {
	switch orderBy {
	case "oldest":
		return "created_at ASC"
	case "clicks":
		return "clicks DESC, created_at DESC"
	default:
		return "created_at DESC"
	}
}
