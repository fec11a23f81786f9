package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/saos/service-desk/internal/domain"
	"github.com/saos/service-desk/internal/repository"
	apperrors "github.com/saos/service-desk/pkg/util/errorutil"
)

const (
	reportSheet    = "Solicitações"
	reportMaxRows  = 10000
	reportDateTime = "02/01/2006 15:04"
)

var reportHeaders = []any{
	"Código", "Título", "Cliente", "Categoria", "Prioridade", "Status",
	"Técnico", "Criada em", "Prazo", "Resolvida em", "Fechada em",
}

// RequestLister is the read side ReportService needs.
type RequestLister interface {
	List(ctx context.Context, filter repository.RequestFilter) ([]domain.RequestDetail, error)
}

// ReportService exports request listings as spreadsheets.
type ReportService struct {
	requests RequestLister
	loc      *time.Location
	logger   *zap.Logger
	clock    Clock
}

// ReportDependencies bundles collaborators for exports.
type ReportDependencies struct {
	Requests RequestLister
	Location *time.Location
	Logger   *zap.Logger
	Clock    Clock
}

// Report is a rendered export.
type Report struct {
	FileName string
	Content  []byte
	Rows     int
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{requests: deps.Requests, loc: loc, logger: nopIfNil(deps.Logger), clock: deps.Clock}
}

// ExportRequests builds an XLSX workbook with one row per matching request.
func (s *ReportService) ExportRequests(ctx context.Context, filter repository.RequestFilter) (*Report, error) {
	if filter.Limit <= 0 || filter.Limit > reportMaxRows {
		filter.Limit = reportMaxRows
	}
	items, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := f.SetSheetRow(reportSheet, "A1", &reportHeaders); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(reportSheet, "A1", "K1", style)
	}

	for i := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		row := s.row(&items[i])
		if err := f.SetSheetRow(reportSheet, cell, &row); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}
	_ = f.SetColWidth(reportSheet, "A", "A", 16)
	_ = f.SetColWidth(reportSheet, "B", "B", 40)
	_ = f.SetColWidth(reportSheet, "C", "G", 22)
	_ = f.SetColWidth(reportSheet, "H", "K", 18)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := s.clock.now().In(s.loc)
	s.logger.Info("requests exported", zap.Int("rows", len(items)))
	return &Report{
		FileName: fmt.Sprintf("solicitacoes_%s.xlsx", now.Format("2006-01-02")),
		Content:  buf.Bytes(),
		Rows:     len(items),
	}, nil
}

func (s *ReportService) row(d *domain.RequestDetail) []any {
	return []any{
		d.ReferenceCode,
		d.Title,
		d.ClientName,
		d.CategoryName,
		d.PriorityName,
		d.StatusName,
		valueOr(d.TechnicianName, "-"),
		d.CreatedAt.In(s.loc).Format(reportDateTime),
		s.format(d.ResolutionDeadline),
		s.format(d.ResolvedAt),
		s.format(d.ClosedAt),
	}
}

func (s *ReportService) format(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.In(s.loc).Format(reportDateTime)
}
