package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/nikolayk812/orderdesk/internal/domain"
	"github.com/nikolayk812/orderdesk/internal/port"
)

type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatTSV ExportFormat = "tsv"
)

func ToExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(s)) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatTSV:
		return ExportFormatTSV, nil
	}

	return "", &domain.ValidationError{Field: "format", Reason: fmt.Sprintf("unknown value %q", s)}
}

func (f ExportFormat) ContentType() string {
	if f == ExportFormatTSV {
		return "text/tab-separated-values; charset=utf-8"
	}
	return "text/csv; charset=utf-8"
}

var exportHeader = []string{
	"order_number",
	"customer_name",
	"customer_email",
	"items",
	"total_amount",
	"currency",
	"status",
	"payment_status",
	"created_at",
}

// rows between flushes, so a slow consumer sees data before the export ends
const exportFlushEvery = 100

type ExportResult struct {
	Format ExportFormat
	Rows   int
}

// Exporter streams every order matching a filter, newest first, as
// delimited text. Orders are written one at a time as the repository
// yields them.
type Exporter struct {
	repo   port.OrderRepository
	cfg    Config
	logger *slog.Logger
}

func NewExporter(repo port.OrderRepository, cfg Config, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}

	return &Exporter{repo: repo, cfg: cfg.withDefaults(), logger: logger}
}

// Export writes the header followed by one row per matching order. An empty
// match produces a header-only document.
func (x *Exporter) Export(ctx context.Context, filter domain.OrderFilter, format ExportFormat, w io.Writer) (ExportResult, error) {
	format, err := ToExportFormat(string(format))
	if err != nil {
		return ExportResult{}, err
	}

	criteria, err := filter.Resolve(x.cfg.Clock(), x.cfg.Location)
	if err != nil {
		return ExportResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, x.cfg.ExportTimeout)
	defer cancel()

	cw := csv.NewWriter(w)
	if format == ExportFormatTSV {
		cw.Comma = '\t'
	}

	if err := cw.Write(exportHeader); err != nil {
		return ExportResult{}, fmt.Errorf("cw.Write: %w", err)
	}

	result := ExportResult{Format: format}

	err = x.repo.StreamOrders(ctx, criteria, func(order domain.Order) error {
		if err := cw.Write(x.exportRow(order)); err != nil {
			return fmt.Errorf("cw.Write: %w", err)
		}

		result.Rows++
		if result.Rows%exportFlushEvery == 0 {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return fmt.Errorf("cw.Flush: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return result, repoErr("StreamOrders", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return result, fmt.Errorf("cw.Flush: %w", err)
	}

	x.logger.InfoContext(ctx, "orders exported",
		slog.String("format", string(format)),
		slog.Int("rows", result.Rows))

	return result, nil
}

func (x *Exporter) exportRow(o domain.Order) []string {
	return []string{
		sanitizeCell(o.Number),
		sanitizeCell(o.Customer.Name),
		sanitizeCell(o.Customer.Email),
		sanitizeCell(o.ItemsSummary()),
		o.Total.FixedString(),
		o.Total.Currency.String(),
		string(o.Status),
		string(o.PaymentStatus),
		o.CreatedAt.In(x.cfg.Location).Format(time.RFC3339),
	}
}

// sanitizeCell stops spreadsheet applications from evaluating free text as a
// formula.
func sanitizeCell(s string) string {
	if s == "" {
		return s
	}

	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}

	return s
}
