package service_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/orderdesk/internal/domain"
	"github.com/nikolayk812/orderdesk/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const csvHeader = "order_number,customer_name,customer_email,items,total_amount,currency,status,payment_status,created_at\n"

func TestExportHeaderOnly(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	result, err := f.exporter.Export(context.Background(), domain.OrderFilter{DateRange: domain.DateRangeToday}, service.ExportFormatCSV, &buf)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Rows)
	assert.Equal(t, csvHeader, buf.String())
}

func TestExportRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	n := domain.NewOrder{
		Customer: domain.Customer{ID: "c1", Name: "=HYPERLINK(\"x\")", Email: "priya@example.com"},
		Items: []domain.LineItem{
			{ProductID: uuid.New(), ProductName: "Kurta, cotton", UnitPrice: domain.MoneyFromMinor(79_900, inr), Quantity: 2},
			{ProductID: uuid.New(), ProductName: "Scarf", UnitPrice: domain.MoneyFromMinor(25_000, inr), Quantity: 1},
		},
	}
	first, err := f.store.Create(ctx, n, "checkout")
	require.NoError(t, err)
	f.advance(t, first.ID, domain.OrderStatusConfirmed)

	f.clock.Advance(time.Second)
	second := f.create(t)

	tests := []struct {
		name   string
		format service.ExportFormat
		comma  rune
	}{
		{name: "csv", format: service.ExportFormatCSV, comma: ','},
		{name: "tsv", format: service.ExportFormatTSV, comma: '\t'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			result, err := f.exporter.Export(ctx, domain.OrderFilter{}, tt.format, &buf)
			require.NoError(t, err)
			assert.Equal(t, 2, result.Rows)
			assert.Equal(t, tt.format, result.Format)

			r := csv.NewReader(&buf)
			r.Comma = tt.comma
			records, err := r.ReadAll()
			require.NoError(t, err)
			require.Len(t, records, 3)

			assert.Equal(t, second.Number, records[1][0])
			assert.Equal(t, []string{
				first.Number,
				"'=HYPERLINK(\"x\")",
				"priya@example.com",
				"Kurta, cotton x2; Scarf x1",
				"1848.00",
				"INR",
				"confirmed",
				"pending",
				"2026-05-20T12:00:00Z",
			}, records[2])
		})
	}
}

func TestExportFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	keep := f.create(t)
	f.advance(t, keep.ID, domain.OrderStatusCancelled)
	f.create(t)

	var buf bytes.Buffer
	status := domain.OrderStatusCancelled
	result, err := f.exporter.Export(ctx, domain.OrderFilter{Status: &status}, service.ExportFormatCSV, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
	assert.Contains(t, buf.String(), keep.Number)
}

func TestExportInvalidInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name      string
		filter    domain.OrderFilter
		format    service.ExportFormat
		wantError string
	}{
		{name: "format", format: "xlsx", wantError: `invalid format: unknown value "xlsx"`},
		{name: "date range", format: service.ExportFormatCSV, filter: domain.OrderFilter{DateRange: "soon"}, wantError: `invalid date_range: unknown value "soon"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			_, err := f.exporter.Export(context.Background(), tt.filter, tt.format, &buf)
			require.EqualError(t, err, tt.wantError)
			assert.Zero(t, buf.Len())
		})
	}
}

func TestExportCancelled(t *testing.T) {
	f := newFixture(t)
	f.create(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	_, err := f.exporter.Export(ctx, domain.OrderFilter{}, service.ExportFormatCSV, &buf)
	require.ErrorIs(t, err, context.Canceled)
}

func TestToExportFormat(t *testing.T) {
	got, err := service.ToExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, service.ExportFormatCSV, got)

	got, err = service.ToExportFormat("TSV")
	require.NoError(t, err)
	assert.Equal(t, service.ExportFormatTSV, got)
	assert.Equal(t, "text/tab-separated-values; charset=utf-8", got.ContentType())
}
