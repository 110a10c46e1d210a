package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/isp-support/internal/domain"
	apperrors "github.com/spec-kit/isp-support/pkg/util/errorutil"
)

// ExportFormat selects the export encoding.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

const exportTimeLayout = "2006-01-02 15:04:05"

// ExportColumns is the fixed column order of ticket exports.
var ExportColumns = []string{
	"Ticket Number",
	"Customer Name",
	"Account Number",
	"Subject",
	"Type",
	"Priority",
	"Category",
	"Status",
	"Assigned To",
	"Created At",
	"Resolved At",
}

// Export is an encoded ticket export ready to be streamed.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Export renders every live ticket, optionally restricted to one status.
func (s *TicketService) Export(ctx context.Context, format ExportFormat, status *domain.TicketStatus) (*Export, error) {
	if format == "" {
		format = ExportCSV
	}
	if format != ExportCSV && format != ExportXLSX {
		return nil, apperrors.NewFieldError("format", "format must be csv or xlsx")
	}
	if status != nil {
		if _, ok := domain.ParseTicketStatus(string(*status)); !ok {
			return nil, apperrors.NewFieldError("status", "status is invalid")
		}
	}

	tickets, err := s.repos.Tickets.ListAll(ctx, status)
	if err != nil {
		return nil, failure(s.logger, "export tickets", err)
	}
	rows := make([][]string, 0, len(tickets))
	for i := range tickets {
		rows = append(rows, s.exportRow(&tickets[i]))
	}

	stamp := s.now().In(s.location).Format("2006-01-02_150405")
	switch format {
	case ExportXLSX:
		body, err := encodeXLSX(rows)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		return &Export{
			Filename:    fmt.Sprintf("tickets_%s.xlsx", stamp),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Body:        body,
		}, nil
	default:
		body, err := encodeCSV(rows)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		return &Export{
			Filename:    fmt.Sprintf("tickets_%s.csv", stamp),
			ContentType: "text/csv",
			Body:        body,
		}, nil
	}
}

func (s *TicketService) exportRow(t *domain.Ticket) []string {
	assigned := ""
	if t.AssignedTo != nil {
		assigned = *t.AssignedTo
	}
	resolved := ""
	if t.ResolvedAt != nil {
		resolved = s.formatTime(*t.ResolvedAt)
	}
	return []string{
		t.TicketNumber,
		t.CustomerName,
		t.AccountNumber,
		t.Subject,
		string(t.TicketType),
		string(t.Priority),
		string(t.Category),
		string(t.Status),
		assigned,
		s.formatTime(t.CreatedAt),
		resolved,
	}
}

func (s *TicketService) formatTime(t time.Time) string {
	return t.In(s.location).Format(exportTimeLayout)
}

func encodeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ExportColumns); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Tickets"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	for i, col := range ExportColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, cell, cell, header); err != nil {
			return nil, err
		}
	}
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}
	for i := range ExportColumns {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, col, col, 18); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
