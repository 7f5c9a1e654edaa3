package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
)

const (
	exportTimeFormat = "2006-01-02 15:04:05"
	maxExportEvents  = 10000
)

// ReportExportService renders stored monitoring results for recruiters
type ReportExportService interface {
	ExportReportExcel(ctx context.Context, interviewID uint) ([]byte, error)
	ExportEventsCSV(ctx context.Context, interviewID uint) ([]byte, error)
}

type reportExportService struct {
	proctoring ProctoringService
	repo       repositories.Repository
	logger     *slog.Logger
}

func NewReportExportService(proctoring ProctoringService, repo repositories.Repository, logger *slog.Logger) ReportExportService {
	return &reportExportService{
		proctoring: proctoring,
		repo:       repo,
		logger:     logger,
	}
}

func (s *reportExportService) ExportReportExcel(ctx context.Context, interviewID uint) ([]byte, error) {
	report, err := s.proctoring.GetReport(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	events, err := s.storedEvents(ctx, interviewID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Interview ID", report.InterviewID},
		{"Started At", report.StartedAt.Format(exportTimeFormat)},
		{"Ended At", report.EndedAt.Format(exportTimeFormat)},
		{"Duration (seconds)", report.DurationSeconds},
		{"Frames Analyzed", report.TotalFramesAnalyzed},
		{"Total Detections", report.TotalDetections},
		{"Total Warnings", report.TotalWarnings},
		{"Final Risk Score", report.FinalRiskScore},
		{"Risk Level", string(report.RiskLevel)},
		{"Avg Processing Time (ms)", report.AvgProcessingTimeMs},
		{"Degraded Frames", report.DegradedFrames},
	}
	if report.Summary != "" {
		summary = append(summary, []interface{}{"Summary", report.Summary})
	}
	if err := writeSheet(f, "Summary", []string{"Field", "Value"}, summary); err != nil {
		return nil, err
	}

	breakdown := make([][]interface{}, 0, len(report.AlertLevelBreakdown)+len(report.DetectionBreakdown))
	for _, sev := range models.Severities {
		breakdown = append(breakdown, []interface{}{"alert_level", string(sev), report.AlertLevelBreakdown[sev]})
	}
	for _, kind := range sortedKeys(report.DetectionBreakdown) {
		breakdown = append(breakdown, []interface{}{"detection_type", kind, report.DetectionBreakdown[kind]})
	}
	if err := writeSheet(f, "Breakdown", []string{"Group", "Key", "Count"}, breakdown); err != nil {
		return nil, err
	}

	critical := make([][]interface{}, 0, len(report.CriticalEvents))
	for _, d := range report.CriticalEvents {
		critical = append(critical, []interface{}{
			d.Timestamp.Format(exportTimeFormat), d.Type(), string(d.Severity), d.Confidence, d.Message, derefString(d.Screenshot),
		})
	}
	if err := writeSheet(f, "Critical Events", []string{"Time", "Type", "Severity", "Confidence", "Message", "Screenshot"}, critical); err != nil {
		return nil, err
	}

	rows := make([][]interface{}, 0, len(events))
	for _, e := range events {
		rows = append(rows, eventRow(e))
	}
	if err := writeSheet(f, "Warnings", eventHeaders, rows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Monitoring report exported",
		"interview_id", interviewID,
		"format", "xlsx",
		"events", len(events))

	return buf.Bytes(), nil
}

func (s *reportExportService) ExportEventsCSV(ctx context.Context, interviewID uint) ([]byte, error) {
	exists, err := s.repo.Interview().Exists(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrInterviewNotFound
	}
	events, err := s.storedEvents(ctx, interviewID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(eventHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, e := range events {
		row := eventRow(e)
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = fmt.Sprint(v)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	return buf.Bytes(), nil
}

func (s *reportExportService) storedEvents(ctx context.Context, interviewID uint) ([]*models.ProctoringEvent, error) {
	events, _, err := s.repo.ProctoringEvent().ListByInterview(ctx, interviewID, repositories.ProctoringEventFilters{
		Limit:     maxExportEvents,
		SortOrder: "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get proctoring events: %w", err)
	}
	return events, nil
}

var eventHeaders = []string{
	"Event ID", "Detected At", "Offset (s)", "Frame", "Type", "Severity",
	"Confidence", "Message", "Screenshot", "Review Status", "Reviewed By",
}

func eventRow(e *models.ProctoringEvent) []interface{} {
	return []interface{}{
		e.ID,
		e.DetectedAt.Format(exportTimeFormat),
		e.TimeOffset,
		e.FrameNumber,
		e.Type,
		string(e.Severity),
		strconv.FormatFloat(e.Confidence, 'f', 2, 64),
		e.Message,
		derefString(e.ScreenshotURL),
		string(e.ReviewStatus),
		derefString(e.ReviewedBy),
	}
}

func writeSheet(f *excelize.File, sheetName string, headers []string, rows [][]interface{}) error {
	if idx, _ := f.GetSheetIndex(sheetName); idx < 0 {
		if _, err := f.NewSheet(sheetName); err != nil {
			return fmt.Errorf("failed to create Excel sheet: %w", err)
		}
	}

	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
	}

	for rowIndex, row := range rows {
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ExportFileName is the download name of an export, e.g. interview_7_proctoring_20250901.xlsx
func ExportFileName(interviewID uint, ext string, now time.Time) string {
	return fmt.Sprintf("interview_%d_proctoring_%s.%s", interviewID, now.Format("20060102"), ext)
}
