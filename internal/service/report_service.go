package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/shift-roster-api/internal/models"
	appErrors "github.com/noah-isme/shift-roster-api/pkg/errors"
	"github.com/noah-isme/shift-roster-api/pkg/export"
	"github.com/noah-isme/shift-roster-api/pkg/weekcal"
)

// ReportFormat selects a renderer.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ParseReportFormat accepts "csv" or "pdf" in any case.
func ParseReportFormat(raw string) (ReportFormat, error) {
	switch ReportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case ReportFormatCSV:
		return ReportFormatCSV, nil
	case ReportFormatPDF:
		return ReportFormatPDF, nil
	}
	return "", appErrors.Validation(fmt.Sprintf("unsupported export format %q", raw))
}

// ReportFile is a rendered export.
type ReportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ArchivedReport points at an export kept on disk and a signed token for downloading it.
type ArchivedReport struct {
	Path          string    `json:"path"`
	Filename      string    `json:"filename"`
	DownloadToken string    `json:"download_token"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type reportArchive interface {
	Save(name string, data []byte) (string, error)
}

type downloadSigner interface {
	Generate(path string) (string, time.Time, error)
}

// ReportService turns a week of entries into the matrix consumed by renderers.
type ReportService struct {
	staff   rosterLister
	entries weekEntryLister
	archive reportArchive
	signer  downloadSigner
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewReportService builds the reporting feed. archive and signer may be nil when exports
// are only streamed.
func NewReportService(staff rosterLister, entries weekEntryLister, archive reportArchive, signer downloadSigner, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		staff:   staff,
		entries: entries,
		archive: archive,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// WeekMatrix returns one row per (active staff member, day) of the week containing ref,
// ordered by staff name then day. Days without an entry keep nil fields.
func (s *ReportService) WeekMatrix(ctx context.Context, ref time.Time) ([]models.ReportRow, weekcal.Week, error) {
	week := weekcal.Compute(ref)
	roster, err := s.staff.List(ctx)
	if err != nil {
		return nil, week, appErrors.Persistence(err, "failed to load roster")
	}
	entries, err := s.entries.ListRange(ctx, nil, week.Start, week.End(), "")
	if err != nil {
		return nil, week, appErrors.Persistence(err, "failed to load week entries")
	}
	return BuildMatrix(week, roster, entries), week, nil
}

// BuildMatrix lays entries over the roster x week grid.
func BuildMatrix(week weekcal.Week, roster []models.Staff, entries []models.ScheduleEntry) []models.ReportRow {
	members := append([]models.Staff(nil), roster...)
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].Name != members[j].Name {
			return members[i].Name < members[j].Name
		}
		return members[i].ID < members[j].ID
	})

	byKey := make(map[string]models.ScheduleEntry, len(entries))
	for _, entry := range entries {
		if entry.ScheduleDate == nil || !week.Contains(*entry.ScheduleDate) {
			continue
		}
		byKey[entry.StaffID+"|"+entry.DayOfWeek] = entry
	}

	days := week.Days()
	rows := make([]models.ReportRow, 0, len(members)*len(days))
	for _, member := range members {
		for _, dd := range days {
			row := models.ReportRow{
				StaffID:   member.ID,
				StaffName: member.Name,
				DayOfWeek: dd.Day,
				Date:      weekcal.FormatDate(dd.Date),
			}
			if entry, ok := byKey[member.ID+"|"+dd.Day]; ok {
				working := entry.IsWorking
				row.IsWorking = &working
				row.StartTime = entry.StartTime
				row.EndTime = entry.EndTime
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// Export renders the week containing ref.
func (s *ReportService) Export(ctx context.Context, ref time.Time, format ReportFormat) (*ReportFile, error) {
	rows, week, err := s.WeekMatrix(ctx, ref)
	if err != nil {
		return nil, err
	}

	records := make([]export.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, export.Record{
			Staff:     row.StaffName,
			Day:       row.DayOfWeek,
			Date:      row.Date,
			IsWorking: row.IsWorking,
			StartTime: row.StartTime,
			EndTime:   row.EndTime,
		})
	}

	base := fmt.Sprintf("roster-%s", weekcal.FormatDate(week.Start))
	switch format {
	case ReportFormatCSV:
		data, err := s.csv.Render(records)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ReportFile{Filename: base + ".csv", ContentType: "text/csv", Data: data}, nil
	case ReportFormatPDF:
		columns := make([]export.Column, 0, len(weekcal.DayNames))
		for _, dd := range week.Days() {
			columns = append(columns, export.Column{Day: dd.Day, Date: dd.Date.Format("02 Jan")})
		}
		data, err := s.pdf.Render("Weekly roster "+weekcal.FormatRange(week), columns, records)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ReportFile{Filename: base + ".pdf", ContentType: "application/pdf", Data: data}, nil
	}
	return nil, appErrors.Validation(fmt.Sprintf("unsupported export format %q", format))
}

// Archive renders the week and keeps the file in the export store, returning a signed
// download token.
func (s *ReportService) Archive(ctx context.Context, ref time.Time, format ReportFormat) (*ArchivedReport, error) {
	if s.archive == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export storage is not configured")
	}
	file, err := s.Export(ctx, ref, format)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s/%d-%s", weekcal.FormatDate(weekcal.StartOf(ref)), time.Now().UTC().Unix(), file.Filename)
	path, err := s.archive.Save(name, file.Data)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download")
	}
	s.logger.Info("export archived", zap.String("path", path), zap.String("format", string(format)))
	return &ArchivedReport{Path: path, Filename: file.Filename, DownloadToken: token, ExpiresAt: expiresAt}, nil
}
