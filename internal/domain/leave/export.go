package leave

import (
	"context"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"leaveflow/internal/domain/directory"
)

// WriteRecord renders the approval record of a request the viewer may see as a PDF.
func (s *Service) WriteRecord(ctx context.Context, requestID, viewerID string, w io.Writer) error {
	detail, err := s.Get(ctx, requestID, viewerID)
	if err != nil {
		return err
	}

	names := map[string]string{}
	resolve := func(id string) {
		if id == "" {
			return
		}
		if _, ok := names[id]; ok {
			return
		}
		user, err := s.Directory.GetUser(ctx, id)
		if err != nil {
			names[id] = id
			return
		}
		names[id] = displayName(user)
	}
	resolve(detail.ApplicantID)
	resolve(detail.CurrentApproverID)
	for _, entry := range detail.History {
		resolve(entry.ApproverID)
	}
	return RenderRecord(w, detail, names, s.RecordFont)
}

// RenderRecord writes detail as a one page PDF. names maps user IDs to display names;
// unknown IDs are printed as-is. fontPath names a UTF-8 TrueType font for text outside
// cp1252. Without it the core Helvetica font is used and such runes print as '.'.
func RenderRecord(w io.Writer, detail Detail, names map[string]string, fontPath string) error {
	name := func(id string) string {
		if n, ok := names[id]; ok && n != "" {
			return n
		}
		return id
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	family, text := recordFont(pdf, fontPath)
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("load record font: %w", err)
	}
	pdf.SetTitle("Leave approval record "+detail.ID, true)
	pdf.AddPage()
	pdf.SetFont(family, "B", 16)
	pdf.Cell(40, 10, "Leave approval record")
	pdf.Ln(12)

	pdf.SetFont(family, "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Request: %s", detail.ID))
	pdf.Ln(7)
	pdf.Cell(0, 8, text(fmt.Sprintf("Applicant: %s", name(detail.ApplicantID))))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Type: %s", detail.LeaveType))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s to %s (%d days)",
		detail.StartDate.Format("2006-01-02"), detail.EndDate.Format("2006-01-02"), detail.DurationDays))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", detail.Status))
	pdf.Ln(7)
	if detail.CurrentApproverID != "" {
		pdf.Cell(0, 8, text(fmt.Sprintf("Awaiting: %s", name(detail.CurrentApproverID))))
		pdf.Ln(7)
	}
	pdf.MultiCell(0, 7, text(fmt.Sprintf("Reason: %s", detail.Reason)), "", "L", false)
	pdf.Ln(5)

	pdf.SetFont(family, "B", 12)
	pdf.Cell(0, 8, "Decisions")
	pdf.Ln(8)
	pdf.SetFont(family, "", 10)
	if len(detail.History) == 0 {
		pdf.Cell(0, 6, "No decisions recorded.")
		pdf.Ln(6)
	}
	for _, entry := range detail.History {
		line := fmt.Sprintf("%s  %s  %s", entry.Timestamp.UTC().Format("2006-01-02 15:04:05"), entry.Decision, name(entry.ApproverID))
		pdf.Cell(0, 6, text(line))
		pdf.Ln(6)
		if entry.Comments != "" {
			pdf.SetX(20)
			pdf.MultiCell(0, 5, text(entry.Comments), "", "L", false)
		}
	}

	return pdf.Output(w)
}

const recordFontFamily = "record"

// recordFont registers the font used for the record and returns its family with the
// text encoder that font expects.
func recordFont(pdf *gofpdf.Fpdf, fontPath string) (string, func(string) string) {
	if fontPath == "" {
		return "Helvetica", pdf.UnicodeTranslatorFromDescriptor("")
	}
	pdf.AddUTF8Font(recordFontFamily, "", fontPath)
	pdf.AddUTF8Font(recordFontFamily, "B", fontPath)
	return recordFontFamily, func(s string) string { return s }
}

func displayName(u directory.User) string {
	if u.FullName != "" {
		return u.FullName
	}
	if u.Username != "" {
		return u.Username
	}
	return u.ID
}
