package render

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// PDFRenderer composes a resume PDF from profile data. Each Render call builds
// its own fpdf document, so the rendering state never outlives the call.
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render produces an A4 resume: name and email header, headline, skills,
// experience entries, and the user's recent applications.
func (r *PDFRenderer) Render(input Input) ([]byte, error) {
	if input.User == nil {
		return nil, fmt.Errorf("%w: missing user", ErrRenderFailed)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Resume", false)
	pdf.SetCreationDate(input.GeneratedAt.UTC())
	pdf.SetModificationDate(input.GeneratedAt.UTC())
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	name := input.User.Name
	if name == "" {
		name = "Unnamed"
	}
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 12, name, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(0, 6, input.User.Email, "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	if input.Profile != nil && input.Profile.Headline != "" {
		r.sectionTitle(pdf, "Headline")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, input.Profile.Headline, "", "L", false)
	}

	if input.Profile != nil && len(input.Profile.Skills) > 0 {
		r.sectionTitle(pdf, "Skills")
		pdf.SetFont("Helvetica", "", 11)
		for _, skill := range input.Profile.Skills {
			pdf.CellFormat(0, 6, "- "+skill, "", 1, "L", false, 0, "")
		}
	}

	if input.Profile != nil && len(input.Profile.Experience) > 0 {
		r.sectionTitle(pdf, "Experience")
		for _, exp := range input.Profile.Experience {
			pdf.SetFont("Helvetica", "B", 11)
			pdf.CellFormat(0, 6, exp.Role, "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 11)
			pdf.CellFormat(0, 6, exp.Company, "", 1, "L", false, 0, "")
			pdf.Ln(2)
		}
	}

	if len(input.RecentApplications) > 0 {
		r.sectionTitle(pdf, "Recent applications")
		pdf.SetFont("Helvetica", "", 11)
		for _, app := range input.RecentApplications {
			line := fmt.Sprintf("%s - %s (%s)", app.JobTitle, app.Company, app.CreatedAt.Format("Jan 2, 2006"))
			pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
		}
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(140, 140, 140)
	pdf.CellFormat(0, 5, "Generated "+input.GeneratedAt.UTC().Format("Jan 2, 2006 15:04 UTC"), "", 1, "L", false, 0, "")

	if pdf.Err() {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) sectionTitle(pdf *fpdf.Fpdf, title string) {
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}
