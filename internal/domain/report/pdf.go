package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// RenderPDF renders the report view to a PDF document.
func RenderPDF(view View) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Performance Review")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", view.EmployeeName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Manager: %s", view.ManagerName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Generated: %s", view.GeneratedAt.Format("2006-01-02")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Objectives")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 11)
	for _, obj := range view.Objectives {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 7, fmt.Sprintf("%s (weight %.0f%%, progress %d%%)", obj.Title, obj.Weight, obj.Progress))
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 11)
		if obj.EmployeeRating > 0 || obj.ManagerRating > 0 {
			pdf.Cell(0, 6, fmt.Sprintf("  Ratings: employee %s, manager %s",
				ratingText(obj.EmployeeRating), ratingText(obj.ManagerRating)))
			pdf.Ln(6)
		}
		for _, kr := range obj.KeyResults {
			pdf.Cell(0, 6, fmt.Sprintf("  - %s: %.1f / %.1f %s (%d%%)",
				kr.Name, kr.Actual, kr.Target, kr.Unit, kr.Achievement))
			pdf.Ln(6)
		}
		pdf.Ln(2)
	}

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Competencies")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 11)
	for _, comp := range view.Competencies {
		pdf.Cell(0, 6, fmt.Sprintf("%s: employee %s, manager %s",
			comp.Name, ratingText(float64(comp.EmployeeRating)), ratingText(float64(comp.ManagerRating))))
		pdf.Ln(6)
		if comp.EmployeeComment != "" {
			pdf.MultiCell(0, 6, fmt.Sprintf("  Employee: %s", comp.EmployeeComment), "", "L", false)
		}
		if comp.ManagerComment != "" {
			pdf.MultiCell(0, 6, fmt.Sprintf("  Manager: %s", comp.ManagerComment), "", "L", false)
		}
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Total achievement: %.0f%%", view.TotalAchievement))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("OKR score: %.2f", view.OKRScore))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Competency score: %.2f", view.CompetencyScore))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Overall score: %.2f", view.OverallScore))
	pdf.Ln(8)

	for _, section := range []struct {
		title string
		body  string
	}{
		{"Key Accomplishments", view.Accomplishments},
		{"Next Quarter Plan", view.NextQuarterPlan},
		{"Manager Comments", view.ManagerComments},
	} {
		if section.body == "" {
			continue
		}
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, section.title)
		pdf.Ln(7)
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, section.body, "", "L", false)
		pdf.Ln(2)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ratingText(rating float64) string {
	if rating <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", rating)
}
