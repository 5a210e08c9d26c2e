package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/uns-cex/matricula-api/internal/models"
	"github.com/uns-cex/matricula-api/pkg/config"
)

// ConstanciaRenderer produces the enrollment certificate PDF handed to
// guardians once a record is completed.
type ConstanciaRenderer struct {
	school config.SchoolConfig
}

// NewConstanciaRenderer constructs the renderer.
func NewConstanciaRenderer(school config.SchoolConfig) *ConstanciaRenderer {
	return &ConstanciaRenderer{school: school}
}

// Render lays out the constancia for a completed enrollment record.
func (r *ConstanciaRenderer) Render(detail models.EnrollmentDetail) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 8, tr(strings.ToUpper(r.school.Name)), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, tr(r.school.Address), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Arial", "BU", 14)
	pdf.CellFormat(0, 8, tr("CONSTANCIA DE MATRÍCULA"), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, tr("Por medio del presente documento, se hace constar que el estudiante:"), "", "L", false)
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 7, tr(detail.StudentName), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "", 11)
	rows := [][2]string{
		{"DNI", detail.StudentNationalID},
		{"Nivel", string(detail.Level)},
		{"Grado", detail.Grade},
		{"Turno", string(detail.Shift)},
		{"Año Académico", detail.AcademicYear},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		pdf.CellFormat(50, 6, tr(row[0]+":"), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.MultiCell(0, 6, tr(fmt.Sprintf(
		"Se encuentra matriculado en esta institución educativa para el año académico %s.",
		detail.AcademicYear)), "", "L", false)
	pdf.Ln(4)

	if detail.GuardianName != nil && *detail.GuardianName != "" {
		pdf.CellFormat(50, 6, tr("Apoderado:"), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(*detail.GuardianName), "", 1, "L", false, 0, "")
		if detail.GuardianNationalID != nil && *detail.GuardianNationalID != "" {
			pdf.CellFormat(50, 6, tr("DNI Apoderado:"), "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, tr(*detail.GuardianNationalID), "", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}

	pdf.CellFormat(50, 6, tr("Pensión Referencial:"), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("S/ %.2f", detail.FeeAmount)), "", 1, "L", false, 0, "")
	pdf.Ln(10)

	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s, %s", r.school.City, time.Now().Format("02/01/2006"))), "", 1, "L", false, 0, "")
	pdf.Ln(20)

	pdf.CellFormat(0, 6, "_________________________", "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, tr("SECRETARÍA ACADÉMICA"), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, tr(r.school.Name), "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render constancia: %w", err)
	}
	return buf.Bytes(), nil
}
