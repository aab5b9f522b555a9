// Package pdf renders contract statements. Read-only consumer of aggregate snapshots;
// there is no write path back into the workflow engine.
package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/thinhlal/mutrapro-system-sub005/internal/model"
)

type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

func (g *Generator) Generate(agg *model.ContractAggregate) ([]byte, error) {
	c := agg.Contract

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, "Service Contract Statement", "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Contract %s — %s", c.ContractNumber, c.ContractType), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Status: %s", c.Status), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Terms", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	lines := []string{
		fmt.Sprintf("Total price: %s %s", formatAmount(c.TotalPrice, c.Currency), c.Currency),
		fmt.Sprintf("Deposit: %d%%", c.DepositPercent),
		fmt.Sprintf("Turnaround: %d SLA days", c.SLADays),
		fmt.Sprintf("Free revisions included: %d", c.FreeRevisions),
		fmt.Sprintf("Signed: %s", formatDate(c.SignedAt)),
		fmt.Sprintf("Work started: %s", formatDate(c.ExpectedStartDate)),
	}
	for _, line := range lines {
		pdf.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Milestones", "", 1, "L", false, 0, "")
	headers := []string{"#", "Name", "Share", "SLA", "Due", "Status"}
	widths := []float64{10, 70, 18, 15, 30, 37}
	g.drawTableRow(pdf, headers, widths, true)
	for i := range agg.Milestones {
		m := &agg.Milestones[i]
		row := []string{
			strconv.Itoa(m.OrderIndex),
			m.Name,
			fmt.Sprintf("%d%%", m.PaymentPercent),
			strconv.Itoa(m.SLADays),
			formatDate(m.PlannedDueDate),
			string(m.WorkStatus),
		}
		g.drawTableRow(pdf, row, widths, false)
	}
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Payment schedule", "", 1, "L", false, 0, "")
	headers = []string{"Type", "Share", "Amount", "Status", "Paid"}
	widths = []float64{35, 18, 45, 30, 52}
	g.drawTableRow(pdf, headers, widths, true)
	var total int64
	for i := range agg.Installments {
		in := &agg.Installments[i]
		total += in.Amount
		row := []string{
			string(in.Type),
			fmt.Sprintf("%d%%", in.Percent),
			fmt.Sprintf("%s %s", formatAmount(in.Amount, in.Currency), in.Currency),
			string(in.Status),
			formatDate(in.PaidAt),
		}
		g.drawTableRow(pdf, row, widths, false)
	}

	pdf.Ln(2)
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total: %s %s", formatAmount(total, c.Currency), c.Currency), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) drawTableRow(pdf *gofpdf.Fpdf, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(g.fontName, style, 9)
	for i, col := range cols {
		align := "L"
		if i > 1 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 7, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

// formatAmount renders a minor-unit amount with the currency's decimal places and
// thousands separators.
func formatAmount(amount int64, currency string) string {
	digits := model.MinorUnitDigits(currency)
	negative := amount < 0
	if negative {
		amount = -amount
	}

	divisor := int64(1)
	for i := 0; i < digits; i++ {
		divisor *= 10
	}
	whole := amount / divisor
	frac := amount % divisor

	wholeStr := strconv.FormatInt(whole, 10)
	var parts []string
	for len(wholeStr) > 3 {
		parts = append([]string{wholeStr[len(wholeStr)-3:]}, parts...)
		wholeStr = wholeStr[:len(wholeStr)-3]
	}
	parts = append([]string{wholeStr}, parts...)
	result := strings.Join(parts, ",")

	if digits > 0 {
		result = fmt.Sprintf("%s.%0*d", result, digits, frac)
	}
	if negative {
		result = "-" + result
	}
	return result
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "—"
	}
	return t.Format("02.01.2006")
}
