// Package excel exports the milestone and installment schedule as a workbook.
package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/thinhlal/mutrapro-system-sub005/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(agg *model.ContractAggregate) ([]byte, error) {
	file := excelize.NewFile()

	summarySheet := "Summary"
	file.SetSheetName("Sheet1", summarySheet)
	if err := g.writeSummary(file, summarySheet, agg); err != nil {
		return nil, err
	}

	milestoneSheet := "Milestones"
	file.NewSheet(milestoneSheet)
	if err := g.writeMilestones(file, milestoneSheet, agg); err != nil {
		return nil, err
	}

	installmentSheet := "Installments"
	file.NewSheet(installmentSheet)
	if err := g.writeInstallments(file, installmentSheet, agg); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, agg *model.ContractAggregate) error {
	c := agg.Contract

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Contract number")
	set("B1", c.ContractNumber)
	set("A2", "Type")
	set("B2", string(c.ContractType))
	set("A3", "Status")
	set("B3", string(c.Status))
	set("A4", "Total price")
	set("B4", c.TotalPrice)
	set("A5", "Currency")
	set("B5", c.Currency)
	set("A6", "Deposit percent")
	set("B6", c.DepositPercent)
	set("A7", "SLA days")
	set("B7", c.SLADays)
	if c.ExpectedStartDate != nil {
		set("A8", "Work started")
		set("B8", c.ExpectedStartDate.Format("2006-01-02"))
	}
	return nil
}

func (g *Generator) writeMilestones(file *excelize.File, sheet string, agg *model.ContractAggregate) error {
	headers := []string{"Order", "Name", "Type", "Payment %", "SLA days", "Planned start", "Planned due", "Work status"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}

	for row := range agg.Milestones {
		m := &agg.Milestones[row]
		values := []interface{}{
			m.OrderIndex,
			m.Name,
			string(m.MilestoneType),
			m.PaymentPercent,
			m.SLADays,
			formatTime(m.PlannedStartAt),
			formatTime(m.PlannedDueDate),
			string(m.WorkStatus),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Generator) writeInstallments(file *excelize.File, sheet string, agg *model.ContractAggregate) error {
	headers := []string{"Type", "Percent", "Amount", "Currency", "Status", "Due", "Paid at"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}

	for row := range agg.Installments {
		in := &agg.Installments[row]
		values := []interface{}{
			string(in.Type),
			in.Percent,
			in.Amount,
			in.Currency,
			string(in.Status),
			formatTime(in.DueDate),
			formatTime(in.PaidAt),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	totalCell := fmt.Sprintf("C%d", len(agg.Installments)+3)
	var total int64
	for i := range agg.Installments {
		total += agg.Installments[i].Amount
	}
	return file.SetCellValue(sheet, totalCell, total)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
