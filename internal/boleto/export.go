package boleto

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Boletos"

var exportHeader = []any{"ID", "Arquivo", "Cliente", "Vencimento", "Valor", "CPF/CNPJ", "Criado em"}

// Export writes every stored document as a row of an XLSX workbook
func (s *Service) Export(w io.Writer) error {
	docs, err := s.db.ListDocuments()
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	return WriteWorkbook(w, docs)
}

// WriteWorkbook renders docs into a single-sheet workbook
func WriteWorkbook(w io.Writer, docs []*Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	if err := f.SetCellStyle(exportSheet, "A1", "G1", bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	if err := f.SetColWidth(exportSheet, "A", "G", 22); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	for i, d := range docs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			d.ID,
			d.Original,
			d.Fields.Customer,
			d.Fields.DueDate,
			d.Fields.Amount,
			d.Fields.TaxID,
			d.CreatedAt.Format("02/01/2006 15:04"),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
