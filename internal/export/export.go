package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"smartstock/internal/models"
	"smartstock/internal/queue"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Exporter writes failed operations to an Excel file so a supervisor can
// review what did not make it to the remote system.
type Exporter struct {
	queue  *queue.Manager
	path   string
	logger *zerolog.Logger
}

func NewExporter(q *queue.Manager, path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{queue: q, path: path, logger: logger}
}

// FailedOperations creates an xlsx listing every operation whose last
// attempt failed and returns the file path.
func (e *Exporter) FailedOperations(ctx context.Context) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	ops, err := e.queue.GetFailedOperations(ctx)
	if err != nil {
		return "", fmt.Errorf("error getting failed operations: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Failed operations"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"ID", "Type", "Created", "Retries", "Last error", "Payload"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	_ = f.SetCellStyle(sheetName, "A1", "F1", headerStyle)

	for row, op := range ops {
		e.writeOperationRow(f, sheetName, row+2, &op)
	}

	_ = f.SetColWidth(sheetName, "C", "C", 20)
	_ = f.SetColWidth(sheetName, "E", "F", 40)
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("failed_operations_%s.xlsx", time.Now().Format("2006-01-02_150405"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().
		Str("file_path", filePath).
		Int("operations", len(ops)).
		Msg("Excel file created")
	return filePath, nil
}

func (e *Exporter) writeOperationRow(f *excelize.File, sheetName string, row int, op *models.PendingOperation) {
	lastError := ""
	if op.LastError != nil {
		lastError = *op.LastError
	}

	values := []interface{}{
		op.ID,
		op.Type,
		op.CreatedAt.Format("2006-01-02 15:04:05"),
		op.RetryCount,
		lastError,
		string(op.Data),
	}
	for col, value := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		_ = f.SetCellValue(sheetName, cell, value)
	}
}
