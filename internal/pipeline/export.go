package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go-shard-query/internal/model"
	"go-shard-query/pkg/utils"
)

// ExportResult represents the result of an export operation
type ExportResult struct {
	Type        string    `json:"type"` // "csv", "json"
	Path        string    `json:"path"`
	RecordCount int       `json:"record_count"`
	ExportedAt  time.Time `json:"exported_at"`
}

// ExportResultSet writes a run's final result into the run's output directory
func ExportResultSet(om *utils.OutputManager, runID string, spec model.Export, result *model.QueryResult) (ExportResult, error) {
	path, err := om.GetOutputFilePath(runID, spec.File)
	if err != nil {
		return ExportResult{}, err
	}

	fileType := om.GetFileType(path)
	switch fileType {
	case "json":
		err = exportToJSON(path, runID, result)
	default:
		err = exportToCSV(path, result.Data)
	}
	if err != nil {
		return ExportResult{}, err
	}

	return ExportResult{
		Type:        fileType,
		Path:        path,
		RecordCount: len(result.Data.Rows),
		ExportedAt:  time.Now().UTC(),
	}, nil
}

// exportToCSV writes a header of column names and one line per row
func exportToCSV(path string, rs *model.ResultSet) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(rs.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rs.Rows {
		values := rs.Values(row)
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = formatCSVValue(v)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return file.Close()
}

func formatCSVValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// exportToJSON writes the result together with export metadata
func exportToJSON(path, runID string, result *model.QueryResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := map[string]interface{}{
		"export_info": map[string]interface{}{
			"run_id":       runID,
			"exported_at":  time.Now().UTC(),
			"record_count": len(result.Data.Rows),
		},
		"data":  result.Data,
		"error": result.Error,
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return file.Close()
}
