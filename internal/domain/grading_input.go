package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// GradingInput bundles everything a scoring function may consume. Every
// field is optional; the zero value means absent. The whole struct is handed
// to the scoring function, which ignores the fields it has no use for.
//
// A GradingInput is built fresh per grading attempt and must be treated as
// read-only by graders and scoring functions.
type GradingInput struct {
	// Submission is the candidate's tabular output.
	Submission *Table `json:"submission,omitempty"`

	// Answers is the ground truth. Its shape is scoring-function specific.
	Answers any `json:"answers,omitempty"`

	SubmissionFolderPath string `json:"submission_folder_path,omitempty"`

	HyperparameterSearchConfig map[string]any `json:"hyperparameter_search_config,omitempty"`

	SolutionFilePath string `json:"solution_file_path,omitempty"`

	SubmissionFilePath string `json:"submission_file_path,omitempty"`

	CodingConfig map[string]any `json:"coding_config,omitempty"`
}

// Populated returns the wire names of the fields that are set, in
// declaration order. Used for diagnostics.
func (g GradingInput) Populated() []string {
	var fields []string
	if g.Submission != nil {
		fields = append(fields, "submission")
	}
	if g.Answers != nil {
		fields = append(fields, "answers")
	}
	if g.SubmissionFolderPath != "" {
		fields = append(fields, "submission_folder_path")
	}
	if g.HyperparameterSearchConfig != nil {
		fields = append(fields, "hyperparameter_search_config")
	}
	if g.SolutionFilePath != "" {
		fields = append(fields, "solution_file_path")
	}
	if g.SubmissionFilePath != "" {
		fields = append(fields, "submission_file_path")
	}
	if g.CodingConfig != nil {
		fields = append(fields, "coding_config")
	}
	return fields
}

// Table is a rows-by-columns view of tabular data with string cells, as
// parsed from a CSV submission.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the index of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the cells of the named column.
func (t *Table) Column(name string) ([]string, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out, true
}

// FloatColumn parses the named column as float64 values.
func (t *Table) FloatColumn(name string) ([]float64, error) {
	cells, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]float64, len(cells))
	for i, cell := range cells {
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		out[i] = v
	}
	return out, nil
}

// ReadTableCSV reads a CSV document whose first record is the header.
func ReadTableCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv has no header row")
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv rows: %w", err)
	}

	return &Table{Columns: columns, Rows: rows}, nil
}
