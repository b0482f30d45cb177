package confusion

import (
	"strconv"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

func formatRatio(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// Header returns the column titles of Table.
func (m *Matrix) Header() []string {
	header := make([]string, 0, len(m.labels)+2)
	header = append(header, "")
	for _, l := range m.labels {
		header = append(header, "Predicted "+l)
	}
	return append(header, "Recall")
}

// Table renders the matrix as rows of cells: one row per actual class with
// its counts and recall, then a precision row ending in overall accuracy.
// The first row is the header.
func (m *Matrix) Table() [][]string {
	rows := make([][]string, 0, len(m.labels)+2)
	rows = append(rows, m.Header())

	for i, l := range m.labels {
		row := make([]string, 0, len(m.labels)+2)
		row = append(row, "True "+l)
		for _, v := range m.counts[i] {
			row = append(row, strconv.Itoa(v))
		}
		rows = append(rows, append(row, formatRatio(m.Recall(i))))
	}

	precision := make([]string, 0, len(m.labels)+2)
	precision = append(precision, "Precision")
	for c := range m.labels {
		precision = append(precision, formatRatio(m.Precision(c)))
	}
	return append(rows, append(precision, formatRatio(m.Accuracy())))
}

// String draws Table with a box border for terminal output.
func (m *Matrix) String() string {
	cells := m.Table()
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(cells[0]...).
		Rows(cells[1:]...).
		String()
}
