package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/copyleftdev/gominuit/internal/fit"
)

// Text renders plain aligned columns.
type Text struct{}

func (Text) table(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if header != nil {
		fmt.Fprintln(tw, strings.Join(header, "\t"))
	}
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

// FMin writes the minimum summary as key/value lines.
func (t Text) FMin(w io.Writer, fm fit.FMin) error {
	var rows [][]string
	for _, kv := range fminRows(fm) {
		rows = append(rows, []string{kv[0], kv[1]})
	}
	return t.table(w, nil, rows)
}

// Params writes the parameter table.
func (t Text) Params(w io.Writer, params []fit.Param) error {
	rows := make([][]string, 0, len(params))
	for _, p := range params {
		rows = append(rows, paramRow(p))
	}
	return t.table(w, paramHeader, rows)
}

// Matrix writes a covariance or correlation matrix.
func (t Text) Matrix(w io.Writer, m *fit.Matrix) error {
	if m == nil {
		return nil
	}
	header := append([]string{""}, m.Names...)
	rows := make([][]string, len(m.Names))
	for i, name := range m.Names {
		row := []string{name}
		for _, v := range m.Data[i] {
			row = append(row, matrixCell(m, v))
		}
		rows[i] = row
	}
	return t.table(w, header, rows)
}

// MErrors writes one row per MINOS record.
func (t Text) MErrors(w io.Writer, merrors []fit.MError) error {
	rows := make([][]string, 0, len(merrors))
	for _, me := range merrors {
		rows = append(rows, merrorRow(me))
	}
	return t.table(w, merrorHeader, rows)
}
