package render

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/copyleftdev/gominuit/internal/fit"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC")).Bold(true)
	cellStyle    = lipgloss.NewStyle().PaddingRight(2)
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	defaultPanel = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Styled renders bordered, colored panels.
type Styled struct {
	panel lipgloss.Style
}

// NewStyled returns a Styled renderer with the default panel.
func NewStyled() Styled {
	return Styled{panel: defaultPanel}
}

func (s Styled) write(w io.Writer, title string, body string) error {
	out := s.panel.Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), body))
	_, err := io.WriteString(w, out+"\n")
	return err
}

// grid lays out cells column by column so widths line up after styling.
func grid(header []string, rows [][]string, style func(row, col int, v string) lipgloss.Style) string {
	ncol := len(header)
	for _, r := range rows {
		if len(r) > ncol {
			ncol = len(r)
		}
	}
	cols := make([]string, ncol)
	for c := 0; c < ncol; c++ {
		var cells []string
		if header != nil {
			cells = append(cells, cellStyle.Inherit(headerStyle).Render(at(header, c)))
		}
		for i, r := range rows {
			v := at(r, c)
			cells = append(cells, cellStyle.Inherit(style(i, c, v)).Render(v))
		}
		cols[c] = lipgloss.JoinVertical(lipgloss.Left, cells...)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func at(r []string, c int) string {
	if c < len(r) {
		return r[c]
	}
	return ""
}

// FMin writes the minimum summary, with the validity line colored.
func (s Styled) FMin(w io.Writer, fm fit.FMin) error {
	var rows [][]string
	for _, kv := range fminRows(fm) {
		rows = append(rows, []string{kv[0], kv[1]})
	}
	body := grid(nil, rows, func(_, col int, v string) lipgloss.Style {
		if col == 0 {
			return headerStyle
		}
		switch v {
		case "accurate":
			return goodStyle
		case "none", "hesse failed", "not pos. def.":
			return badStyle
		case "forced pos. def.", "approximate":
			return warnStyle
		}
		return lipgloss.NewStyle()
	})
	status := goodStyle.Render("valid minimum")
	if !fm.IsValid {
		status = badStyle.Render("INVALID minimum")
	}
	return s.write(w, "Migrad", lipgloss.JoinVertical(lipgloss.Left, status, body))
}

// Params writes the parameter table; fixed rows are muted.
func (s Styled) Params(w io.Writer, params []fit.Param) error {
	rows := make([][]string, 0, len(params))
	for _, p := range params {
		rows = append(rows, paramRow(p))
	}
	body := grid(paramHeader, rows, func(row, _ int, _ string) lipgloss.Style {
		if params[row].Fixed {
			return mutedStyle
		}
		return lipgloss.NewStyle()
	})
	return s.write(w, "Parameters", body)
}

// Matrix writes the matrix; strong correlations are highlighted.
func (s Styled) Matrix(w io.Writer, m *fit.Matrix) error {
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
	body := grid(header, rows, func(row, col int, _ string) lipgloss.Style {
		if col == 0 {
			return headerStyle
		}
		if !m.Correlation || row == col-1 {
			return lipgloss.NewStyle()
		}
		v := m.Data[row][col-1]
		if v > 0.9 || v < -0.9 {
			return badStyle
		}
		if v > 0.5 || v < -0.5 {
			return warnStyle
		}
		return lipgloss.NewStyle()
	})
	title := "Covariance"
	if m.Correlation {
		title = "Correlation"
	}
	return s.write(w, title, body)
}

// MErrors writes the MINOS table; invalid records are marked.
func (s Styled) MErrors(w io.Writer, merrors []fit.MError) error {
	rows := make([][]string, 0, len(merrors))
	for _, me := range merrors {
		rows = append(rows, merrorRow(me))
	}
	body := grid(merrorHeader, rows, func(row, col int, v string) lipgloss.Style {
		if col == 3 && !merrors[row].IsValid {
			return badStyle
		}
		if col > 3 && strings.Contains(v, "yes") {
			return warnStyle
		}
		return lipgloss.NewStyle()
	})
	return s.write(w, "Minos", body)
}

var _ Renderer = Text{}
var _ Renderer = Styled{}
