package components

import (
	"fmt"

	"github.com/allbin/scanprov/internal/barcode"
	"github.com/allbin/scanprov/internal/tui/colors"
	"github.com/allbin/scanprov/internal/variant"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
)

const (
	columnKeyFormat = "format"
	columnKeyRead   = "read"
)

// CompletenessTable lists a variant's required formats and whether each
// has been read in this session.
type CompletenessTable struct {
	model    table.Model
	required []string
	read     int
}

func NewCompletenessTable(d *variant.Descriptor) *CompletenessTable {
	formatWidth := len("Format")
	for _, id := range d.Required {
		formatWidth = max(formatWidth, len(id))
	}

	ct := &CompletenessTable{
		model: table.New([]table.Column{
			table.NewColumn(columnKeyFormat, "Format", formatWidth+1),
			table.NewColumn(columnKeyRead, "Read", 4).
				WithStyle(lipgloss.NewStyle().Align(lipgloss.Center)),
		}).
			BorderRounded().
			WithBaseStyle(lipgloss.NewStyle().
				Foreground(colors.Text).
				BorderForeground(colors.Surface2).
				Align(lipgloss.Left)).
			HeaderStyle(lipgloss.NewStyle().Foreground(colors.Mauve).Bold(true)),
		required: append([]string(nil), d.Required...),
	}
	ct.Refresh(nil)
	return ct
}

// Refresh re-reads the scanned set. A nil set marks nothing as read.
func (ct *CompletenessTable) Refresh(scanned *barcode.Set) {
	rows := make([]table.Row, 0, len(ct.required))
	ct.read = 0
	for _, id := range ct.required {
		mark := table.NewStyledCell("·", lipgloss.NewStyle().Foreground(colors.Overlay0))
		if scanned != nil && scanned.Has(id) {
			mark = table.NewStyledCell("✓", lipgloss.NewStyle().Foreground(colors.Green).Bold(true))
			ct.read++
		}
		rows = append(rows, table.NewRow(table.RowData{
			columnKeyFormat: id,
			columnKeyRead:   mark,
		}))
	}
	ct.model = ct.model.
		WithRows(rows).
		WithStaticFooter(fmt.Sprintf("%d/%d", ct.read, len(ct.required)))
}

// Read is the number of required formats read so far.
func (ct *CompletenessTable) Read() int {
	return ct.read
}

func (ct *CompletenessTable) View() string {
	return ct.model.View()
}
