/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/allbin/scanprov/internal/codec"
	"github.com/allbin/scanprov/internal/tui/colors"
	"github.com/allbin/scanprov/internal/variant"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"
)

// variantsCmd represents the variants command
var variantsCmd = &cobra.Command{
	Use:   "variants",
	Short: "List the known device variants",
	Long: `List every device variant with its line speed, timing and the barcode
formats a scan check expects.

Use --variants-file to inspect a replacement table before using it.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runVariants(cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(variantsCmd)

	variantsCmd.Flags().StringP("show", "s", "", "show the commands and formats of one variant")
}

func runVariants(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	detail, _ := cmd.Flags().GetString("show")
	if detail != "" {
		d, err := reg.Lookup(detail)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), describeVariant(d))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), variantTable(reg).View())
	return nil
}

const (
	columnKeyID      = "id"
	columnKeyBaud    = "baud"
	columnKeyReopen  = "reopen"
	columnKeySettle  = "settle"
	columnKeyPace    = "pace"
	columnKeyFormats = "formats"
)

func variantTable(reg *variant.Registry) table.Model {
	rows := make([]table.Row, 0, len(reg.IDs()))
	for _, id := range reg.IDs() {
		d, err := reg.Lookup(id)
		if err != nil {
			continue
		}
		reopen := table.NewStyledCell("no", lipgloss.NewStyle().Foreground(colors.Overlay0))
		if d.NeedsReopen {
			reopen = table.NewStyledCell("yes", lipgloss.NewStyle().Foreground(colors.Peach))
		}
		rows = append(rows, table.NewRow(table.RowData{
			columnKeyID:      d.ID,
			columnKeyBaud:    d.BaudRate,
			columnKeyReopen:  reopen,
			columnKeySettle:  fmt.Sprintf("%v / %v", d.WriteSettle, d.VerifySettle),
			columnKeyPace:    fmt.Sprintf("%v / %v", d.WritePace, d.VerifyPace),
			columnKeyFormats: strings.Join(d.Required, ", "),
		}))
	}

	return table.New([]table.Column{
		table.NewColumn(columnKeyID, "Variant", 8),
		table.NewColumn(columnKeyBaud, "Baud", 8),
		table.NewColumn(columnKeyReopen, "Reopen", 7),
		table.NewColumn(columnKeySettle, "Settle w/v", 13),
		table.NewColumn(columnKeyPace, "Pace w/v", 13),
		table.NewColumn(columnKeyFormats, "Formats", 48),
	}).
		WithRows(rows).
		BorderRounded().
		WithBaseStyle(lipgloss.NewStyle().
			BorderForeground(colors.Surface2).
			Align(lipgloss.Left)).
		HeaderStyle(lipgloss.NewStyle().Foreground(colors.Mauve).Bold(true)).
		WithStaticFooter(fmt.Sprintf("initial %d baud, partial reference %s", reg.InitialBaud, reg.PartialReference))
}

// describeVariant prints the commands in token form with every format.
func describeVariant(d *variant.Descriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Variant %s at %d baud\n\n", d.ID, d.BaudRate)
	if d.NeedsReopen {
		fmt.Fprintf(&b, "  Wake:     %s\n", codec.Visualize(string(d.WakePayload)))
	}
	fmt.Fprintf(&b, "  Write:    %s\n", codec.Visualize(string(d.WritePayload)))
	fmt.Fprintf(&b, "  Verify:   %s\n", codec.Visualize(string(d.VerifyPayload)))
	fmt.Fprintf(&b, "  Expected: %s\n\n", d.ExpectedVerify)
	b.WriteString("  Formats:\n")
	for _, f := range d.Formats {
		fmt.Fprintf(&b, "    %-16s %s\n", f.ID, f.Framed())
	}
	return b.String()
}
