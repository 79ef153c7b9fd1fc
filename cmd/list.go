/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/allbin/scanprov/internal/tui/styles"
	"github.com/allbin/scanprov/serial"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List the serial ports a scanner can be attached to.

USB serial adapters (ttyUSB*), USB CDC/ACM devices (ttyACM*), standard
serial ports (ttyS*) and ARM ports (ttyAMA*) are listed. Virtual terminals
and pseudo-terminals are left out.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runList(cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

func runList(cmd *cobra.Command, args []string) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return fmt.Errorf("listing ports: %w", err)
	}

	filterType, _ := cmd.Flags().GetString("filter")
	tableFormat, _ := cmd.Flags().GetBool("table")

	out := cmd.OutOrStdout()
	filtered := filterPorts(ports, filterType)
	if len(filtered) == 0 {
		if filterType != "" {
			fmt.Fprintf(out, "No serial ports found matching filter: %s\n", filterType)
		} else {
			fmt.Fprintln(out, "No serial ports found")
		}
		return nil
	}

	if tableFormat {
		fmt.Fprint(out, renderPortTable(filtered))
		return nil
	}
	for _, port := range filtered {
		fmt.Fprintln(out, port)
	}
	return nil
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []string, filterType string) []string {
	if filterType == "" || filterType == "all" {
		return ports
	}

	var filtered []string
	for _, port := range ports {
		info, err := serial.GetPortInfo(port)
		if err != nil {
			continue
		}

		name := strings.ToLower(info.Name)
		switch strings.ToLower(filterType) {
		case "usb":
			if info.IsUSB || strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm") {
				filtered = append(filtered, port)
			}
		case "standard":
			if strings.HasPrefix(name, "ttys") {
				filtered = append(filtered, port)
			}
		case "arm":
			if strings.HasPrefix(name, "ttyama") {
				filtered = append(filtered, port)
			}
		}
	}
	return filtered
}

// renderPortTable lays out one row per port with its type and the USB
// product when known.
func renderPortTable(ports []string) string {
	const portWidth, typeWidth = 15, 18

	headerStyle := styles.TitleStyle.
		Border(lipgloss.NormalBorder(), false, false, true, false)

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d serial port(s):\n\n", len(ports))
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %-*s %s", portWidth, "Port", typeWidth, "Type", "Description")))
	b.WriteString("\n")

	for _, port := range ports {
		info, err := serial.GetPortInfo(port)
		if err != nil {
			b.WriteString(styles.ErrorStyle.Render(fmt.Sprintf("%-*s %-*s %v", portWidth, port, typeWidth, "Unknown", err)))
			b.WriteString("\n")
			continue
		}

		desc := info.Description
		if info.Product != "" {
			desc = fmt.Sprintf("%s (%s)", info.Product, desc)
		}
		b.WriteString(fmt.Sprintf("%-*s %-*s %s\n", portWidth, info.Name, typeWidth, portType(info.Name), desc))
	}
	return b.String()
}

// portType returns a more specific type classification for the port
func portType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}
