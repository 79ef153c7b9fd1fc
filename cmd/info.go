/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/allbin/scanprov/serial"
	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display what is known about a serial port, including the USB vendor,
product and serial number of the adapter or scanner behind it.

Examples:
  scanprov info /dev/ttyUSB0
  scanprov info /dev/ttyACM0`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runInfo(cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	info, err := serial.GetPortInfo(args[0])
	if err != nil {
		return fmt.Errorf("getting port info: %w", err)
	}
	printPortInfo(cmd.OutOrStdout(), info)
	return nil
}

func printPortInfo(w io.Writer, info *serial.PortInfo) {
	fmt.Fprintf(w, "Port Information: %s\n\n", info.Path)
	fmt.Fprintf(w, "  Name:        %s\n", info.Name)
	fmt.Fprintf(w, "  Description: %s\n", info.Description)

	if !info.IsUSB {
		return
	}
	fmt.Fprintln(w, "\nUSB Device Information:")
	for _, field := range []struct{ label, value string }{
		{"Vendor ID:", info.VendorID},
		{"Product ID:", info.ProductID},
		{"Serial:", info.SerialNumber},
		{"Product:", info.Product},
	} {
		if field.value != "" {
			fmt.Fprintf(w, "  %-13s %s\n", field.label, field.value)
		}
	}
}
