/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/allbin/scanprov/internal/session"
	"github.com/spf13/cobra"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [port]",
	Short: "Read back and check a device configuration",
	Long: `Query the device settings and compare the reply with the expected
response for the variant. Nothing is written to the device.

Example usage:
  scanprov verify /dev/ttyUSB0 --variant 15C`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runVerify(cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().Bool("data", false, "show raw device output")
}

func runVerify(cmd *cobra.Command, args []string) error {
	showData, _ := cmd.Flags().GetBool("data")

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := connectHeadless(ctx, args, newPrintObserver(cmd, showData))
	if err != nil {
		return err
	}

	verdict := session.Mismatch
	err = withReader(ctx, s, func(ctx context.Context) error {
		var err error
		verdict, err = s.Verify(ctx)
		return err
	})
	if err != nil {
		return err
	}
	if verdict != session.Match {
		return errNotProvisioned
	}
	return nil
}
