/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/allbin/scanprov/internal/session"
	"github.com/spf13/cobra"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [port]",
	Short: "Check that every required barcode reads correctly",
	Long: `Stream scanner output and validate each read against the variant's
barcode formats. The command ends once every required format has been
read, or when the timeout passes, and exits non-zero if any are missing.

Pass --box-serial to also compare the serial printed on the box label
with the one reported by the device.

Example usage:
  scanprov scan /dev/ttyACM0 --variant 17W --timeout 2m`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runScan(cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().DurationP("timeout", "t", 5*time.Minute, "give up after this long")
	scanCmd.Flags().Bool("box-serial", false, "also check the box label serial")
	scanCmd.Flags().Bool("data", false, "show raw device output")
}

func runScan(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	boxSerial, _ := cmd.Flags().GetBool("box-serial")
	showData, _ := cmd.Flags().GetBool("data")

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := connectHeadless(ctx, args, newPrintObserver(cmd, showData))
	if err != nil {
		return err
	}

	var (
		missing []string
		box     session.BoxSerialResult
		boxRead bool
	)
	err = withReader(ctx, s, func(ctx context.Context) error {
		if boxSerial {
			if err := s.RequestRevision(ctx); err != nil {
				return err
			}
			if err := sleepCtx(ctx, clock, revisionSettle); err != nil {
				return err
			}
			s.ExtractIdentity()
			s.ArmBoxSerialCheck()
		}

		if err := pollUntil(ctx, clock, timeout, func() (bool, error) {
			c, err := s.Completeness()
			if err != nil {
				return false, err
			}
			if !c.All() {
				return false, nil
			}
			if !boxSerial {
				return true, nil
			}
			res, ok := s.LastBoxSerial()
			return ok && res.Match, nil
		}); err != nil {
			return err
		}
		box, boxRead = s.LastBoxSerial()
		c, err := s.CheckCompleteness()
		missing = c.Missing
		return err
	})
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing formats: %s", strings.Join(missing, ", "))
	}
	if boxSerial && !(boxRead && box.Match) {
		return errBoxSerial
	}
	return nil
}

var errBoxSerial = errors.New("box label serial does not match the device")
