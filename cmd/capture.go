/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allbin/scanprov/internal/session"
	"github.com/allbin/scanprov/internal/syncutil"
	"github.com/spf13/cobra"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture [port]",
	Short: "Capture device output to a file",
	Long: `Negotiate the variant's line speed and record everything the device
sends, in the rendered [STX]/[CR] token form, until interrupted (Ctrl+C).

The output file is opened in append mode, allowing you to resume captures
without overwriting existing data. Without --output the data goes to
stdout.

Example usage:
  scanprov capture /dev/ttyUSB0 --variant 16J --output reads.log
  scanprov capture --variant 17W --console --output reads.log`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCapture(cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().StringP("output", "o", "", "append captured data to this file")
	captureCmd.Flags().BoolP("console", "c", false, "Display incoming data on console while capturing")
}

func runCapture(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	showConsole, _ := cmd.Flags().GetBool("console")

	var out io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Data already goes to stdout when there is no output file.
	rec := &captureObserver{out: out}
	obs := session.Observers{rec, newPrintObserver(cmd, showConsole && outputPath != "")}

	s, err := connectHeadless(ctx, args, obs)
	if err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "Capturing data from %s (%s)\n", s.Channel().Name(), s.Channel().Config())
	fmt.Fprintf(errOut, "Press Ctrl+C to stop\n\n")

	startTime := clock.Now()
	err = withReader(ctx, s, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	n, werr := rec.result()
	fmt.Fprintf(errOut, "\nCapture complete: %d bytes written in %v\n", n, clock.Since(startTime).Round(time.Millisecond))
	if err != nil {
		return err
	}
	return werr
}

// captureObserver writes device output to out and drops everything the
// session generates itself.
type captureObserver struct {
	out io.Writer

	mu      syncutil.Mutex
	written int64
	err     error
}

func (c *captureObserver) Append(msg string, sev session.Severity) {
	if sev != session.SeverityData {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	n, err := io.WriteString(c.out, msg)
	c.written += int64(n)
	if err != nil {
		c.err = fmt.Errorf("write error: %w", err)
	}
}

func (c *captureObserver) Status(string) {}

func (c *captureObserver) result() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written, c.err
}
