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
	"syscall"

	"github.com/allbin/scanprov/internal/logsave"
	"github.com/allbin/scanprov/internal/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var errNotProvisioned = errors.New("device configuration does not match")

// provisionCmd represents the provision command
var provisionCmd = &cobra.Command{
	Use:   "provision [port]",
	Short: "Write and verify a device configuration",
	Long: `Run the full provisioning sequence without the console:

  1. request the revision report
  2. extract firmware revision and serial number
  3. write the variant configuration
  4. read the settings back and compare them

The command exits non-zero when the settings read back do not match.

Example usage:
  scanprov provision /dev/ttyUSB0 --variant 16J
  scanprov provision --variant 17W --save --save-dir ./logs`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runProvision(cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(provisionCmd)

	provisionCmd.Flags().Bool("save", false, "save the session log when done")
	provisionCmd.Flags().Bool("data", false, "show raw device output")
}

func runProvision(cmd *cobra.Command, args []string) error {
	save, _ := cmd.Flags().GetBool("save")
	showData, _ := cmd.Flags().GetBool("data")

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	obs := newPrintObserver(cmd, showData)
	s, err := connectHeadless(ctx, args, obs)
	if err != nil {
		return err
	}

	var report session.ProvisionReport
	err = withReader(ctx, s, func(ctx context.Context) error {
		var err error
		report, err = s.Provision(ctx)
		if err != nil {
			return err
		}
		if save {
			if err := saveLog(s, obs); err != nil && !errors.Is(err, logsave.ErrNothingToSave) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if sn := report.Identity.Serial(); sn != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "serial: %s\n", sn)
	}
	if !report.OK() {
		return errNotProvisioned
	}
	return nil
}

// saveLog writes the session buffer and reports the outcome as a status
// line.
func saveLog(s *session.Session, obs session.Observer) error {
	path, err := logsave.Save(afero.NewOsFs(), cfg.Save.Dir, s.Buffer().String())
	if err != nil {
		obs.Status(err.Error())
		return err
	}
	log.Info().Str("path", path).Msg("log saved")
	obs.Status(fmt.Sprintf("●ログエリア保存: %s", path))
	return nil
}
