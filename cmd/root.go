/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/allbin/scanprov/internal/config"
	"github.com/allbin/scanprov/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// tuiAnnotation marks commands that own the terminal; they get no console
// log writer.
const tuiAnnotation = "tui"

var (
	cfgFile string
	verbose bool
	v       *viper.Viper
	cfg     config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scanprov",
	Short: "Provision and verify serial barcode scanners",
	Long: `scanprov connects to a barcode scanner or label printer over a serial
line, writes its configuration for a known device variant, reads the
settings back to verify them and checks that every required barcode
symbology scans correctly.

Variants that talk at a different line speed are switched over
automatically after the port is opened at 115200 baud.

Settings are read from scanprov.toml in $HOME/.config/scanprov or the
working directory, from SCANPROV_* environment variables and from flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		v, err = config.New(cfgFile)
		if err != nil {
			return err
		}
		for key, flag := range map[string]string{
			"port":          "port",
			"variant":       "variant",
			"variants_file": "variants-file",
			"encoding":      "encoding",
			"log.level":     "log-level",
			"save.dir":      "save-dir",
		} {
			if err := v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(flag)); err != nil {
				return err
			}
		}

		cfg, err = config.Load(v)
		if err != nil {
			return err
		}

		return logging.Init(logging.Options{
			Level:      cfg.Log.Level,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			Console:    verbose && cmd.Annotations[tuiAnnotation] == "",
		})
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default $HOME/.config/scanprov/scanprov.toml)")
	pf.StringP("port", "p", "", "serial port; prompts when unset")
	pf.StringP("variant", "V", "", "device variant id, see 'scanprov variants'")
	pf.String("variants-file", "", "TOML file replacing the built-in variant table")
	pf.String("encoding", "utf-8", "decoding of device output: utf-8 or shift_jis")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("save-dir", ".", "directory for saved logs")
	pf.BoolVarP(&verbose, "verbose", "v", false, "also write logs to stderr")
}
