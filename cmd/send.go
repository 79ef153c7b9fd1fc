/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/allbin/scanprov/internal/codec"
	"github.com/allbin/scanprov/internal/tui/styles"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [port] [data]",
	Short: "Send a raw command to the device",
	Long: `Send a command to the device at the variant's line speed and show the
reply.

Control characters are written in token form: [SYN], [CR], [STX] and so
on. Data can be provided as:
- Command line argument: scanprov send /dev/ttyUSB0 "[SYN]M[CR]REVINF."
- From stdin (pipe): echo "[SYN]M[CR]REVINF." | scanprov send /dev/ttyUSB0
- Interactive mode: scanprov send /dev/ttyUSB0 (prompts for input)

Example usage:
  scanprov send /dev/ttyUSB0 "[SYN]M[CR]REVINF." --variant 16J
  scanprov send /dev/ttyUSB0 "[SYN]M[CR]TRGSTO?." --variant 17W --wait 2s`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSend(cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().DurationP("wait", "w", time.Second, "how long to show replies after sending")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '16 4d 0d' for [SYN]M[CR])")
}

func runSend(cmd *cobra.Command, args []string) error {
	portArgs := args[:1]
	var data string
	if len(args) == 2 {
		data = args[1]
	} else {
		var err error
		if data, err = readSendData(cmd); err != nil {
			return err
		}
	}
	if data == "" {
		return errors.New("nothing to send")
	}

	wait, _ := cmd.Flags().GetDuration("wait")
	hexMode, _ := cmd.Flags().GetBool("hex")

	var payload []byte
	if hexMode {
		parsed, err := parseHexString(data)
		if err != nil {
			return fmt.Errorf("invalid hex data: %w", err)
		}
		payload = []byte(parsed)
	} else {
		payload = codec.Expand(data)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := connectHeadless(ctx, portArgs, newPrintObserver(cmd, true))
	if err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	return withReader(ctx, s, func(ctx context.Context) error {
		fmt.Fprintf(errOut, "%s Sending %d bytes: %s\n", styles.InfoStyle.Render("→"), len(payload), codec.Visualize(string(payload)))
		if err := s.Send(ctx, payload); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "%s Sent, waiting %v for a reply\n", styles.SuccessStyle.Render("✓"), wait)

		if err := sleepCtx(ctx, clock, wait); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	})
}

// readSendData takes the payload from a pipe, or prompts for it on a
// terminal.
func readSendData(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		if stat, err := f.Stat(); err == nil && stat.Mode()&os.ModeCharDevice != 0 {
			fmt.Fprint(cmd.ErrOrStderr(), styles.TitleStyle.Render("Enter data to send: "))
			scanner := bufio.NewScanner(f)
			if scanner.Scan() {
				return scanner.Text(), nil
			}
			return "", scanner.Err()
		}
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading from stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func parseHexString(hexStr string) (string, error) {
	// Remove common hex prefixes and whitespace
	hexStr = strings.ReplaceAll(hexStr, " ", "")
	hexStr = strings.ReplaceAll(hexStr, "0x", "")
	hexStr = strings.ReplaceAll(hexStr, "0X", "")

	if len(hexStr)%2 != 0 {
		return "", fmt.Errorf("hex string must have even length")
	}

	var result strings.Builder
	for i := 0; i < len(hexStr); i += 2 {
		hexByte := hexStr[i : i+2]
		var b byte
		if _, err := fmt.Sscanf(hexByte, "%x", &b); err != nil {
			return "", fmt.Errorf("invalid hex byte '%s': %v", hexByte, err)
		}
		result.WriteByte(b)
	}

	return result.String(), nil
}
