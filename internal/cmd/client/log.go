package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	transports "github.com/rzbill/flashlog/internal/cmd/client/transports"
)

var errStopFollow = errors.New("follow limit reached")

// NewLogCommand constructs the `log` command group and subcommands.
func NewLogCommand(baseURL BaseURLFunc) *cobra.Command {
	logCmd := &cobra.Command{Use: "log", Short: "System log operations"}
	logCmd.AddCommand(
		newLogReadCommand(baseURL),
		newLogReadNewCommand(baseURL),
		newLogAppendCommand(baseURL),
		newLogEnableCommand(baseURL, true),
		newLogEnableCommand(baseURL, false),
		newLogResetCommand(baseURL),
		newLogStatusCommand(baseURL),
		newLogFollowCommand(baseURL),
	)
	return logCmd
}

// newLogReadCommand constructs the `log read` subcommand.
func newLogReadCommand(baseURL BaseURLFunc) *cobra.Command {
	readCmd := &cobra.Command{
		Use:   "read",
		Short: "Print the whole log, one \"> \"-prefixed line per record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, _ := cmd.Flags().GetString("filter")
			raw, _ := cmd.Flags().GetBool("raw")
			t := getTransport(baseURL)
			if !raw {
				return t.Dump(cmd.Context(), filter, func(b []byte) error {
					_, err := cmd.OutOrStdout().Write(b)
					return err
				})
			}
			res, err := t.ReadAll(cmd.Context(), filter)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(res.Data)
			return err
		},
	}
	readCmd.Flags().String("filter", "", "CEL filter over text, seq, segment, uptime_ms, size")
	readCmd.Flags().Bool("raw", false, "Print the read buffer without prefixes (newest records win on overflow)")
	return readCmd
}

// newLogReadNewCommand constructs the `log read-new` subcommand.
func newLogReadNewCommand(baseURL BaseURLFunc) *cobra.Command {
	readNewCmd := &cobra.Command{
		Use:   "read-new",
		Short: "Print records appended since this reader's last read",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reader, _ := cmd.Flags().GetString("reader")
			filter, _ := cmd.Flags().GetString("filter")
			res, err := getTransport(baseURL).ReadNew(cmd.Context(), reader, filter)
			if err != nil {
				return err
			}
			if reader == "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "reader: %s\n", res.Reader)
			}
			if res.Empty {
				return nil
			}
			_, err = cmd.OutOrStdout().Write(res.Data)
			return err
		},
	}
	readNewCmd.Flags().String("reader", "", "Reader name (a new one is assigned when empty)")
	readNewCmd.Flags().String("filter", "", "CEL filter over text, seq, segment, uptime_ms, size")
	return readNewCmd
}

// newLogAppendCommand constructs the `log append` subcommand.
func newLogAppendCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "append MESSAGE...",
		Short: "Append a line to the log",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, stored, err := getTransport(baseURL).Append(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if !stored {
				fmt.Fprintln(cmd.OutOrStdout(), "syslog disabled; line not stored")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seq: %d\n", seq)
			return nil
		},
	}
}

// newLogEnableCommand constructs the `log enable` or `log disable` subcommand.
func newLogEnableCommand(baseURL BaseURLFunc, enable bool) *cobra.Command {
	use, short := "enable", "Enable the system log"
	if !enable {
		use, short = "disable", "Disable the system log"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := getTransport(baseURL).SetEnabled(cmd.Context(), enable); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "syslog %sd\n", use)
			return nil
		},
	}
}

// newLogResetCommand constructs the `log reset` subcommand.
func newLogResetCommand(baseURL BaseURLFunc) *cobra.Command {
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase every log segment (requires --confirm)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ok, _ := cmd.Flags().GetBool("confirm"); !ok {
				return errors.New("refusing to erase the log without --confirm")
			}
			if err := getTransport(baseURL).Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "syslog erased")
			return nil
		},
	}
	resetCmd.Flags().Bool("confirm", false, "Confirm erasing the log")
	return resetCmd
}

// newLogStatusCommand constructs the `log status` subcommand.
func newLogStatusCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show log statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := getTransport(baseURL).Status(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
}

// newLogFollowCommand constructs the `log follow` subcommand.
func newLogFollowCommand(baseURL BaseURLFunc) *cobra.Command {
	followCmd := &cobra.Command{
		Use:   "follow",
		Short: "Print new records as they are appended",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reader, _ := cmd.Flags().GetString("reader")
			filter, _ := cmd.Flags().GetString("filter")
			limit, _ := cmd.Flags().GetInt("limit")
			seen := 0
			err := getTransport(baseURL).Follow(cmd.Context(), reader, filter, func(ev transports.FollowEvent) error {
				if _, err := fmt.Fprint(cmd.OutOrStdout(), ev.Text); err != nil {
					return err
				}
				seen += ev.Records
				if limit > 0 && seen >= limit {
					return errStopFollow
				}
				return nil
			})
			if errors.Is(err, errStopFollow) {
				return nil
			}
			return err
		},
	}
	followCmd.Flags().String("reader", "", "Reader name (a new one is assigned when empty)")
	followCmd.Flags().String("filter", "", "CEL filter over text, seq, segment, uptime_ms, size")
	followCmd.Flags().Int("limit", 0, "Stop after N records (0 = infinite)")
	return followCmd
}
