package client

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewCounterCommand constructs the `counter` command group.
func NewCounterCommand(baseURL BaseURLFunc) *cobra.Command {
	counterCmd := &cobra.Command{Use: "counter", Short: "Update counter operations"}
	counterCmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Show the update counters",
			RunE: func(cmd *cobra.Command, _ []string) error {
				c, err := getTransport(baseURL).Counters(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), c)
			},
		},
		&cobra.Command{
			Use:       "set update|current VALUE",
			Short:     "Set one update counter",
			Args:      cobra.ExactArgs(2),
			ValidArgs: []string{"update", "current"},
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.ParseUint(args[1], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid counter value %q: %w", args[1], err)
				}
				c, err := getTransport(baseURL).SetCounter(cmd.Context(), args[0], uint32(v))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), c)
			},
		},
	)
	return counterCmd
}
