package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the flashlog client.
// It registers the log, counter and health commands.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "flashlog",
		Short: "flashlog client commands",
	}
	root.AddCommand(NewLogCommand(baseURL))
	root.AddCommand(NewCounterCommand(baseURL))
	root.AddCommand(NewHealthCommand())
	return root
}
