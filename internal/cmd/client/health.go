package client

import (
	"fmt"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"

	transports "github.com/rzbill/flashlog/internal/cmd/client/transports"
)

// NewHealthCommand constructs the `health` command, which queries the gRPC
// health service at FLASHLOG_GRPC.
func NewHealthCommand() *cobra.Command {
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health over gRPC",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, _ := cmd.Flags().GetString("service")
			res, err := transports.NewGrpcTransport(dialGRPCContext).Health(cmd.Context(), service)
			if err != nil {
				return err
			}
			b, err := protojson.MarshalOptions{EmitUnpopulated: true}.Marshal(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			if res.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
				return fmt.Errorf("server is %s", res.GetStatus())
			}
			return nil
		},
	}
	healthCmd.Flags().String("service", "", "Health service name (empty for the whole server)")
	return healthCmd
}
