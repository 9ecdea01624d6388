package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/gurkanbulca/storeflow/internal/service"
)

// callCmd implements 'storectl call'.
func callCmd() *cobra.Command {
	var addr, token, data string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "call <method>",
		Short: "Call a TaskService method with a JSON payload",
		Long: "Call a TaskService method. Methods: " + strings.Join(service.TaskServiceMethods, ", ") +
			".\nExample: storectl call ListPool --data '{\"priority\":\"urgent\"}' --token $TOKEN",
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if addr == "" {
				addr = "localhost:" + cfg.Server.GRPCPort
			}

			req := &structpb.Struct{}
			if err := protojson.Unmarshal([]byte(data), req); err != nil {
				return fmt.Errorf("--data must be a JSON object: %w", err)
			}

			conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if token != "" {
				ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
			}

			resp, err := service.NewTaskServiceClient(conn).Call(ctx, args[0], req)
			if err != nil {
				return err
			}

			out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Server address (default localhost:$GRPC_PORT)")
	cmd.Flags().StringVar(&token, "token", "", "Bearer access token, see 'storectl token issue'")
	cmd.Flags().StringVarP(&data, "data", "d", "{}", "Request payload as a JSON object")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Call deadline")
	return cmd
}
