package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"presenced/internal/transport/grpctransport"
)

var replicasAddr string

var replicasCmd = &cobra.Command{
	Use:   "replicas",
	Short: "Print a running replica's view of cluster membership",
	Run:   runReplicas,
}

func init() {
	rootCmd.AddCommand(replicasCmd)
	replicasCmd.Flags().StringVarP(&replicasAddr, "addr", "a", "127.0.0.1:50051", "Address of the replica to query")
}

func runReplicas(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cc, err := grpc.DialContext(ctx, replicasAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		log.Fatalf("presenced: dial %s: %v", replicasAddr, err)
	}
	defer cc.Close()

	client := grpctransport.NewDebugClient(cc)
	out, err := client.Replicas(ctx)
	if err != nil {
		log.Fatalf("presenced: replicas: %v", err)
	}

	replicas := out.Fields["replicas"].GetListValue().GetValues()
	if len(replicas) == 0 {
		fmt.Println("no known replicas")
		return
	}
	for _, v := range replicas {
		s := v.GetStructValue()
		fmt.Printf("%s#%d %s last_heartbeat=%s\n",
			s.Fields["name"].GetStringValue(),
			int64(s.Fields["vsn"].GetNumberValue()),
			s.Fields["status"].GetStringValue(),
			s.Fields["last_heartbeat_at"].GetStringValue(),
		)
	}
}
