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

var listAddr string

var listCmd = &cobra.Command{
	Use:   "list <topic>",
	Short: "List the presences a running replica sees for a topic",
	Args:  cobra.ExactArgs(1),
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listAddr, "addr", "a", "127.0.0.1:50051", "Address of the replica to query")
}

func runList(cmd *cobra.Command, args []string) {
	topic := args[0]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cc, err := grpc.DialContext(ctx, listAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		log.Fatalf("presenced: dial %s: %v", listAddr, err)
	}
	defer cc.Close()

	client := grpctransport.NewDebugClient(cc)
	out, err := client.List(ctx, topic)
	if err != nil {
		log.Fatalf("presenced: list %s: %v", topic, err)
	}

	presences := out.Fields["presences"].GetListValue().GetValues()
	if len(presences) == 0 {
		fmt.Printf("%s: no presences\n", topic)
		return
	}
	for _, v := range presences {
		s := v.GetStructValue()
		key := s.Fields["key"].GetStringValue()
		meta := s.Fields["meta"].GetStructValue().AsMap()
		fmt.Printf("%s: %s %v\n", topic, key, meta)
	}
}
