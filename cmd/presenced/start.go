package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"presenced/internal/config"
	"presenced/internal/handler"
	"presenced/internal/tracker"
	"presenced/internal/transport/grpctransport"
)

var configPath string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a presence replica",
	Long: `Start a presence replica from a presenced.yaml file.

Example:
  presenced start --config presenced.yaml`,
	Run: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().StringVarP(&configPath, "config", "c", "presenced.yaml", "Path to the node's config file")
}

func runStart(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("presenced: %v", err)
	}

	trackerCfg, err := cfg.TrackerConfig()
	if err != nil {
		log.Fatalf("presenced: %v", err)
	}

	tr := grpctransport.New(cfg.NodeID, cfg.ListenAddr, cfg.PeerAddrs())

	srv, err := tracker.Start(trackerCfg, cfg.NodeID, tr, &handler.LoggingHandler{Name: cfg.NodeID})
	if err != nil {
		log.Fatalf("presenced: start tracker: %v", err)
	}
	tr.AttachDebugSource(srv)

	go func() {
		if err := tr.Serve(); err != nil {
			log.Fatalf("presenced: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("[%s] shutting down", cfg.NodeID)
	srv.Stop()
	tr.Stop()
}
