package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kvclient-go/gonet"
	"kvclient-go/kvserver"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an in-memory server speaking the kv text protocol",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":11211", "address to listen on")
	rootCmd.AddCommand(serveCmd)
}

func serve(addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l := gonet.NewListenerForAddr(addr, gonet.NewServerFactory(kvserver.NewHandler(kvserver.NewStore())))
	if err := l.Start(ctx); err != nil {
		return err
	}
	log.Printf("serving on %s", l.Address())

	<-ctx.Done()
	log.Printf("shutting down")
	return l.Close()
}
