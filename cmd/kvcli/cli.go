package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	kvclient "kvclient-go"
)

var cliAddr string

var cliCmd = &cobra.Command{
	Use:   "cli",
	Short: "Start an interactive client connected to a server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startCLI(cliAddr)
	},
}

func init() {
	cliCmd.Flags().StringVar(&cliAddr, "addr", "127.0.0.1:11211", "server address to connect to")
	rootCmd.AddCommand(cliCmd)
}

func startCLI(addr string) error {
	cli, err := kvclient.NewClient(addr, 1, 4)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer cli.Close()
	cli.Timeout = 5 * time.Second

	log.Printf("connected to %s", addr)

	stdin := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := stdin.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Println()
				return nil
			}
			return err
		}

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			fmt.Println("bye")
			return nil
		}

		runCommand(cli, args)
	}
}

func runCommand(cli *kvclient.Client, args []string) {
	ctx := context.Background()

	switch args[0] {
	case "get":
		if len(args) != 2 {
			fmt.Println("usage: get <key>")
			return
		}
		val, flags, err := cli.Get(ctx, args[1])
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		if val == nil {
			fmt.Println("(not found)")
			return
		}
		fmt.Printf("%q (flags %d)\n", val, flags)

	case "set":
		if len(args) < 3 {
			fmt.Println("usage: set <key> <value>")
			return
		}
		err := cli.SetV(ctx, args[1], []byte(strings.Join(args[2:], " ")))
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Println("ok")

	case "del":
		if len(args) != 2 {
			fmt.Println("usage: del <key>")
			return
		}
		deleted, err := cli.Delete(ctx, args[1])
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		if deleted {
			fmt.Println("deleted")
		} else {
			fmt.Println("(not found)")
		}

	default:
		fmt.Println("commands: get, set, del, quit")
	}
}
