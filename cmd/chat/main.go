package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pollchat/pollchat/internal/chat"
	applog "github.com/pollchat/pollchat/internal/log"
	"github.com/pollchat/pollchat/internal/poller"
	"github.com/pollchat/pollchat/internal/transport/rpc"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		serverURL    string
		username     string
		room         string
		pollInterval time.Duration
		logLevel     string
	)

	cmd := &cobra.Command{
		Use:          "pollchat",
		Short:        "Terminal client for the pollchat JSON-RPC server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := applog.New(logLevel)
			client := rpc.NewClient(serverURL)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("Connected to chat server at %s as %q (room %q).\n", serverURL, username, room)
			fmt.Println("Type your message and press Enter to send. Use /quit or Ctrl+C to exit.")

			// Own messages are echoed locally on send; suppress their
			// polled copies.
			handler := func(msg chat.Message) {
				if msg.Author == username {
					return
				}
				fmt.Printf("[%s] %s: %s\n", msg.CreatedAt.Local().Format("15:04:05"), msg.Author, msg.Text)
			}

			p := poller.New(client, room, pollInterval, handler, logger)
			go func() { _ = p.Run(ctx) }()

			// The blocking stdin read cannot be interrupted, so the input
			// loop runs aside and the command exits on whichever comes
			// first: /quit, EOF, or a signal.
			inputDone := make(chan error, 1)
			go func() { inputDone <- inputLoop(ctx, client, username, room) }()

			var err error
			select {
			case <-ctx.Done():
			case err = <-inputDone:
				stop()
			}

			fmt.Println("Exiting chat client.")
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&serverURL, "server", "http://127.0.0.1:9000/rpc", "chat server RPC endpoint")
	flags.StringVar(&username, "username", "", "username to chat as")
	flags.StringVar(&room, "room", chat.RoomPublic, "room to join: public or founders")
	flags.DurationVar(&pollInterval, "poll-interval", time.Second, "interval between polls for new messages")
	flags.StringVar(&logLevel, "log-level", "warn", "logging level: debug, info, warn, error")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

// inputLoop reads stdin lines and publishes them until EOF, /quit, or
// context cancellation.
func inputLoop(ctx context.Context, client *rpc.Client, username, room string) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "/quit" || text == "/exit" {
			return nil
		}

		id, err := client.SendMessage(ctx, username, text, room)
		if err != nil {
			// The append may have committed even though the reply was
			// lost; the user has to judge from the room history.
			fmt.Printf("[error] message may not have been delivered: %v\n", err)
			continue
		}
		fmt.Printf("[%s] you (%s) [%d]: %s\n", time.Now().Format("15:04:05"), username, id, text)
	}
	return scanner.Err()
}
