package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hilthontt/zeroroom/internal/client"
	"github.com/hilthontt/zeroroom/internal/tui"
	"github.com/spf13/cobra"
)

const joinTimeout = 10 * time.Second

type options struct {
	server   string
	local    bool
	room     string
	name     string
	duration time.Duration
}

func main() {
	opts := options{}

	rootCmd := &cobra.Command{
		Use:   "zeroroom-chat",
		Short: "Chat in a ZeroRoom from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().StringVarP(&opts.server, "server", "s", "http://localhost:5000", "server base URL or websocket URL")
	rootCmd.Flags().BoolVar(&opts.local, "local", false, "run an in-process room instead of connecting to a server")
	rootCmd.Flags().StringVarP(&opts.room, "room", "r", "", "room to join")
	rootCmd.Flags().StringVarP(&opts.name, "name", "n", "", "display name")
	rootCmd.Flags().DurationVarP(&opts.duration, "duration", "d", 0, "room lifetime when creating it (whole hours, server default when zero)")
	_ = rootCmd.MarkFlagRequired("room")
	_ = rootCmd.MarkFlagRequired("name")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func connect(ctx context.Context, opts options) (client.RoomClient, error) {
	if opts.local {
		return client.NewLocal(client.LocalOptions{})
	}
	return client.Dial(ctx, opts.server, nil)
}

func run(ctx context.Context, opts options) error {
	joinCtx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()

	c, err := connect(joinCtx, opts)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Join(joinCtx, opts.room, opts.name, opts.duration); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("no answer from the server while joining %s", opts.room)
		}
		return fmt.Errorf("could not join %s: %w", opts.room, err)
	}

	p := tea.NewProgram(tui.NewModel(c, opts.room, opts.name), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
