package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meetingday/notifier/cmd/notifier"
	"github.com/meetingday/notifier/internal/adapters/config"
	"github.com/meetingday/notifier/internal/domain/entity"

	_ "time/tzdata"
)

var (
	cfgFile string
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:           "notifier",
	Short:         "Meetingday notification engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run notification sweeps on schedule and expose metrics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withNotifier(cmd.Context(), func(ctx context.Context, n *notifier.Notifier) error {
			return n.Serve(ctx)
		})
	},
}

var runAllCmd = &cobra.Command{
	Use:   "run-all",
	Short: "Run every notification rule once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withNotifier(cmd.Context(), func(ctx context.Context, n *notifier.Notifier) error {
			return n.RunAll(ctx, dryRun)
		})
	},
}

var runTypeCmd = &cobra.Command{
	Use:   "run-type <type>",
	Short: "Run the rule owning one notification type (number or name)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, ok := entity.ParseNotificationType(args[0])
		if !ok {
			return fmt.Errorf("unknown notification type %q", args[0])
		}
		return withNotifier(cmd.Context(), func(ctx context.Context, n *notifier.Notifier) error {
			return n.RunByType(ctx, int(t), dryRun)
		})
	},
}

var badgeCmd = &cobra.Command{
	Use:   "badge <user-id|nick>",
	Short: "Print the unread notification count of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNotifier(cmd.Context(), func(ctx context.Context, n *notifier.Notifier) error {
			userID, unread, err := n.Users.Badge(ctx, args[0])
			if err != nil {
				return err
			}
			cmd.Printf("user %d: %d unread\n", userID, unread)
			return nil
		})
	},
}

var markReadCmd = &cobra.Command{
	Use:   "mark-read <user-id|nick>",
	Short: "Mark every notification of a user as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNotifier(cmd.Context(), func(ctx context.Context, n *notifier.Notifier) error {
			userID, updated, err := n.Users.MarkRead(ctx, args[0])
			if err != nil {
				return err
			}
			cmd.Printf("user %d: %d marked as read\n", userID, updated)
			return nil
		})
	},
}

func withNotifier(ctx context.Context, fn func(ctx context.Context, n *notifier.Notifier) error) error {
	cfg, err := config.Get(ctx, cfgFile)
	if err != nil {
		return err
	}
	n, err := notifier.New(cfg)
	if err != nil {
		return err
	}
	defer n.Close()

	return fn(ctx, n)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	for _, cmd := range []*cobra.Command{runAllCmd, runTypeCmd} {
		cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log what would be sent without delivering or recording")
	}
	rootCmd.AddCommand(serveCmd, runAllCmd, runTypeCmd, badgeCmd, markReadCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
