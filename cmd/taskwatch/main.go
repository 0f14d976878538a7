// taskwatch logs in to a taskboard server, attaches to its realtime
// channel, and prints derived notifications until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ymatsuda/taskboard/internal/client"
)

func main() {
	var (
		server    string
		email     string
		password  string
		dashboard bool
	)

	rootCmd := &cobra.Command{
		Use:   "taskwatch",
		Short: "Watch live task notifications from a taskboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r, err := client.New(server)
			if err != nil {
				return err
			}
			r.NotifyOnUpdate = dashboard
			r.OnNotification = func(n client.Notification) {
				fmt.Printf("%s  %s\n", n.CreatedAt.Format("15:04:05"), n.Message)
			}

			if err := r.Login(ctx, email, password); err != nil {
				return err
			}
			log.Printf("Connected to %s, watching for task events", server)

			err = r.Listen(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	rootCmd.Flags().StringVar(&server, "server", "http://localhost:8080", "taskboard server base URL")
	rootCmd.Flags().StringVar(&email, "email", "", "account email")
	rootCmd.Flags().StringVar(&password, "password", "", "account password")
	rootCmd.Flags().BoolVar(&dashboard, "dashboard", false, "also notify on every task update")
	rootCmd.MarkFlagRequired("email")
	rootCmd.MarkFlagRequired("password")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
