package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func Execute(ctx context.Context) {
	rootCmd := &cobra.Command{
		Use:   "homecheff",
		Short: "HomeCheff marketplace service",
	}
	rootCmd.AddCommand(ServeCmd, MigrateCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
