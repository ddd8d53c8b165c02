package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	root := rootCMD()
	root.AddCommand(analyzeCMD(), serveCMD(), eventsCMD())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCMD() *cobra.Command {
	var autoApprove bool
	root := &cobra.Command{
		Use:           "stockcrew",
		Short:         "Multi-agent stock analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, autoApprove)
		},
	}
	root.Flags().BoolVarP(&autoApprove, "yes", "y", false, "approve the report stage without asking")
	return root
}
