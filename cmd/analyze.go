package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"stockcrew/internal/bootstrap"
	runsvc "stockcrew/internal/services/analysis"
	"stockcrew/pkg/errors"
)

const reportBanner = "\n\n########################\n## Here is the Report\n########################\n"

func analyzeCMD() *cobra.Command {
	var autoApprove bool
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Ask for a company and run the analysis in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, autoApprove)
		},
	}
	cmd.Flags().BoolVarP(&autoApprove, "yes", "y", false, "approve the report stage without asking")
	return cmd
}

func runAnalyze(cmd *cobra.Command, autoApprove bool) error {
	c := bootstrap.NewContainer()
	if err := c.Init(); err != nil {
		return err
	}
	defer c.Shutdown()

	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())

	fmt.Fprintln(out, "## Welcome to Financial Analysis Crew")
	fmt.Fprintln(out, "-------------------------------")
	fmt.Fprint(out, "\nWhat is the company you want to analyze?\n")

	subject, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return errors.Wrap(err, "read company")
	}

	var confirmer runsvc.Confirmer = runsvc.NewPromptConfirmer(in, out)
	if autoApprove {
		confirmer = runsvc.AutoApprove
	}

	run, err := c.Pipeline.Run(cmd.Context(), strings.TrimSpace(subject), confirmer)
	if errors.Is(err, errors.ErrConfirmationRejected) {
		fmt.Fprintln(out, "Report stage rejected, nothing was logged.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out, reportBanner)
	fmt.Fprintln(out, run.Result)

	c.Log.Infow("Analysis finished",
		"subject", run.Subject,
		"took", strings.TrimSpace(humanize.RelTime(run.CreatedAt, run.CreatedAt.Add(run.Duration()), "", "")),
		"stages", len(run.Stages),
		"log_file", run.LogFile,
	)
	return nil
}
