package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verity-labs/chorus/internal/core"
	"github.com/verity-labs/chorus/internal/service"
)

var runMaxAnalysts int

var runCmd = &cobra.Command{
	Use:   "run <topic>",
	Short: "Generate one report interactively",
	Long: `Runs the full pipeline in the terminal: generates the analyst panel,
shows it for review, reads your feedback from stdin, and prints the
paths of the exported artifacts when the report is done.

Press enter (or type "approve") to accept the panel; anything else is
taken as revision guidance and regenerates it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().IntVar(&runMaxAnalysts, "max-analysts", 0,
		"analyst panel size (default from config)")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	logger := buildLogger(cfg)

	svc, closeStore, err := buildService(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	topic := strings.TrimSpace(strings.Join(args, " "))
	maxAnalysts := runMaxAnalysts
	if maxAnalysts == 0 {
		maxAnalysts = cfg.Workflow.DefaultMaxAnalysts
	}

	ctx := cmd.Context()
	status, err := svc.StartReportGeneration(ctx, topic, maxAnalysts)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	for status.AwaitingFeedback {
		printRoster(cmd, status)
		fmt.Fprint(cmd.OutOrStdout(), "\nFeedback (enter to approve): ")

		// EOF leaves line empty, which counts as approval.
		line, _ := reader.ReadString('\n')
		status, err = svc.SubmitFeedback(ctx, core.SessionID(status.SessionID), strings.TrimSpace(line))
		if err != nil {
			return err
		}
	}

	final, err := svc.GetReportStatus(ctx, core.SessionID(status.SessionID))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nReport completed for %q (session %s)\n", final.Topic, final.SessionID)
	if final.Degraded > 0 {
		fmt.Fprintf(out, "  note: %d analyst contribution(s) degraded\n", final.Degraded)
	}
	for _, artifact := range final.Artifacts {
		fmt.Fprintf(out, "  %s: %s\n", artifact.Format, artifact.Path)
	}
	return nil
}

func printRoster(cmd *cobra.Command, status *service.ReportStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nAnalyst panel for %q:\n", status.Topic)
	for i, a := range status.Analysts {
		fmt.Fprintf(out, "  %d. %s — %s", i+1, a.Name, a.Role)
		if a.Affiliation != "" {
			fmt.Fprintf(out, " (%s)", a.Affiliation)
		}
		fmt.Fprintf(out, "\n     focus: %s\n", a.Focus)
	}
	if status.RegenCycles > 0 {
		fmt.Fprintf(out, "  (revision %d)\n", status.RegenCycles)
	}
}
