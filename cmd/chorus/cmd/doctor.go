package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/verity-labs/chorus/internal/diagnostics"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the environment chorus runs in",
	Long: `Verifies the model backend is reachable, the checkpoint and export
directories are writable, and reports host resources including any
GPUs (relevant when pointing the openai provider at a local server).`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cfg, loader, err := loadConfig()
	if err != nil {
		return err
	}
	logger := buildLogger(cfg)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "chorus %s\n", appVersion)
	if path := loader.ConfigFileUsed(); path != "" {
		fmt.Fprintf(out, "config: %s\n", path)
	} else {
		fmt.Fprintln(out, "config: defaults (no file found)")
	}
	fmt.Fprintln(out)

	backend, err := buildBackend(cfg, logger)
	if err != nil {
		return err
	}

	checks := []diagnostics.Check{
		diagnostics.CheckBackend(cmd.Context(), backend),
		diagnostics.CheckWritableDir("export dir", cfg.Export.Dir),
	}
	if cfg.Checkpoint.Backend != "memory" {
		checks = append(checks,
			diagnostics.CheckWritableDir("checkpoint dir", filepath.Dir(cfg.Checkpoint.Path)))
	}

	report := diagnostics.NewProbe().Collect(cfg.Export.Dir)
	checks = append(checks, diagnostics.CheckDiskHeadroom(report))

	failed := false
	for _, check := range checks {
		fmt.Fprintf(out, "[%-4s] %s: %s\n", check.Status, check.Name, check.Message)
		if check.Status == diagnostics.CheckFail {
			failed = true
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "cpu:    %s (%d cores, %d threads)\n", report.CPUModel, report.CPUCores, report.CPUThreads)
	fmt.Fprintf(out, "memory: %.0f MB used of %.0f MB (%.1f%%)\n", report.MemUsedMB, report.MemTotalMB, report.MemPercent)
	if report.LoadAvg1 > 0 {
		fmt.Fprintf(out, "load:   %.2f %.2f %.2f\n", report.LoadAvg1, report.LoadAvg5, report.LoadAvg15)
	}
	if len(report.GPUs) == 0 {
		fmt.Fprintln(out, "gpu:    none detected")
	}
	for _, gpu := range report.GPUs {
		fmt.Fprintf(out, "gpu:    %s %s\n", gpu.Vendor, gpu.Name)
	}

	if failed {
		return fmt.Errorf("doctor found problems")
	}
	return nil
}
