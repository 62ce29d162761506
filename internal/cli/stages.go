package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/cloudcast/internal/sequencer"
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "List the processing stages and their pacing",
	Args:  cobra.NoArgs,
	RunE:  runStages,
}

func runStages(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	eng, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	stages := eng.Stages()
	window := eng.DelayWindow()
	total := len(stages)

	fmt.Fprintf(out, "%-4s %-16s %-8s %s\n", "#", "KEY", "PERCENT", "LABEL")
	for i, s := range stages {
		fmt.Fprintf(out, "%-4d %-16s %-8s %s\n", i+1, s.Key, fmt.Sprintf("%.1f%%", sequencer.Percent(i, total)), s.Label)
	}
	fmt.Fprintf(out, "\nPause after each stage: %s to %s\n", window.Min, window.Max)
	return nil
}
