// cmd/vigil/cmd_analyze.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vigil-workers/internal/pipeline"
)

var analyzeFlags struct {
	gate   bool
	pretty bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Analyze one video and print the verdict report as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeFlags.gate, "gate", false, "Consult the fact-check database before running triage")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.pretty, "pretty", true, "Indent the JSON output")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := pipeline.NewRequest(args[0])
	if err != nil {
		return err
	}

	useGate := analyzeFlags.gate && a.coord.GateEnabled()
	if analyzeFlags.gate && !useGate {
		a.log.Warn("gate requested but no claim lookup is configured, running full triage", nil)
	}

	res, err := a.coord.Run(ctx, req, pipeline.Options{UseGate: useGate})
	if err != nil {
		return fmt.Errorf("analysis %s failed: %w", req.RequestID, err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if analyzeFlags.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(map[string]interface{}{
		"source": res.Source,
		"report": res.Report,
		"trace":  res.Trace,
	})
}
