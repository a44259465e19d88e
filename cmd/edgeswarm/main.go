package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "edgeswarm",
	Short: "Load-testing harness for edge-offloading platforms",
	Long: `edgeswarm spawns fleets of simulated devices that register with an edge
platform runtime and repeatedly offload workload functions, recording
per-request latency and outcome for later analysis.

QUICK START:
  edgeswarm run --builtin device-pool --duration 30s
  edgeswarm run --scenario examples/scenarios/device-pool.yaml
  edgeswarm scenarios`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the edgeswarm version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("edgeswarm", version)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scenariosCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
