package cmd

import (
	"fmt"

	"kvbench/runner"
	"kvbench/store"

	"github.com/spf13/cobra"
)

var MatrixCmd = &cobra.Command{
	Use:   "matrix [flags]",
	Short: "List the benchmarks a run would execute",
	Long:  "Print the name of every benchmark the run command would execute with the current config and filter, in execution order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := effectiveConfig(cmd)
		if err != nil {
			return err
		}
		runConfig, err := runner.NewRunConfig(cfg)
		if err != nil {
			return err
		}
		// planning only, nothing is written
		runConfig.ResultsFile = ""
		benchmarkRunner, err := runner.NewBenchmarkRunner(runConfig, store.NewMemoryDriver(), nil)
		if err != nil {
			return err
		}
		defer benchmarkRunner.Close()

		plan := benchmarkRunner.Plan()
		for _, b := range plan {
			fmt.Println(b.Name())
		}
		fmt.Printf("%d benchmarks, %d iterations each\n", len(plan), runConfig.Iterations)
		return nil
	},
}

func init() {
	// same overrides as run, the plan depends on them
	addRunFlags(MatrixCmd)
}
