package main

import (
	"fmt"
	"os"

	"github.com/salisbury/coresim"
	"github.com/spf13/cobra"
)

func setupCLI(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newRunCmd(), newAnalyzeCmd())
}

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation",
		Long: "Run a simulation described either by an experiment file (--exp) or by\n" +
			"individual architecture, topology and workload files.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ec, err := expCfgFromFlags(cmd)
			if err != nil {
				return err
			}
			coresim.GetLogger().Debugf("Running experiment %s", ec.Name)

			exp, err := coresim.BuildExperiment(ec)
			if err != nil {
				coresim.GetLogger().Errorf("Failed to build experiment: %v", err)
				return err
			}
			err = exp.Run()
			sched := exp.Scheduler
			fmt.Fprintf(os.Stdout, "Cycles run: %d, tasks completed: %d, tasks live: %d\n",
				sched.Cycle(), len(sched.Retired()), len(sched.Live()))
			if err != nil {
				coresim.GetLogger().Errorf("Simulation failed: %v", err)
				return err
			}
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				for _, task := range sched.Retired() {
					fmt.Fprintln(os.Stdout, task.String())
				}
			}
			fmt.Fprintln(os.Stdout, coresim.SummarizeDurations(sched.CoreLog()).String())
			return nil
		},
	}
	runCmd.Flags().String("exp", "", "experiment description file (yaml or json)")
	runCmd.Flags().String("arch", "", "architecture description file")
	runCmd.Flags().String("topo", "", "topology description file")
	runCmd.Flags().String("workload", "", "workload description file")
	runCmd.Flags().String("log", "", "file to write the log of completed tasks to")
	runCmd.Flags().String("trace", "", "file to write the trace of state changes to")
	runCmd.Flags().String("arbiter", "step", "arbiter admitting tasks: step, port or none")
	runCmd.Flags().Int("cycles", 0, "maximum number of cycles to run")
	runCmd.Flags().Int("workers", 1, "goroutines advancing tasks, partitioned by source node")
	runCmd.Flags().BoolP("verbose", "v", false, "print the summary of every completed task")
	return runCmd
}

func newAnalyzeCmd() *cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze [logfile]",
		Short: "Analyze the log of completed tasks written by run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logFile, _ := cmd.Flags().GetString("log")
			if len(args) == 1 {
				logFile = args[0]
			}
			if len(logFile) == 0 {
				return fmt.Errorf("a log file is required, by --log or as argument")
			}
			cl, err := coresim.LoadCoreLog(logFile)
			if err != nil {
				coresim.GetLogger().Errorf("Failed to read log: %v", err)
				return err
			}
			perRow, _ := cmd.Flags().GetInt("per-row")
			fmt.Fprintln(os.Stdout, coresim.FormatCumulativeIO(coresim.CumulativeIO(cl), perRow))
			fmt.Fprintln(os.Stdout, coresim.SummarizeDurations(cl).String())
			return nil
		},
	}
	analyzeCmd.Flags().String("log", "", "log file written by run")
	analyzeCmd.Flags().Int("per-row", 2, "locations printed per row")
	return analyzeCmd
}

// expCfgFromFlags reads the experiment file if one is named, then lets
// the remaining flags override it
func expCfgFromFlags(cmd *cobra.Command) (*coresim.ExpCfg, error) {
	ec := &coresim.ExpCfg{Name: "coresim"}
	flags := cmd.Flags()

	expFile, _ := flags.GetString("exp")
	if len(expFile) > 0 {
		var err error
		ec, err = coresim.LoadExpCfg(expFile)
		if err != nil {
			coresim.GetLogger().Errorf("Failed to read experiment %s: %v", expFile, err)
			return nil, err
		}
	}

	for flagName, target := range map[string]*string{
		"arch":     &ec.ArchFile,
		"topo":     &ec.TopoFile,
		"workload": &ec.WorkloadFile,
		"log":      &ec.LogFile,
		"trace":    &ec.TraceFile,
		"arbiter":  &ec.Arbiter,
	} {
		if flags.Changed(flagName) || len(*target) == 0 {
			value, _ := flags.GetString(flagName)
			*target = value
		}
	}
	if flags.Changed("cycles") {
		ec.MaxCycles, _ = flags.GetInt("cycles")
	}
	if flags.Changed("workers") || ec.Workers == 0 {
		ec.Workers, _ = flags.GetInt("workers")
	}

	if len(ec.ArchFile) == 0 || len(ec.TopoFile) == 0 {
		return nil, fmt.Errorf("an architecture and a topology file are required, by --exp or by --arch and --topo")
	}
	return ec, nil
}
