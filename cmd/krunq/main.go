package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"krunq/internal/job"
	"krunq/internal/sched"
	"krunq/internal/task"
)

func main() {
	root := &cobra.Command{
		Use:          "krunq",
		Short:        "tick-driven task scheduling core",
		SilenceUsage: true,
	}
	root.AddCommand(runCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var (
		cfgPath string
		csvPath string
		tasks   int
		rounds  int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "boot the scheduler and drive demo workloads to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := sched.Load(cfgPath)
			sys, env, err := sched.Boot(cfg)
			if err != nil {
				return err
			}
			if csvPath != "" {
				if err := sys.EnableCSVTrace(csvPath); err != nil {
					return err
				}
			}

			stop := make(chan struct{})
			go printEvents(sys.Events(), stop)

			var handles []*task.Task
			for i := 0; i < tasks; i++ {
				name := fmt.Sprintf("worker-%02d", i)
				entry := job.Spin(rounds)
				// sleepers need a periodic clock to wake them
				if cfg.TickMS > 0 && i%3 == 2 {
					entry = job.Sleeper(4*time.Duration(cfg.TickMS)*time.Millisecond, rounds/4+1)
				}
				t, err := env.Spawn(name, entry,
					sched.WithPriority(task.DefaultPriority+i%8),
					sched.OnCPU(i%cfg.CPUs))
				if err != nil {
					return err
				}
				handles = append(handles, t)
			}

			for _, t := range handles {
				env.Join(t)
			}
			close(stop)
			sys.Shutdown()
			fmt.Printf("all %d tasks joined\n", len(handles))
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "config.yml", "path to YAML config")
	cmd.Flags().StringVar(&csvPath, "csv", "", "write a CSV event trace to this file")
	cmd.Flags().IntVar(&tasks, "tasks", 4, "number of demo tasks")
	cmd.Flags().IntVar(&rounds, "rounds", 20, "cooperative rounds per task")
	return cmd
}

func printEvents(events <-chan sched.Event, stop <-chan struct{}) {
	// an auxiliary function to center the event kind in the output
	center := func(str string, width int) string {
		spaces := (width - len(str)) / 2
		return strings.Repeat(" ", spaces) + str + strings.Repeat(" ", width-(spaces+len(str)))
	}

	for {
		select {
		case <-stop:
			return
		case ev := <-events:
			// ticks occur constantly; keep the table readable
			if ev.Kind == sched.EventTick {
				continue
			}
			fmt.Printf("%s = Tick: %07d [%s] => Task: %04d, CPU: %d, vruntime=%07.4f\n",
				ev.Time.Format("Jan 02 15:04:05.000"),
				ev.Tick,
				center(ev.Kind.String(), 10),
				ev.TaskID,
				ev.CPU,
				ev.Vruntime,
			)
		}
	}
}
