package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/synclab/netsim/simulation"
)

var runFlags struct {
	scenario string
	port     int
	record   bool
	output   string
	open     bool
	xidIDs   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation described by a scenario file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimulation()
	},
}

func init() {
	runCmd.Flags().StringVarP(&runFlags.scenario, "scenario", "s",
		envOr("NETSIM_SCENARIO", "scenario.yaml"),
		"path to the scenario YAML file")
	runCmd.Flags().IntVarP(&runFlags.port, "port", "p",
		envIntOr("NETSIM_PORT", 0),
		"control-plane port (0 picks a random port)")
	runCmd.Flags().BoolVar(&runFlags.record, "record", false,
		"record delivered and dropped events into a SQLite file")
	runCmd.Flags().StringVarP(&runFlags.output, "output", "o", "",
		"event log file name (implies --record)")
	runCmd.Flags().BoolVar(&runFlags.open, "open", false,
		"open the control plane in a browser")
	runCmd.Flags().BoolVar(&runFlags.xidIDs, "xid-ids", false,
		"label events with globally unique IDs instead of sequential ones")

	rootCmd.AddCommand(runCmd)
}

func runSimulation() error {
	scenario, err := simulation.LoadScenario(runFlags.scenario)
	if err != nil {
		return err
	}

	b := simulation.MakeBuilder()
	if runFlags.port > 0 {
		b = b.WithMonitorPort(runFlags.port)
	}
	if runFlags.record || runFlags.output != "" {
		b = b.WithRecording()
	}
	if runFlags.output != "" {
		b = b.WithOutputFileName(runFlags.output)
	}
	if runFlags.xidIDs {
		b = b.WithXIDEventIDs()
	}

	s := b.Build()
	defer s.Terminate()

	if err := scenario.Apply(s); err != nil {
		return err
	}

	s.Driver().Start()

	if scenario.Speed > 0 {
		if err := s.Driver().SetSpeed(scenario.Speed); err != nil {
			return err
		}
	}

	logrus.WithFields(logrus.Fields{
		"run":      s.ID(),
		"scenario": runFlags.scenario,
		"devices":  len(scenario.Devices),
		"monitor":  s.MonitorAddr(),
	}).Info("simulation running")

	if runFlags.open {
		if err := browser.OpenURL(s.MonitorAddr()); err != nil {
			logrus.WithError(err).Warn("could not open browser")
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logrus.Info("shutting down")

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}

	return n
}
