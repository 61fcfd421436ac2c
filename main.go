package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/samuelfneumann/qcartpole/agent/tabular/policy"
	"github.com/samuelfneumann/qcartpole/environment"
	"github.com/samuelfneumann/qcartpole/experiment"
	"github.com/samuelfneumann/qcartpole/experiment/trackers"
	"github.com/samuelfneumann/qcartpole/plot"
	"github.com/samuelfneumann/qcartpole/utils/progressbar"
)

const (
	configEnv = "QCARTPOLE_CONFIG"
	outEnv    = "QCARTPOLE_OUT"
)

// trainFlags holds the flags of the train command
type trainFlags struct {
	config string
	out    string
	random bool
	html   bool
	log    bool
	quiet  bool
}

func main() {
	for _, envFile := range []string{".env", "../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	rootCmd := &cobra.Command{
		Use:   "qcartpole",
		Short: "Train and evaluate a tabular Q-learning agent on CartPole",
	}

	var flags trainFlags
	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Train an agent, then evaluate the learned greedy strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(flags)
		},
	}
	trainCmd.Flags().StringVarP(&flags.config, "config", "c",
		os.Getenv(configEnv), "path to a JSON experiment configuration")
	trainCmd.Flags().StringVarP(&flags.out, "out", "o", outDir(),
		"directory in which run directories are created")
	trainCmd.Flags().BoolVar(&flags.random, "random", false,
		"also evaluate a uniformly random strategy")
	trainCmd.Flags().BoolVar(&flags.html, "html", false,
		"also write an interactive HTML learning curve")
	trainCmd.Flags().BoolVar(&flags.log, "log", false,
		"log returns every log_every episodes instead of displaying a "+
			"progress bar")
	trainCmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false,
		"report no training progress")

	var configOut string
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print or save the default experiment configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(configOut)
		},
	}
	configCmd.Flags().StringVarP(&configOut, "out", "o", "",
		"save the configuration to this file instead of printing it")

	rootCmd.AddCommand(trainCmd, configCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func outDir() string {
	if dir := os.Getenv(outEnv); dir != "" {
		return dir
	}
	return "results"
}

func loadConfig(filename string) (experiment.Config, error) {
	if filename == "" {
		return experiment.DefaultConfig(), nil
	}
	return experiment.LoadConfig(filename)
}

func runTrain(flags trainFlags) error {
	config, err := loadConfig(flags.config)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	runID := uuid.New().String()
	dir := filepath.Join(flags.out, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("train: could not create run directory: %w", err)
	}
	log.Printf("run %v: saving to %v", runID, dir)

	returns := trackers.NewReturn(filepath.Join(dir, "returns.bin"))
	lengths := trackers.NewEpisodeLength(filepath.Join(dir, "lengths.bin"))
	exp, q, err := config.CreateExp(returns, lengths)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	defer exp.Close()

	bar := reportProgress(exp, flags, config, os.Stdout, os.Stderr)

	if err := exp.Run(); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if bar {
		fmt.Fprintln(os.Stderr)
	}

	if err := exp.Save(); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if err := config.Save(filepath.Join(dir, "config.json")); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if err := savePlots(q.EpisodeRewards(), dir, flags.html); err != nil {
		return fmt.Errorf("train: %w", err)
	}

	// Evaluate on a fresh environment
	seeds := config.Seeds()
	rewards, evalEnv, err := experiment.Evaluate(config.Env, seeds.Eval,
		q.Greedy(), config.EvalSteps)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	defer evalEnv.Close()

	fmt.Printf("Total reward of the learned strategy: %v\n",
		aurora.Green(floats.Sum(rewards)))

	if flags.random {
		actions, err := environment.NumActions(exp.ActionSpec())
		if err != nil {
			return fmt.Errorf("train: %w", err)
		}
		random, err := policy.NewRandom(actions, seeds.Random)
		if err != nil {
			return fmt.Errorf("train: %w", err)
		}

		rewards, randomEnv, err := experiment.Evaluate(config.Env,
			seeds.Random, random, config.EvalSteps)
		if err != nil {
			return fmt.Errorf("train: %w", err)
		}
		defer randomEnv.Close()

		fmt.Printf("Total reward of the random strategy:  %v\n",
			aurora.Yellow(floats.Sum(rewards)))
	}

	fmt.Printf("Results saved in %v\n", aurora.Cyan(dir))
	return nil
}

// reportProgress sets up how training progress is reported: nothing
// when quiet, log lines on stdout when logging, and a progress bar on
// stderr otherwise. It returns whether a progress bar is displayed.
func reportProgress(exp *experiment.Online, flags trainFlags,
	config experiment.Config, stdout, stderr io.Writer) bool {
	switch {
	case flags.quiet:
		return false

	case flags.log:
		exp.SetLogger(log.New(stdout, "", log.LstdFlags), config.LogEvery)
		return false

	default:
		bar := progressbar.NewManualProgressBar(stderr, 50,
			config.Agent.Episodes)
		exp.Register(trackers.NewProgress(bar))
		return true
	}
}

func savePlots(returns []float64, dir string, html bool) error {
	if len(returns) == 0 {
		return nil
	}
	if err := plot.SavePNG(returns, filepath.Join(dir, "returns.png")); err != nil {
		return err
	}
	if !html {
		return nil
	}

	file, err := os.Create(filepath.Join(dir, "returns.html"))
	if err != nil {
		return err
	}
	defer file.Close()

	return plot.WriteHTML(returns, file)
}

func runConfig(filename string) error {
	config := experiment.DefaultConfig()
	if filename != "" {
		return config.Save(filename)
	}

	data, err := json.MarshalIndent(config, "", "\t")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
