package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/nabahah/riskscore/internal/forest"
	"github.com/nabahah/riskscore/internal/risk"
	"github.com/nabahah/riskscore/internal/synth"
	"github.com/nabahah/riskscore/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL    string
	cfgFile      string
	outputFormat string
	timeout      time.Duration
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "riskctl",
	Short: "Nabahah risk scoring CLI",
	Long: `riskctl talks to a riskd server: score transactions, inspect the
model and look up recorded assessments. "riskctl train" fits the model
locally without a server.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.riskctl")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("RISKCTL")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:5000"
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.riskctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "riskd base URL (default http://localhost:5000)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "Output format: text or json")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(modelInfoCmd)
	rootCmd.AddCommand(assessmentCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() (*client.Client, error) {
	return client.New(serverURL, client.WithTimeout(timeout))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── score ────────────────────────────────────────────────────────────────────

var scoreFlags struct {
	deviceType, locationMatch, timeAnomaly, sensitivity, failedAttempts int
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a transaction",
	Long: `Score sends the given signals to riskd. Signals not set on the
command line are left to the server defaults.

  riskctl score --failed-attempts 3 --time-anomaly 1`,
	Args: cobra.NoArgs,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.IntVar(&scoreFlags.deviceType, "device-type", 1, "1 = known device, 0 = unknown")
	f.IntVar(&scoreFlags.locationMatch, "location-match", 1, "1 = usual location, 0 = mismatch")
	f.IntVar(&scoreFlags.timeAnomaly, "time-anomaly", 0, "1 = unusual time of day")
	f.IntVar(&scoreFlags.sensitivity, "sensitivity", 0, "Transaction sensitivity: 0 low, 1 medium, 2 high")
	f.IntVar(&scoreFlags.failedAttempts, "failed-attempts", 0, "Recent failed attempts (0-5)")
}

func runScore(cmd *cobra.Command, _ []string) error {
	var req client.CalculateRequest
	flags := cmd.Flags()
	if flags.Changed("device-type") {
		req.DeviceType = client.Int(scoreFlags.deviceType)
	}
	if flags.Changed("location-match") {
		req.LocationMatch = client.Int(scoreFlags.locationMatch)
	}
	if flags.Changed("time-anomaly") {
		req.TimeAnomaly = client.Int(scoreFlags.timeAnomaly)
	}
	if flags.Changed("sensitivity") {
		req.TransactionSensitivity = client.Int(scoreFlags.sensitivity)
	}
	if flags.Changed("failed-attempts") {
		req.RecentFailedAttempts = client.Int(scoreFlags.failedAttempts)
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	res, err := c.CalculateRisk(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}
	if outputFormat == "json" {
		return printJSON(res)
	}
	printAssessment(res)
	return nil
}

func printAssessment(a *client.Assessment) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	id := a.AssessmentID
	if id == "" {
		id = a.ID
	}
	if id != "" {
		fmt.Fprintf(w, "Assessment:\t%s\n", id)
	}
	fmt.Fprintf(w, "Risk score:\t%d\n", a.RiskScore)
	fmt.Fprintf(w, "Level:\t%s (%s)\n", a.Level, a.LevelAr)
	fmt.Fprintf(w, "Action:\t%s\n", a.Action)
	fmt.Fprintf(w, "Recommendation:\t%s\n", a.Recommendation)
	fmt.Fprintf(w, "Input:\tdevice_type=%d location_match=%d time_anomaly=%d transaction_sensitivity=%d recent_failed_attempts=%d\n",
		a.Input.DeviceType, a.Input.LocationMatch, a.Input.TimeAnomaly,
		a.Input.TransactionSensitivity, a.Input.RecentFailedAttempts)
	w.Flush()
}

// ── health ───────────────────────────────────────────────────────────────────

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that riskd is up",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		h, err := c.Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("health: %w", err)
		}
		if outputFormat == "json" {
			return printJSON(h)
		}
		fmt.Printf("%s: %s (%s, %d training samples)\n", h.Status, h.Message, h.Model, h.TrainingSamples)
		return nil
	},
}

// ── model-info ───────────────────────────────────────────────────────────────

var modelInfoCmd = &cobra.Command{
	Use:   "model-info",
	Short: "Show the server's model and feature importances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		info, err := c.ModelInfo(cmd.Context())
		if err != nil {
			return fmt.Errorf("model-info: %w", err)
		}
		if outputFormat == "json" {
			return printJSON(info)
		}
		fmt.Printf("%s: %d trees, max depth %d, %d training samples, R² %.4f\n",
			info.ModelType, info.NEstimators, info.MaxDepth, info.TrainingSamples, info.R2)
		printImportances(info.FeatureImportances)
		return nil
	},
}

// printImportances lists features by descending importance.
func printImportances(imp map[string]float64) {
	names := make([]string, 0, len(imp))
	for name := range imp {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return imp[names[i]] > imp[names[j]] })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FEATURE\tIMPORTANCE\tSHARE")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%.4f\t%.2f%%\n", name, imp[name], imp[name]*100)
	}
	w.Flush()
}

// ── assessment ───────────────────────────────────────────────────────────────

var assessmentLimit int

var assessmentCmd = &cobra.Command{
	Use:   "assessment [id]",
	Short: "Show a recorded assessment, or list recent ones",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		if len(args) == 1 {
			a, err := c.GetAssessment(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get assessment: %w", err)
			}
			if outputFormat == "json" {
				return printJSON(a)
			}
			printAssessment(a)
			return nil
		}

		list, err := c.ListAssessments(cmd.Context(), assessmentLimit)
		if err != nil {
			return fmt.Errorf("list assessments: %w", err)
		}
		if outputFormat == "json" {
			return printJSON(list)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tSCORE\tLEVEL\tACTION")
		for _, a := range list {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				a.ID, a.CreatedAt.Format(time.RFC3339), a.RiskScore, a.Level, a.Action)
		}
		return w.Flush()
	},
}

func init() {
	assessmentCmd.Flags().IntVar(&assessmentLimit, "limit", 20, "Maximum number of assessments to list")
}

// ── train ────────────────────────────────────────────────────────────────────

var (
	trainData   = synth.DefaultConfig()
	trainParams = forest.DefaultParams()
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit the model locally and report its quality",
	Long: `Train generates the synthetic training set and fits the random
forest exactly as riskd does at startup, then prints R² and the feature
importances. Useful for checking hyperparameter changes before deploying.`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	f := trainCmd.Flags()
	f.IntVar(&trainData.Samples, "samples", trainData.Samples, "Synthetic training rows")
	f.Uint64Var(&trainData.Seed, "data-seed", trainData.Seed, "Seed for the data generator")
	f.Float64Var(&trainData.NoiseStdDev, "noise", trainData.NoiseStdDev, "Label noise standard deviation")
	f.IntVar(&trainParams.NEstimators, "n-estimators", trainParams.NEstimators, "Number of trees")
	f.IntVar(&trainParams.MaxDepth, "max-depth", trainParams.MaxDepth, "Maximum tree depth (0 = unlimited)")
	f.IntVar(&trainParams.MinSamplesSplit, "min-samples-split", trainParams.MinSamplesSplit, "Minimum samples to split a node")
	f.IntVar(&trainParams.MinSamplesLeaf, "min-samples-leaf", trainParams.MinSamplesLeaf, "Minimum samples per leaf")
	f.IntVar(&trainParams.MaxFeatures, "max-features", trainParams.MaxFeatures, "Features tried per split (0 = all)")
	f.Uint64Var(&trainParams.Seed, "seed", trainParams.Seed, "Seed for bootstrap and feature sampling")
	f.IntVar(&trainParams.Workers, "workers", trainParams.Workers, "Concurrent tree fits (0 = GOMAXPROCS)")
}

func runTrain(cmd *cobra.Command, _ []string) error {
	model, err := risk.Train(cmd.Context(), trainData, trainParams, zap.NewNop())
	if err != nil {
		return err
	}
	info := model.Info()

	if outputFormat == "json" {
		return printJSON(info)
	}
	fmt.Printf("Random Forest Regressor: %d trees, %d nodes, deepest tree %d\n",
		info.NEstimators, info.Nodes, info.MaxTreeDepth)
	fmt.Printf("Training samples: %d\n", info.TrainingSamples)
	fmt.Printf("R² (training set): %.4f\n", info.R2)
	fmt.Printf("Fit time: %s\n\n", info.TrainingDuration.Round(time.Millisecond))
	printImportances(info.FeatureImportances)
	return nil
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the riskctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("riskctl %s (Nabahah risk scoring)\n", version)
	},
}
