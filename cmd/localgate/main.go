package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zen-systems/localgate/pkg/cloud"
	"github.com/zen-systems/localgate/pkg/config"
	"github.com/zen-systems/localgate/pkg/contextpack"
	"github.com/zen-systems/localgate/pkg/estimate"
	"github.com/zen-systems/localgate/pkg/inspect"
	"github.com/zen-systems/localgate/pkg/learn"
	"github.com/zen-systems/localgate/pkg/lightpass"
	"github.com/zen-systems/localgate/pkg/localmodel"
	"github.com/zen-systems/localgate/pkg/metrics"
	"github.com/zen-systems/localgate/pkg/route"
)

var (
	delegationFile string
	levelFlag      int
	jsonFlag       bool
	debugFlag      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "localgate",
		Short: "Route coding tasks between a free local model and paid cloud models",
		Long: `Localgate decides per task whether a local model can safely handle it,
	executes it locally under a quality contract, retries with more context
	when output is merely suspect, and escalates to the cloud when it is not.`,
	}

	rootCmd.PersistentFlags().StringVar(&delegationFile, "config", "", "path to delegation config file")
	rootCmd.PersistentFlags().IntVar(&levelFlag, "level", -1, "delegation level override (0-5)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "print JSON output")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(estimateCmd())
	rootCmd.AddCommand(recommendCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(rulesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [task]",
		Short: "Show the routing decision for a task without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			classifier := buildClassifier(cfg)
			decision := classifier.ClassifyAt(context.Background(), args[0], effectiveLevel(cfg))

			if jsonFlag {
				return printJSON(decision)
			}
			fmt.Printf("route:      %s\n", decision.Route)
			fmt.Printf("layer:      %s\n", decision.Layer)
			fmt.Printf("complexity: %d\n", decision.TaskComplexity)
			fmt.Printf("confidence: %.2f\n", decision.Confidence)
			fmt.Printf("policy:     %s\n", decision.EscalationPolicy)
			fmt.Printf("reason:     %s\n", decision.Reason)
			if decision.SuggestedModel != "" {
				fmt.Printf("suggested:  %s\n", decision.SuggestedModel)
			}
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	var toolFlag string
	var filesFlag []string
	var allowedFlag []string
	var requireFlag []string
	var cloudFlag string

	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Execute a task through the light-pass pipeline",
		Long: `Runs the full protocol: classify, pack context, attempt locally, gate the
	output, retry once with expanded context on soft failures, and escalate
	otherwise.

	With --cloud, escalations are forwarded to the named cloud adapter
	(anthropic, openai, or google) instead of being returned as a payload.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store := buildStore(cfg)
			classifier := buildClassifier(cfg)
			packer := contextpack.NewPacker(inspect.NewInspector(), cfg.Delegation.Packer)
			chatter := localmodel.NewClient(cfg.Delegation.Ollama.Endpoint, cfg.Delegation.Ollama.Model)

			var execOpts []lightpass.ExecutorOption
			if debugFlag {
				execOpts = append(execOpts, lightpass.WithLogger(func(format string, a ...any) {
					fmt.Fprintf(os.Stderr, format+"\n", a...)
				}))
			}
			if cloudFlag != "" {
				adapter, err := buildCloudAdapter(cfg, cloudFlag)
				if err != nil {
					return err
				}
				execOpts = append(execOpts, lightpass.WithForwarder(cloud.NewForwarder(adapter, "")))
			}

			executor := lightpass.NewExecutor(cfg.Delegation, classifier, packer, chatter, store, execOpts...)

			level := effectiveLevel(cfg)
			outcome := executor.Execute(context.Background(), args[0], lightpass.Options{
				Tool:             toolFlag,
				DelegationLevel:  &level,
				FileRefs:         filesFlag,
				AllowedFiles:     allowedFlag,
				RequiredSections: requireFlag,
			})

			if jsonFlag {
				return printJSON(outcome)
			}
			switch outcome.Kind {
			case lightpass.OutcomeSuccess:
				s := outcome.Success
				fmt.Printf("-- %s (%s, attempt %d, %d tokens, %dms)\n\n",
					s.QualityStatus, s.Model, s.AttemptCount, s.TokensUsed, s.DurationMs)
				fmt.Println(s.Response)
			case lightpass.OutcomeEscalation:
				e := outcome.Escalation
				fmt.Printf("-- escalated after %d attempt(s): %s\n", e.AttemptCount, e.Message)
				for _, reason := range e.Reasons {
					fmt.Printf("   - %s\n", reason)
				}
				if e.CloudResponse != "" {
					fmt.Printf("\n%s\n", e.CloudResponse)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&toolFlag, "tool", "generate_code", "tool identity for estimation and metrics")
	cmd.Flags().StringSliceVar(&filesFlag, "file", nil, "file to pack as context (repeatable)")
	cmd.Flags().StringSliceVar(&allowedFlag, "allow", nil, "allowed output file (repeatable, enables scope check)")
	cmd.Flags().StringSliceVar(&requireFlag, "require", nil, "required keyword in output (repeatable)")
	cmd.Flags().StringVar(&cloudFlag, "cloud", "", "forward escalations to a cloud adapter")
	return cmd
}

func estimateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "estimate [tool] [level]",
		Short: "Estimate the output token budget for a tool at a complexity level",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			level, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("level must be an integer: %w", err)
			}

			store := buildStore(cfg)
			history := store.LoadDelegations(func(r metrics.DelegationRecord) bool {
				return r.Tool == args[0]
			})
			est := estimate.OutputTokens(args[0], level, history)

			if jsonFlag {
				return printJSON(est)
			}
			fmt.Printf("tokens:     %d\n", est.Tokens)
			fmt.Printf("confidence: %.2f\n", est.Confidence)
			fmt.Printf("source:     %s (%d samples)\n", est.Source, est.SampleSize)
			return nil
		},
	}
}

func recommendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recommend [task_type] [level]",
		Short: "Show the learner's recommendation for a task type and level",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			level, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("level must be an integer: %w", err)
			}

			store := buildStore(cfg)
			history := store.LoadHistory(func(h metrics.HistoryRecord) bool {
				return h.TaskType == args[0] && h.LevelUsed == level
			})
			rec := learn.Recommend(args[0], level, history,
				*cfg.Delegation.EnableLearning, cfg.Delegation.MinLearnSamples)

			if jsonFlag {
				return printJSON(rec)
			}
			fmt.Printf("recommended level:     %d\n", rec.RecommendedLevel)
			fmt.Printf("confidence adjustment: %+.2f\n", rec.ConfidenceAdjustment)
			fmt.Printf("samples:               %d\n", rec.SampleSize)
			fmt.Printf("reason:                %s\n", rec.Reason)
			return nil
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the local model runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			client := localmodel.NewClient(cfg.Delegation.Ollama.Endpoint, cfg.Delegation.Ollama.Model)
			status := client.Health(context.Background(), cfg.Delegation.Ollama.HealthTimeoutMs)

			if jsonFlag {
				return printJSON(status)
			}
			if !status.Healthy {
				fmt.Printf("unhealthy: %s\n", status.Error)
				return nil
			}
			fmt.Printf("healthy (%dms)\n", status.LatencyMs)
			for _, model := range status.Models {
				fmt.Printf("  %s\n", model)
			}
			return nil
		},
	}
}

func rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the layer-1 pattern rules in match order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			rules := cfg.Delegation.Rules
			if jsonFlag {
				return printJSON(rules)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATTERN\tROUTE\tCOMPLEXITY\tCOST\tCATEGORY")
			for _, r := range rules {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", r.Pattern, r.Route, r.Complexity, r.CostOfWrong, r.Category)
			}
			return w.Flush()
		},
	}
}

func loadConfig() (*config.Config, error) {
	if delegationFile != "" {
		return config.LoadWithDelegationFile(delegationFile)
	}
	return config.Load()
}

func effectiveLevel(cfg *config.Config) int {
	if levelFlag >= 0 {
		return levelFlag
	}
	return cfg.Delegation.Level
}

func buildStore(cfg *config.Config) *metrics.Store {
	dir := cfg.Delegation.Metrics.Path
	if dir == "" {
		dir = filepath.Join(cfg.ConfigDir, "metrics")
	}
	return metrics.NewStore(dir, *cfg.Delegation.Metrics.Enabled)
}

func buildClassifier(cfg *config.Config) *route.Classifier {
	opts := []route.Option{
		route.WithHistory(buildStore(cfg)),
		route.WithDebug(debugFlag),
	}
	if *cfg.Delegation.EnableTriage {
		chatter := localmodel.NewClient(cfg.Delegation.Ollama.Endpoint, cfg.Delegation.Ollama.TriageModel)
		opts = append(opts, route.WithTriage(chatter))
	}
	return route.NewClassifier(cfg.Delegation, opts...)
}

func buildCloudAdapter(cfg *config.Config, name string) (cloud.Adapter, error) {
	switch name {
	case "anthropic":
		return cloud.NewAnthropicAdapter(cfg.AnthropicAPIKey)
	case "openai":
		return cloud.NewOpenAIAdapter(cfg.OpenAIAPIKey)
	case "google":
		return cloud.NewGoogleAdapter(cfg.GoogleAPIKey)
	case "mock":
		return cloud.NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown cloud adapter %q", name)
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
