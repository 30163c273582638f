// riva is a recursive intention-verification engine for coding tasks.
//
// A goal becomes a tree of intentions. Each intention is either verified
// directly through thought/action/judgment cycles, or decomposed into
// smaller intentions that are. Every run is captured as a session and
// persisted for later inspection.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"riva/internal/config"
	"riva/internal/intention"
	"riva/internal/logging"
	"riva/internal/provider"
	"riva/internal/quality"
	"riva/internal/sandbox"
	"riva/internal/store"
	"riva/internal/tools"
)

var (
	logger *zap.Logger
	cfg    *config.Config

	// Global flags
	configPath string
	workspace  string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "riva",
	Short: "Recursive intention-verification engine",
	Long: `riva executes coding goals by recursive decomposition.

Core principle: if you can't verify it, decompose it.

A goal becomes an intention tree. Verifiable intentions are satisfied
through thought/action/judgment cycles; everything else is broken into
sub-intentions until the pieces are small enough to verify.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		workspace, err = filepath.Abs(workspace)
		if err != nil {
			return fmt.Errorf("failed to resolve workspace: %w", err)
		}

		cfg, err = config.Load(resolvePath(configPath))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if verbose {
			cfg.Logging.DebugMode = true
			cfg.Logging.Level = "debug"
		}

		return logging.Initialize(workspace, logging.Options{
			DebugMode:  cfg.Logging.DebugMode,
			Categories: cfg.Logging.Categories,
			Level:      cfg.Logging.Level,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// resolvePath anchors relative paths at the workspace.
func resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workspace, path)
}

func openStore() (*store.SessionStore, error) {
	return store.NewSessionStore(resolvePath(cfg.Store.DatabasePath))
}

var (
	runAcceptance  string
	runProvider    string
	runModel       string
	runAPIKey      string
	runBaseURL     string
	runMaxCycles   int
	runMaxDepth    int
	runInteractive bool
	runSessionOut  string
)

var runCmd = &cobra.Command{
	Use:   "run [goal...]",
	Short: "Execute a goal in the workspace",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		goal := strings.Join(args, " ")

		applyRunOverrides()
		if err := cfg.Validate(); err != nil {
			return err
		}

		sb, err := sandbox.NewLocal(workspace)
		if err != nil {
			return fmt.Errorf("failed to open workspace sandbox: %w", err)
		}

		llm, err := buildLLMClient()
		if err != nil {
			return err
		}

		var checkpoint intention.Checkpoint
		if runInteractive {
			checkpoint = buildInteractiveCheckpoint(sb, llm)
		} else {
			checkpoint = intention.NewAutoCheckpoint(sb, llm)
		}

		runID := uuid.NewString()
		runLog, err := logging.NewRunLog(filepath.Join(workspace, ".riva", "runs"), runID, goal)
		if err != nil {
			return fmt.Errorf("failed to create run log: %w", err)
		}

		wc := intention.NewWorkContext(sb, llm, checkpoint)
		wc.Log = runLog
		wc.Quality = quality.NewTracker()
		wc.Tools = buildToolProvider(sb)
		wc.MaxCyclesPerIntention = cfg.Engine.MaxCyclesPerIntention
		wc.MaxDepth = cfg.Engine.MaxDepth
		wc.CommandTimeout = cfg.CommandTimeout()

		wc.OnIntentionStart = func(it *intention.Intention) {
			fmt.Printf("%s-> %s\n", strings.Repeat("  ", treeDepth(it)), it.What)
		}
		wc.OnCycleComplete = func(it *intention.Intention, c *intention.Cycle) {
			fmt.Printf("%s   [%s] %s\n", strings.Repeat("  ", treeDepth(it)), c.Judgment, head(c.Thought, 70))
		}
		wc.OnDecomposition = func(it *intention.Intention, children []*intention.Intention) {
			fmt.Printf("%s   split into %d sub-intentions\n", strings.Repeat("  ", treeDepth(it)), len(children))
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			logger.Warn("signal received, aborting run", zap.String("signal", sig.String()))
			cancel()
		}()

		logger.Info("starting run",
			zap.String("run_id", runID),
			zap.String("goal", goal),
			zap.String("provider", cfg.LLM.Provider),
			zap.String("workspace", workspace))

		acceptance := runAcceptance
		if acceptance == "" {
			acceptance = fmt.Sprintf("Goal verified: %s", goal)
		}

		start := time.Now()
		root := intention.New(goal, acceptance, "")
		intention.Work(ctx, root, wc, 0)

		session := intention.NewSession(root)
		session.Metadata["duration"] = time.Since(start).Seconds()

		s, err := openStore()
		if err != nil {
			logger.Error("session store unavailable", zap.Error(err))
		} else {
			defer s.Close()
			if err := s.Save(session); err != nil {
				logger.Error("failed to persist session", zap.Error(err))
			}
		}
		if runSessionOut != "" {
			if err := session.Save(resolvePath(runSessionOut)); err != nil {
				logger.Error("failed to write session file", zap.Error(err))
			}
		}

		outcome := string(root.Status)
		_ = runLog.Close(outcome)

		fmt.Println()
		printTree(root, 0, true)
		printQualitySummary(wc.Quality.Summarize())
		fmt.Printf("\nSession: %s (%s in %s)\n", session.ID, outcome, time.Since(start).Round(time.Millisecond))

		if ctx.Err() != nil {
			return fmt.Errorf("run aborted: %w", ctx.Err())
		}
		if root.Status != intention.StatusVerified {
			return fmt.Errorf("goal not verified: %s", goal)
		}
		return nil
	},
}

func applyRunOverrides() {
	if runProvider != "" {
		cfg.LLM.Provider = runProvider
	}
	if runModel != "" {
		cfg.LLM.Model = runModel
	}
	if runAPIKey != "" {
		cfg.LLM.APIKey = runAPIKey
	}
	if runBaseURL != "" {
		cfg.LLM.BaseURL = runBaseURL
	}
	if runMaxCycles > 0 {
		cfg.Engine.MaxCyclesPerIntention = runMaxCycles
	}
	if runMaxDepth >= 0 {
		cfg.Engine.MaxDepth = runMaxDepth
	}
}

// buildLLMClient returns nil for the "none" provider: the engine then runs
// on heuristics alone.
func buildLLMClient() (provider.Client, error) {
	switch cfg.LLM.Provider {
	case "", "none":
		logger.Info("no LLM provider configured, running heuristics only")
		return nil, nil
	case "anthropic":
		ac := provider.DefaultAnthropicConfig(cfg.LLM.APIKey)
		if cfg.LLM.Model != "" {
			ac.Model = cfg.LLM.Model
		}
		if cfg.LLM.BaseURL != "" {
			ac.BaseURL = cfg.LLM.BaseURL
		}
		return provider.NewAnthropicClientWithConfig(ac), nil
	case "ollama":
		oc := provider.DefaultOllamaConfig()
		if cfg.LLM.Model != "" {
			oc.Model = cfg.LLM.Model
		}
		if cfg.LLM.BaseURL != "" {
			oc.BaseURL = cfg.LLM.BaseURL
		}
		return provider.NewOllamaClientWithConfig(oc), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLM.Provider)
	}
}

func buildToolProvider(sb sandbox.Sandbox) tools.Provider {
	composite := tools.NewCompositeProvider(tools.NewSandboxProvider(sb))
	if cfg.Web.DocsURL != "" || cfg.Web.SearchURL != "" {
		composite.AddProvider(tools.NewWebProvider(tools.WebConfig{
			DocsURL:   cfg.Web.DocsURL,
			SearchURL: cfg.Web.SearchURL,
		}))
	}
	return composite
}

// buildInteractiveCheckpoint prompts on stdin at each decomposition and
// integration gate. Judgments stay automatic unless overridden.
func buildInteractiveCheckpoint(sb sandbox.Sandbox, llm provider.Client) *intention.UICheckpoint {
	reader := bufio.NewReader(os.Stdin)
	cp := intention.NewUICheckpoint(sb, llm)

	cp.OnJudgeAction = func(it *intention.Intention, c *intention.Cycle, auto intention.Judgment) intention.Judgment {
		fmt.Printf("\njudge action for: %s\n  result: %s\n  auto judgment: %s\n", head(it.What, 60), head(c.Result, 120), auto)
		answer := prompt(reader, "accept [enter] or override (s/f/p): ")
		switch answer {
		case "s":
			return intention.JudgmentSuccess
		case "f":
			return intention.JudgmentFailure
		case "p":
			return intention.JudgmentPartial
		default:
			return auto
		}
	}
	cp.OnApproveDecomposition = func(it *intention.Intention, proposed []*intention.Intention) bool {
		fmt.Printf("\nproposed decomposition of: %s\n", head(it.What, 60))
		for i, child := range proposed {
			fmt.Printf("  %d. %s\n     accept when: %s\n", i+1, child.What, child.Acceptance)
		}
		return prompt(reader, "approve? [Y/n]: ") != "n"
	}
	cp.OnVerifyIntegration = func(it *intention.Intention) bool {
		fmt.Printf("\nall children verified for: %s\n", head(it.What, 60))
		return prompt(reader, "confirm integration? [Y/n]: ") != "n"
	}
	return cp
}

func prompt(reader *bufio.Reader, question string) string {
	fmt.Print(question)
	line, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(line))
}

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		summaries, err := s.List(sessionsLimit)
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Println("No sessions recorded.")
			return nil
		}

		fmt.Printf("%-20s %-19s %-10s %7s %6s  %s\n", "ID", "CREATED", "OUTCOME", "CYCLES", "DEPTH", "GOAL")
		for _, sum := range summaries {
			fmt.Printf("%-20s %-19s %-10s %7d %6d  %s\n",
				sum.ID,
				sum.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				sum.Outcome,
				sum.TotalCycles,
				sum.MaxDepth,
				head(sum.Goal, 60))
		}
		return nil
	},
}

var showCycles bool

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a stored session's intention tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		session, err := s.Load(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Session %s (%s)\n", session.ID, session.Timestamp)
		for k, v := range session.Metadata {
			fmt.Printf("  %s: %v\n", k, v)
		}
		fmt.Println()
		printTree(session.Root, 0, showCycles)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted session %s\n", args[0])
		return nil
	},
}

func statusMark(status intention.Status) string {
	switch status {
	case intention.StatusVerified:
		return "✓"
	case intention.StatusFailed:
		return "✗"
	case intention.StatusActive:
		return "~"
	default:
		return "·"
	}
}

func printTree(it *intention.Intention, indent int, withCycles bool) {
	pad := strings.Repeat("  ", indent)
	fmt.Printf("%s%s %s\n", pad, statusMark(it.Status), it.What)
	if withCycles {
		for _, c := range it.Trace {
			fmt.Printf("%s    [%s] %s %s -> %s\n",
				pad, c.Judgment, c.Action.Type, head(c.Action.Target, 30), head(c.Result, 60))
		}
	}
	for _, child := range it.ChildIntentions() {
		printTree(child, indent+1, withCycles)
	}
}

func printQualitySummary(summary quality.Summary) {
	if summary.Total == 0 {
		return
	}
	fmt.Printf("\nDecision quality: %d decisions, %.0f%% heuristic fallback\n",
		summary.Total, summary.FallbackRatio*100)
	for tier, count := range summary.ByTier {
		fmt.Printf("  %-20s %d\n", tier, count)
	}
}

// treeDepth gives the progress printer one indent level for sub-intentions.
func treeDepth(it *intention.Intention) int {
	if it.ParentID == "" {
		return 0
	}
	return 1
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".riva/config.yaml", "config file path (relative to workspace)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	runCmd.Flags().StringVar(&runAcceptance, "acceptance", "", "acceptance criteria for the goal")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "LLM provider (anthropic, ollama, none)")
	runCmd.Flags().StringVar(&runModel, "model", "", "LLM model override")
	runCmd.Flags().StringVar(&runAPIKey, "api-key", "", "LLM API key override")
	runCmd.Flags().StringVar(&runBaseURL, "base-url", "", "LLM base URL override")
	runCmd.Flags().IntVar(&runMaxCycles, "max-cycles", 0, "max action cycles per intention")
	runCmd.Flags().IntVar(&runMaxDepth, "max-depth", -1, "max decomposition depth")
	runCmd.Flags().BoolVarP(&runInteractive, "interactive", "i", false, "confirm judgments and decompositions on stdin")
	runCmd.Flags().StringVar(&runSessionOut, "session-out", "", "also write the session JSON to this file")

	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "max sessions to list")
	showCmd.Flags().BoolVar(&showCycles, "cycles", true, "include action cycles")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
