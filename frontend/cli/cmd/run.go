package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/conjureai/conjure/backend/agent"
	"github.com/conjureai/conjure/backend/config"
	"github.com/conjureai/conjure/backend/history"
	"github.com/conjureai/conjure/backend/model"
	"github.com/conjureai/conjure/backend/project"
	"github.com/conjureai/conjure/backend/secret"
	"github.com/conjureai/conjure/backend/tool"
	"github.com/conjureai/conjure/backend/toolcall"
	"github.com/conjureai/conjure/frontend/cli/pkg/terminal"
)

type runOptions struct {
	provider      string
	model         string
	maxIterations int
	dryRun        bool
	verify        bool
	noPlan        bool
}

func NewRunCmd() *cobra.Command {
	options := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <task...>",
		Short: "Run the agent on a task in the current project",
		Long: `Run the agent on a task in the current project.

Examples:
  # Ask for a change in the current directory
  conjure run "add a --version flag to the CLI"

  # Try it without touching any files
  conjure run --dry-run "rename the config package"

  # Verify the result with the project's checks afterwards
  conjure run --verify "fix the failing date parsing"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			globals := getGlobalOptions(cmd.Context())
			prompt := strings.Join(args, " ")

			cfg, err := config.Load(globals.ProjectDir)
			if err != nil {
				return err
			}
			applyOverrides(cfg, options)

			deps, err := buildRunDeps(*cfg, globals.ProjectDir)
			if err != nil {
				return err
			}

			pc, err := project.Scan(deps.fs, globals.ProjectDir)
			if err != nil {
				return err
			}

			a := agent.New(*cfg, deps.client, deps.executor, deps.journal,
				agent.WithPlanner(agent.NewChatPlanner(deps.client)),
				agent.WithCallbacks(consoleCallbacks(cmd)),
			)

			result := a.Run(cmd.Context(), prompt, pc)
			printResult(cmd, result, deps.tracker)

			if result.Aborted {
				return fmt.Errorf("run aborted")
			}
			if !result.Success {
				return fmt.Errorf("%s", result.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&options.provider, "provider", "", "model provider to use")
	cmd.Flags().StringVar(&options.model, "model", "", "model id to use")
	cmd.Flags().IntVar(&options.maxIterations, "max-iterations", 0, "iteration ceiling for this run")
	cmd.Flags().BoolVar(&options.dryRun, "dry-run", false, "simulate tool calls without touching anything")
	cmd.Flags().BoolVar(&options.verify, "verify", false, "run verification checks after completion")
	cmd.Flags().BoolVar(&options.noPlan, "no-plan", false, "skip the planning step")
	return cmd
}

func applyOverrides(cfg *config.Config, options *runOptions) {
	if options.provider != "" {
		cfg.Provider = options.provider
	}
	if options.model != "" {
		cfg.Model = options.model
	}
	if options.maxIterations > 0 {
		cfg.MaxIterations = options.maxIterations
	}
	if options.dryRun {
		cfg.DryRun = true
	}
	if options.verify {
		cfg.AutoVerify = true
	}
	if options.noPlan {
		cfg.Planning = false
	}
}

type runDeps struct {
	fs       afero.Fs
	client   *model.Client
	executor *tool.Executor
	journal  *history.Journal
	tracker  *model.MemoryUsageTracker
}

// secretBackend chains the OS keyring with a file store under the state
// directory, so keys still resolve where no keyring daemon is running.
func secretBackend(cfg config.Config, fs afero.Fs) secret.Provider {
	providers := []secret.Provider{secret.NewKeyringProvider()}
	if fileStore, err := secret.NewFileProvider(filepath.Join(cfg.StateDir, "secrets"), fs); err == nil {
		providers = append(providers, fileStore)
	}
	return secret.NewChain(providers...)
}

func buildRunDeps(cfg config.Config, projectDir string) (*runDeps, error) {
	fs := afero.NewOsFs()

	secrets := secret.NewStore(secretBackend(cfg, fs))
	catalog := tool.NewCatalog(secrets)
	tracker := model.NewMemoryUsageTracker()

	client := model.NewClient(cfg, secrets, catalog,
		model.WithUsageTracker(tracker),
		model.WithMetrics(prometheus.NewRegistry()),
		model.WithLogger(slog.Default()),
	)

	executor := tool.NewExecutor(projectDir,
		tool.WithFs(fs),
		tool.WithCommandTimeout(cfg.CommandTimeout),
		tool.WithCredentials(secrets),
	)

	store, err := history.NewStore(fs, filepath.Join(cfg.StateDir, "sessions"))
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	journal := history.NewJournal(fs, store)

	return &runDeps{
		fs:       fs,
		client:   client,
		executor: executor,
		journal:  journal,
		tracker:  tracker,
	}, nil
}

func consoleCallbacks(cmd *cobra.Command) agent.Callbacks {
	out := cmd.OutOrStdout()
	return agent.Callbacks{
		OnIteration: func(n int, label string) {
			fmt.Fprintf(out, "\n%s\n", terminal.Iteration(n, label))
		},
		OnToolCall: func(call toolcall.ToolCall) {
			fmt.Fprintf(out, "  %s\n", terminal.Action(describeCall(call)))
		},
		OnToolResult: func(result tool.Result, call toolcall.ToolCall) {
			if result.Success {
				fmt.Fprintf(out, "    %s\n", terminal.Success(firstLine(result.Output)))
			} else {
				fmt.Fprintf(out, "    %s\n", terminal.Failure(result.Error))
			}
		},
		OnThinking: func(chunk string) {
			fmt.Fprint(out, chunk)
		},
		OnTaskPlan: func(plan []string) {
			fmt.Fprintln(out, "Plan:")
			for i, step := range plan {
				fmt.Fprintf(out, "  %d. %s\n", i+1, step)
			}
		},
		OnVerification: func(results []agent.CheckResult) {
			for _, check := range results {
				line := terminal.Failure(check.Command)
				if check.Passed {
					line = terminal.Success(check.Command)
				}
				fmt.Fprintf(out, "  %s\n", line)
			}
		},
	}
}

func describeCall(call toolcall.ToolCall) string {
	for _, key := range []string{"path", "command", "query", "pattern", "url", "repository"} {
		if v, ok := call.Parameters[key].(string); ok && v != "" {
			return fmt.Sprintf("%s %s", call.Tool, v)
		}
	}
	return call.Tool
}

func printResult(cmd *cobra.Command, result *agent.AgentResult, tracker *model.MemoryUsageTracker) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	if result.FinalResponse != "" {
		fmt.Fprintln(out, terminal.Markdown(result.FinalResponse, 100))
	}
	usage := tracker.Grand()
	fmt.Fprintf(out, "\n%d iterations, %d actions, %d tokens\n",
		result.Iterations, len(result.Actions), usage.Total())
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
