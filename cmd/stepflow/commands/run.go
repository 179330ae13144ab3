package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stepflow/stepflow/internal/headless"
)

var (
	runPrompt       string
	runWorkDir      string
	runAutoApprove  bool
	runOutputFormat string
	runTimeout      string
	runMaxSteps     int
	runStdin        bool
	runNoSave       bool
	runSessionID    string
	runContinue     bool
	runFiles        []string
	runSystemPrompt string
	runQuiet        bool
	runVerbose      bool
	runAgent        string
	runTitle        string
)

var runCmd = &cobra.Command{
	Use:   "run [prompt...]",
	Short: "Run a single prompt through the agentic loop",
	Long: `Run executes a prompt to completion and prints the result to stdout.
All events are streamed in the requested format (text, json, or jsonl).

Examples:
  # Simple prompt
  stepflow run "Fix the bug in main.go"

  # Auto-approve all tool executions
  stepflow run --yolo "Refactor the authentication module"

  # With timeout and JSON output
  stepflow run -o json -t 5m "Run tests and fix failures"

  # Read prompt from stdin
  echo "Fix linting errors" | stepflow run --stdin

  # Continue previous session
  stepflow run -c "Now add tests for what you just implemented"

  # With context files
  stepflow run -f spec.md -f api.yaml "Implement the API from spec"

  # Stream JSONL events for programmatic consumption
  stepflow run -o jsonl "Implement feature X" | jq -r '.type'`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runPrompt, "prompt", "p", "", "Prompt/instruction to execute")
	runCmd.Flags().BoolVar(&runStdin, "stdin", false, "Read prompt from stdin")
	runCmd.Flags().StringArrayVarP(&runFiles, "file", "f", nil, "File(s) to attach as context")

	runCmd.Flags().StringVarP(&runWorkDir, "workdir", "w", "", "Working directory")
	runCmd.Flags().StringVarP(&runSessionID, "session", "s", "", "Continue existing session ID")
	runCmd.Flags().BoolVarP(&runContinue, "continue", "c", false, "Continue the last session")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "Don't persist session (ephemeral)")
	runCmd.Flags().StringVar(&runTitle, "title", "", "Session title")

	runCmd.Flags().BoolVar(&runAutoApprove, "auto-approve", false, "Auto-approve all tool executions")
	runCmd.Flags().BoolVar(&runAutoApprove, "yolo", false, "Alias for --auto-approve")

	runCmd.Flags().StringVarP(&runOutputFormat, "output-format", "o", "text", "Output format: text, json, jsonl")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Suppress progress output, only show result")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Show all events (with jsonl format)")

	runCmd.Flags().StringVarP(&runTimeout, "timeout", "t", "30m", "Maximum execution time (e.g., 5m, 1h)")
	runCmd.Flags().IntVar(&runMaxSteps, "max-steps", 50, "Maximum agentic loop iterations")

	runCmd.Flags().StringVar(&runAgent, "agent", "", "Agent to use")
	runCmd.Flags().StringVar(&runSystemPrompt, "system-prompt", "", "Custom system prompt file")
}

func runRun(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(runWorkDir)
	if err != nil {
		return err
	}

	timeout, err := time.ParseDuration(runTimeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}

	var outputFormat headless.OutputFormat
	switch strings.ToLower(runOutputFormat) {
	case "text":
		outputFormat = headless.OutputText
	case "json":
		outputFormat = headless.OutputJSON
	case "jsonl":
		outputFormat = headless.OutputJSONL
	default:
		return fmt.Errorf("invalid output format: %s (must be text, json, or jsonl)", runOutputFormat)
	}

	prompt := runPrompt
	if prompt == "" && len(args) > 0 {
		prompt = strings.Join(args, " ")
	}

	if prompt == "" && !runStdin && !runContinue && runSessionID == "" {
		return fmt.Errorf("prompt required. Provide via argument, --prompt flag, or --stdin")
	}

	cfg := &headless.Config{
		Prompt:       prompt,
		WorkDir:      workDir,
		AutoApprove:  runAutoApprove,
		OutputFormat: outputFormat,
		Timeout:      timeout,
		MaxSteps:     runMaxSteps,
		ReadStdin:    runStdin,
		NoSave:       runNoSave,
		SessionID:    runSessionID,
		ContinueLast: runContinue,
		Files:        runFiles,
		SystemPrompt: runSystemPrompt,
		Quiet:        runQuiet,
		Verbose:      runVerbose,
		Model:        GetGlobalModel(),
		Agent:        runAgent,
		Title:        runTitle,
	}

	runner := headless.NewRunner(cfg)
	result, err := runner.Run(cmd.Context(), os.Stdout)

	if result != nil {
		os.Exit(int(result.ExitCode))
	}

	if err != nil {
		return err
	}

	return nil
}
