package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/syndata/syndata/internal/config"
	"github.com/syndata/syndata/internal/engine"
	"github.com/syndata/syndata/internal/job"
	"github.com/syndata/syndata/internal/llm"
	"github.com/syndata/syndata/internal/sample"
	"github.com/syndata/syndata/internal/schema"
	"github.com/syndata/syndata/internal/store"
)

// generateOptions holds flags local to the generate command.
type generateOptions struct {
	Count     int
	RulesFile string
	Seed      uint64
	UseLLM    bool
	Name      string

	MinComponentConfidence float64
	MinRuleConfidence      float64
	MinFieldConfidence     float64
}

// generateReport is the payload printed after a run finishes.
type generateReport struct {
	JobID     string          `json:"jobId"`
	DatasetID string          `json:"datasetId"`
	Status    store.JobStatus `json:"status"`
	Requested int             `json:"requested"`
	Written   int             `json:"written"`
	Duration  string          `json:"duration"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate <schema-file>",
		Short: "Generate records from a schema document",
		Long: `Generate records from a schema document and persist them.

The schema is validated first; a document that fails validation produces
no dataset and no job. Generation runs as a job whose terminal status is
reported when the run finishes. A failed run keeps the records written
before the failure.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "n", 10, "number of records to generate")
	cmd.Flags().StringVar(&opts.RulesFile, "rules", "", "per-field generation rules file (flat schemas only)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed (0 = non-deterministic)")
	cmd.Flags().BoolVar(&opts.UseLLM, "llm", false, "enable llm_prompt rules via Ollama")
	cmd.Flags().StringVar(&opts.Name, "name", "", "dataset name (default: schema file name)")
	cmd.Flags().Float64Var(&opts.MinComponentConfidence, "min-component-confidence", engine.DefaultMinComponentConfidence, "skip components below this confidence")
	cmd.Flags().Float64Var(&opts.MinRuleConfidence, "min-rule-confidence", engine.DefaultMinRuleConfidence, "skip rules below this confidence")
	cmd.Flags().Float64Var(&opts.MinFieldConfidence, "min-field-confidence", engine.DefaultMinFieldConfidence, "skip fields below this confidence")

	return cmd
}

func runGenerate(rootOpts *RootOptions, opts *generateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	def, err := LoadDocument(path)
	if err != nil {
		return reportLoadError(formatter, err)
	}

	var rules schema.FlatRules
	if opts.RulesFile != "" {
		if def.IsDynamic() {
			_ = formatter.Error(ErrCodeValidation, "--rules applies to flat schemas only", nil)
			return NewExitError(ExitCommandError, "--rules applies to flat schemas only")
		}
		if rules, err = LoadFlatRules(opts.RulesFile); err != nil {
			return reportLoadError(formatter, err)
		}
	}

	st, err := store.Open(rootOpts.DBPath)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, "open database", err.Error())
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer st.Close()

	name := opts.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	dataset := store.Dataset{
		ID:        uuid.NewString(),
		ProjectID: rootOpts.Project,
		Name:      name,
		Schema:    def,
		CreatedAt: time.Now(),
	}
	if err := st.CreateDataset(cmd.Context(), dataset); err != nil {
		_ = formatter.Error(ErrCodeStore, "create dataset", err.Error())
		return WrapExitError(ExitCommandError, "create dataset", err)
	}
	formatter.VerboseLog("Created dataset %s (%s)", dataset.ID, name)

	coord := job.NewCoordinator(st, buildGenerator(opts, formatter))

	req := job.Request{
		DatasetID:              dataset.ID,
		Count:                  opts.Count,
		Rules:                  rules,
		MinComponentConfidence: &opts.MinComponentConfidence,
		MinRuleConfidence:      &opts.MinRuleConfidence,
		MinFieldConfidence:     &opts.MinFieldConfidence,
	}

	start := time.Now()
	started, err := coord.Start(cmd.Context(), rootOpts.Project, req)
	if err != nil {
		var valErr *job.ValidationError
		if errors.As(err, &valErr) {
			return outputValidation(formatter, valErr.Result)
		}
		_ = formatter.Error(ErrCodeGeneric, "start job", err.Error())
		return WrapExitError(ExitCommandError, "start job", err)
	}

	formatter.VerboseLog("Job %s running", started.ID)
	coord.Wait()

	final, err := st.GetJob(cmd.Context(), started.ID)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, "read job", err.Error())
		return WrapExitError(ExitCommandError, "read job", err)
	}
	written, err := st.CountRecords(cmd.Context(), started.ID)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, "count records", err.Error())
		return WrapExitError(ExitCommandError, "count records", err)
	}

	report := generateReport{
		JobID:     final.ID,
		DatasetID: dataset.ID,
		Status:    final.Status,
		Requested: opts.Count,
		Written:   written,
		Duration:  time.Since(start).Round(time.Millisecond).String(),
	}
	return outputGenerateReport(formatter, report)
}

// buildGenerator wires the sampling source, rule executor, and optional
// LLM client the way the flags ask for.
func buildGenerator(opts *generateOptions, formatter *OutputFormatter) *engine.Generator {
	var src sample.Source
	if opts.Seed != 0 {
		src = sample.NewSource(opts.Seed, opts.Seed)
	} else {
		src = sample.NewRandomSource()
	}

	var client llm.Client
	if opts.UseLLM {
		cfg, err := config.Load()
		if err == nil {
			client = llm.WithRetry(llm.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel, cfg.OllamaTimeout))
			formatter.VerboseLog("LLM rules via %s", cfg.OllamaHost)
		} else {
			formatter.VerboseLog("LLM config error, llm_prompt rules disabled: %v", err)
		}
	}

	return engine.NewGenerator(engine.NewExecutor(src, client), src)
}

func reportLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		_ = formatter.Error(loadErr.Code, loadErr.Message, detailOf(loadErr.Err))
		return WrapExitError(ExitCommandError, loadErr.Message, loadErr.Err)
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, "load failed", err)
}

func outputGenerateReport(formatter *OutputFormatter, report generateReport) error {
	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: report}
		if report.Status == store.JobFailed {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeJobFailed, Message: "generation job failed"}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
		if report.Status == store.JobFailed {
			return NewExitError(ExitFailure, "generation job failed")
		}
		return nil
	}

	if report.Status == store.JobCompleted {
		fmt.Fprintf(formatter.Writer, "✓ Generated %d record(s) in %s\n", report.Written, report.Duration)
	} else {
		fmt.Fprintf(formatter.Writer, "✗ Job %s: %d/%d record(s) written before failure\n",
			report.Status, report.Written, report.Requested)
	}
	fmt.Fprintf(formatter.Writer, "  job: %s\n", report.JobID)
	fmt.Fprintf(formatter.Writer, "  dataset: %s\n", report.DatasetID)

	if report.Status == store.JobFailed {
		return NewExitError(ExitFailure, "generation job failed")
	}
	return nil
}
