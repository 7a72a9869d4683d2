package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syndata/syndata/internal/store"
)

// NewJobsCommand creates the jobs command (list).
func NewJobsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "jobs",
		Short:         "List generation jobs for the project",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobs(rootOpts, cmd)
		},
	}
}

// NewJobCommand creates the job command (show one).
func NewJobCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "job <job-id>",
		Short:         "Show one generation job",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(rootOpts, args[0], cmd)
		},
	}
}

func runJobs(rootOpts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	st, err := store.Open(rootOpts.DBPath)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, "open database", err.Error())
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer st.Close()

	jobs, err := st.ListJobs(cmd.Context(), rootOpts.Project)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, "list jobs", err.Error())
		return WrapExitError(ExitCommandError, "list jobs", err)
	}

	if formatter.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: jobs})
	}

	if len(jobs) == 0 {
		fmt.Fprintln(formatter.Writer, "No jobs")
		return nil
	}
	for _, j := range jobs {
		fmt.Fprintf(formatter.Writer, "%s  %-9s  count=%d  created=%s\n",
			j.ID, j.Status, j.Count, j.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runJob(rootOpts *RootOptions, jobID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	st, err := store.Open(rootOpts.DBPath)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, "open database", err.Error())
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer st.Close()

	j, err := st.GetJob(cmd.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("job %s not found", jobID), nil)
		return NewExitError(ExitCommandError, "job not found")
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStore, "get job", err.Error())
		return WrapExitError(ExitCommandError, "get job", err)
	}

	written, err := st.CountRecords(cmd.Context(), jobID)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, "count records", err.Error())
		return WrapExitError(ExitCommandError, "count records", err)
	}

	if formatter.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: map[string]any{
			"job":     j,
			"written": written,
		}})
	}

	fmt.Fprintf(formatter.Writer, "job:       %s\n", j.ID)
	fmt.Fprintf(formatter.Writer, "dataset:   %s\n", j.DatasetID)
	fmt.Fprintf(formatter.Writer, "status:    %s\n", j.Status)
	fmt.Fprintf(formatter.Writer, "records:   %d/%d\n", written, j.Count)
	fmt.Fprintf(formatter.Writer, "created:   %s\n", j.CreatedAt.Format("2006-01-02 15:04:05"))
	if j.CompletedAt != nil {
		fmt.Fprintf(formatter.Writer, "completed: %s\n", j.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
