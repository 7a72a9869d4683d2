package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syndata/syndata/internal/store"
)

// NewRecordsCommand creates the records command.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	var limit, offset int
	var showSources bool

	cmd := &cobra.Command{
		Use:           "records <job-id>",
		Short:         "List records generated by a job",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecords(rootOpts, args[0], limit, offset, showSources, cmd)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum records to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "records to skip")
	cmd.Flags().BoolVar(&showSources, "sources", false, "include per-field source and confidence annotations")

	return cmd
}

func runRecords(rootOpts *RootOptions, jobID string, limit, offset int, showSources bool, cmd *cobra.Command) error {
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

	records, err := st.ListRecords(cmd.Context(), jobID, limit, offset)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, "list records", err.Error())
		return WrapExitError(ExitCommandError, "list records", err)
	}

	if formatter.Format == "json" {
		if showSources {
			annotated, err := attachAnnotations(cmd, st, records)
			if err != nil {
				_ = formatter.Error(ErrCodeStore, "list annotations", err.Error())
				return WrapExitError(ExitCommandError, "list annotations", err)
			}
			return formatter.JSON(CLIResponse{Status: "ok", Data: annotated})
		}
		return formatter.JSON(CLIResponse{Status: "ok", Data: records})
	}

	if len(records) == 0 {
		fmt.Fprintln(formatter.Writer, "No records")
		return nil
	}
	for _, rec := range records {
		data, err := json.Marshal(rec.Data)
		if err != nil {
			return WrapExitError(ExitCommandError, "encode record", err)
		}
		fmt.Fprintf(formatter.Writer, "%s  %s\n", rec.ID, data)

		if showSources {
			for _, fv := range rec.FieldValues {
				anns, err := st.ListAnnotations(cmd.Context(), "field", fv.ID)
				if err != nil {
					_ = formatter.Error(ErrCodeStore, "list annotations", err.Error())
					return WrapExitError(ExitCommandError, "list annotations", err)
				}
				line := fmt.Sprintf("    %s = %v", fv.FieldName, fv.Value)
				for _, ann := range anns {
					line += fmt.Sprintf("  [%s=%s]", ann.AnnotationType, ann.Value)
				}
				fmt.Fprintln(formatter.Writer, line)
			}
		}
	}
	return nil
}

// annotatedRecord pairs a record with the annotations of its field values
// for JSON output.
type annotatedRecord struct {
	store.Record
	Annotations map[string][]store.Annotation `json:"annotations,omitempty"`
}

func attachAnnotations(cmd *cobra.Command, st *store.Store, records []store.Record) ([]annotatedRecord, error) {
	out := make([]annotatedRecord, 0, len(records))
	for _, rec := range records {
		ar := annotatedRecord{Record: rec, Annotations: map[string][]store.Annotation{}}
		for _, fv := range rec.FieldValues {
			anns, err := st.ListAnnotations(cmd.Context(), "field", fv.ID)
			if err != nil {
				return nil, err
			}
			if len(anns) > 0 {
				ar.Annotations[fv.FieldName] = anns
			}
		}
		out = append(out, ar)
	}
	return out, nil
}
