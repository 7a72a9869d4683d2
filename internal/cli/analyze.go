package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/syndata/syndata/internal/sample"
	"github.com/syndata/syndata/internal/store"
)

// fieldAnalysis is one field's empirical profile over a job's records.
type fieldAnalysis struct {
	Field        string                `json:"field"`
	Numeric      *sample.Distribution  `json:"numeric,omitempty"`
	Strings      *sample.StringProfile `json:"strings,omitempty"`
	NonNullCount int                   `json:"nonNullCount"`
}

// analysisReport is the analyze command's payload.
type analysisReport struct {
	JobID         string                `json:"jobId"`
	RecordCount   int                   `json:"recordCount"`
	Fields        []fieldAnalysis       `json:"fields"`
	Relationships []sample.Relationship `json:"relationships,omitempty"`
}

// NewAnalyzeCommand creates the analyze command. It profiles the records a
// job produced: per-field summary statistics for numeric values, length
// profiles for strings, and field co-occurrence relationships. The numeric
// output slots directly into a statistical rule's mean/stddev parameters.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:           "analyze <job-id>",
		Short:         "Profile the records generated by a job",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(rootOpts, args[0], limit, cmd)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 1000, "maximum records to analyze")

	return cmd
}

func runAnalyze(rootOpts *RootOptions, jobID string, limit int, cmd *cobra.Command) error {
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

	records, err := st.ListRecords(cmd.Context(), jobID, limit, 0)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, "list records", err.Error())
		return WrapExitError(ExitCommandError, "list records", err)
	}
	if len(records) == 0 {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("no records for job %s", jobID), nil)
		return NewExitError(ExitCommandError, "no records to analyze")
	}

	report := buildAnalysis(jobID, records)

	if formatter.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: report})
	}

	fmt.Fprintf(formatter.Writer, "job: %s  records: %d\n", report.JobID, report.RecordCount)
	for _, fa := range report.Fields {
		switch {
		case fa.Numeric != nil:
			fmt.Fprintf(formatter.Writer, "  %s: numeric n=%d mean=%g stddev=%g min=%g max=%g\n",
				fa.Field, fa.Numeric.Count, fa.Numeric.Mean, fa.Numeric.Stddev, fa.Numeric.Min, fa.Numeric.Max)
		case fa.Strings != nil:
			fmt.Fprintf(formatter.Writer, "  %s: string n=%d len=%d..%d avg=%g\n",
				fa.Field, fa.NonNullCount, fa.Strings.MinLength, fa.Strings.MaxLength, fa.Strings.AvgLength)
		default:
			fmt.Fprintf(formatter.Writer, "  %s: n=%d\n", fa.Field, fa.NonNullCount)
		}
	}
	for _, rel := range report.Relationships {
		fmt.Fprintf(formatter.Writer, "  %s <-> %s: %g%% co-occurrence\n", rel.From, rel.To, rel.Correlation)
	}
	return nil
}

// buildAnalysis flattens each record's data (dynamic records contribute
// "componentType.field" keys) and profiles every observed field.
func buildAnalysis(jobID string, records []store.Record) analysisReport {
	flat := make([]map[string]any, len(records))
	fieldSet := map[string]struct{}{}
	for i, rec := range records {
		flat[i] = flattenRecord(rec.Data)
		for name := range flat[i] {
			fieldSet[name] = struct{}{}
		}
	}

	fields := make([]string, 0, len(fieldSet))
	for name := range fieldSet {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	report := analysisReport{JobID: jobID, RecordCount: len(records)}
	for _, name := range fields {
		var numbers []float64
		var strs []string
		nonNull := 0
		for _, r := range flat {
			v, ok := r[name]
			if !ok || v == nil {
				continue
			}
			nonNull++
			switch x := v.(type) {
			case float64:
				numbers = append(numbers, x)
			case int:
				numbers = append(numbers, float64(x))
			case string:
				strs = append(strs, x)
			}
		}

		fa := fieldAnalysis{Field: name, NonNullCount: nonNull}
		if len(numbers) > 0 && len(numbers) >= len(strs) {
			fa.Numeric = sample.Analyze(numbers)
		} else if len(strs) > 0 {
			fa.Strings = sample.AnalyzeStrings(strs)
		}
		report.Fields = append(report.Fields, fa)
	}

	report.Relationships = sample.DetectRelationships(flat, fields)
	return report
}

func flattenRecord(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for key, value := range data {
		if nested, ok := value.(map[string]any); ok {
			for field, v := range nested {
				out[key+"."+field] = v
			}
			continue
		}
		out[key] = value
	}
	return out
}
