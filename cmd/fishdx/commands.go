package main

import (
	"encoding/json"
	"fishdisease-service/api/middleware"
	"fishdisease-service/service/diagnosis"
	"fishdisease-service/service/knowledge"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type cliFlags struct {
	dataFile string
	asJSON   bool

	minPercentage float64
	tieBreak      string
	weighting     string
	engine        string
	scriptFile    string
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:           "fishdx",
		Short:         "Fish disease diagnosis from observed symptoms",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.dataFile, "data", "", "knowledge base YAML file (defaults to the built-in seed)")
	root.PersistentFlags().BoolVar(&flags.asJSON, "json", false, "print JSON instead of a table")

	root.AddCommand(
		newSymptomsCmd(flags),
		newDiseasesCmd(flags),
		newDiagnoseCmd(flags),
		newValidateCmd(),
		newHashPasswordCmd(),
	)
	return root
}

func newSymptomsCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "symptoms [query]",
		Short: "List symptoms, optionally filtered by name or code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(flags.dataFile)
			if err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			symptoms := snap.SearchSymptoms(query)
			if flags.asJSON {
				return writeJSON(cmd.OutOrStdout(), symptoms)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tNAME")
			for _, s := range symptoms {
				fmt.Fprintf(tw, "%s\t%s\n", s.Code, s.Name)
			}
			return tw.Flush()
		},
	}
}

func newDiseasesCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "diseases [code]",
		Short: "List diseases or show one disease with its rules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(flags.dataFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				d, ok := snap.Disease(args[0])
				if !ok {
					return fmt.Errorf("unknown disease %q", args[0])
				}
				if flags.asJSON {
					return writeJSON(out, d)
				}
				fmt.Fprintf(out, "%s  %s\n\nSolution:  %s\nTreatment: %s\n\nSymptoms:\n", d.Code, d.Name, d.Solution, d.Treatment)
				for _, r := range d.Rules {
					name := ""
					if s, ok := snap.Symptom(r.Symptom); ok {
						name = s.Name
					}
					fmt.Fprintf(out, "  %s  %s (weight %g)\n", r.Symptom, name, r.Weight)
				}
				return nil
			}

			diseases := snap.Diseases()
			if flags.asJSON {
				return writeJSON(out, diseases)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tNAME\tRULES")
			for _, d := range diseases {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", d.Code, d.Name, len(d.Rules))
			}
			return tw.Flush()
		},
	}
}

func newDiagnoseCmd(flags *cliFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnose SYMPTOM...",
		Short: "Rank diseases for the given symptom codes",
		Example: `  fishdx diagnose G01 G02 G03
  fishdx diagnose G01,G02 --tie-break matched --min 25`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(flags.dataFile)
			if err != nil {
				return err
			}
			opts, err := flags.options()
			if err != nil {
				return err
			}

			var codes []string
			for _, a := range args {
				codes = append(codes, strings.Split(a, ",")...)
			}

			svc := diagnosis.NewService(knowledge.NewStaticKnowledgeBase(snap), diagnosis.StaticOptions(opts), nil)
			report := svc.Diagnose(cmd.Context(), diagnosis.Request{Source: diagnosis.SourceCLI, Symptoms: codes})
			if flags.asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().Float64Var(&flags.minPercentage, "min", 0, "only show diseases scoring strictly above this percentage")
	cmd.Flags().StringVar(&flags.tieBreak, "tie-break", string(diagnosis.TieBreakCode), "order for equal percentages: code, matched, table")
	cmd.Flags().StringVar(&flags.weighting, "weighting", string(diagnosis.WeightingEqual), "scoring: equal, weighted, script")
	cmd.Flags().StringVar(&flags.engine, "engine", string(diagnosis.EngineOverlap), "inference engine: overlap, datalog")
	cmd.Flags().StringVar(&flags.scriptFile, "script", "", "score script file, required with --weighting script")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a knowledge base YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d symptoms, %d diseases, version %s\n",
				len(snap.Symptoms()), len(snap.Diseases()), snap.Version())
			return nil
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password PASSWORD",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := middleware.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func (f *cliFlags) options() (diagnosis.Options, error) {
	opts := diagnosis.DefaultOptions()
	opts.MinPercentage = f.minPercentage

	var err error
	if opts.TieBreak, err = diagnosis.ParseTieBreak(f.tieBreak); err != nil {
		return opts, err
	}
	if opts.Weighting, err = diagnosis.ParseWeighting(f.weighting); err != nil {
		return opts, err
	}
	if opts.Engine, err = diagnosis.ParseEngine(f.engine); err != nil {
		return opts, err
	}
	if f.scriptFile != "" {
		data, err := os.ReadFile(f.scriptFile)
		if err != nil {
			return opts, err
		}
		opts.ScoreScript = string(data)
		if err := diagnosis.ValidateScoreScript(opts.ScoreScript); err != nil {
			return opts, err
		}
	}
	return opts, opts.Validate()
}

func loadSnapshot(path string) (*knowledge.Snapshot, error) {
	var (
		doc *knowledge.Document
		err error
	)
	if path == "" {
		doc, err = knowledge.SeedDocument()
	} else {
		var data []byte
		if data, err = os.ReadFile(path); err != nil {
			return nil, err
		}
		doc, err = knowledge.ParseDocument(data)
	}
	if err != nil {
		return nil, err
	}
	return knowledge.BuildSnapshot(doc)
}

func printReport(w io.Writer, report *diagnosis.Report) error {
	if len(report.Ignored) > 0 {
		fmt.Fprintf(w, "ignored unknown symptoms: %s\n", strings.Join(report.Ignored, ", "))
	}
	if report.Message != "" {
		fmt.Fprintln(w, report.Message)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tCODE\tNAME\tMATCH\tSYMPTOMS")
	for _, r := range report.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f%%\t%d/%d\n", r.Rank, r.Code, r.Name, r.Percentage, r.MatchedCount, r.RuleCount)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	top := report.Results[0]
	fmt.Fprintf(w, "\n%s\nSolution:  %s\nTreatment: %s\n", top.Name, top.Solution, top.Treatment)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
