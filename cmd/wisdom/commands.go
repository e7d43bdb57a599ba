package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/wisdom/internal/util"
	"github.com/OFFIS-RIT/wisdom/pkg/analysis"
	"github.com/OFFIS-RIT/wisdom/pkg/chaos"
	"github.com/OFFIS-RIT/wisdom/pkg/common"
	"github.com/OFFIS-RIT/wisdom/pkg/graph"
	"github.com/OFFIS-RIT/wisdom/pkg/loader"
	ioloader "github.com/OFFIS-RIT/wisdom/pkg/loader/io"
	"github.com/OFFIS-RIT/wisdom/pkg/report"
	"github.com/OFFIS-RIT/wisdom/pkg/summary"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "wisdom",
		Short:        "Analyze IT organization models offline",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("pretty", false, "indent JSON output")

	rootCmd.AddCommand(newAnalyzeCmd(), newSummarizeCmd(), newSchemaCmd())
	return rootCmd
}

func newAnalyzeCmd() *cobra.Command {
	var (
		modelPath    string
		previousPath string
		snapshotPath string
		seed         uint64
		decay        float64
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run every analyzer on a model and print the report",
		Long: `Builds the dependency graph of the model and prints the report.

--previous takes either an older model document or a snapshot printed by
"analyze --snapshot"; the report then contains the structural diff.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src := ioloader.NewIOModelSource()

			model, err := loadModel(ctx, src, modelPath)
			if err != nil {
				return err
			}

			req := analysis.Request{Model: model, DecayFactor: &decay}
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			} else if envSeed, ok := util.GetEnvUint64("ANALYSIS_SEED"); ok {
				req.Seed = &envSeed
			}

			if previousPath != "" {
				req.Previous, err = loadPrevious(ctx, src, previousPath)
				if err != nil {
					return err
				}
			}

			r, snapshot, err := analysis.Run(ctx, req)
			if err != nil {
				return err
			}

			if snapshotPath != "" {
				if err := writeJSONFile(snapshotPath, snapshot); err != nil {
					return err
				}
			}
			return printJSON(cmd, r)
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "model document (JSON or YAML)")
	cmd.Flags().StringVarP(&previousPath, "previous", "p", "", "previous model document or snapshot")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "write the snapshot of the analyzed graph to this file")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed for volatility and karma (default: ANALYSIS_SEED or random)")
	cmd.Flags().Float64Var(&decay, "decay", util.GetEnvNumeric("DECAY_FACTOR", chaos.DefaultDecayFactor), "ripple decay factor in [0, 1]")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func newSummarizeCmd() *cobra.Command {
	var modelPath string
	defaults := summary.DefaultOptions()
	opts := summary.Options{
		MaxPerCategory:   util.GetEnvInt("SUMMARY_MAX_PER_CATEGORY", defaults.MaxPerCategory),
		MaxRelationships: util.GetEnvInt("SUMMARY_MAX_RELATIONSHIPS", defaults.MaxRelationships),
	}

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Print the size-bounded projection of a model with its meta context",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := loadModel(cmd.Context(), ioloader.NewIOModelSource(), modelPath)
			if err != nil {
				return err
			}

			return printJSON(cmd, map[string]any{
				"summary": summary.Summarize(model, opts),
				"meta":    summary.MetaContext(model),
			})
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "model document (JSON or YAML)")
	cmd.Flags().IntVar(&opts.MaxPerCategory, "max-per-category", opts.MaxPerCategory, "entries kept per category")
	cmd.Flags().IntVar(&opts.MaxRelationships, "max-relationships", opts.MaxRelationships, "entries kept of the relationships category")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema <document>",
		Short:     "Print the JSON schema of a result document",
		Args:      cobra.ExactArgs(1),
		ValidArgs: report.Documents(),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := report.Schema(args[0])
			if err != nil {
				return fmt.Errorf("%w (known: %v)", err, report.Documents())
			}
			return printJSON(cmd, schema)
		},
	}
}

func loadModel(ctx context.Context, src loader.ModelSource, path string) (common.OrganizationModel, error) {
	return loader.Load(ctx, loader.NewModelFile(path, path, src))
}

// loadPrevious accepts a snapshot document as well as a model, which is then
// built into its snapshot.
func loadPrevious(ctx context.Context, src loader.ModelSource, path string) (*common.Snapshot, error) {
	doc, err := loadModel(ctx, src, path)
	if err != nil {
		return nil, err
	}

	if _, ok := doc["adjacency"].(map[string]any); ok {
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		snapshot := new(common.Snapshot)
		if err := json.Unmarshal(raw, snapshot); err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
		}
		return snapshot, nil
	}

	g, _ := graph.Build(doc)
	return g.Snapshot(), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	pretty, _ := cmd.Flags().GetBool("pretty")
	return encodeJSON(cmd.OutOrStdout(), v, pretty)
}

func encodeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
