package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/af-corp/docai-gateway/internal/bootstrap"
	"github.com/af-corp/docai-gateway/internal/optimizer"
	"github.com/af-corp/docai-gateway/internal/review"
	"github.com/af-corp/docai-gateway/internal/types"
)

// readInput reads the named file, or stdin when no file or "-" is given.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withApp runs fn against a wired optimizer built from the config dir.
func withApp(cmd *cobra.Command, configDir string, fn func(ctx context.Context, app *bootstrap.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := bootstrap.New(ctx, configDir)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

type analyzeOutput struct {
	optimizer.Result[types.AnalysisResult]
	Review *review.Verdict `json:"review,omitempty"`
}

func newAnalyzeCmd(configDir func() string) *cobra.Command {
	var withReview bool
	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Summarize and classify a document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			return withApp(cmd, configDir(), func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Optimizer.Analyze(ctx, text)
				if err != nil {
					return err
				}
				out := analyzeOutput{Result: res}
				if withReview && app.Reviewer.Enabled() {
					v := app.Reviewer.Review(ctx, res.Value, res.Origin)
					out.Review = &v
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().BoolVar(&withReview, "review", true, "attach the ACTIVE/QUARANTINED review decision")
	return cmd
}

func newTranslateCmd(configDir func() string) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "translate [file]",
		Short: "Translate text into another language",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			return withApp(cmd, configDir(), func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Optimizer.Translate(ctx, text, target)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&target, "to", "ml", "target language code")
	return cmd
}

func newDetectCmd(configDir func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "detect [file]",
		Short: "Detect the language of text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			return withApp(cmd, configDir(), func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Optimizer.DetectLanguage(ctx, text)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func newEmbedCmd(configDir func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "embed [file]",
		Short: "Compute an embedding vector for text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			return withApp(cmd, configDir(), func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Optimizer.Embed(ctx, text)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func newAskCmd(configDir func() string) *cobra.Command {
	var question, answerLang string
	cmd := &cobra.Command{
		Use:   "ask [file]",
		Short: "Answer a question about a document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if question == "" {
				return fmt.Errorf("--question is required")
			}
			doc, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			return withApp(cmd, configDir(), func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Optimizer.Ask(ctx, doc, question, answerLang)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "question to answer")
	cmd.Flags().StringVar(&answerLang, "lang", "en", "answer language code")
	return cmd
}

func newStatsCmd(configDir func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show rate window usage, cache size and provider health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, configDir(), func(ctx context.Context, app *bootstrap.App) error {
				snap := app.Optimizer.Snapshot(ctx)

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "RATE LIMIT\tIN WINDOW\tREMAINING\tCACHE ENTRIES")
				fmt.Fprintf(w, "%d/min\t%d\t%d\t%d\n",
					snap.RateLimit.Limit, snap.RateLimit.RequestsInWindow, snap.RateLimit.Remaining, snap.CacheEntries)
				fmt.Fprintln(w)

				fmt.Fprintln(w, "PROVIDER\tCIRCUIT\tFAILURES")
				health := app.Health.Snapshot()
				for _, name := range app.Registry.Names() {
					status, ok := health[name]
					if !ok {
						fmt.Fprintf(w, "%s\tclosed\t0\n", name)
						continue
					}
					fmt.Fprintf(w, "%s\t%s\t%d\n", name, status.State, status.ConsecutiveFailures)
				}
				return w.Flush()
			})
		},
	}
}
