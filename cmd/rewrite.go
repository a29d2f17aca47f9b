package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/cottand/hrewrite/decl"
	"github.com/cottand/hrewrite/hrw"
	"github.com/cottand/hrewrite/hrwerr"
	"github.com/cottand/hrewrite/internal/log"
	"github.com/cottand/hrewrite/internal/metrics"
	"github.com/cottand/hrewrite/rewrite"
	"github.com/cottand/hrewrite/term"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func NewRewriteCmd() *cobra.Command {
	var (
		terms    []string
		maxSteps int
		withMeta bool
		noMemo   bool
		logLevel int
	)
	c := &cobra.Command{
		Use:          "rewrite file.yaml",
		Short:        "Normalize the terms of a declaration file",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.SetLevel(slog.Level(logLevel))
			return runRewrite(cmd.OutOrStdout(), args[0], rewriteSettings{
				terms:    terms,
				maxSteps: maxSteps,
				metrics:  withMeta,
				memo:     !noMemo,
			})
		},
	}
	c.Flags().StringArrayVarP(&terms, "term", "t", nil, "additional term to normalize, may be repeated")
	c.Flags().IntVarP(&maxSteps, "max-steps", "n", 0, "maximum rule applications per term, 0 for no limit")
	c.Flags().BoolVarP(&withMeta, "metrics", "m", false, "print rewriting metrics after the normal forms")
	c.Flags().BoolVar(&noMemo, "no-memo", false, "disable normal form memoization")
	c.Flags().IntVarP(&logLevel, "log-level", "l", int(slog.LevelError), "log level")
	return c
}

type rewriteSettings struct {
	terms    []string
	maxSteps int
	metrics  bool
	memo     bool
}

func runRewrite(out io.Writer, path string, settings rewriteSettings) error {
	reg := prometheus.NewRegistry()
	opts := []rewrite.Option{rewrite.WithMemo(settings.memo)}
	if settings.metrics {
		opts = append(opts, rewrite.WithObserver(metrics.New(reg)))
	}
	prog, err := load(path, opts...)
	if err != nil {
		return err
	}

	inputs, err := prog.Terms()
	if err != nil {
		return formatErr(err)
	}
	for _, text := range settings.terms {
		t, err := prog.ParseTerm(text)
		if err != nil {
			return formatErr(err)
		}
		inputs = append(inputs, t)
	}

	rw := prog.Rewriter()
	for _, input := range inputs {
		var nf term.Term
		if settings.maxSteps > 0 {
			nf, err = rw.RewriteN(input, settings.maxSteps)
		} else {
			nf, err = rw.Rewrite(input)
		}
		switch {
		case errors.Is(err, hrwerr.ErrStepLimit):
			_, _ = fmt.Fprintf(out, "%s -> %s (stopped after %d steps)\n", input, nf, settings.maxSteps)
		case err != nil:
			return fmt.Errorf("could not rewrite %s: %s", input, formatErr(err))
		default:
			_, _ = fmt.Fprintf(out, "%s -> %s\n", input, nf)
		}
	}

	if settings.metrics {
		summary, err := metrics.Summary(reg)
		if err != nil {
			return fmt.Errorf("could not gather metrics: %w", err)
		}
		names := make([]string, 0, len(summary))
		for name := range summary {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			_, _ = fmt.Fprintf(out, "%s %v\n", name, summary[name])
		}
	}
	return nil
}

func load(path string, opts ...rewrite.Option) (*decl.Program, error) {
	doc, err := decl.LoadFile(path)
	if err != nil {
		return nil, formatErr(err)
	}
	prog, err := doc.Build(hrw.NewContext(), opts...)
	if err != nil {
		return nil, formatErr(err)
	}
	return prog, nil
}

// formatErr prefixes declaration and rewriting errors with their code
func formatErr(err error) error {
	if hrwerr.CodeOf(err) == hrwerr.None {
		return err
	}
	return errors.New(hrwerr.FormatWithCode(err, log.Verbose()))
}
