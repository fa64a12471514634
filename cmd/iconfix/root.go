package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"iconrepair/dom"
	"iconrepair/repair"
)

type rootOpts struct {
	configFile string
	inject     []string
	out        string
	debug      bool
}

func newRootCommand() *cobra.Command {
	o := &rootOpts{}
	cmd := &cobra.Command{
		Use:   "iconfix [file]",
		Short: "Repair unrendered icon shortcodes in a live document",
		Long: "iconfix parses a document (a file, or stdin), fires its ready signal with the\n" +
			"repair runtime attached, then appends each --inject fragment to the body as its\n" +
			"own mutation batch. The final tree is written to stdout or --out.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args)
		},
	}
	cmd.Flags().StringVarP(&o.configFile, "config", "c", "", "YAML config file")
	cmd.Flags().StringArrayVarP(&o.inject, "inject", "i", nil, "HTML fragment appended to the body after ready (repeatable)")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "write the repaired document here instead of stdout")
	cmd.Flags().BoolVarP(&o.debug, "debug", "d", false, "enable debug logging")
	return cmd
}

func (o *rootOpts) run(cmd *cobra.Command, args []string) error {
	level := zerolog.InfoLevel
	if o.debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}).
		Level(level).With().Timestamp().Logger()

	cfg := repair.DefaultConfig()
	if o.configFile != "" {
		var err error
		cfg, err = repair.LoadConfig(o.configFile)
		if err != nil {
			return errors.Errorf("loading config: %w", err)
		}
	}
	cfg.Logger = &logger

	in := cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return errors.Errorf("opening input: %w", err)
		}
		defer f.Close()
		in = f
	}

	doc, err := dom.Parse(in, dom.WithLogger(logger))
	if err != nil {
		return err
	}
	rt := repair.Attach(doc, cfg)
	if err := doc.Ready(); err != nil {
		return errors.Errorf("ready: %w", err)
	}

	for i, markup := range o.inject {
		body := doc.Body()
		if body == nil {
			return errors.New("document has no body to inject into")
		}
		if err := doc.InsertAdjacentHTML(body, markup); err != nil {
			return errors.Errorf("inject %d: %w", i, err)
		}
		if err := doc.Settle(); err != nil {
			return errors.Errorf("inject %d: %w", i, err)
		}
	}

	if err := o.write(cmd.OutOrStdout(), doc); err != nil {
		return err
	}
	logger.Info().
		Int("passes", rt.Passes()).
		Int("batches", rt.Batches()).
		Int("replacements", rt.Replacements()).
		Msg("repair finished")
	return nil
}

func (o *rootOpts) write(stdout io.Writer, doc *dom.Document) error {
	if o.out == "" {
		return doc.Render(stdout)
	}
	f, err := os.Create(o.out)
	if err != nil {
		return errors.Errorf("creating output: %w", err)
	}
	if err := doc.Render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Errorf("closing output: %w", err)
	}
	return nil
}
