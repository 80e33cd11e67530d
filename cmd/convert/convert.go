package convert

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/jcbrates/bot"
	"github.com/sig-0/jcbrates/cmd/env"
	"github.com/sig-0/jcbrates/cmd/setup"
	"github.com/sig-0/jcbrates/server/config"
)

// convertCfg wraps the convert configuration
type convertCfg struct {
	config *config.RatesConfig

	verbose bool
}

// NewConvertCmd creates the convert subcommand
func NewConvertCmd() *ffcli.Command {
	cfg := &convertCfg{
		config: config.DefaultRatesConfig(),
	}

	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "convert",
		ShortUsage: "convert [flags] [<from> <to>] <value> [<rate>]",
		LongHelp:   "Converts a value using the latest JCB rate table, the same way the bot does",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return cfg.exec(ctx, args, os.Stdout)
		},
		Options: []ff.Option{
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *convertCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.config.BaseURL,
		"base-url",
		config.DefaultBaseURL,
		"the URL the rate tables are published under",
	)

	fs.StringVar(
		&c.config.Timezone,
		"timezone",
		config.DefaultTimezone,
		"the timezone used to determine the current day",
	)

	fs.IntVar(
		&c.config.MaxLookbackDays,
		"max-lookback",
		config.DefaultMaxLookbackDays,
		"the number of past days checked for a published table",
	)

	fs.BoolVar(
		&c.verbose,
		"verbose",
		false,
		"log the table lookups to stderr",
	)
}

func (c *convertCfg) exec(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return flag.ErrHelp
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if c.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	if err := config.ValidateConfig(&config.Config{
		ListenAddress: config.DefaultListenAddress,
		RatesConfig:   c.config,
	}); err != nil {
		return fmt.Errorf("invalid configuration, %w", err)
	}

	r, err := setup.NewRates(c.config, logger)
	if err != nil {
		return fmt.Errorf("unable to set up rates, %w", err)
	}

	b := bot.New(r.Engine, bot.WithLogger(logger))

	_, err = fmt.Fprintln(out, b.Reply(ctx, strings.Join(args, " ")))

	return err
}
