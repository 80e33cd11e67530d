package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sig-0/jcbrates/provider/currencies"
	"github.com/sig-0/jcbrates/rates"
	"github.com/sig-0/jcbrates/storage/types"
)

const (
	replyUnrecognized = "???"
	replyNoTable      = "No rate table available"
)

const helpText = `<from> <to> <value>
<value> (%[1]s to %[2]s)
<from> <to> <value> <rate> (apply convert rate)
<value> <rate> (%[1]s to %[2]s with convert rate)
--------
JPY USD 100
100
JPY USD 100 1.5
100 -1.5`

// Converter converts amounts using the latest rate table
type Converter interface {
	ConvertLatest(ctx context.Context, origin, target types.Currency, amount float64) (*types.Conversion, error)
}

// Bot turns user messages into conversion replies
type Bot struct {
	converter Converter
	logger    *slog.Logger

	defaultOrigin types.Currency
	defaultTarget types.Currency
}

type Option func(b *Bot)

// WithLogger specifies the logger for the bot
func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = l
	}
}

// WithDefaultPair specifies the pair used for amount-only messages.
// Defaults to JPY -> TWD
func WithDefaultPair(origin, target types.Currency) Option {
	return func(b *Bot) {
		b.defaultOrigin = origin
		b.defaultTarget = target
	}
}

// New creates a new bot
func New(converter Converter, opts ...Option) *Bot {
	b := &Bot{
		converter:     converter,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		defaultOrigin: currencies.JPY,
		defaultTarget: currencies.TWD,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Help returns the usage text
func (b *Bot) Help() string {
	return fmt.Sprintf(helpText, b.defaultOrigin, b.defaultTarget)
}

// Reply returns the reply for the given message text
func (b *Bot) Reply(ctx context.Context, text string) string {
	cmd, err := parseCommand(text)
	if err != nil {
		return replyUnrecognized
	}

	if cmd.kind == kindHelp {
		return b.Help()
	}

	origin, target := cmd.origin, cmd.target
	if origin == "" {
		origin, target = b.defaultOrigin, b.defaultTarget
	}

	conversion, err := b.converter.ConvertLatest(ctx, origin, target, cmd.amount)
	if err != nil {
		return b.errorReply(err)
	}

	value := conversion.Value
	if cmd.rate != nil {
		value = rates.ApplyRate(value, *cmd.rate)
	}

	if !rates.IsFinite(value) {
		b.logger.Warn(
			"converted value out of range",
			"amount", cmd.amount,
			"origin", origin,
			"target", target,
		)

		return replyUnrecognized
	}

	return fmt.Sprintf("%s (%s)", formatValue(value), conversion.Date)
}

// errorReply maps conversion errors to user replies
func (b *Bot) errorReply(err error) string {
	var unknownErr *types.UnknownCurrencyError

	switch {
	case errors.As(err, &unknownErr):
		return fmt.Sprintf("Unknown currency %s", unknownErr.Currency)
	case errors.Is(err, types.ErrNoTableAvailable):
		b.logger.Warn(
			"no rate table available for conversion",
			"err", err,
		)

		return replyNoTable
	default:
		b.logger.Error(
			"unable to convert",
			"err", err,
		)

		return replyUnrecognized
	}
}
