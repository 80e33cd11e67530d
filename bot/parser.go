package bot

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/sig-0/jcbrates/storage/types"
)

var errUnrecognized = errors.New("unrecognized message")

var (
	// <from> <to> <amount> [<rate>]
	pairRegex = regexp.MustCompile(
		`^([a-zA-Z]{3})\s+([a-zA-Z]{3})\s+([0-9]+\.?[0-9]*)(?:\s+([-+]?[0-9]+\.?[0-9]*))?$`,
	)

	// <amount> [<rate>]
	amountRegex = regexp.MustCompile(
		`^([0-9]+\.?[0-9]*)(?:\s+([-+]?[0-9]+\.?[0-9]*))?$`,
	)
)

type commandKind int

const (
	kindConvert commandKind = iota
	kindHelp
)

// command is a parsed user message
type command struct {
	origin, target types.Currency // empty for the default pair
	amount         float64
	rate           *float64 // percentage adjustment, if any
	kind           commandKind
}

// parseCommand parses the message text into a command
func parseCommand(text string) (*command, error) {
	text = strings.TrimSpace(text)

	if isHelp(text) {
		return &command{kind: kindHelp}, nil
	}

	if m := pairRegex.FindStringSubmatch(text); m != nil {
		cmd := &command{
			kind:   kindConvert,
			origin: types.Currency(strings.ToUpper(m[1])),
			target: types.Currency(strings.ToUpper(m[2])),
		}

		return cmd, parseAmountAndRate(cmd, m[3], m[4])
	}

	if m := amountRegex.FindStringSubmatch(text); m != nil {
		cmd := &command{
			kind: kindConvert,
		}

		return cmd, parseAmountAndRate(cmd, m[1], m[2])
	}

	return nil, errUnrecognized
}

func parseAmountAndRate(cmd *command, amountRaw, rateRaw string) error {
	amount, err := strconv.ParseFloat(amountRaw, 64)
	if err != nil {
		return errUnrecognized
	}

	cmd.amount = amount

	if rateRaw == "" {
		return nil
	}

	rate, err := strconv.ParseFloat(rateRaw, 64)
	if err != nil {
		return errUnrecognized
	}

	cmd.rate = &rate

	return nil
}

// isHelp checks for the help command, optionally addressed to the bot (/help@name)
func isHelp(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}

	name, _, _ := strings.Cut(fields[0], "@")

	return name == "/help" || name == "/start"
}
