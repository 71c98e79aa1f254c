package handlers

import (
	"errors"
	"strings"

	"github.com/Proton-105/guild-ledger/internal/domain"
	apperrors "github.com/Proton-105/guild-ledger/internal/errors"
)

// errUsage makes a handler answer with the command's usage text.
var errUsage = errors.New("usage")

// CommandOf returns the lower-cased command of a message, with any @botname
// suffix removed. Plain text yields "".
func CommandOf(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}

	cmd := fields[0]
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}

	return strings.ToLower(cmd)
}

// Args returns the whitespace-separated arguments after the command.
func Args(text string) []string {
	fields := strings.Fields(text)
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}

type transferArgs struct {
	Amount domain.Amount
	Method string
	Name   string
}

// parseTransferArgs reads "<amount> <method> <in-game name...>". The name may
// contain spaces.
func parseTransferArgs(args []string) (transferArgs, error) {
	if len(args) < 3 {
		return transferArgs{}, errUsage
	}

	amount, err := domain.ParseAmount(args[0])
	if err != nil {
		return transferArgs{}, apperrors.NewValidationError(amountMessage(err))
	}

	return transferArgs{
		Amount: amount,
		Method: args[1],
		Name:   strings.Join(args[2:], " "),
	}, nil
}

func amountMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrAmountPrecision):
		return "Amounts can have at most two decimal places."
	case errors.Is(err, domain.ErrAmountNotPositive):
		return "Amount must be greater than zero."
	case errors.Is(err, domain.ErrAmountTooLarge):
		return "Amount is too large."
	default:
		return "Amount must be a number such as 25 or 12.50."
	}
}
