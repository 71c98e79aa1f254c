package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/guild-ledger/internal/domain"
	apperrors "github.com/Proton-105/guild-ledger/internal/errors"
)

func TestCommandOf(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"/deposit 25 Volt Alice", "/deposit"},
		{"/Deposit@GuildLedgerBot 25", "/deposit"},
		{"  /balance  ", "/balance"},
		{"hello /deposit", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CommandOf(tt.text), tt.text)
	}
}

func TestArgs(t *testing.T) {
	assert.Nil(t, Args("/balance"))
	assert.Equal(t, []string{"25", "Volt", "Big", "Bob"}, Args("/deposit  25 Volt Big   Bob"))
}

func TestParseTransferArgs(t *testing.T) {
	args, err := parseTransferArgs([]string{"12.50", "in-game", "Big", "Bob"})
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(1250), args.Amount)
	assert.Equal(t, "in-game", args.Method)
	assert.Equal(t, "Big Bob", args.Name)

	_, err = parseTransferArgs([]string{"12.50", "Volt"})
	assert.ErrorIs(t, err, errUsage)

	_, err = parseTransferArgs([]string{"1.005", "Volt", "Bob"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Contains(t, err.(*apperrors.AppError).UserMessage, "two decimal places")

	_, err = parseTransferArgs([]string{"-5", "Volt", "Bob"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
