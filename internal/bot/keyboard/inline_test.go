package keyboard_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/guild-ledger/internal/bot/keyboard"
)

func TestInlineKeyboardBuilder(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		builder := keyboard.NewInlineKeyboard()
		builder.AddRow(
			keyboard.InlineButton{Text: "Prev", Unique: "nav", Data: "1"},
			keyboard.InlineButton{Text: "Next", Unique: "nav", Data: "2"},
		).AddRow(
			keyboard.InlineButton{Text: "Confirm", Unique: "confirm", Data: "ok"},
		)

		markup, err := builder.Build()
		require.NoError(t, err)
		require.NotNil(t, markup)

		require.Len(t, markup.InlineKeyboard, 2)
		assert.Len(t, markup.InlineKeyboard[0], 2)
		assert.Len(t, markup.InlineKeyboard[1], 1)
		assert.Equal(t, "nav:2", markup.InlineKeyboard[0][1].Data)
		assert.Empty(t, markup.InlineKeyboard[0][1].Unique)
	})

	t.Run("callback data overflow", func(t *testing.T) {
		builder := keyboard.NewInlineKeyboard()
		builder.AddRow(keyboard.InlineButton{
			Text:   "Too big",
			Unique: "overflow",
			Data:   strings.Repeat("x", keyboard.CallbackDataLimitBytes),
		})

		_, err := builder.Build()
		assert.Error(t, err)
	})
}

func TestTransferControls(t *testing.T) {
	markup, err := keyboard.TransferControls(nil, "AB12CD")
	require.NoError(t, err)
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 2)

	assert.Equal(t, "tr_approve:AB12CD", markup.InlineKeyboard[0][0].Data)
	assert.Equal(t, "tr_deny:AB12CD", markup.InlineKeyboard[0][1].Data)
	assert.Contains(t, markup.InlineKeyboard[0][0].Text, "Approve")
}

func TestPendingPage(t *testing.T) {
	markup, err := keyboard.PendingPage(nil, keyboard.Paginate(4, 5, 1))
	require.NoError(t, err)
	assert.Nil(t, markup)

	markup, err = keyboard.PendingPage(nil, keyboard.Paginate(12, 5, 2))
	require.NoError(t, err)
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Equal(t, "pending:1", markup.InlineKeyboard[0][0].Data)
	assert.Equal(t, "pending:3", markup.InlineKeyboard[0][2].Data)
}
