package keyboard

import (
	telebot "gopkg.in/telebot.v3"
)

// Buttons send their label as a message, so every label is a routable command.
var (
	memberMenu = [][]string{
		{"/deposit", "/withdraw"},
		{"/balance", "/history"},
		{"/help"},
	}
	approverRow = []string{"/pending"}
)

// MainMenu is the private-chat reply keyboard. Approvers get an extra row for
// the pending queue.
func MainMenu(approver bool) *telebot.ReplyMarkup {
	layout := memberMenu
	if approver {
		layout = append(append([][]string{}, memberMenu...), approverRow)
	}

	markup := &telebot.ReplyMarkup{ResizeKeyboard: true}
	rows := make([]telebot.Row, 0, len(layout))
	for _, labels := range layout {
		buttons := make([]telebot.Btn, len(labels))
		for i, label := range labels {
			buttons[i] = markup.Text(label)
		}
		rows = append(rows, markup.Row(buttons...))
	}
	markup.Reply(rows...)

	return markup
}
