package bot

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/i18n"
)

const (
	CommandStart    = "/start"
	CommandHelp     = "/help"
	CommandRegister = "/register"
	CommandDeposit  = "/deposit"
	CommandWithdraw = "/withdraw"
	CommandBalance  = "/balance"
	CommandHistory  = "/history"
	CommandCancel   = "/cancel"
	CommandPending  = "/pending"
	CommandApprove  = "/approve"
	CommandDeny     = "/deny"
)

// menuCommands is what Telegram suggests in the command menu. Staff commands
// stay out of it; /help lists them for approvers.
var menuCommands = []string{
	CommandRegister,
	CommandDeposit,
	CommandWithdraw,
	CommandBalance,
	CommandHistory,
	CommandCancel,
	CommandHelp,
}

// CommandMenu builds the command list with descriptions from "commands.<name>".
func CommandMenu(t i18n.Translator) []telebot.Command {
	out := make([]telebot.Command, 0, len(menuCommands))
	for _, cmd := range menuCommands {
		name := cmd[1:]
		desc := name
		if t != nil {
			if text := t.T("commands." + name); text != "" && text != "commands."+name {
				desc = text
			}
		}
		out = append(out, telebot.Command{Text: name, Description: desc})
	}
	return out
}
