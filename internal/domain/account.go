package domain

import "time"

// UserAccount is the durable ledger record of a community member.
type UserAccount struct {
	UserID      int64
	Balance     Amount
	Credit      Amount
	BoundName   string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Registered reports whether the account has a bound in-game name.
func (a *UserAccount) Registered() bool {
	return a != nil && a.BoundName != ""
}
