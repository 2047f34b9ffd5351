package models

// Portfolio is a Prime portfolio that holds the payout wallets
type Portfolio struct {
	Id   string
	Name string
}

// Wallet is a Prime wallet outbound transfers are paid from
type Wallet struct {
	Id     string
	Name   string
	Symbol string
	Type   string
}

// Withdrawal is the Prime activity created for one outbound transfer
type Withdrawal struct {
	ActivityId  string
	TransferId  string
	Symbol      string
	Amount      string
	Destination string
}
