package models

import (
	"time"

	"custody-capital-go/internal/amount"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Custody  CustodyConfig
	Server   ServerConfig
	Transfer TransferConfig
	Notify   NotifyConfig
	Formance FormanceConfig
	Sweeper  SweeperConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// CustodyConfig holds the parameters of the custody core
type CustodyConfig struct {
	OperatorAccount          string
	AgentName                string
	LockDuration             time.Duration
	NativeAsset              string
	StableAsset              string
	NativeMinDeposit         amount.Amount
	StableMinDeposit         amount.Amount
	DownstreamCustodyAccount string
	MaxPositions             int
	WithdrawBaseCost         uint64
	TransferCost             uint64
	TransferStaticBudget     uint64
	LedgerTransferBudget     uint64
	TransferFee              amount.Amount
	DefaultComputeBudget     uint64
	// AcceptedTokens may fund allocations in addition to the native and
	// stable assets
	AcceptedTokens []string
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

// TransferConfig selects and tunes the outbound transfer backend
type TransferConfig struct {
	Backend    string
	QueueSize  int
	AssetsFile string
}

// NotifyConfig holds the notification fan-out settings
type NotifyConfig struct {
	RedisURL     string
	RedisChannel string
	QueueSize    int
}

// FormanceConfig holds the Formance ledger mirror settings
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

func (c FormanceConfig) Enabled() bool {
	return c.StackURL != ""
}

// SweeperConfig holds the maturity sweep schedule
type SweeperConfig struct {
	Schedule string
}
