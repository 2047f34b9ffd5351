/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"custody-capital-go/internal/amount"
	"custody-capital-go/internal/capital"
	"custody-capital-go/internal/models"
	"custody-capital-go/internal/notify"
	"custody-capital-go/internal/sweeper"
	"custody-capital-go/internal/transfer"
)

const (
	defaultStableAsset        = "17208628f84f5d6ad33f0da3bbbeb27ffcb398eac501a31bd6ad2011e36133a1"
	defaultNativeAsset        = "near"
	defaultDownstreamCustody  = "intents.near"
	defaultNativeMinDeposit   = "10000000000000000000000" // 0.01 native
	defaultStableMinDeposit   = "100000"                  // 0.1 stable
	defaultTransferFee        = "1"
	defaultStaticBudget       = 25
	defaultLedgerBudget       = 2
	defaultComputeBudget      = 300
	defaultNotifyRedisChannel = "custody:notifications"
)

func Load() (*models.Config, error) {
	operator := getEnvString("OPERATOR_ACCOUNT", "")
	if operator == "" {
		return nil, fmt.Errorf("OPERATOR_ACCOUNT is required")
	}

	lockDuration, err := getEnvDuration("LOCK_DURATION", capital.DefaultLockDuration)
	if err != nil {
		return nil, err
	}
	if lockDuration < 0 {
		return nil, fmt.Errorf("invalid duration for LOCK_DURATION: %v must not be negative", lockDuration)
	}

	nativeMin, err := getEnvAmount("NATIVE_MIN_DEPOSIT", defaultNativeMinDeposit)
	if err != nil {
		return nil, err
	}

	stableMin, err := getEnvAmount("STABLE_MIN_DEPOSIT", defaultStableMinDeposit)
	if err != nil {
		return nil, err
	}

	transferFee, err := getEnvAmount("TRANSFER_FEE", defaultTransferFee)
	if err != nil {
		return nil, err
	}

	withdrawBaseCost, err := getEnvUint64("WITHDRAW_BASE_COST", capital.DefaultWithdrawBaseCost)
	if err != nil {
		return nil, err
	}

	transferCost, err := getEnvUint64("TRANSFER_COST", capital.DefaultTransferCost)
	if err != nil {
		return nil, err
	}

	staticBudget, err := getEnvUint64("TRANSFER_STATIC_BUDGET", defaultStaticBudget)
	if err != nil {
		return nil, err
	}

	ledgerBudget, err := getEnvUint64("LEDGER_TRANSFER_BUDGET", defaultLedgerBudget)
	if err != nil {
		return nil, err
	}

	computeBudget, err := getEnvUint64("DEFAULT_COMPUTE_BUDGET", defaultComputeBudget)
	if err != nil {
		return nil, err
	}

	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	readTimeout, err := getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	writeTimeout, err := getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	backend := getEnvString("TRANSFER_BACKEND", "log")
	if backend != "log" && backend != "prime" {
		return nil, fmt.Errorf("invalid TRANSFER_BACKEND %q: expected log or prime", backend)
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "custody.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 1),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 1),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Custody: models.CustodyConfig{
			OperatorAccount:          operator,
			AgentName:                getEnvString("AGENT_NAME", "agent.near"),
			LockDuration:             lockDuration,
			NativeAsset:              getEnvString("NATIVE_ASSET", defaultNativeAsset),
			StableAsset:              getEnvString("STABLE_ASSET", defaultStableAsset),
			NativeMinDeposit:         nativeMin,
			StableMinDeposit:         stableMin,
			DownstreamCustodyAccount: getEnvString("DOWNSTREAM_CUSTODY_ACCOUNT", defaultDownstreamCustody),
			MaxPositions:             getEnvInt("MAX_POSITIONS", capital.DefaultMaxPositions),
			WithdrawBaseCost:         withdrawBaseCost,
			TransferCost:             transferCost,
			TransferStaticBudget:     staticBudget,
			LedgerTransferBudget:     ledgerBudget,
			TransferFee:              transferFee,
			DefaultComputeBudget:     computeBudget,
			AcceptedTokens:           getEnvList("ACCEPTED_TOKENS"),
		},
		Server: models.ServerConfig{
			Addr:            getEnvString("SERVER_ADDR", ":8080"),
			ShutdownTimeout: shutdownTimeout,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
		},
		Transfer: models.TransferConfig{
			Backend:    backend,
			QueueSize:  getEnvInt("TRANSFER_QUEUE_SIZE", transfer.DefaultQueueSize),
			AssetsFile: getEnvString("ASSETS_FILE", "assets.yaml"),
		},
		Notify: models.NotifyConfig{
			RedisURL:     getEnvString("NOTIFY_REDIS_URL", ""),
			RedisChannel: getEnvString("NOTIFY_REDIS_CHANNEL", defaultNotifyRedisChannel),
			QueueSize:    getEnvInt("NOTIFY_QUEUE_SIZE", notify.DefaultQueueSize),
		},
		Formance: models.FormanceConfig{
			StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
			ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
			ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
			LedgerName:   getEnvString("FORMANCE_LEDGER", "custody-capital"),
		},
		Sweeper: models.SweeperConfig{
			Schedule: getEnvString("SWEEP_SCHEDULE", sweeper.DefaultSchedule),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList reads a comma-separated list, skipping blank items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvUint64(key string, defaultValue uint64) (uint64, error) {
	if value := os.Getenv(key); value != "" {
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid unsigned integer for %s: %q (%w)", key, value, err)
		}
		return n, nil
	}
	return defaultValue, nil
}

// getEnvAmount reads a base-10 amount in minor units.
func getEnvAmount(key, defaultValue string) (amount.Amount, error) {
	value := getEnvString(key, defaultValue)
	a, err := amount.Parse(value)
	if err != nil {
		return amount.Amount{}, fmt.Errorf("invalid amount for %s: %q (%w)", key, value, err)
	}
	return a, nil
}
