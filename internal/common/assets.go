package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"custody-capital-go/internal/amount"
	"custody-capital-go/internal/prime"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// AssetConfig describes one asset the custody core can hold.
type AssetConfig struct {
	AssetId  string `yaml:"asset_id"`
	Symbol   string `yaml:"symbol"`
	Decimals int32  `yaml:"decimals"`
	WalletId string `yaml:"wallet_id"`
	Network  string `yaml:"network"`
}

type AssetsConfig struct {
	Assets []AssetConfig `yaml:"assets"`
}

// AssetRegistry indexes asset configuration by asset id.
type AssetRegistry map[string]AssetConfig

func LoadAssetConfig(assetsFile string) ([]AssetConfig, error) {
	var assetsPath string
	if filepath.IsAbs(assetsFile) {
		assetsPath = assetsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		assetsPath = filepath.Join(wd, assetsFile)
	}

	data, err := os.ReadFile(assetsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", assetsFile, err)
	}

	return parseAssetConfig(assetsFile, data)
}

func parseAssetConfig(name string, data []byte) ([]AssetConfig, error) {
	var config AssetsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", name, err)
	}

	seen := make(map[string]bool, len(config.Assets))
	for i, asset := range config.Assets {
		if asset.AssetId == "" {
			return nil, fmt.Errorf("asset at index %d missing asset_id", i)
		}
		if asset.Symbol == "" {
			return nil, fmt.Errorf("asset at index %d missing symbol", i)
		}
		if asset.Decimals < 0 || asset.Decimals > 38 {
			return nil, fmt.Errorf("asset %s has invalid decimals %d", asset.AssetId, asset.Decimals)
		}
		if seen[asset.AssetId] {
			return nil, fmt.Errorf("asset %s listed more than once", asset.AssetId)
		}
		seen[asset.AssetId] = true
	}

	return config.Assets, nil
}

// LoadAssetRegistry reads assetsFile. A missing file yields an empty registry.
func LoadAssetRegistry(assetsFile string) (AssetRegistry, error) {
	assets, err := LoadAssetConfig(assetsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return AssetRegistry{}, nil
		}
		return nil, err
	}
	return NewAssetRegistry(assets), nil
}

func NewAssetRegistry(assets []AssetConfig) AssetRegistry {
	registry := make(AssetRegistry, len(assets))
	for _, asset := range assets {
		registry[asset.AssetId] = asset
	}
	return registry
}

// Precision maps asset ids to decimals.
func (r AssetRegistry) Precision() map[string]int32 {
	out := make(map[string]int32, len(r))
	for id, asset := range r {
		out[id] = asset.Decimals
	}
	return out
}

// AssetIds lists the registered asset ids in order.
func (r AssetRegistry) AssetIds() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PrimeRoutes maps asset ids to Prime wallet routes.
func (r AssetRegistry) PrimeRoutes() map[string]prime.Route {
	out := make(map[string]prime.Route, len(r))
	for id, asset := range r {
		out[id] = prime.Route{
			Symbol:   asset.Symbol,
			Network:  asset.Network,
			Decimals: asset.Decimals,
			WalletId: asset.WalletId,
		}
	}
	return out
}

// Symbol returns the display symbol of an asset, or the id when unknown.
func (r AssetRegistry) Symbol(assetId string) string {
	if asset, ok := r[assetId]; ok {
		return asset.Symbol
	}
	return assetId
}

// Human renders a minor-unit amount in whole units. Unknown assets are
// shown in minor units.
func (r AssetRegistry) Human(assetId string, a amount.Amount) decimal.Decimal {
	if asset, ok := r[assetId]; ok {
		return a.Human(asset.Decimals)
	}
	return a.Human(0)
}
