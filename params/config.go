package params

import (
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Network describes one chain's collaborator endpoints.
type Network struct {
	ChainID      uint64
	NativeTicker string

	// Indexer endpoints; the two order families have separate subgraphs
	// and are polled independently.
	LimitOrderGraph string
	DCAOrderGraph   string

	// Gas station endpoint. GasBuffer pads the fast price by 5 gwei
	// (mainnet stations quote for inclusion right now).
	GasStation string
	GasBuffer  bool

	// DCAOrderFloor is the executor's minimum viable sub-trade size,
	// denominated in native-token wei.
	DCAOrderFloor *big.Int
}

// Polling holds the reconciliation cadences.
type Polling struct {
	LimitInterval   time.Duration
	DCAInterval     time.Duration
	ReceiptInterval time.Duration
}

// Contracts holds the on-chain module addresses and platform terms used
// when building submissions.
type Contracts struct {
	DCAModule      string
	LimitOrderCore string
	LimitModule    string
	PlatformWallet string
	PlatformFeeBps int64
	MinSlippageBps int64
	MaxSlippageBps int64
}

type Config struct {
	Network   Network
	Polling   Polling
	Contracts Contracts

	DBPath  string
	APIAddr string
	LogFile string

	// RPC endpoint for receipts; PrivateKey enables headless sending.
	RPCURL     string
	PrivateKey string

	// Owner is the account whose orders are reconciled.
	Owner string
}

func Default() Config {
	return Config{
		Network: Network{
			ChainID:         1,
			NativeTicker:    "ETH",
			LimitOrderGraph: "https://api.thegraph.com/subgraphs/name/gelatodigital/limit-orders",
			DCAOrderGraph:   "https://api.thegraph.com/subgraphs/name/gelatodigital/gelato-dca",
			GasStation:      "https://www.gasnow.org/api/v3/gas/price",
			GasBuffer:       true,
			DCAOrderFloor:   new(big.Int).Mul(big.NewInt(5), new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)), // 0.05 native
		},
		Polling: Polling{
			LimitInterval:   10 * time.Second,
			DCAInterval:     20 * time.Second,
			ReceiptInterval: 15 * time.Second,
		},
		Contracts: Contracts{
			LimitOrderCore: "0x36049D479A97CdE1fC6E2a5D2caE30B666Ebf92B",
			LimitModule:    "0x037fc8e71445910e1E0bBb2a0896d5e9A7485318",
			PlatformFeeBps: 50,
			MinSlippageBps: 1000,
			MaxSlippageBps: 9999,
		},
		DBPath:  "data/orders.db",
		APIAddr: ":8080",
		LogFile: "data/keeperd.log",
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("CHAIN_ID"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Network.ChainID = id
		}
	}
	setStr(&cfg.Network.NativeTicker, "NATIVE_TICKER")
	setStr(&cfg.Network.LimitOrderGraph, "LIMIT_ORDER_GRAPH")
	setStr(&cfg.Network.DCAOrderGraph, "DCA_ORDER_GRAPH")
	setStr(&cfg.Network.GasStation, "GAS_STATION")
	if v := os.Getenv("GAS_BUFFER"); v != "" {
		cfg.Network.GasBuffer = v == "true"
	}
	if v := os.Getenv("DCA_ORDER_FLOOR_WEI"); v != "" {
		if floor, ok := new(big.Int).SetString(v, 10); ok {
			cfg.Network.DCAOrderFloor = floor
		}
	}

	setDuration(&cfg.Polling.LimitInterval, "LIMIT_POLL_SECONDS")
	setDuration(&cfg.Polling.DCAInterval, "DCA_POLL_SECONDS")
	setDuration(&cfg.Polling.ReceiptInterval, "RECEIPT_POLL_SECONDS")

	setStr(&cfg.Contracts.DCAModule, "DCA_MODULE_ADDRESS")
	setStr(&cfg.Contracts.LimitOrderCore, "LIMIT_ORDER_CORE_ADDRESS")
	setStr(&cfg.Contracts.LimitModule, "LIMIT_MODULE_ADDRESS")
	setStr(&cfg.Contracts.PlatformWallet, "PLATFORM_WALLET")

	setStr(&cfg.DBPath, "DB_PATH")
	setStr(&cfg.APIAddr, "API_ADDR")
	setStr(&cfg.LogFile, "LOG_FILE")
	setStr(&cfg.RPCURL, "RPC_URL")
	setStr(&cfg.PrivateKey, "PRIVATE_KEY")
	setStr(&cfg.Owner, "OWNER_ADDRESS")

	return cfg
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(secs) * time.Second
		}
	}
}
