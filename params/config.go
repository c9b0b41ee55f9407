package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Node struct {
	// DBPath is the pebble database directory backing the account store.
	DBPath string
	// APIListen is the REST/WebSocket bind address.
	APIListen string
	// CORSOrigins are the allowed browser origins.
	CORSOrigins []string
	// LogFile receives the JSON log stream in addition to stdout.
	LogFile string
	// SlotInterval paces the slot ticker that refreshes the randomness
	// buffer.
	//
	// Recommended values:
	//   - Devnet:     400ms (mainnet-like slot cadence)
	//   - Tests:      disabled (tests seed the buffer directly)
	SlotInterval time.Duration
	// TestMode unlocks test-only instructions and the stored-time clock.
	TestMode bool
}

type Mints struct {
	// Native and Usdc identify the well-known payment mints behind the
	// auction payment flags (base58).
	Native string
	Usdc   string
}

type Config struct {
	Node  Node
	Mints Mints
}

func Default() Config {
	return Config{
		Node: Node{
			DBPath:       "data/launchpad-db",
			APIListen:    ":8080",
			CORSOrigins:  []string{"http://localhost:3000", "http://localhost:3001"},
			LogFile:      "data/node.log",
			SlotInterval: 400 * time.Millisecond,
			TestMode:     false,
		},
		Mints: Mints{
			Native: "So11111111111111111111111111111111111111112",
			Usdc:   "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment
// variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Node.DBPath = v
	}
	if v := os.Getenv("API_LISTEN"); v != "" {
		cfg.Node.APIListen = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Node.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Node.LogFile = v
	}
	if v := os.Getenv("SLOT_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Node.SlotInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("TEST_MODE"); v != "" {
		cfg.Node.TestMode = v == "true"
	}
	if v := os.Getenv("NATIVE_MINT"); v != "" {
		cfg.Mints.Native = v
	}
	if v := os.Getenv("USDC_MINT"); v != "" {
		cfg.Mints.Usdc = v
	}

	return cfg
}
