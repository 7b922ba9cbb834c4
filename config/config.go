package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/agroledger/chaincode/agroledger/ledger"
)

type Config struct {
	// External chaincode service
	ServerAddress string
	ChaincodeID   string

	// TLS for the external service
	TLSDisabled     bool
	TLSKeyFile      string
	TLSCertFile     string
	TLSClientCAFile string

	// Ledger settings
	MarkupBps  int64
	IssuerMSPs []string
	EventQueue int

	LogLevel zapcore.Level
}

// ExternalService reports whether the chaincode runs as a server the peer
// dials instead of being launched by the peer
func (c *Config) ExternalService() bool {
	return c.ServerAddress != ""
}

// Load reads the configuration from the environment. Variables already set
// win over those in the given .env files; missing files are skipped. With no
// files, ./.env is tried.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %v", f, err)
		}
	}

	cfg := &Config{
		ServerAddress:   os.Getenv("CHAINCODE_SERVER_ADDRESS"),
		ChaincodeID:     os.Getenv("CHAINCODE_ID"),
		TLSKeyFile:      os.Getenv("CHAINCODE_TLS_KEY_FILE"),
		TLSCertFile:     os.Getenv("CHAINCODE_TLS_CERT_FILE"),
		TLSClientCAFile: os.Getenv("CHAINCODE_TLS_CLIENT_CA_FILE"),
	}

	var err error
	if cfg.TLSDisabled, err = boolEnv("CHAINCODE_TLS_DISABLED", true); err != nil {
		return nil, err
	}
	if cfg.MarkupBps, err = intEnv("AGROLEDGER_MARKUP_BPS", ledger.DefaultMarkupBps); err != nil {
		return nil, err
	}
	queue, err := intEnv("AGROLEDGER_EVENT_QUEUE", ledger.DefaultQueueSize)
	if err != nil {
		return nil, err
	}
	cfg.EventQueue = int(queue)
	if cfg.LogLevel, err = zapcore.ParseLevel(envOr("AGROLEDGER_LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("invalid AGROLEDGER_LOG_LEVEL: %v", err)
	}
	cfg.IssuerMSPs = splitList(envOr("AGROLEDGER_ISSUER_MSPS", "Org1MSP"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the settings are usable together
func (c *Config) Validate() error {
	if !ledger.ValidMarkup(c.MarkupBps) {
		return fmt.Errorf("AGROLEDGER_MARKUP_BPS must be between 1 and %d, got %d", ledger.MaxMarkupBps, c.MarkupBps)
	}
	if c.EventQueue <= 0 {
		return fmt.Errorf("AGROLEDGER_EVENT_QUEUE must be positive, got %d", c.EventQueue)
	}
	if len(c.IssuerMSPs) == 0 {
		return errors.New("AGROLEDGER_ISSUER_MSPS must name at least one organization")
	}
	if !c.ExternalService() {
		return nil
	}
	if c.ChaincodeID == "" {
		return errors.New("CHAINCODE_ID is required when CHAINCODE_SERVER_ADDRESS is set")
	}
	if !c.TLSDisabled && (c.TLSKeyFile == "" || c.TLSCertFile == "") {
		return errors.New("CHAINCODE_TLS_KEY_FILE and CHAINCODE_TLS_CERT_FILE are required when TLS is enabled")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := envOr(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %v", key, v, err)
	}
	return b, nil
}

func intEnv(key string, fallback int64) (int64, error) {
	v := envOr(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %v", key, v, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
