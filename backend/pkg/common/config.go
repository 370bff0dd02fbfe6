package common

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// DefaultBootstrapAccounts is used when USDW_BOOTSTRAP_ACCOUNTS is unset.
const DefaultBootstrapAccounts = "treasury:ISSUER_TREASURY,ops:RETAIL"

// ChaincodeConfig configures the USDw chaincode process.
type ChaincodeConfig struct {
	IssuerMSP      string `env:"USDW_ISSUER_MSP,default=Org1MSP"`
	ComplianceMSPs string `env:"USDW_COMPLIANCE_MSPS"`
	Bootstrap      string `env:"USDW_BOOTSTRAP_ACCOUNTS"`
	CCID           string `env:"CHAINCODE_ID"`
	ServerAddress  string `env:"CHAINCODE_SERVER_ADDRESS"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`
}

// ExternalService reports whether the chaincode runs as a service instead of
// being launched by the peer.
func (c *ChaincodeConfig) ExternalService() bool {
	return c.CCID != "" && c.ServerAddress != ""
}

// IndexerConfig configures the audit indexer service.
type IndexerConfig struct {
	Port      string `env:"PORT,default=8080"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`
	JWTSecret string `env:"JWT_SECRET"`

	FabricConfig   string `env:"FABRIC_CONFIG,default=connection-profile.yaml"`
	FabricChannel  string `env:"FABRIC_CHANNEL,default=mychannel"`
	FabricContract string `env:"FABRIC_CONTRACT,default=usdw"`
	MSP            string `env:"MSP_ID,default=Org1MSP"`
	CertPath       string `env:"CERT_PATH"`
	KeyPath        string `env:"KEY_PATH"`
	WalletDir      string `env:"FABRIC_WALLET_DIR,default=wallet"`

	DB DBConfig

	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `env:"KAFKA_TOPIC,default=usdw.audit"`
}

type DBConfig struct {
	Host     string `env:"DB_HOST,default=localhost"`
	Port     string `env:"DB_PORT,default=5432"`
	User     string `env:"DB_USER,default=postgres"`
	Password string `env:"DB_PASSWORD,default=postgres"`
	Name     string `env:"DB_NAME,default=usdw"`
	SSLMode  string `env:"DB_SSLMODE,default=disable"`
}

// DSN renders the lib/pq connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// LoadChaincodeConfig reads the chaincode configuration from the
// environment, after loading an optional .env file.
func LoadChaincodeConfig() (*ChaincodeConfig, error) {
	var cfg ChaincodeConfig
	if err := load(&cfg); err != nil {
		return nil, err
	}
	if _, ok := os.LookupEnv("USDW_BOOTSTRAP_ACCOUNTS"); !ok {
		cfg.Bootstrap = DefaultBootstrapAccounts
	}
	return &cfg, nil
}

// LoadIndexerConfig reads the indexer configuration from the environment,
// after loading an optional .env file.
func LoadIndexerConfig() (*IndexerConfig, error) {
	var cfg IndexerConfig
	if err := load(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func load(target any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	if err := envdecode.Decode(target); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("decode environment: %w", err)
	}
	return nil
}

// SplitList splits a comma separated setting, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
