package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/misterplus/btdex/internal/escrow"
)

// Validation tags described here: https://pkg.go.dev/github.com/go-playground/validator/v10
type Config struct {
	Environment string `env:"ENVIRONMENT" flag:"environment"`
	Ledger      struct {
		NodeAddress    string        `env:"NODE_ADDRESS"         flag:"node-address"         validate:"required,url" desc:"http address of the ledger node"`
		RequestTimeout time.Duration `env:"NODE_REQUEST_TIMEOUT" flag:"node-request-timeout" desc:"timeout of a single node request"`
		MaxReconnects  int           `env:"NODE_MAX_RECONNECTS"  flag:"node-max-reconnects"  validate:"omitempty,number" desc:"attempts per node call before the cycle is skipped"`
		SyncInterval   time.Duration `env:"LEDGER_SYNC_INTERVAL" flag:"ledger-sync-interval" desc:"interval between contract synchronization cycles"`
	}
	Account struct {
		Operator   string `env:"ACCOUNT_OPERATOR" flag:"account-operator" validate:"required,number" desc:"numeric account id of the local operator"`
		FeeAccount string `env:"ACCOUNT_FEE"      flag:"account-fee"      validate:"required,number" desc:"numeric account id collecting protocol fees"`
	}
	Contracts struct {
		ArtifactPath string `env:"CONTRACT_ARTIFACT_PATH" flag:"contract-artifact-path" validate:"required" desc:"path to the compiled contract artifact file"`
		MinVersion   int    `env:"CONTRACT_MIN_VERSION"   flag:"contract-min-version"   validate:"omitempty,number" desc:"minimum template version eligible for reuse"`
	}
	Mediators struct {
		Roster string `env:"MEDIATOR_ROSTER" flag:"mediator-roster" validate:"required" desc:"comma-separated numeric account ids of accepted arbitrators"`
	}
	Log struct {
		Color        bool   `env:"LOG_COLOR"         flag:"log-color"`
		FilePath     string `env:"LOG_FILE_PATH"     flag:"log-file-path"     validate:"omitempty" desc:"enables file logging and sets the file path"`
		IsProd       bool   `env:"LOG_IS_PROD"       flag:"log-is-prod"       desc:"affects the format of the log output"`
		JSON         bool   `env:"LOG_JSON"          flag:"log-json"`
		LevelApp     string `env:"LOG_LEVEL_APP"     flag:"log-level-app"     validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelTracker string `env:"LOG_LEVEL_TRACKER" flag:"log-level-tracker" validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelHTTP    string `env:"LOG_LEVEL_HTTP"    flag:"log-level-http"    validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
	}
	Web struct {
		Address   string `env:"WEB_ADDRESS"    flag:"web-address"    validate:"omitempty,hostname_port" desc:"http server address host:port"`
		PublicUrl string `env:"WEB_PUBLIC_URL" flag:"web-public-url" validate:"omitempty,url"          desc:"public url of the daemon, falls back to web-address if empty"`
	}
}

func (cfg *Config) SetDefaults() {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Ledger
	if cfg.Ledger.RequestTimeout == 0 {
		cfg.Ledger.RequestTimeout = 15 * time.Second
	}
	if cfg.Ledger.MaxReconnects == 0 {
		cfg.Ledger.MaxReconnects = 3
	}
	if cfg.Ledger.SyncInterval == 0 {
		cfg.Ledger.SyncInterval = 4 * time.Second
	}

	// Contracts
	if cfg.Contracts.MinVersion == 0 {
		// version 1 templates are deprecated and never reused
		cfg.Contracts.MinVersion = 2
	}

	// Log
	if cfg.Log.LevelApp == "" {
		cfg.Log.LevelApp = "debug"
	}
	if cfg.Log.LevelTracker == "" {
		cfg.Log.LevelTracker = "info"
	}
	if cfg.Log.LevelHTTP == "" {
		cfg.Log.LevelHTTP = "info"
	}

	// Web
	if cfg.Web.Address == "" {
		cfg.Web.Address = "0.0.0.0:8080"
	}
	if cfg.Web.PublicUrl == "" {
		cfg.Web.PublicUrl = "http://localhost:8080"
	}
}

func (cfg *Config) OperatorAccount() (escrow.AccountID, error) {
	return parseAccount(cfg.Account.Operator)
}

func (cfg *Config) FeeAccount() (escrow.AccountID, error) {
	return parseAccount(cfg.Account.FeeAccount)
}

func (cfg *Config) MediatorRoster() ([]escrow.AccountID, error) {
	parts := strings.Split(cfg.Mediators.Roster, ",")
	roster := make([]escrow.AccountID, 0, len(parts))
	for _, part := range parts {
		id, err := parseAccount(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		roster = append(roster, id)
	}
	return roster, nil
}

func parseAccount(s string) (escrow.AccountID, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return escrow.AccountID(id), nil
}

// GetSanitized returns a copy of the config safe to expose over the API,
// explicitly adding each field to avoid accidentally leaking sensitive data
func (cfg *Config) GetSanitized() interface{} {
	publicCfg := Config{}

	publicCfg.Environment = cfg.Environment

	publicCfg.Ledger.NodeAddress = cfg.Ledger.NodeAddress
	publicCfg.Ledger.RequestTimeout = cfg.Ledger.RequestTimeout
	publicCfg.Ledger.MaxReconnects = cfg.Ledger.MaxReconnects
	publicCfg.Ledger.SyncInterval = cfg.Ledger.SyncInterval

	publicCfg.Account.Operator = cfg.Account.Operator
	publicCfg.Account.FeeAccount = cfg.Account.FeeAccount

	publicCfg.Contracts.ArtifactPath = cfg.Contracts.ArtifactPath
	publicCfg.Contracts.MinVersion = cfg.Contracts.MinVersion

	publicCfg.Mediators.Roster = cfg.Mediators.Roster

	publicCfg.Log.Color = cfg.Log.Color
	publicCfg.Log.FilePath = cfg.Log.FilePath
	publicCfg.Log.IsProd = cfg.Log.IsProd
	publicCfg.Log.JSON = cfg.Log.JSON
	publicCfg.Log.LevelApp = cfg.Log.LevelApp
	publicCfg.Log.LevelTracker = cfg.Log.LevelTracker
	publicCfg.Log.LevelHTTP = cfg.Log.LevelHTTP

	publicCfg.Web.Address = cfg.Web.Address
	publicCfg.Web.PublicUrl = cfg.Web.PublicUrl

	return publicCfg
}
