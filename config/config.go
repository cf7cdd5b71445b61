package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces the environment, e.g. SETTSIM_SIMULATION_RPC.
const EnvPrefix = "SETTSIM"

// Simulation configures a simulation run against a test node.
type Simulation struct {
	RPC     string `mapstructure:"rpc"`
	Network string `mapstructure:"network"`

	// DeployFile is the address book written by the deploy scripts.
	DeployFile string `mapstructure:"deploy_file"`

	// RegistryFile overrides the embedded token and whale registry.
	RegistryFile string `mapstructure:"registry_file"`

	Sett    string `mapstructure:"sett"`
	Seed    int64  `mapstructure:"seed"`
	Actions int    `mapstructure:"actions"`

	ReceiptTimeout time.Duration `mapstructure:"receipt_timeout"`
	MetricsAddr    string        `mapstructure:"metrics_addr"`
}

// Subgraph configures the subgraph client.
type Subgraph struct {
	URL       string        `mapstructure:"url"`
	CreamURL  string        `mapstructure:"cream_url"`
	PageSize  int           `mapstructure:"page_size"`
	Retries   int           `mapstructure:"retries"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type Log struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

var defaults = map[string]interface{}{
	"simulation.rpc":             "http://localhost:8545",
	"simulation.network":         "eth",
	"simulation.deploy_file":     "deploy.json",
	"simulation.registry_file":   "",
	"simulation.sett":            "",
	"simulation.seed":            0,
	"simulation.actions":         10,
	"simulation.receipt_timeout": 30 * time.Second,
	"simulation.metrics_addr":    "",

	"subgraph.url":        "https://api.thegraph.com/subgraphs/name/darruma/badger-dao",
	"subgraph.cream_url":  "https://api.thegraph.com/subgraphs/name/creamfinancedev/cream-lending",
	"subgraph.page_size":  1000,
	"subgraph.retries":    0,
	"subgraph.rate_limit": 0.0,
	"subgraph.timeout":    30 * time.Second,

	"log.level":   "info",
	"log.console": true,
}

// Init sets the defaults, binds the environment and reads file when one is given.
func Init(file string) error {
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if file == "" {
		return nil
	}
	viper.SetConfigFile(file)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("fail to read config file %s: %w", file, err)
	}
	return nil
}

// settings decodes every section at once. Unmarshal walks all known keys, so
// environment overrides of nested keys are applied.
type settings struct {
	Simulation Simulation `mapstructure:"simulation"`
	Subgraph   Subgraph   `mapstructure:"subgraph"`
	Log        Log        `mapstructure:"log"`
}

func load() (settings, error) {
	var s settings
	if err := viper.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("fail to decode config: %w", err)
	}
	return s, nil
}

func GetSimulation() (Simulation, error) {
	s, err := load()
	if err != nil {
		return Simulation{}, err
	}
	if s.Simulation.Actions < 0 {
		return Simulation{}, fmt.Errorf("actions must not be negative, got %d", s.Simulation.Actions)
	}
	return s.Simulation, nil
}

func GetSubgraph() (Subgraph, error) {
	s, err := load()
	return s.Subgraph, err
}

func GetLog() (Log, error) {
	s, err := load()
	return s.Log, err
}
