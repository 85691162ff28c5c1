package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "DAO"

// Output formats accepted by --output.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Common holds settings every command shares.
type Common struct {
	RPCURL         string
	LogLevel       string        `validate:"oneof=debug info warn error dpanic panic fatal"`
	Output         string        `validate:"oneof=text json yaml"`
	MaxRetries     int           `validate:"gte=0"`
	RetryBackoff   time.Duration `validate:"gte=0"`
	CheatNamespace string
	Explorer       Explorer
}

// Explorer holds the ABI source settings.
type Explorer struct {
	BaseURL     string `validate:"omitempty,url"`
	APIKey      string
	ChainID     uint64 `validate:"gt=0"`
	Timeout     time.Duration
	MinInterval time.Duration
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// newViper merges config file, environment variables, and flags. Keys are
// flag names; env vars are DAO_ plus the upper-cased key with - as _.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("output", OutputText)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("cheat-namespace", "anvil")
	v.SetDefault("etherscan-url", "https://api.etherscan.io/v2/api")
	v.SetDefault("chain-id", uint64(1))
	v.SetDefault("etherscan-timeout", 30*time.Second)
	v.SetDefault("etherscan-interval", 200*time.Millisecond)
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// The explorer key keeps its conventional unprefixed name.
	if err := v.BindEnv("etherscan-api-key", envPrefix+"_ETHERSCAN_API_KEY", "ETHERSCAN_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("rpc", envPrefix+"_RPC", "WEB3_RPC_URL"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func loadCommon(v *viper.Viper) Common {
	return Common{
		RPCURL:         v.GetString("rpc"),
		LogLevel:       v.GetString("log-level"),
		Output:         strings.ToLower(v.GetString("output")),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		CheatNamespace: v.GetString("cheat-namespace"),
		Explorer: Explorer{
			BaseURL:     v.GetString("etherscan-url"),
			APIKey:      v.GetString("etherscan-api-key"),
			ChainID:     v.GetUint64("chain-id"),
			Timeout:     v.GetDuration("etherscan-timeout"),
			MinInterval: v.GetDuration("etherscan-interval"),
		},
	}
}

// Validate checks struct tags and reports the first few violations in one
// error.
func Validate(cfg any) error {
	if err := validate.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case string:
		return splitAndClean(typed)
	default:
		return cleanStrings(cast.ToStringSlice(typed))
	}
}

// getStringMap accepts a map from a config file, a JSON object string, or
// a "k=v,k=v" list from flags or env.
func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	switch typed := v.Get(key).(type) {
	case []string:
		return parseStringMap(strings.Join(typed, ","))
	case string:
		if strings.HasPrefix(strings.TrimSpace(typed), "{") {
			if m, err := cast.ToStringMapStringE(typed); err == nil {
				return m
			}
		}
		return parseStringMap(typed)
	default:
		m, err := cast.ToStringMapStringE(typed)
		if err != nil {
			return map[string]string{}
		}
		return m
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// LoadCommon loads only the shared settings.
func LoadCommon(cfgFile string, flags *pflag.FlagSet) (Common, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return Common{}, err
	}
	cfg := loadCommon(v)
	if err := Validate(cfg); err != nil {
		return Common{}, err
	}
	return cfg, nil
}
