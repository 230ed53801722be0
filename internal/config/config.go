// internal/config/config.go
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"mcp-simple-bolus/internal/models"
)

// Config holds application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Dosing   DosingConfig   `mapstructure:"dosing"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Memory   MemoryConfig   `mapstructure:"-"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" validate:"required"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// DosingConfig values other than the bolus limit and carb ratio are in
// GlucoseUnit.
type DosingConfig struct {
	GlucoseUnit        string  `mapstructure:"glucose_unit" validate:"oneof=mg/dL mmol/L"`
	MaximumBolus       float64 `mapstructure:"maximum_bolus" validate:"gt=0,lte=30"`
	SuspendThreshold   float64 `mapstructure:"suspend_threshold" validate:"gt=0"`
	CarbRatio          float64 `mapstructure:"carb_ratio" validate:"gt=0"`
	InsulinSensitivity float64 `mapstructure:"insulin_sensitivity" validate:"gt=0"`
	CorrectionTarget   float64 `mapstructure:"correction_target" validate:"gtfield=SuspendThreshold"`
}

// AuthConfig: an empty passcode refuses every bolus.
type AuthConfig struct {
	Passcode string `mapstructure:"passcode" validate:"omitempty,min=4"`
}

type LogConfig struct {
	Debug bool `mapstructure:"debug"`
}

// MemoryConfig points at the knowledge-graph memory service that receives
// carb entry donations. It is read from the environment only.
type MemoryConfig struct {
	ProxyURL string `env:"MCP_PROXY_URL" envDefault:"http://mcp-compose-http-proxy:9876" validate:"url"`
	APIKey   string `env:"MCP_PROXY_API_KEY"`
	Enabled  bool   `env:"SIMPLE_BOLUS_DONATE" envDefault:"true"`
}

var validate = validator.New()

// Load reads configuration from defaults, an optional config file, the
// environment (prefix SIMPLE_BOLUS_) and finally any changed flags.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8012)
	v.SetDefault("database.path", "/data/simple-bolus.db")
	v.SetDefault("dosing.glucose_unit", "mg/dL")
	v.SetDefault("dosing.maximum_bolus", 10.0)
	v.SetDefault("dosing.suspend_threshold", 80.0)
	v.SetDefault("dosing.carb_ratio", 10.0)
	v.SetDefault("dosing.insulin_sensitivity", 50.0)
	v.SetDefault("dosing.correction_target", 110.0)
	v.SetDefault("auth.passcode", "")
	v.SetDefault("log.debug", false)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("SIMPLE_BOLUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range map[string]string{
			"server.host":   "host",
			"server.port":   "port",
			"database.path": "db-path",
			"log.debug":     "debug",
		} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := env.Parse(&c.Memory); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c DosingConfig) Unit() models.Unit {
	u, err := models.ParseGlucoseUnit(c.GlucoseUnit)
	if err != nil {
		return models.MilligramsPerDeciliter
	}
	return u
}

func (c DosingConfig) Glucose(v float64) models.Quantity {
	return models.NewQuantity(v, c.Unit())
}
