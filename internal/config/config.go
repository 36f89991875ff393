// Package config loads process settings from the environment (and an
// optional .env file) and device settings from the farm YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Email    string
	Password string
	Server   string

	ForecastURL string
	ForecastKey string
	Latitude    float64
	Longitude   float64

	MQTTScheme string
	MQTTPort   int

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	HTTPPort string
	GRPCPort string
	LogLevel string

	FarmPath string
	Farm     Farm
}

// Farm describes the device: pins, tool, sequences and how much water the
// crops need.
type Farm struct {
	WaterPin int     `yaml:"water_pin"`
	SoilPin  int     `yaml:"soil_pin"`
	Z        float64 `yaml:"z"`
	Speed    int     `yaml:"speed"`

	// FlowRate is the nozzle output in mm of water per second, the unit
	// crop needs and forecast intensities are expressed in.
	FlowRate    float64            `yaml:"flow_rate"`
	DefaultNeed float64            `yaml:"default_need"`
	Crops       map[string]float64 `yaml:"crops"` // openfarm_slug -> need

	ToolID            int `yaml:"tool_id"`
	MountSequenceID   int `yaml:"mount_sequence_id"`
	UnmountSequenceID int `yaml:"unmount_sequence_id"`

	Schedule string `yaml:"schedule"` // cron, 5 fields

	// SoilSkipAbove skips the cycle when the latest soil reading is higher.
	// 0 disables the check.
	SoilSkipAbove float64 `yaml:"soil_skip_above"`

	RPCTimeout time.Duration `yaml:"rpc_timeout"`
}

// DefaultFarm is used for every key the farm file leaves out.
func DefaultFarm() Farm {
	return Farm{
		WaterPin:          8,
		SoilPin:           59,
		Speed:             100,
		FlowRate:          1,
		DefaultNeed:       10,
		Crops:             map[string]float64{},
		ToolID:            7041,
		MountSequenceID:   24863,
		UnmountSequenceID: 24867,
		Schedule:          "0 7,19 * * *",
		RPCTimeout:        2 * time.Minute,
	}
}

// NeedFor returns the water need of a crop, or DefaultNeed if unknown.
func (f Farm) NeedFor(slug string) float64 {
	if n, ok := f.Crops[slug]; ok {
		return n
	}
	return f.DefaultNeed
}

func (f Farm) Validate() error {
	var errs []error
	if f.FlowRate <= 0 {
		errs = append(errs, fmt.Errorf("flow_rate must be positive, got %v", f.FlowRate))
	}
	if f.DefaultNeed < 0 {
		errs = append(errs, fmt.Errorf("default_need must not be negative, got %v", f.DefaultNeed))
	}
	for slug, n := range f.Crops {
		if n < 0 {
			errs = append(errs, fmt.Errorf("crops[%s] must not be negative, got %v", slug, n))
		}
	}
	if f.WaterPin < 0 || f.SoilPin < 0 {
		errs = append(errs, errors.New("pins must not be negative"))
	}
	return errors.Join(errs...)
}

// LoadFarm reads the farm file at path over DefaultFarm. A missing file
// leaves the defaults in place.
func LoadFarm(path string) (Farm, error) {
	farm := DefaultFarm()
	if path == "" {
		return farm, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return farm, nil
	}
	if err != nil {
		return farm, fmt.Errorf("read farm file: %w", err)
	}
	if err := yaml.Unmarshal(data, &farm); err != nil {
		return farm, fmt.Errorf("parse farm file: %w", err)
	}
	if farm.Crops == nil {
		farm.Crops = map[string]float64{}
	}
	if err := farm.Validate(); err != nil {
		return farm, fmt.Errorf("farm file %s: %w", path, err)
	}
	return farm, nil
}

// Load reads envFile (if present) into the environment, then the
// environment and the farm file. Variables already set win over .env.
func Load(envFile, farmPath string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	c := &Config{
		Email:    env("FARMBOT_EMAIL", ""),
		Password: env("FARMBOT_PASSWORD", ""),
		Server:   env("FARMBOT_SERVER", "https://my.farm.bot"),

		ForecastURL: env("FORECAST_URL", "https://api.pirateweather.net"),
		ForecastKey: env("FORECAST_API_KEY", ""),
		Latitude:    envFloat("FORECAST_LAT", 42.3601),
		Longitude:   envFloat("FORECAST_LON", -71.0589),

		MQTTScheme: env("MQTT_SCHEME", "tcp"),
		MQTTPort:   envInt("MQTT_PORT", 1883),

		InfluxURL:    env("INFLUX_URL", ""),
		InfluxToken:  env("INFLUX_TOKEN", ""),
		InfluxOrg:    env("INFLUX_ORG", "farmbot"),
		InfluxBucket: env("INFLUX_BUCKET", "watering"),

		HTTPPort: env("HTTP_PORT", "8080"),
		GRPCPort: env("GRPC_PORT", "50051"),
		LogLevel: env("LOG_LEVEL", "info"),

		FarmPath: firstNonEmpty(farmPath, env("FARM_CONFIG_PATH", "farm.yaml")),
	}

	farm, err := LoadFarm(c.FarmPath)
	if err != nil {
		return nil, err
	}
	c.Farm = farm
	return c, nil
}

// RequireCredentials fails when the web app login is not configured.
func (c *Config) RequireCredentials() error {
	var missing []string
	if c.Email == "" {
		missing = append(missing, "FARMBOT_EMAIL")
	}
	if c.Password == "" {
		missing = append(missing, "FARMBOT_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env %s", strings.Join(missing, ", "))
	}
	return nil
}

// InfluxEnabled reports whether events should be written to InfluxDB.
func (c *Config) InfluxEnabled() bool {
	return c.InfluxURL != "" && c.InfluxToken != ""
}

func env(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// envFloat also accepts a decimal comma.
func envFloat(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil {
		return def
	}
	return f
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
