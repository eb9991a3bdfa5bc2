package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/analysis"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/burden"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/logging"
)

// Transports the producer publishes to and the processor reads from.
const (
	SourceNATS = "nats"
	SourcePMD  = "pmd"
	SourceMQTT = "mqtt"
)

type Config struct {
	NATS struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"nats"`

	MQTT struct {
		Broker   string `mapstructure:"broker"`
		ClientID string `mapstructure:"client_id"`
		Device   string `mapstructure:"device"`
	} `mapstructure:"mqtt"`

	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`

	Producer struct {
		HeartRate    float64 `mapstructure:"heart_rate"`
		Noise        float64 `mapstructure:"noise"`
		Batch        int     `mapstructure:"batch"`
		Sink         string  `mapstructure:"sink"`
		EctopicEvery int     `mapstructure:"ectopic_every"`
		Prematurity  float64 `mapstructure:"prematurity"`
		Gain         float64 `mapstructure:"gain"`
		Widen        float64 `mapstructure:"widen"`
	} `mapstructure:"producer"`

	Processor struct {
		Source       string        `mapstructure:"source"`
		TickInterval time.Duration `mapstructure:"tick_interval"`
	} `mapstructure:"processor"`

	Log       logging.Config  `mapstructure:"log"`
	Detection analysis.Params `mapstructure:"detection"`
	Burden    burden.Config   `mapstructure:"burden"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")

	v.SetDefault("mqtt.broker", "tcp://127.0.0.1:1883")
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.device", "h10")

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("producer.heart_rate", 72)
	v.SetDefault("producer.noise", 8)
	v.SetDefault("producer.batch", 10)
	v.SetDefault("producer.sink", SourceNATS)
	v.SetDefault("producer.ectopic_every", 0)
	v.SetDefault("producer.prematurity", 0.55)
	v.SetDefault("producer.gain", 2)
	v.SetDefault("producer.widen", 2)

	v.SetDefault("processor.source", SourceNATS)
	v.SetDefault("processor.tick_interval", time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	b := burden.DefaultConfig()
	v.SetDefault("burden.window", b.Window)
	v.SetDefault("burden.retention", b.Retention)
	v.SetDefault("burden.max_beats", b.MaxBeats)
	v.SetDefault("burden.max_points", b.MaxPoints)
}

// Load reads .env files, then the YAML file at path (or ./config.yaml when
// path is empty), then ECG_* environment overrides such as
// ECG_NATS_URL. A missing default file is not an error.
func Load(path string, envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("ECG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{Detection: analysis.DefaultParams()}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	switch c.Processor.Source {
	case SourceNATS, SourcePMD, SourceMQTT:
	default:
		return fmt.Errorf("processor.source: unknown source %q", c.Processor.Source)
	}
	switch c.Producer.Sink {
	case SourceNATS, SourcePMD, SourceMQTT:
	default:
		return fmt.Errorf("producer.sink: unknown sink %q", c.Producer.Sink)
	}
	if c.Burden.Window <= 0 || c.Burden.Retention <= 0 || c.Burden.MaxBeats <= 0 || c.Burden.MaxPoints <= 0 {
		return errors.New("burden: window, retention and sizes must be positive")
	}
	if c.Processor.TickInterval <= 0 {
		return errors.New("processor.tick_interval must be positive")
	}
	return nil
}
