package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl"
	"github.com/juju/errors"

	"gtrc-svr/internal/transport"
)

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	SerialPort   string
	BaudRate     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Store          string
	RedisAddr      string
	RedisDB        int
	RedisPassword  string
	RedisKeyPrefix string

	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string

	ProxyAddr  string
	GRPCServer string

	MetricsPort    string
	HealthGRPCPort string
	RawLogDir      string
	LogLevel       string
}

func Default() Config {
	return Config{
		SerialPort:      "/dev/ttyUSB0",
		BaudRate:        115200,
		ReadTimeout:     transport.DefaultTimeout,
		WriteTimeout:    transport.DefaultTimeout,
		Store:           StoreRedis,
		RedisAddr:       "localhost:6379",
		RedisKeyPrefix:  "dev:",
		MQTTClientID:    "gtrc-svr",
		MQTTTopicPrefix: "devices",
		MetricsPort:     "9000",
		LogLevel:        "info",
	}
}

// fileConfig es el formato del archivo opcional. Mismas claves en HCL y TOML.
type fileConfig struct {
	SerialPort      string `hcl:"serial_port" toml:"serial_port"`
	BaudRate        int    `hcl:"baud_rate" toml:"baud_rate"`
	ReadTimeout     string `hcl:"read_timeout" toml:"read_timeout"`
	WriteTimeout    string `hcl:"write_timeout" toml:"write_timeout"`
	Store           string `hcl:"store" toml:"store"`
	RedisAddr       string `hcl:"redis_addr" toml:"redis_addr"`
	RedisDB         int    `hcl:"redis_db" toml:"redis_db"`
	RedisPassword   string `hcl:"redis_password" toml:"redis_password"`
	RedisKeyPrefix  string `hcl:"redis_key_prefix" toml:"redis_key_prefix"`
	MQTTBroker      string `hcl:"mqtt_broker" toml:"mqtt_broker"`
	MQTTClientID    string `hcl:"mqtt_client_id" toml:"mqtt_client_id"`
	MQTTTopicPrefix string `hcl:"mqtt_topic_prefix" toml:"mqtt_topic_prefix"`
	ProxyAddr       string `hcl:"proxy_addr" toml:"proxy_addr"`
	GRPCServer      string `hcl:"grpc_server" toml:"grpc_server"`
	MetricsPort     string `hcl:"metrics_port" toml:"metrics_port"`
	HealthGRPCPort  string `hcl:"health_grpc_port" toml:"health_grpc_port"`
	RawLogDir       string `hcl:"raw_log_dir" toml:"raw_log_dir"`
	LogLevel        string `hcl:"log_level" toml:"log_level"`
}

// Load aplica defaults, luego el archivo (si path != "") y al final el entorno.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Annotatef(err, "config %s", path)
	}
	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		err = hcl.Unmarshal(b, &fc)
	case ".toml":
		err = toml.Unmarshal(b, &fc)
	default:
		return errors.NotSupportedf("config format %q", filepath.Ext(path))
	}
	if err != nil {
		return errors.Annotatef(err, "config parse %s", path)
	}
	return c.merge(fc)
}

func (c *Config) merge(fc fileConfig) error {
	setString(&c.SerialPort, fc.SerialPort)
	setString(&c.Store, fc.Store)
	setString(&c.RedisAddr, fc.RedisAddr)
	setString(&c.RedisPassword, fc.RedisPassword)
	setString(&c.RedisKeyPrefix, fc.RedisKeyPrefix)
	setString(&c.MQTTBroker, fc.MQTTBroker)
	setString(&c.MQTTClientID, fc.MQTTClientID)
	setString(&c.MQTTTopicPrefix, fc.MQTTTopicPrefix)
	setString(&c.ProxyAddr, fc.ProxyAddr)
	setString(&c.GRPCServer, fc.GRPCServer)
	setString(&c.MetricsPort, fc.MetricsPort)
	setString(&c.HealthGRPCPort, fc.HealthGRPCPort)
	setString(&c.RawLogDir, fc.RawLogDir)
	setString(&c.LogLevel, fc.LogLevel)
	if fc.BaudRate != 0 {
		c.BaudRate = fc.BaudRate
	}
	if fc.RedisDB != 0 {
		c.RedisDB = fc.RedisDB
	}
	if err := setDuration(&c.ReadTimeout, "read_timeout", fc.ReadTimeout); err != nil {
		return err
	}
	return setDuration(&c.WriteTimeout, "write_timeout", fc.WriteTimeout)
}

func (c *Config) loadEnv() error {
	c.SerialPort = getEnv("SERIAL_PORT", c.SerialPort)
	c.Store = getEnv("STORE", c.Store)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisKeyPrefix = getEnv("REDIS_KEY_PREFIX", c.RedisKeyPrefix)
	c.MQTTBroker = getEnv("MQTT_BROKER", c.MQTTBroker)
	c.MQTTClientID = getEnv("MQTT_CLIENT_ID", c.MQTTClientID)
	c.MQTTTopicPrefix = getEnv("MQTT_TOPIC_PREFIX", c.MQTTTopicPrefix)
	c.ProxyAddr = getEnv("PROXY_ADDR", c.ProxyAddr)
	c.GRPCServer = getEnv("GRPC_SERVER", c.GRPCServer)
	c.MetricsPort = getEnv("METRICS_PORT", c.MetricsPort)
	c.HealthGRPCPort = getEnv("HEALTH_GRPC_PORT", c.HealthGRPCPort)
	c.RawLogDir = getEnv("RAW_LOG_DIR", c.RawLogDir)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	var err error
	if c.BaudRate, err = getEnvInt("BAUD_RATE", c.BaudRate); err != nil {
		return err
	}
	if c.RedisDB, err = getEnvInt("REDIS_DB", c.RedisDB); err != nil {
		return err
	}
	if err := setDuration(&c.ReadTimeout, "READ_TIMEOUT", os.Getenv("READ_TIMEOUT")); err != nil {
		return err
	}
	return setDuration(&c.WriteTimeout, "WRITE_TIMEOUT", os.Getenv("WRITE_TIMEOUT"))
}

// Validate revisa lo mínimo para poder abrir el transporte y el sink.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SerialPort) == "" {
		return errors.NotValidf("empty serial port")
	}
	if c.BaudRate <= 0 {
		return errors.NotValidf("baud rate %d", c.BaudRate)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return errors.NotValidf("negative timeout")
	}
	switch c.Store {
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.NotValidf("store redis without REDIS_ADDR")
		}
	case StoreMemory:
	default:
		return errors.NotValidf("store %q", c.Store)
	}
	return nil
}

func (c Config) Transport() transport.Config {
	return transport.Config{
		Address:      c.SerialPort,
		BaudRate:     c.BaudRate,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.NotValidf("%s=%q", key, val)
	}
	return n, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// setDuration acepta "1s", "500ms" o segundos sueltos ("2", "0.5").
func setDuration(dst *time.Duration, key, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		*dst = d
		return nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return errors.NotValidf("%s=%q", key, raw)
	}
	*dst = time.Duration(secs * float64(time.Second))
	return nil
}
