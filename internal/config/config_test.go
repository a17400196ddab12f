package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", cfg.SerialPort)
	assert.Equal(t, 115200, cfg.BaudRate)
	assert.Equal(t, time.Second, cfg.ReadTimeout)
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, "dev:", cfg.RedisKeyPrefix)
	assert.Equal(t, "9000", cfg.MetricsPort)
	assert.NoError(t, cfg.Validate())

	tc := cfg.Transport()
	assert.Equal(t, "/dev/ttyUSB0", tc.Address)
	assert.Equal(t, 115200, tc.BaudRate)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERIAL_PORT", "COM5")
	t.Setenv("BAUD_RATE", "9600")
	t.Setenv("READ_TIMEOUT", "0.5")
	t.Setenv("WRITE_TIMEOUT", "250ms")
	t.Setenv("STORE", "memory")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "COM5", cfg.SerialPort)
	assert.Equal(t, 9600, cfg.BaudRate)
	assert.Equal(t, 500*time.Millisecond, cfg.ReadTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.WriteTimeout)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestLoadEnvInvalid(t *testing.T) {
	t.Setenv("BAUD_RATE", "fast")
	_, err := Load("")
	assert.True(t, errors.IsNotValid(err), "err=%v", err)

	t.Setenv("BAUD_RATE", "")
	t.Setenv("READ_TIMEOUT", "soon")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoadHCL(t *testing.T) {
	p := writeFile(t, "gtrc.hcl", `
serial_port = "tcp://127.0.0.1:7000"
baud_rate = 57600
read_timeout = "2s"
store = "memory"
mqtt_broker = "tcp://broker:1883"
`)
	t.Setenv("BAUD_RATE", "19200")
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "tcp://127.0.0.1:7000", cfg.SerialPort)
	assert.Equal(t, 19200, cfg.BaudRate) // el entorno gana
	assert.Equal(t, 2*time.Second, cfg.ReadTimeout)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTTBroker)
	assert.Equal(t, time.Second, cfg.WriteTimeout)
}

func TestLoadTOML(t *testing.T) {
	p := writeFile(t, "gtrc.toml", `
serial_port = "/dev/ttyACM0"
redis_addr = "redis:6379"
redis_key_prefix = "gps:"
proxy_addr = "proxy:7001"
write_timeout = "3s"
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", cfg.SerialPort)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, "gps:", cfg.RedisKeyPrefix)
	assert.Equal(t, "proxy:7001", cfg.ProxyAddr)
	assert.Equal(t, 3*time.Second, cfg.WriteTimeout)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "cfg.yaml", "a: 1"))
	assert.True(t, errors.IsNotSupported(err), "err=%v", err)

	_, err = Load(writeFile(t, "bad.toml", "serial_port = "))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Config)
	}{
		{"empty port", func(c *Config) { c.SerialPort = " " }},
		{"zero baud", func(c *Config) { c.BaudRate = 0 }},
		{"negative timeout", func(c *Config) { c.ReadTimeout = -time.Second }},
		{"unknown store", func(c *Config) { c.Store = "mongo" }},
		{"redis without addr", func(c *Config) { c.RedisAddr = "" }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := Default()
			c.mod(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsNotValid(err), "err=%v", err)
		})
	}
}
