package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults assume a single-host setup: everything on loopback, fixed ports.
const (
	DefaultCloudHost     = "127.0.0.1"
	DefaultHubHost       = "127.0.0.1"
	DefaultCloudPort     = 8081
	DefaultHubPort       = 8082
	DefaultHubHTTPPort   = 3000
	DefaultCloudHTTPPort = 8080
	DefaultMQTTBroker    = "127.0.0.1:1883"
	DefaultDBPath        = "pozor_dom_hub.db"
)

type Config struct {
	CloudHost     string
	CloudPort     int
	HubHost       string
	HubPort       int
	HubHTTPPort   int
	CloudHTTPPort int
	MQTTBroker    string
	DBPath        string
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := &Config{
		CloudHost:     getEnv("POZOR_DOM_CLOUD_HOST", DefaultCloudHost),
		CloudPort:     getEnvInt("POZOR_DOM_CLOUD_PORT", DefaultCloudPort),
		HubHost:       getEnv("POZOR_DOM_HUB_HOST", DefaultHubHost),
		HubPort:       getEnvInt("POZOR_DOM_HUB_PORT", DefaultHubPort),
		HubHTTPPort:   getEnvInt("POZOR_DOM_HUB_HTTP_PORT", DefaultHubHTTPPort),
		CloudHTTPPort: getEnvInt("POZOR_DOM_CLOUD_HTTP_PORT", DefaultCloudHTTPPort),
		MQTTBroker:    getEnv("POZOR_DOM_MQTT_BROKER", DefaultMQTTBroker),
		DBPath:        getEnv("POZOR_DOM_DB_PATH", DefaultDBPath),
	}

	return config, nil
}

// CloudWSURL is the websocket endpoint the hub dials for the cloud uplink.
func (c *Config) CloudWSURL() string {
	return fmt.Sprintf("ws://%s:%d", c.CloudHost, c.CloudPort)
}

// HubListenAddr is the address the hub websocket server binds to.
func (c *Config) HubListenAddr() string {
	return fmt.Sprintf("%s:%d", c.HubHost, c.HubPort)
}

// CloudListenAddr is the address the cloud websocket server binds to.
func (c *Config) CloudListenAddr() string {
	return fmt.Sprintf("%s:%d", c.CloudHost, c.CloudPort)
}

// HubHTTPListenAddr is the address the hub dashboard API binds to.
func (c *Config) HubHTTPListenAddr() string {
	return fmt.Sprintf("%s:%d", c.HubHost, c.HubHTTPPort)
}

// CloudHTTPListenAddr is the address the cloud dashboard API binds to.
func (c *Config) CloudHTTPListenAddr() string {
	return fmt.Sprintf("%s:%d", c.CloudHost, c.CloudHTTPPort)
}

// HubHTTPURL is the hub dashboard API base URL, used by the cloud proxy.
func (c *Config) HubHTTPURL() string {
	return fmt.Sprintf("http://%s:%d", c.HubHost, c.HubHTTPPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
