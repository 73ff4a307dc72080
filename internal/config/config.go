// Package config loads the host process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is everything the server binary needs to wire the peripheral.
type Config struct {
	Port string

	// Driver supervision.
	DriverPath        string
	DriverProcessName string
	DriverEndpoint    string
	ReadyTimeout      time.Duration
	PollInterval      time.Duration

	// Channel timeouts.
	DialTimeout time.Duration
	CallTimeout time.Duration

	// Default terminal settings, overridable per Init.
	TerminalAddress   string
	POSNumber         int
	ForceOnline       bool
	RecordDir         string
	PendingTicketPath string

	// Audit journal database.
	AuditDBPath string
}

// Load reads the environment. DRIVER_PATH is required; everything else has a
// default.
func Load() (*Config, error) {
	driverPath := os.Getenv("DRIVER_PATH")
	if driverPath == "" {
		return nil, fmt.Errorf("DRIVER_PATH environment variable is required")
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		DriverPath:        driverPath,
		DriverProcessName: getEnv("DRIVER_PROCESS_NAME", ""),
		DriverEndpoint:    getEnv("DRIVER_ENDPOINT", "127.0.0.1:9410"),
		ReadyTimeout:      getDuration("DRIVER_READY_TIMEOUT", 15*time.Second),
		PollInterval:      getDuration("DRIVER_POLL_INTERVAL", 250*time.Millisecond),
		DialTimeout:       getDuration("CHANNEL_DIAL_TIMEOUT", 5*time.Second),
		CallTimeout:       getDuration("CHANNEL_CALL_TIMEOUT", 10*time.Minute),
		TerminalAddress:   getEnv("TERMINAL_ADDRESS", ""),
		POSNumber:         getInt("POS_NUMBER", 1),
		ForceOnline:       getBool("FORCE_ONLINE", false),
		RecordDir:         getEnv("RECORD_DIR", "records"),
		PendingTicketPath: getEnv("PENDING_TICKET_PATH", "pending_ticket.txt"),
		AuditDBPath:       getEnv("AUDIT_DB_PATH", "payterm.db"),
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
