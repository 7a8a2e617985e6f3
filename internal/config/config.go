package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	RulesPassThrough = "passthrough"
	RulesChess       = "chess"
)

type AppConfig struct {
	Addr string

	RoomRetention  time.Duration
	SweepInterval  time.Duration
	ReservationTTL time.Duration

	RedisURL    string
	DatabaseURL string

	Rules          string
	AllowedOrigins []string
	MessagesDir    string
	OutboxSize     int
	InstanceID     string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		RoomRetention:  10 * time.Minute,
		SweepInterval:  60 * time.Second,
		ReservationTTL: 30 * time.Minute,
		Rules:          RulesPassThrough,
		OutboxSize:     64,
	}

	addr, err := listenAddr(os.Getenv("PORT"))
	if err != nil {
		return nil, err
	}
	cfg.Addr = addr

	if cfg.RoomRetention, err = duration("ROOM_RETENTION", cfg.RoomRetention); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = duration("SWEEP_INTERVAL", cfg.SweepInterval); err != nil {
		return nil, err
	}
	if cfg.ReservationTTL, err = duration("RESERVATION_TTL", cfg.ReservationTTL); err != nil {
		return nil, err
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))
	cfg.InstanceID = strings.TrimSpace(os.Getenv("INSTANCE_ID"))
	if cfg.InstanceID == "" {
		if h, err := os.Hostname(); err == nil {
			cfg.InstanceID = h
		}
	}

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("RULES"))); v != "" {
		if v != RulesPassThrough && v != RulesChess {
			return nil, fmt.Errorf("invalid RULES value: %q", v)
		}
		cfg.Rules = v
	}

	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv("OUTBOX_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.OutboxSize = n
		}
	}

	return cfg, nil
}

// listenAddr accepts "8080", ":8080" or "host:8080"; empty means :8080.
func listenAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		return ":8080", nil
	}
	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}
	if strings.Contains(port, ":") {
		return port, nil
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}
	return ":" + port, nil
}

// duration reads a Go duration ("90s") or a whole number of seconds.
func duration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("invalid %s value: %q", key, v)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s value: %q", key, v)
	}
	return d, nil
}
