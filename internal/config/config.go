package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Get returns the trimmed value of an environment variable, or fallback when unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func GetFloat(key string, fallback float64) float64 {
	raw := Get(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config: invalid float key=%s value=%q, using %v", key, raw, fallback)
		return fallback
	}
	return v
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	raw := Get(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config: invalid duration key=%s value=%q, using %s", key, raw, fallback)
		return fallback
	}
	return v
}
