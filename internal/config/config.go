package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func LoadEnv() error {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println(fmt.Printf("Erro ao carregar o arquivo .env:%v", err))
		return err
	}
	return nil
}

func GetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("Environment variable %s is required but not set", key)
	}
	return value
}

// GetEnvOr reads an optional variable, falling back to the given default.
func GetEnvOr(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

// GetDuration parses an optional duration variable ("1s", "500ms").
func GetDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("Environment variable %s is not a valid duration: %v", key, err)
	}
	return d
}

// GetFloat parses an optional float variable.
func GetFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Fatalf("Environment variable %s is not a valid number: %v", key, err)
	}
	return f
}
