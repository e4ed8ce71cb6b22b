package utils

import (
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
)

func LoadEnv(key string) string {
	value, valid := os.LookupEnv(key)

	if !valid {
		log.Fatalf("fail to load env '%v'", key)
	}
	if value == "" {
		log.Fatalf("env '%v' is empty", key)
		return ""
	}

	return value
}

func LoadEnvWithDefault(key string, fallback string) string {
	value, valid := os.LookupEnv(key)
	if !valid || value == "" {
		return fallback
	}
	return value
}

func LoadIntEnvWithDefault(key string, fallback int) int {
	value, valid := os.LookupEnv(key)
	if !valid || value == "" {
		return fallback
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("env '%v' is not integer", key)
	}
	return intValue
}

func LoadBoolEnvWithDefault(key string) bool {
	value, valid := os.LookupEnv(key)
	if !valid || value == "" {
		return false
	}
	return value == "true"
}
