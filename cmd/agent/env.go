package main

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

type Environment struct {
	ServerURL  string
	MQTTBroker string
	DataDir    string

	ResyncMinutes int
}

// LoadEnvironment reads and validates env vars
func LoadEnvironment() Environment {
	env := Environment{
		ServerURL:     os.Getenv("SERVER_URL"),
		MQTTBroker:    os.Getenv("MQTT_BROKER"),
		DataDir:       os.Getenv("DATA_DIR"),
		ResyncMinutes: 5,
	}

	if env.ServerURL == "" {
		log.Fatal().Msg("Missing required environment variable SERVER_URL")
	}
	if env.DataDir == "" {
		env.DataDir = "./data"
	}
	return env
}

// LocalDBPath is where the durable schedule copy lives.
func (e Environment) LocalDBPath() string {
	return filepath.Join(e.DataDir, "belfry.db")
}
