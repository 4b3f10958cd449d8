package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/belfry-systems/belfry/internal/audio"
	"github.com/belfry-systems/belfry/internal/db"
	"github.com/belfry-systems/belfry/internal/http/api/bells"
	"github.com/belfry-systems/belfry/internal/mqtt"
	"github.com/belfry-systems/belfry/internal/redis"
	"github.com/belfry-systems/belfry/internal/sched"
	"github.com/belfry-systems/belfry/internal/ws"
)

// bellPlayer adapts the playback engine to the scheduler.
type bellPlayer struct {
	engine *audio.Engine
}

func (p bellPlayer) Play(ctx context.Context, identifier string) error {
	if p.engine == nil {
		return errors.New("no playback device on this server")
	}
	return p.engine.Play(ctx, identifier, nil)
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, relying on environment")
	}
	env := LoadEnvironment()

	if err := db.Init(env.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("db init failed")
	}
	if err := db.RunMigrations(env.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}
	store := db.NewStore()

	redis.InitRedis(env.RedisAddress, env.RedisUsername, env.RedisPassword)
	storageSystem := InitStorage(env)

	// Playback is optional; a headless server only coordinates detached agents.
	var engine *audio.Engine
	if env.EnablePlayback {
		dir := env.AudioDir
		engine = audio.New(audio.SourceFunc(func(_ context.Context, identifier string) ([]byte, error) {
			return os.ReadFile(filepath.Join(dir, filepath.Base(identifier)))
		}))
	}

	hub := ws.NewHub()
	go hub.Run()

	var broker *mqtt.Client
	if env.MQTTBroker != "" {
		var err error
		broker, err = mqtt.Connect(env.MQTTBroker, "belfry-server", nil)
		if err != nil {
			log.Error().Err(err).Msg("MQTT unavailable, agents fall back to polling")
			broker = nil
		}
	}

	scheduler := sched.New(store, bellPlayer{engine: engine}, hub)
	if err := scheduler.Reload(); err != nil {
		log.Fatal().Err(err).Msg("initial schedule load failed")
	}
	scheduler.Start()
	defer scheduler.Stop()

	notifier := &bells.Notifier{Hub: hub, MQTT: broker, Scheduler: scheduler}

	if env.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	RegisterRoutes(r, env, store, storageSystem, engine, hub, notifier)

	log.Info().Str("address", env.ServerAddress).Msg("listening")
	if err := r.Run(env.ServerAddress); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
