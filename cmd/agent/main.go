// The agent runs on the machine wired to the speakers. It mirrors the
// server's schedule set, keeps ringing bells through network and server
// outages, and pushes its play history back when the server returns.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/belfry-systems/belfry/internal/audio"
	"github.com/belfry-systems/belfry/internal/client"
	"github.com/belfry-systems/belfry/internal/model"
	"github.com/belfry-systems/belfry/internal/mqtt"
	"github.com/belfry-systems/belfry/internal/store"
	"github.com/belfry-systems/belfry/internal/trigger"
)

// bellPlayer adapts the playback engine to the trigger engine.
type bellPlayer struct {
	engine *audio.Engine
}

func (p bellPlayer) Play(ctx context.Context, identifier string) error {
	return p.engine.Play(ctx, identifier, nil)
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, relying on environment")
	}
	env := LoadEnvironment()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(env.DataDir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", env.DataDir).Msg("data dir unavailable, running memory-only")
	}
	local, err := store.OpenLocal(env.LocalDBPath())
	if err != nil {
		log.Warn().Err(err).Msg("local store unavailable, running memory-only")
		local = nil
	} else {
		defer local.Close()
	}

	remote := client.New(env.ServerURL)
	st := store.NewStore(remote, local)
	schedules := st.Load(ctx)
	log.Info().Int("count", len(schedules)).Msg("schedule set loaded")

	engine := audio.New(audio.SourceFunc(remote.FetchAudio))
	engine.SetVolume(float64(st.Volume()) / 100)
	preload(ctx, remote, engine)

	trig := trigger.New(st, bellPlayer{engine: engine})
	trig.OnNext(func(next *model.NextSchedule) {
		if next != nil {
			log.Info().Str("name", next.Name).Str("time", next.Time).Msg("next bell")
		}
	})
	trig.OnReminder(func(next model.NextSchedule) {
		log.Info().Str("name", next.Name).Str("time", next.Time).Msg("bell in one minute")
	})

	resync := func() {
		if st.Reconcile(ctx) {
			log.Info().Msg("schedule set changed, rechecking")
			trig.CheckNow()
		}
		engine.SetVolume(float64(st.Volume()) / 100)
	}

	var broker *mqtt.Client
	if env.MQTTBroker != "" {
		broker, err = mqtt.Connect(env.MQTTBroker, "belfry-agent-"+hostname(), resync)
		if err != nil {
			log.Warn().Err(err).Msg("MQTT unavailable, relying on periodic resync")
			broker = nil
		} else {
			defer broker.Disconnect()
			subscribe(broker, resync)
		}
	}

	go periodicResync(ctx, time.Duration(env.ResyncMinutes)*time.Minute, resync)
	go watchHUP(ctx, trig)

	trig.Start(ctx)
	log.Info().Msg("agent stopped")
}

func subscribe(broker *mqtt.Client, resync func()) {
	for _, topic := range []string{mqtt.SchedulesTopic, mqtt.SettingsTopic} {
		if err := broker.Subscribe(topic, func([]byte) { resync() }); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("subscribe failed")
		}
	}
}

// preload warms the decode cache so bells ring even if the network drops
// before the first fire.
func preload(ctx context.Context, remote *client.Client, engine *audio.Engine) {
	files, err := remote.ListAudio(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("audio list unavailable, cache warms lazily")
		return
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Filename)
	}
	engine.Preload(ctx, names)
}

func periodicResync(ctx context.Context, every time.Duration, resync func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			resync()
		}
	}
}

// SIGHUP forces an immediate trigger check, mainly for operators testing a
// fresh schedule.
func watchHUP(ctx context.Context, trig *trigger.Engine) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			trig.CheckNow()
		}
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
