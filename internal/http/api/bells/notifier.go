// Package bells wires the HTTP endpoint modules to the rest of the server:
// the cron scheduler, the websocket hub, the MQTT broker and the status cache.
package bells

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/belfry-systems/belfry/internal/mqtt"
	"github.com/belfry-systems/belfry/internal/redis"
	"github.com/belfry-systems/belfry/internal/sched"
	"github.com/belfry-systems/belfry/internal/ws"
)

// Notifier fans a mutation out to every interested subsystem. Any field may
// be nil; disabled integrations are skipped.
type Notifier struct {
	Hub       *ws.Hub
	MQTT      *mqtt.Client
	Scheduler *sched.BellScheduler
}

// SchedulesChanged is called after every schedule mutation.
func (n *Notifier) SchedulesChanged() {
	redis.InvalidateStatus(context.Background())
	if n.Scheduler != nil {
		if err := n.Scheduler.Reload(); err != nil {
			log.Error().Err(err).Msg("scheduler reload failed")
		}
	}
	if n.MQTT != nil {
		if err := n.MQTT.Publish(mqtt.SchedulesTopic, []byte("changed")); err != nil {
			log.Error().Err(err).Msg("mqtt schedules notify failed")
		}
	}
	if n.Hub != nil {
		n.Hub.Broadcast(ws.Event{Type: ws.EventSchedulesChanged})
	}
}

// SettingsChanged is called after volume, holiday mode or autostart change.
func (n *Notifier) SettingsChanged() {
	redis.InvalidateStatus(context.Background())
	if n.MQTT != nil {
		if err := n.MQTT.Publish(mqtt.SettingsTopic, []byte("changed")); err != nil {
			log.Error().Err(err).Msg("mqtt settings notify failed")
		}
	}
	if n.Hub != nil {
		n.Hub.Broadcast(ws.Event{Type: ws.EventSettingsChanged})
	}
}

// PlaybackChanged broadcasts start and stop of audio playback.
func (n *Notifier) PlaybackChanged(started bool, file string) {
	redis.InvalidateStatus(context.Background())
	if n.Hub == nil {
		return
	}
	if started {
		n.Hub.Broadcast(ws.Event{Type: ws.EventPlaybackStarted, Payload: file})
	} else {
		n.Hub.Broadcast(ws.Event{Type: ws.EventPlaybackStopped})
	}
}
