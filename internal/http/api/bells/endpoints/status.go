package endpoints

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/belfry-systems/belfry/internal/audio"
	"github.com/belfry-systems/belfry/internal/db"
	"github.com/belfry-systems/belfry/internal/http/api"
	"github.com/belfry-systems/belfry/internal/model"
	"github.com/belfry-systems/belfry/internal/redis"
)

type StatusController struct {
	store  db.Store
	engine *audio.Engine // may be nil on headless servers
	now    func() time.Time
}

func NewStatusController(store db.Store, engine *audio.Engine) *StatusController {
	return &StatusController{store: store, engine: engine, now: time.Now}
}

func StatusModule(store db.Store, engine *audio.Engine) api.Module {
	ctl := NewStatusController(store, engine)
	return api.ModuleFunc(func(c *api.Controller) {
		c.Handle(http.MethodGet, "/status", ctl.status)
	})
}

// status serves from the short-lived cache when possible; the dashboard polls
// this endpoint aggressively.
func (s *StatusController) status(ctx *gin.Context) {
	if cached, ok := redis.CachedStatus(ctx.Request.Context()); ok {
		ctx.Data(http.StatusOK, "application/json", cached)
		return
	}

	status := s.build()
	payload, err := json.Marshal(status)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "status unavailable"})
		return
	}
	redis.CacheStatus(ctx.Request.Context(), payload)
	ctx.Data(http.StatusOK, "application/json", payload)
}

func (s *StatusController) build() model.Status {
	now := s.now()
	status := model.Status{
		CurrentTime: model.ClockTime(now),
		CurrentDay:  model.DayName(now.Weekday()),
		Volume:      80,
	}
	if s.engine != nil {
		status.IsPlaying = s.engine.IsPlaying()
		status.CurrentFile = s.engine.CurrentFile()
	}

	if v, err := s.store.GetSetting("holiday_mode"); err == nil {
		status.HolidayMode = v == "1"
	}
	if v, err := s.store.GetSetting("volume"); err == nil && v != "" {
		if vol, err := strconv.Atoi(v); err == nil {
			status.Volume = vol
		}
	}

	status.NextSchedule = s.nextSchedule(now)
	return status
}

// nextSchedule scans today after the current minute, then the following days
// in order. A week with no active schedules yields nil.
func (s *StatusController) nextSchedule(now time.Time) *model.NextSchedule {
	for offset := 0; offset < 8; offset++ {
		day := model.DayName(now.AddDate(0, 0, offset).Weekday())
		list, err := s.store.ListActiveSchedulesByDay(day)
		if err != nil {
			log.Error().Err(err).Str("day", day).Msg("next schedule lookup failed")
			return nil
		}
		for _, sc := range list {
			if offset == 0 && sc.Time <= model.ClockTime(now) {
				continue
			}
			return &model.NextSchedule{Name: sc.Name, Time: sc.Time, AudioFile: sc.AudioFile}
		}
	}
	return nil
}
