package endpoints

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/belfry-systems/belfry/internal/audio"
	"github.com/belfry-systems/belfry/internal/db"
	"github.com/belfry-systems/belfry/internal/http/api"
	"github.com/belfry-systems/belfry/internal/http/api/bells"
	"github.com/belfry-systems/belfry/internal/http/api/bells/packets"
	"github.com/belfry-systems/belfry/internal/model"
)

type SettingsController struct {
	store    db.Store
	engine   *audio.Engine // may be nil on headless servers
	notifier *bells.Notifier
}

func NewSettingsController(store db.Store, engine *audio.Engine, notifier *bells.Notifier) *SettingsController {
	return &SettingsController{store: store, engine: engine, notifier: notifier}
}

func SettingsModule(store db.Store, engine *audio.Engine, notifier *bells.Notifier) api.Module {
	ctl := NewSettingsController(store, engine, notifier)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/settings", ctl.getSettings)
		c.POST("/settings", ctl.updateSettings)
	})
}

func (s *SettingsController) getSettings(ctx *gin.Context) (any, *api.APIError) {
	settings := model.Settings{Volume: 80, AutoStart: true}
	if v, err := s.store.GetSetting("volume"); err == nil && v != "" {
		if vol, err := strconv.Atoi(v); err == nil {
			settings.Volume = vol
		}
	}
	if v, err := s.store.GetSetting("holiday_mode"); err == nil {
		settings.HolidayMode = v == "1"
	}
	if v, err := s.store.GetSetting("auto_start"); err == nil && v != "" {
		settings.AutoStart = v == "1"
	}
	return settings, nil
}

func (s *SettingsController) updateSettings(ctx *gin.Context) (any, *api.APIError) {
	var request packets.UpdateSettingsRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	if request.Volume != nil {
		vol := *request.Volume
		if vol < 0 {
			vol = 0
		}
		if vol > 100 {
			vol = 100
		}
		if err := s.store.UpdateSetting("volume", strconv.Itoa(vol)); err != nil {
			return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not save volume"}
		}
		if s.engine != nil {
			s.engine.SetVolume(float64(vol) / 100)
		}
		log.Info().Int("volume", vol).Msg("volume updated")
	}
	if request.HolidayMode != nil {
		if err := s.store.UpdateSetting("holiday_mode", boolSetting(*request.HolidayMode)); err != nil {
			return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not save holiday mode"}
		}
		log.Info().Bool("holiday_mode", *request.HolidayMode).Msg("holiday mode updated")
	}
	if request.AutoStart != nil {
		if err := s.store.UpdateSetting("auto_start", boolSetting(*request.AutoStart)); err != nil {
			return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not save auto start"}
		}
	}

	s.notifier.SettingsChanged()
	return packets.MutationResponse{Success: true}, nil
}

func boolSetting(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
