package endpoints

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/belfry-systems/belfry/internal/audio"
	"github.com/belfry-systems/belfry/internal/db"
	"github.com/belfry-systems/belfry/internal/http/api"
	"github.com/belfry-systems/belfry/internal/http/api/bells"
	"github.com/belfry-systems/belfry/internal/http/api/bells/packets"
	"github.com/belfry-systems/belfry/internal/model"
)

type PlaybackController struct {
	store    db.Store
	engine   *audio.Engine // may be nil on headless servers
	notifier *bells.Notifier
}

func NewPlaybackController(store db.Store, engine *audio.Engine, notifier *bells.Notifier) *PlaybackController {
	return &PlaybackController{store: store, engine: engine, notifier: notifier}
}

func PlaybackModule(store db.Store, engine *audio.Engine, notifier *bells.Notifier) api.Module {
	ctl := NewPlaybackController(store, engine, notifier)
	return api.ModuleFunc(func(c *api.Controller) {
		c.POST("/play", ctl.play)
		c.POST("/stop", ctl.stop)
	})
}

func (p *PlaybackController) play(ctx *gin.Context) (any, *api.APIError) {
	if p.engine == nil {
		return nil, &api.APIError{Code: http.StatusServiceUnavailable, Message: "no playback device on this server"}
	}

	var request packets.PlayRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	file := request.AudioFile
	entry := model.PlayLogEntry{
		AudioFile:    file,
		ScheduleName: "manual",
		PlayedAt:     time.Now(),
		Status:       model.PlayManual,
	}
	if err := p.engine.Play(ctx.Request.Context(), file, nil); err != nil {
		log.Error().Err(err).Str("file", file).Msg("manual playback failed")
		entry.Status = model.PlayFailed
		entry.Notes = err.Error()
		p.pushLog(entry)
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "playback failed"}
	}
	p.pushLog(entry)
	p.notifier.PlaybackChanged(true, file)

	return packets.MutationResponse{Success: true}, nil
}

func (p *PlaybackController) stop(ctx *gin.Context) (any, *api.APIError) {
	if p.engine == nil {
		return nil, &api.APIError{Code: http.StatusServiceUnavailable, Message: "no playback device on this server"}
	}
	p.engine.Stop()
	p.notifier.PlaybackChanged(false, "")
	return packets.MutationResponse{Success: true}, nil
}

func (p *PlaybackController) pushLog(entry model.PlayLogEntry) {
	if err := p.store.AddPlayLog(entry); err != nil {
		log.Error().Err(err).Msg("play log not persisted")
	}
}
