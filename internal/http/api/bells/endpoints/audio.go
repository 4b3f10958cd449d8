package endpoints

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/belfry-systems/belfry/internal/audio"
	"github.com/belfry-systems/belfry/internal/db"
	"github.com/belfry-systems/belfry/internal/http/api"
	"github.com/belfry-systems/belfry/internal/http/api/bells/packets"
	"github.com/belfry-systems/belfry/internal/model"
	"github.com/belfry-systems/belfry/internal/storage"
)

var allowedAudioExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
	".ogg": true,
}

type AudioController struct {
	store   db.Store
	files   storage.Storage
	engine  *audio.Engine // may be nil on headless servers
	maxSize int64
}

func NewAudioController(store db.Store, files storage.Storage, engine *audio.Engine) *AudioController {
	return &AudioController{store: store, files: files, engine: engine, maxSize: 32 << 20}
}

func AudioModule(store db.Store, files storage.Storage, engine *audio.Engine) api.Module {
	ctl := NewAudioController(store, files, engine)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/audio", ctl.listAudio)
		c.POST("/audio/upload", ctl.uploadAudio)
		c.DELETE("/audio/:id", ctl.deleteAudio)
	})
}

func (a *AudioController) listAudio(ctx *gin.Context) (any, *api.APIError) {
	list, err := a.store.ListAudioFiles()
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "failed to list audio files"}
	}
	return list, nil
}

func (a *AudioController) uploadAudio(ctx *gin.Context) (any, *api.APIError) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "missing file field"}
	}
	if fileHeader.Size > a.maxSize {
		return nil, &api.APIError{Code: http.StatusRequestEntityTooLarge, Message: "file too large"}
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedAudioExtensions[ext] {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "only mp3, wav and ogg files are accepted"}
	}

	storedName, location, err := a.files.SaveFile(fileHeader, fileHeader.Filename)
	if err != nil {
		log.Error().Err(err).Str("filename", fileHeader.Filename).Msg("audio upload failed")
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not store file"}
	}

	record := model.AudioFile{
		Filename:    storedName,
		DisplayName: fileHeader.Filename,
		FilePath:    location,
		UploadedAt:  time.Now(),
	}
	if a.engine != nil && ext == ".mp3" {
		if analysis, err := a.engine.Analyze(ctx.Request.Context(), storedName); err == nil && analysis != nil {
			record.Duration = analysis.Duration
		}
	}

	id, err := a.store.CreateAudioFile(record)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not register file"}
	}
	log.Info().Int("id", id).Str("filename", storedName).Msg("audio file uploaded")

	return packets.MutationResponse{Success: true, ID: id}, nil
}

func (a *AudioController) deleteAudio(ctx *gin.Context) (any, *api.APIError) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid id"}
	}

	record, err := a.store.GetAudioFile(id)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "audio file not found"}
	}

	if err := a.files.RemoveFile(record.Filename); err != nil {
		log.Warn().Err(err).Str("filename", record.Filename).Msg("stored file removal failed")
	}
	if err := a.store.DeleteAudioFile(id); err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not delete audio file"}
	}

	return packets.MutationResponse{Success: true}, nil
}
