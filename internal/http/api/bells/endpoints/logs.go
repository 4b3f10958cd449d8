package endpoints

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/belfry-systems/belfry/internal/db"
	"github.com/belfry-systems/belfry/internal/http/api"
	"github.com/belfry-systems/belfry/internal/http/api/bells/packets"
	"github.com/belfry-systems/belfry/internal/model"
)

const defaultLogLimit = 100

type LogController struct {
	store db.Store
}

func NewLogController(store db.Store) *LogController {
	return &LogController{store: store}
}

func LogModule(store db.Store) api.Module {
	ctl := NewLogController(store)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/logs", ctl.listLogs)
		c.POST("/logs", ctl.pushLog)
	})
}

func (l *LogController) listLogs(ctx *gin.Context) (any, *api.APIError) {
	limit := defaultLogLimit
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid limit"}
		}
		limit = n
	}

	logs, err := l.store.RecentPlayLogs(limit)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "failed to list logs"}
	}
	return logs, nil
}

// pushLog accepts entries from detached agents that rang a bell locally.
func (l *LogController) pushLog(ctx *gin.Context) (any, *api.APIError) {
	var request packets.PushLogRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	entry := model.PlayLogEntry{
		ScheduleID:   request.ScheduleID,
		ScheduleName: request.ScheduleName,
		AudioFile:    request.AudioFile,
		PlayedAt:     request.PlayedAt,
		Status:       request.Status,
		Notes:        request.Notes,
	}
	if entry.PlayedAt.IsZero() {
		entry.PlayedAt = time.Now()
	}

	if err := l.store.AddPlayLog(entry); err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not record log"}
	}
	return packets.MutationResponse{Success: true}, nil
}
