package endpoints

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/belfry-systems/belfry/internal/db"
	"github.com/belfry-systems/belfry/internal/http/api"
	"github.com/belfry-systems/belfry/internal/http/api/bells"
	"github.com/belfry-systems/belfry/internal/http/api/bells/packets"
	"github.com/belfry-systems/belfry/internal/model"
)

type ScheduleController struct {
	store    db.Store
	notifier *bells.Notifier
}

func NewScheduleController(store db.Store, notifier *bells.Notifier) *ScheduleController {
	return &ScheduleController{store: store, notifier: notifier}
}

func ScheduleModule(store db.Store, notifier *bells.Notifier) api.Module {
	ctl := NewScheduleController(store, notifier)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/schedules", ctl.listSchedules)
		c.POST("/schedules", ctl.createSchedule)
		c.PUT("/schedules/:id", ctl.updateSchedule)
		c.DELETE("/schedules/:id", ctl.deleteSchedule)
		c.POST("/schedules/:id/toggle", ctl.toggleSchedule)
	})
}

func (s *ScheduleController) listSchedules(ctx *gin.Context) (any, *api.APIError) {
	list, err := s.store.ListSchedules()
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "failed to list schedules"}
	}
	return list, nil
}

func (s *ScheduleController) createSchedule(ctx *gin.Context) (any, *api.APIError) {
	var request packets.CreateScheduleRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if apiErr := validateSchedule(request.DayOfWeek, request.Time); apiErr != nil {
		return nil, apiErr
	}

	schedule := model.Schedule{
		Name:      request.Name,
		DayOfWeek: request.DayOfWeek,
		Time:      request.Time,
		AudioFile: request.AudioFile,
		IsActive:  true,
	}
	if request.IsActive != nil {
		schedule.IsActive = *request.IsActive
	}

	id, err := s.store.CreateSchedule(schedule)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not create schedule"}
	}
	log.Info().Int("id", id).Str("name", schedule.Name).Msg("schedule created")
	s.notifier.SchedulesChanged()

	return packets.MutationResponse{Success: true, ID: id}, nil
}

func (s *ScheduleController) updateSchedule(ctx *gin.Context) (any, *api.APIError) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid id"}
	}

	var request packets.UpdateScheduleRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	schedule, err := s.store.GetSchedule(id)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "schedule not found"}
	}

	if request.Name != nil {
		schedule.Name = *request.Name
	}
	if request.DayOfWeek != nil {
		schedule.DayOfWeek = *request.DayOfWeek
	}
	if request.Time != nil {
		schedule.Time = *request.Time
	}
	if request.AudioFile != nil {
		schedule.AudioFile = *request.AudioFile
	}
	if request.IsActive != nil {
		schedule.IsActive = *request.IsActive
	}
	if apiErr := validateSchedule(schedule.DayOfWeek, schedule.Time); apiErr != nil {
		return nil, apiErr
	}

	if err := s.store.UpdateSchedule(id, schedule); err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not update schedule"}
	}
	s.notifier.SchedulesChanged()

	return packets.MutationResponse{Success: true, ID: id}, nil
}

func (s *ScheduleController) deleteSchedule(ctx *gin.Context) (any, *api.APIError) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid id"}
	}

	if err := s.store.DeleteSchedule(id); err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not delete schedule"}
	}
	log.Info().Int("id", id).Msg("schedule deleted")
	s.notifier.SchedulesChanged()

	return packets.MutationResponse{Success: true}, nil
}

func (s *ScheduleController) toggleSchedule(ctx *gin.Context) (any, *api.APIError) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid id"}
	}

	if err := s.store.ToggleSchedule(id); err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not toggle schedule"}
	}
	s.notifier.SchedulesChanged()

	return packets.MutationResponse{Success: true, ID: id}, nil
}

func validateSchedule(day, clock string) *api.APIError {
	if !model.ValidDay(day) {
		return &api.APIError{Code: http.StatusBadRequest, Message: "invalid day_of_week"}
	}
	if !model.ValidClockTime(clock) {
		return &api.APIError{Code: http.StatusBadRequest, Message: "time must be HH:MM"}
	}
	return nil
}
