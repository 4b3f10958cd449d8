package packets

import "time"

type CreateScheduleRequest struct {
	Name      string `json:"name" binding:"required"`
	DayOfWeek string `json:"day_of_week" binding:"required"`
	Time      string `json:"time" binding:"required"`
	AudioFile string `json:"audio_file" binding:"required"`
	IsActive  *bool  `json:"is_active"`
}

type UpdateScheduleRequest struct {
	Name      *string `json:"name"`
	DayOfWeek *string `json:"day_of_week"`
	Time      *string `json:"time"`
	AudioFile *string `json:"audio_file"`
	IsActive  *bool   `json:"is_active"`
}

type PlayRequest struct {
	AudioFile string `json:"audio_file" binding:"required"`
}

type UpdateSettingsRequest struct {
	Volume      *int  `json:"volume"`
	HolidayMode *bool `json:"holiday_mode"`
	AutoStart   *bool `json:"auto_start"`
}

// PushLogRequest is what detached agents post after firing a bell locally.
type PushLogRequest struct {
	ScheduleID   *int      `json:"schedule_id"`
	ScheduleName string    `json:"schedule_name"`
	AudioFile    string    `json:"audio_file" binding:"required"`
	PlayedAt     time.Time `json:"played_at"`
	Status       string    `json:"status" binding:"required"`
	Notes        string    `json:"notes"`
}
