package model

// Settings are the global scalars shared by server and agents. Volume is
// 0-100 on the wire and in storage; the playback engine maps it to 0.0-1.0.
type Settings struct {
	Volume      int  `json:"volume"`
	HolidayMode bool `json:"holiday_mode"`
	AutoStart   bool `json:"auto_start"`
}

// Status is the payload of GET /api/status.
type Status struct {
	IsPlaying    bool          `json:"is_playing"`
	CurrentFile  string        `json:"current_file"`
	HolidayMode  bool          `json:"holiday_mode"`
	Volume       int           `json:"volume"`
	NextSchedule *NextSchedule `json:"next_schedule"`
	CurrentTime  string        `json:"current_time"`
	CurrentDay   string        `json:"current_day"`
}
