package model

import "time"

// Play log statuses.
const (
	PlaySuccess   = "success"
	PlayFailed    = "failed"
	PlayManual    = "manual_play"
	PlayCancelled = "cancelled"
)

// PlayLogEntry records one playback attempt. ScheduleID is nil for manual
// announcements. The agent keeps the most recent 100 entries locally and
// forwards each one to the server as it happens; the server keeps everything.
type PlayLogEntry struct {
	ID           string    `db:"id" json:"id"`
	ScheduleID   *int      `db:"schedule_id" json:"schedule_id"`
	ScheduleName string    `db:"schedule_name" json:"schedule_name"`
	AudioFile    string    `db:"audio_file" json:"audio_file"`
	PlayedAt     time.Time `db:"played_at" json:"played_at"`
	Status       string    `db:"status" json:"status"`
	Notes        string    `db:"notes" json:"notes"`
}
