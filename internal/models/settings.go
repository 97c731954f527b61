package models

type Settings struct {
	UserID       string
	ReminderTime *string
	ReminderMsg  *string
	Target       *int64
}

type ReminderSetting struct {
	UserID       string
	ReminderTime string
	ReminderMsg  string
}
