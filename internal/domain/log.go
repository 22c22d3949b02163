package domain

import "time"

// LogRecord is a single log entry as returned by the logging API.
// Records are never modified after they are decoded.
type LogRecord struct {
	ID           string    `json:"id"`
	ProjectName  string    `json:"projectName"`
	AppName      string    `json:"appName"`
	Microservice string    `json:"microservice"`
	SourceApp    string    `json:"sourceApp"`
	Level        string    `json:"level"`
	Timestamp    time.Time `json:"timestamp"`
	Message      string    `json:"message"`
}

// LevelCounts maps a level name to the number of records at that level.
type LevelCounts map[string]int64
