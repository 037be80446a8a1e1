package pipeline

import "socwatch/pkg/models"

// LogWriter captures ingested logs for replay.
type LogWriter interface {
	WriteLogs(logs []models.SecurityLog) error
	Close() error
}
