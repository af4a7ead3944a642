package pipeline

import (
	"time"

	"github.com/sirupsen/logrus"
)

// StageRecord describes one completed stage run for a single article.
type StageRecord struct {
	ArticleID string
	Stage     Stage
	Duration  time.Duration
	Err       error
}

// Reporter receives a record after every stage transition. Implementations
// must be safe for concurrent use when articles are processed in parallel.
type Reporter interface {
	StageCompleted(rec StageRecord)
}

// LogReporter writes stage records to a structured logger.
type LogReporter struct {
	log *logrus.Entry
}

// NewLogReporter returns a reporter backed by the given logger.
func NewLogReporter(log *logrus.Logger) *LogReporter {
	return &LogReporter{log: log.WithField("component", "pipeline")}
}

func (r *LogReporter) StageCompleted(rec StageRecord) {
	entry := r.log.WithFields(logrus.Fields{
		"article_id": rec.ArticleID,
		"stage":      string(rec.Stage),
		"duration":   rec.Duration.String(),
	})
	if rec.Err != nil {
		entry.WithError(rec.Err).Warn("stage failed")
		return
	}
	entry.Info("stage completed")
}

// nopReporter is used when no reporter is configured.
type nopReporter struct{}

func (nopReporter) StageCompleted(StageRecord) {}
