package interfaces

import "time"

// EodSummarizer turns a day's journal into a CSV report.
type EodSummarizer interface {
	SummarizeDay(t time.Time) (csvPath string, err error)
	SummarizeToday() (csvPath string, err error)
	// ShouldRunNow reports the trading day whose summary is due, if any.
	ShouldRunNow() (shouldRun bool, day time.Time)
}
