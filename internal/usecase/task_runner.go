package usecase

import (
	"time"

	"go.uber.org/zap"
)

// メール送信などの後処理を投げる先。再試行はしない。
type TaskRunner interface {
	Run(task func())
}

// goroutineで実行する。panicはログに残して握りつぶす。
type GoroutineRunner struct {
	logger *zap.Logger
}

func NewGoroutineRunner(logger *zap.Logger) *GoroutineRunner {
	return &GoroutineRunner{logger: logger}
}

func (r *GoroutineRunner) Run(task func()) {
	go func() {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("background task panicked", zap.Any("panic", p))
			}
		}()
		task()
	}()
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func SystemClock() Clock {
	return systemClock{}
}
