package ops

import (
	"context"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/joho/godotenv"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

// LoadEnv loads variables from the given .env files, or ./.env when none are
// named. A missing default file is not an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return errors.Wrap(err, "load env")
	}
	return nil
}

// ShutdownContext returns a context canceled on SIGINT/SIGTERM or when the
// parent is done.
func ShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-sys.Shutdown():
			logs.Info("shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// StartProfiler starts continuous profiling against a pyroscope server. The
// returned func stops it.
func StartProfiler(app, server string) (func(), error) {
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: app,
		ServerAddress:   server,
		Logger:          emptyLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "start pyroscope")
	}
	return func() { _ = profiler.Stop() }, nil
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
