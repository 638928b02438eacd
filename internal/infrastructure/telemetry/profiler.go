package telemetry

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// ProfilerConfig configures Pyroscope continuous profiling.
type ProfilerConfig struct {
	Enabled         bool
	ServerAddress   string
	ApplicationName string
	// Basic auth credentials, needed for Grafana Cloud.
	BasicAuthUser     string
	BasicAuthPassword string

	ProfileCPU           bool
	ProfileAllocObjects  bool
	ProfileAllocSpace    bool
	ProfileInuseObjects  bool
	ProfileInuseSpace    bool
	ProfileGoroutines    bool
	ProfileMutexCount    bool
	ProfileMutexDuration bool
	ProfileBlockCount    bool
	ProfileBlockDuration bool

	MutexProfileFraction int
	BlockProfileRate     int
	DisableGCRuns        bool
}

// Profiler wraps the Pyroscope client with idempotent stop handling. With
// profiling disabled the inner client stays nil and Stop is a no-op.
type Profiler struct {
	profiler *pyroscope.Profiler
	logger   *zap.Logger
	config   ProfilerConfig
	mu       sync.Mutex
	stopped  bool
}

// NewProfiler starts the Pyroscope agent with the enabled profile types.
// Mutex and block profiling set their runtime rates before the agent starts.
func NewProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	p := &Profiler{logger: logger, config: cfg}

	if !cfg.Enabled {
		logger.Info("continuous profiling disabled")
		return p, nil
	}
	if cfg.ServerAddress == "" {
		return nil, fmt.Errorf("profiling enabled without a server address")
	}
	if cfg.ApplicationName == "" {
		return nil, fmt.Errorf("profiling enabled without an application name")
	}

	if cfg.ProfileMutexCount || cfg.ProfileMutexDuration {
		fraction := cfg.MutexProfileFraction
		if fraction <= 0 {
			fraction = 5
		}
		runtime.SetMutexProfileFraction(fraction)
	}
	if cfg.ProfileBlockCount || cfg.ProfileBlockDuration {
		rate := cfg.BlockProfileRate
		if rate <= 0 {
			rate = 5
		}
		runtime.SetBlockProfileRate(rate)
	}

	types := cfg.profileTypes()
	if len(types) == 0 {
		logger.Warn("no profile types enabled, nothing will be collected")
	}

	tags := map[string]string{}
	if hostname := os.Getenv("HOSTNAME"); hostname != "" {
		tags["hostname"] = hostname
	}
	if podName := os.Getenv("POD_NAME"); podName != "" {
		tags["pod"] = podName
	}

	agentCfg := pyroscope.Config{
		ApplicationName:   cfg.ApplicationName,
		ServerAddress:     cfg.ServerAddress,
		Logger:            newPyroscopeLogger(logger),
		Tags:              tags,
		ProfileTypes:      types,
		DisableGCRuns:     cfg.DisableGCRuns,
		BasicAuthUser:     cfg.BasicAuthUser,
		BasicAuthPassword: cfg.BasicAuthPassword,
	}

	agent, err := pyroscope.Start(agentCfg)
	if err != nil {
		return nil, fmt.Errorf("start pyroscope profiler: %w", err)
	}
	p.profiler = agent

	logger.Info("pyroscope profiler started",
		zap.String("server_address", cfg.ServerAddress),
		zap.String("application_name", cfg.ApplicationName),
		zap.Int("profile_types", len(types)),
		zap.Bool("disable_gc_runs", cfg.DisableGCRuns),
	)
	return p, nil
}

func (cfg ProfilerConfig) profileTypes() []pyroscope.ProfileType {
	var types []pyroscope.ProfileType
	for _, pt := range []struct {
		enabled bool
		typ     pyroscope.ProfileType
	}{
		{cfg.ProfileCPU, pyroscope.ProfileCPU},
		{cfg.ProfileAllocObjects, pyroscope.ProfileAllocObjects},
		{cfg.ProfileAllocSpace, pyroscope.ProfileAllocSpace},
		{cfg.ProfileInuseObjects, pyroscope.ProfileInuseObjects},
		{cfg.ProfileInuseSpace, pyroscope.ProfileInuseSpace},
		{cfg.ProfileGoroutines, pyroscope.ProfileGoroutines},
		{cfg.ProfileMutexCount, pyroscope.ProfileMutexCount},
		{cfg.ProfileMutexDuration, pyroscope.ProfileMutexDuration},
		{cfg.ProfileBlockCount, pyroscope.ProfileBlockCount},
		{cfg.ProfileBlockDuration, pyroscope.ProfileBlockDuration},
	} {
		if pt.enabled {
			types = append(types, pt.typ)
		}
	}
	return types
}

// Stop flushes pending profiles and stops the agent. Safe to call more than
// once. The Pyroscope SDK has no context cancellation, so this can block
// until the SDK's own internal timeout if the server is unresponsive.
func (p *Profiler) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true

	if p.profiler == nil {
		return nil
	}

	if err := p.profiler.Stop(); err != nil {
		p.logger.Error("profiler stop failed", zap.Error(err))
		return fmt.Errorf("stop profiler: %w", err)
	}
	p.logger.Info("Pyroscope profiler stopped")
	return nil
}

// IsEnabled reports whether the agent is running.
func (p *Profiler) IsEnabled() bool {
	return p.config.Enabled && p.profiler != nil
}

// pyroscopeLogger routes agent log output through zap.
type pyroscopeLogger struct {
	logger *zap.SugaredLogger
}

func newPyroscopeLogger(logger *zap.Logger) pyroscope.Logger {
	return &pyroscopeLogger{logger: logger.Named("pyroscope").Sugar()}
}

func (l *pyroscopeLogger) Infof(format string, args ...any)  { l.logger.Infof(format, args...) }
func (l *pyroscopeLogger) Debugf(format string, args ...any) { l.logger.Debugf(format, args...) }
func (l *pyroscopeLogger) Errorf(format string, args ...any) { l.logger.Errorf(format, args...) }
