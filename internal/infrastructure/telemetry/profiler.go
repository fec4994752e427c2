package telemetry

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

type ProfilerConfig struct {
	Enabled         bool
	ServerAddress   string // e.g. "http://pyroscope:4040"
	ApplicationName string
	// both or neither; hosted Pyroscope only
	BasicAuthUser     string
	BasicAuthPassword string
	ProfileTypes      []string // keys of profileTypesByName
}

// sampling rates switched on when mutex or block profiles are requested
const (
	mutexProfileFraction = 5
	blockProfileRate     = 5
)

var profileTypesByName = map[string]pyroscope.ProfileType{
	"cpu":            pyroscope.ProfileCPU,
	"alloc_objects":  pyroscope.ProfileAllocObjects,
	"alloc_space":    pyroscope.ProfileAllocSpace,
	"inuse_objects":  pyroscope.ProfileInuseObjects,
	"inuse_space":    pyroscope.ProfileInuseSpace,
	"goroutines":     pyroscope.ProfileGoroutines,
	"mutex_count":    pyroscope.ProfileMutexCount,
	"mutex_duration": pyroscope.ProfileMutexDuration,
	"block_count":    pyroscope.ProfileBlockCount,
	"block_duration": pyroscope.ProfileBlockDuration,
}

// environment variables copied into profile tags when set
var profileTagEnv = map[string]string{
	"HOSTNAME": "hostname",
	"POD_NAME": "pod",
}

// Profiler pushes continuous profiles to Pyroscope. The zero value, as
// returned when profiling is disabled, does nothing.
type Profiler struct {
	agent  *pyroscope.Profiler
	logger *zap.Logger
	once   sync.Once
}

// NewProfiler validates cfg and starts the Pyroscope agent.
func NewProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Info("Continuous profiling disabled")
		return &Profiler{logger: logger}, nil
	}
	if cfg.ServerAddress == "" {
		return nil, errors.New("profiler server address is required when profiling is enabled")
	}
	if cfg.ApplicationName == "" {
		return nil, errors.New("profiler application name is required when profiling is enabled")
	}

	types, err := parseProfileTypes(cfg.ProfileTypes)
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		logger.Warn("No profile types enabled, profiler will not collect any data")
	}
	enableRuntimeSampling(types)

	agentCfg := pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddress,
		Logger:          logger.Named("pyroscope").Sugar(),
		Tags:            profileTags(),
		ProfileTypes:    types,
	}
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPassword != "" {
		agentCfg.BasicAuthUser, agentCfg.BasicAuthPassword = cfg.BasicAuthUser, cfg.BasicAuthPassword
	}

	agent, err := pyroscope.Start(agentCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	logger.Info("Pyroscope profiler started",
		zap.String("server_address", cfg.ServerAddress),
		zap.String("application_name", cfg.ApplicationName),
		zap.Strings("profile_types", cfg.ProfileTypes),
	)
	return &Profiler{agent: agent, logger: logger}, nil
}

// parseProfileTypes resolves names case-insensitively, keeping the first
// occurrence of each type.
func parseProfileTypes(names []string) ([]pyroscope.ProfileType, error) {
	types := make([]pyroscope.ProfileType, 0, len(names))
	for _, name := range names {
		pt, ok := profileTypesByName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown profile type %q", name)
		}
		if !slices.Contains(types, pt) {
			types = append(types, pt)
		}
	}
	return types, nil
}

// enableRuntimeSampling switches on the mutex and block samplers the Go
// runtime leaves off.
func enableRuntimeSampling(types []pyroscope.ProfileType) {
	if slices.Contains(types, pyroscope.ProfileMutexCount) || slices.Contains(types, pyroscope.ProfileMutexDuration) {
		runtime.SetMutexProfileFraction(mutexProfileFraction)
	}
	if slices.Contains(types, pyroscope.ProfileBlockCount) || slices.Contains(types, pyroscope.ProfileBlockDuration) {
		runtime.SetBlockProfileRate(blockProfileRate)
	}
}

func profileTags() map[string]string {
	tags := make(map[string]string, len(profileTagEnv))
	for env, tag := range profileTagEnv {
		if v := os.Getenv(env); v != "" {
			tags[tag] = v
		}
	}
	return tags
}

// Stop flushes and stops the agent. Only the first call does anything.
func (p *Profiler) Stop() error {
	var err error
	p.once.Do(func() {
		if p.agent == nil {
			return
		}
		if err = p.agent.Stop(); err != nil {
			err = fmt.Errorf("failed to stop profiler: %w", err)
			return
		}
		p.logger.Info("Pyroscope profiler stopped")
	})
	return err
}

func (p *Profiler) IsEnabled() bool {
	return p.agent != nil
}
