package telemetry

import (
	"context"
	"runtime"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_Validation(t *testing.T) {
	log := zaptest.NewLogger(t)

	_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "recipes-api"}, log)
	assert.ErrorContains(t, err, "server address")

	_, err = NewProfiler(ProfilerConfig{Enabled: true, ServerAddress: "http://localhost:4040"}, log)
	assert.ErrorContains(t, err, "application name")

	_, err = NewProfiler(ProfilerConfig{
		Enabled:         true,
		ServerAddress:   "http://localhost:4040",
		ApplicationName: "recipes-api",
		ProfileTypes:    []string{"cpu", "heap"},
	}, log)
	assert.ErrorContains(t, err, `unknown profile type "heap"`)
}

func TestParseProfileTypes(t *testing.T) {
	types, err := parseProfileTypes([]string{"cpu", " Inuse_Space ", "cpu", "goroutines"})
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileInuseSpace,
		pyroscope.ProfileGoroutines,
	}, types)

	types, err = parseProfileTypes(nil)
	require.NoError(t, err)
	assert.Empty(t, types)
}

func TestProfileTags(t *testing.T) {
	t.Setenv("HOSTNAME", "web-1")
	t.Setenv("POD_NAME", "")

	assert.Equal(t, map[string]string{"hostname": "web-1"}, profileTags())
}

func TestEnableRuntimeSampling(t *testing.T) {
	t.Cleanup(func() {
		runtime.SetMutexProfileFraction(0)
		runtime.SetBlockProfileRate(0)
	})

	enableRuntimeSampling([]pyroscope.ProfileType{pyroscope.ProfileMutexCount})
	assert.Equal(t, mutexProfileFraction, runtime.SetMutexProfileFraction(-1))
}

func TestSanitizeLabels(t *testing.T) {
	pairs := sanitizeLabels(map[string]string{
		"Route":      "/recipes/:id",
		"request_id": "abc",
		"empty":      "",
		"my-label":   strings.Repeat("x", MaxLabelValueLength+10),
		"!!!":        "dropped",
	})

	// sorted by original key: "Route" < "my-label"
	require.Len(t, pairs, 4)
	assert.Equal(t, []string{"route", "/recipes/:id"}, pairs[:2])
	assert.Equal(t, "my_label", pairs[2])
	assert.Len(t, pairs[3], MaxLabelValueLength)
	assert.Nil(t, sanitizeLabels(nil))
}

func TestWithProfilingLabels(t *testing.T) {
	var route, method string
	var surfaceSet bool
	WithProfilingLabels(context.Background(), HTTPRequestLabels("", "/graphql", "POST"), func(ctx context.Context) {
		route, _ = pprof.Label(ctx, ProfilingLabelRoute)
		method, _ = pprof.Label(ctx, ProfilingLabelMethod)
		_, surfaceSet = pprof.Label(ctx, ProfilingLabelSurface)
	})

	assert.Equal(t, "/graphql", route)
	assert.Equal(t, "POST", method)
	assert.False(t, surfaceSet)

	called := false
	WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
	assert.True(t, called)
}
