package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadTimeouts_Defaults(t *testing.T) {
	tm := LoadTimeouts()

	assert.Equal(t, 10*time.Minute, tm.NetworkCreate)
	assert.Equal(t, 20*time.Minute, tm.ClusterActive)
	assert.Equal(t, 20*time.Minute, tm.NodegroupActive)
	assert.Equal(t, 15*time.Minute, tm.AddonNode)
	assert.Equal(t, 5*time.Minute, tm.ReadyCheck)
	assert.Equal(t, 10*time.Minute, tm.ChartInstall)
	assert.Equal(t, 5, tm.RetryMaxAttempts)
	assert.Equal(t, 2*time.Second, tm.RetryInitialDelay)
}

func TestLoadTimeouts_Env(t *testing.T) {
	t.Setenv("KITINFRA_TIMEOUT_CLUSTER_ACTIVE", "30m")
	t.Setenv("KITINFRA_TIMEOUT_READY_CHECK", "90s")
	t.Setenv("KITINFRA_RETRY_MAX_ATTEMPTS", "7")

	tm := LoadTimeouts()

	assert.Equal(t, 30*time.Minute, tm.ClusterActive)
	assert.Equal(t, 90*time.Second, tm.ReadyCheck)
	assert.Equal(t, 7, tm.RetryMaxAttempts)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "unset", value: "", want: time.Minute},
		{name: "valid", value: "45s", want: 45 * time.Second},
		{name: "invalid", value: "soon", want: time.Minute},
		{name: "negative", value: "-5s", want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("KITINFRA_TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, parseDuration("KITINFRA_TEST_DURATION", time.Minute))
		})
	}
}

func TestParseInt(t *testing.T) {
	t.Setenv("KITINFRA_TEST_INT", "x")
	assert.Equal(t, 3, parseInt("KITINFRA_TEST_INT", 3))
	t.Setenv("KITINFRA_TEST_INT", "9")
	assert.Equal(t, 9, parseInt("KITINFRA_TEST_INT", 3))
}
