package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	NetworkCreate     time.Duration // VPC, subnets, gateways and routes
	ClusterActive     time.Duration // Waiting for the EKS control plane to become ACTIVE
	NodegroupActive   time.Duration // Waiting for the node group to become ACTIVE
	AddonNode         time.Duration // Deadline for a single add-on plan node
	ReadyCheck        time.Duration // Each readiness wait of an add-on node
	ChartInstall      time.Duration // Helm install or upgrade
	RetryMaxAttempts  int           // Attempts for eventual-consistency retries
	RetryInitialDelay time.Duration // Initial delay between those retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - KITINFRA_TIMEOUT_NETWORK_CREATE (default: 10m)
//   - KITINFRA_TIMEOUT_CLUSTER_ACTIVE (default: 20m)
//   - KITINFRA_TIMEOUT_NODEGROUP_ACTIVE (default: 20m)
//   - KITINFRA_TIMEOUT_ADDON_NODE (default: 15m)
//   - KITINFRA_TIMEOUT_READY_CHECK (default: 5m)
//   - KITINFRA_TIMEOUT_CHART_INSTALL (default: 10m)
//   - KITINFRA_RETRY_MAX_ATTEMPTS (default: 5)
//   - KITINFRA_RETRY_INITIAL_DELAY (default: 2s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		NetworkCreate:     parseDuration("KITINFRA_TIMEOUT_NETWORK_CREATE", 10*time.Minute),
		ClusterActive:     parseDuration("KITINFRA_TIMEOUT_CLUSTER_ACTIVE", 20*time.Minute),
		NodegroupActive:   parseDuration("KITINFRA_TIMEOUT_NODEGROUP_ACTIVE", 20*time.Minute),
		AddonNode:         parseDuration("KITINFRA_TIMEOUT_ADDON_NODE", 15*time.Minute),
		ReadyCheck:        parseDuration("KITINFRA_TIMEOUT_READY_CHECK", 5*time.Minute),
		ChartInstall:      parseDuration("KITINFRA_TIMEOUT_CHART_INSTALL", 10*time.Minute),
		RetryMaxAttempts:  parseInt("KITINFRA_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("KITINFRA_RETRY_INITIAL_DELAY", 2*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set, invalid or not positive, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
