package provisioning

import (
	"fmt"
	"net"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/imamik/kitinfra/internal/config"
)

// Severities of a ValidationError.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// minAvailabilityZones is the number of zones EKS requires subnets in.
const minAvailabilityZones = 2

// ValidationError represents a configuration validation error or warning.
type ValidationError struct {
	Field    string // Configuration field that failed validation
	Message  string // Human-readable error message
	Severity string // "error" or "warning"
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ve.Severity, ve.Field, ve.Message)
}

// IsError returns true if this is an error (not a warning).
func (ve ValidationError) IsError() bool {
	return ve.Severity == SeverityError
}

// ValidationPhase implements the Phase interface for pre-flight validation.
type ValidationPhase struct{}

// NewValidationPhase creates a new validation phase.
func NewValidationPhase() *ValidationPhase {
	return &ValidationPhase{}
}

// Name implements the Phase interface.
func (vp *ValidationPhase) Name() string {
	return StepValidation
}

// Provision implements the Phase interface.
func (vp *ValidationPhase) Provision(ctx *Context) error {
	var errs []string
	for _, ve := range Validate(ctx.Network, ctx.Cluster) {
		if ve.IsError() {
			ctx.Observer.Event(Event{Type: EventValidationError, Phase: vp.Name(), Resource: ve.Field, Message: ve.Message})
			errs = append(errs, ve.Error())
			continue
		}
		ctx.Observer.Event(Event{Type: EventValidationWarning, Phase: vp.Name(), Resource: ve.Field, Message: ve.Message})
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Validate runs the pre-flight checks and returns any errors or warnings.
func Validate(network config.NetworkConfig, cluster ClusterConfig) []ValidationError {
	var errs []ValidationError
	add := func(severity, field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Severity: severity})
	}
	cidr := network.CIDR

	// --- Required fields ---

	if cluster.Name == "" {
		add(SeverityError, "ClusterName", "cluster name is required")
	}
	if cluster.Region == "" {
		add(SeverityError, "Region", "region is required (e.g., 'us-west-2')")
	}

	// --- Network ---

	if cidr == "" {
		add(SeverityError, "Network.CIDR", "network CIDR is required")
	} else if _, ipNet, err := net.ParseCIDR(cidr); err != nil {
		add(SeverityError, "Network.CIDR", "invalid CIDR: %v", err)
	} else {
		ones, bits := ipNet.Mask.Size()
		if bits != 32 {
			add(SeverityError, "Network.CIDR", "only IPv4 CIDRs are supported")
		} else if ones > 16 {
			add(SeverityWarning, "Network.CIDR", "CIDR prefix /%d leaves little room for pod IPs, recommended /16 or larger", ones)
		}
	}

	if n := len(network.AvailabilityZones); n < minAvailabilityZones {
		add(SeverityError, "Network.AvailabilityZones", "EKS needs subnets in at least %d availability zones, got %d", minAvailabilityZones, n)
	}
	for i, az := range network.AvailabilityZones {
		if cluster.Region != "" && !strings.HasPrefix(az, cluster.Region) {
			add(SeverityError, fmt.Sprintf("Network.AvailabilityZones[%d]", i), "zone %s is not in region %s", az, cluster.Region)
		}
	}
	if _, err := network.SubnetPlan(); err != nil && len(network.AvailabilityZones) > 0 {
		add(SeverityError, "Network.SubnetBits", "%v", err)
	}
	if !network.NATGatewayEnabled() {
		add(SeverityWarning, "Network.NATGateway", "without a NAT gateway nodes run in public subnets")
	}

	// --- Control plane ---

	if v := cluster.Kubernetes.Version; v == "" {
		add(SeverityError, "Kubernetes.Version", "kubernetes version is required")
	} else if _, err := semver.NewVersion(v); err != nil || strings.HasPrefix(v, "v") {
		add(SeverityError, "Kubernetes.Version", "version %q must look like '1.30'", v)
	}
	if !cluster.Kubernetes.PublicAccessEnabled() {
		add(SeverityWarning, "Kubernetes.PublicAccess", "the API endpoint is private; this process must run inside the VPC to install add-ons")
	}

	// --- Node pool ---

	pool := cluster.NodePool
	if len(pool.InstanceTypes) == 0 {
		add(SeverityError, "NodePool.InstanceTypes", "at least one instance type is required")
	}
	if pool.MaxSize <= 0 {
		add(SeverityError, "NodePool.MaxSize", "max size must be greater than 0")
	}
	if pool.MinSize < 0 || pool.MinSize > pool.MaxSize {
		add(SeverityError, "NodePool.MinSize", "min size %d must be between 0 and max size %d", pool.MinSize, pool.MaxSize)
	}
	if pool.DesiredSize < pool.MinSize || pool.DesiredSize > pool.MaxSize {
		add(SeverityError, "NodePool.DesiredSize", "desired size %d must be between %d and %d", pool.DesiredSize, pool.MinSize, pool.MaxSize)
	}
	if len(pool.Taints) == 0 {
		add(SeverityWarning, "NodePool.Taints", "system nodes without taints also run application pods")
	}

	return errs
}
