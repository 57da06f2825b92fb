package provisioning

import (
	"context"
	"fmt"
	"sync"

	"github.com/imamik/kitinfra/internal/config"
	awsplatform "github.com/imamik/kitinfra/internal/platform/aws"
)

// mockProvisioner is a func-field Provisioner. Unset funcs return canned
// resources.
type mockProvisioner struct {
	CreateNetworkFunc      func(ctx context.Context, cidr string, plan config.SubnetPlan) (*awsplatform.Network, error)
	CreateControlPlaneFunc func(ctx context.Context, network *awsplatform.Network, version string) (*awsplatform.Cluster, error)
	CreateNodePoolFunc     func(ctx context.Context, cluster *awsplatform.Cluster, subnets []string, pool config.NodePoolConfig) (*awsplatform.NodePool, error)
	KubeconfigFunc         func(ctx context.Context, cluster *awsplatform.Cluster) ([]byte, error)

	mu    sync.Mutex
	calls []string
}

func (m *mockProvisioner) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockProvisioner) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockProvisioner) CreateNetwork(ctx context.Context, cidr string, plan config.SubnetPlan) (*awsplatform.Network, error) {
	m.record("CreateNetwork")
	if m.CreateNetworkFunc != nil {
		return m.CreateNetworkFunc(ctx, cidr, plan)
	}
	return testNetwork(), nil
}

func (m *mockProvisioner) CreateControlPlane(ctx context.Context, network *awsplatform.Network, version string) (*awsplatform.Cluster, error) {
	m.record("CreateControlPlane")
	if m.CreateControlPlaneFunc != nil {
		return m.CreateControlPlaneFunc(ctx, network, version)
	}
	return testCluster(version), nil
}

func (m *mockProvisioner) CreateNodePool(ctx context.Context, cluster *awsplatform.Cluster, subnets []string, pool config.NodePoolConfig) (*awsplatform.NodePool, error) {
	m.record("CreateNodePool")
	if m.CreateNodePoolFunc != nil {
		return m.CreateNodePoolFunc(ctx, cluster, subnets, pool)
	}
	return &awsplatform.NodePool{
		Name: pool.Name,
		ARN:  "arn:aws:eks:us-west-2:123456789012:nodegroup/kit/" + pool.Name,
		Role: awsplatform.Role{Name: "kit-node", ARN: testNodeRoleARN},
	}, nil
}

func (m *mockProvisioner) Kubeconfig(ctx context.Context, cluster *awsplatform.Cluster) ([]byte, error) {
	m.record("Kubeconfig")
	if m.KubeconfigFunc != nil {
		return m.KubeconfigFunc(ctx, cluster)
	}
	return []byte("kubeconfig"), nil
}

type registration struct {
	RoleARN  string
	Username string
	Groups   []string
}

// mockRegistrar records node identity registrations.
type mockRegistrar struct {
	mu            sync.Mutex
	registrations []registration
	err           error
}

func (r *mockRegistrar) RegisterNodeIdentity(_ context.Context, roleARN, usernamePattern string, groups []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.registrations = append(r.registrations, registration{RoleARN: roleARN, Username: usernamePattern, Groups: groups})
	return nil
}

func (r *mockRegistrar) factory(kubeconfig []byte) (NodeIdentityRegistrar, error) {
	if len(kubeconfig) == 0 {
		return nil, fmt.Errorf("empty kubeconfig")
	}
	return r, nil
}

// recordingObserver collects events and messages.
type recordingObserver struct {
	mu       sync.Mutex
	events   []Event
	messages []string
	fields   map[string]string
}

func (o *recordingObserver) Printf(format string, v ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, fmt.Sprintf(format, v...))
}

func (o *recordingObserver) Event(event Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) Progress(phase string, current, total int) {
	o.Event(Event{Type: EventProgress, Phase: phase, Message: fmt.Sprintf("%d/%d", current, total)})
}

func (o *recordingObserver) WithFields(fields map[string]string) Observer {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fields = fields
	return o
}

func (o *recordingObserver) eventTypes() []EventType {
	o.mu.Lock()
	defer o.mu.Unlock()
	types := make([]EventType, 0, len(o.events))
	for _, e := range o.events {
		types = append(types, e.Type)
	}
	return types
}

const testNodeRoleARN = "arn:aws:iam::123456789012:role/kit-node"

func testNetwork() *awsplatform.Network {
	return &awsplatform.Network{
		VPCID:            "vpc-1",
		CIDR:             "10.0.0.0/16",
		NATGatewayID:     "nat-1",
		PublicSubnetIDs:  []string{"subnet-pub-a", "subnet-pub-b"},
		PrivateSubnetIDs: []string{"subnet-priv-a", "subnet-priv-b"},
	}
}

func testCluster(version string) *awsplatform.Cluster {
	return &awsplatform.Cluster{
		Name:                 "kit",
		ARN:                  "arn:aws:eks:us-west-2:123456789012:cluster/kit",
		Version:              version,
		Endpoint:             "https://kit.eks.amazonaws.com",
		CertificateAuthority: "Y2E=",
		OIDCIssuer:           "https://oidc.eks.us-west-2.amazonaws.com/id/ABC",
		OIDCProviderARN:      "arn:aws:iam::123456789012:oidc-provider/oidc.eks.us-west-2.amazonaws.com/id/ABC",
	}
}

func testNetworkConfig() config.NetworkConfig {
	return config.NetworkConfig{
		CIDR:              "10.0.0.0/16",
		AvailabilityZones: []string{"us-west-2a", "us-west-2b"},
		SubnetBits:        4,
	}
}

func testClusterConfig() ClusterConfig {
	return ClusterConfig{
		Name:   "kit",
		Region: "us-west-2",
		Kubernetes: config.KubernetesConfig{
			Version: "1.30",
		},
		NodePool: config.NodePoolConfig{
			Name:          "system",
			InstanceTypes: []string{"m5.large"},
			MinSize:       1,
			MaxSize:       3,
			DesiredSize:   2,
			DiskSize:      20,
			Taints:        []config.TaintConfig{{Key: "CriticalAddonsOnly", Value: "true", Effect: "NoSchedule"}},
		},
	}
}
