package provisioning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/kitinfra/internal/config"
	awsplatform "github.com/imamik/kitinfra/internal/platform/aws"
)

type fakeAWS struct {
	network  awsplatform.NetworkSpec
	cluster  awsplatform.ClusterSpec
	nodePool awsplatform.NodePoolSpec
	exec     *awsplatform.ExecCommand
}

func (f *fakeAWS) EnsureNetwork(_ context.Context, spec awsplatform.NetworkSpec) (*awsplatform.Network, error) {
	f.network = spec
	return testNetwork(), nil
}

func (f *fakeAWS) EnsureControlPlane(_ context.Context, spec awsplatform.ClusterSpec) (*awsplatform.Cluster, error) {
	f.cluster = spec
	return testCluster(spec.Version), nil
}

func (f *fakeAWS) EnsureNodePool(_ context.Context, spec awsplatform.NodePoolSpec) (*awsplatform.NodePool, error) {
	f.nodePool = spec
	return &awsplatform.NodePool{Name: spec.Name}, nil
}

func (f *fakeAWS) Kubeconfig(context.Context, *awsplatform.Cluster) ([]byte, error) {
	return []byte("token"), nil
}

func (f *fakeAWS) ExecKubeconfig(_ *awsplatform.Cluster, exec awsplatform.ExecCommand) ([]byte, error) {
	f.exec = &exec
	return []byte("exec"), nil
}

func TestAWSProvisioner_CreateNetwork(t *testing.T) {
	t.Parallel()
	fake := &fakeAWS{}
	network := testNetworkConfig()
	p := NewAWSProvisioner(fake, network, testClusterConfig())

	plan, err := network.SubnetPlan()
	require.NoError(t, err)
	_, err = p.CreateNetwork(context.Background(), network.CIDR, plan)
	require.NoError(t, err)

	assert.Equal(t, "kit", fake.network.Cluster)
	assert.Equal(t, "10.0.0.0/16", fake.network.CIDR)
	assert.True(t, fake.network.NATGateway)
	assert.Equal(t, []awsplatform.SubnetSpec{
		{CIDR: "10.0.0.0/20", AvailabilityZone: "us-west-2a", Public: true},
		{CIDR: "10.0.16.0/20", AvailabilityZone: "us-west-2b", Public: true},
		{CIDR: "10.0.32.0/20", AvailabilityZone: "us-west-2a"},
		{CIDR: "10.0.48.0/20", AvailabilityZone: "us-west-2b"},
	}, fake.network.Subnets)
}

func TestAWSProvisioner_NATDisabled(t *testing.T) {
	t.Parallel()
	fake := &fakeAWS{}
	off := false
	network := testNetworkConfig()
	network.NATGateway = &off

	_, err := NewAWSProvisioner(fake, network, testClusterConfig()).
		CreateNetwork(context.Background(), network.CIDR, config.SubnetPlan{})
	require.NoError(t, err)
	assert.False(t, fake.network.NATGateway)
}

func TestAWSProvisioner_CreateControlPlane(t *testing.T) {
	t.Parallel()
	fake := &fakeAWS{}
	cluster := testClusterConfig()
	cluster.Kubernetes.Logging = []string{"api"}
	p := NewAWSProvisioner(fake, testNetworkConfig(), cluster)

	got, err := p.CreateControlPlane(context.Background(), testNetwork(), "1.31")
	require.NoError(t, err)
	assert.Equal(t, "1.31", got.Version)

	assert.Equal(t, awsplatform.ClusterSpec{
		Name:         "kit",
		Version:      "1.31",
		Logging:      []string{"api"},
		PublicAccess: true,
		SubnetIDs:    []string{"subnet-pub-a", "subnet-pub-b", "subnet-priv-a", "subnet-priv-b"},
	}, fake.cluster)
}

func TestAWSProvisioner_CreateNodePool(t *testing.T) {
	t.Parallel()
	fake := &fakeAWS{}
	cluster := testClusterConfig()
	p := NewAWSProvisioner(fake, testNetworkConfig(), cluster)

	_, err := p.CreateNodePool(context.Background(), testCluster("1.30"), []string{"subnet-priv-a"}, cluster.NodePool)
	require.NoError(t, err)

	assert.Equal(t, "kit", fake.nodePool.Cluster)
	assert.Equal(t, "system", fake.nodePool.Name)
	assert.Equal(t, []string{"subnet-priv-a"}, fake.nodePool.SubnetIDs)
	assert.Equal(t, []string{"m5.large"}, fake.nodePool.InstanceTypes)
	assert.Equal(t, int32(1), fake.nodePool.MinSize)
	assert.Equal(t, int32(3), fake.nodePool.MaxSize)
	assert.Equal(t, int32(2), fake.nodePool.DesiredSize)
	assert.Equal(t, int32(20), fake.nodePool.DiskSize)
	assert.Equal(t, []awsplatform.Taint{{Key: "CriticalAddonsOnly", Value: "true", Effect: "NoSchedule"}}, fake.nodePool.Taints)
}

func TestAWSProvisioner_Kubeconfig(t *testing.T) {
	t.Parallel()
	fake := &fakeAWS{}
	p := NewAWSProvisioner(fake, testNetworkConfig(), testClusterConfig())

	data, err := p.Kubeconfig(context.Background(), testCluster("1.30"))
	require.NoError(t, err)
	assert.Equal(t, "token", string(data))

	exec := awsplatform.ExecCommand{Command: "/usr/local/bin/kitinfra", Args: []string{"token"}}
	data, err = p.WithExecCredentials(exec).Kubeconfig(context.Background(), testCluster("1.30"))
	require.NoError(t, err)
	assert.Equal(t, "exec", string(data))
	assert.Equal(t, &exec, fake.exec)
}
