package addons

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalSpecs_RoundTrip(t *testing.T) {
	t.Parallel()

	flux, err := NewBuilder("flux", "flux-system").
		Chart("chart", ChartRelease{
			Release: "flux", Chart: "flux2", Repository: "https://fluxcd-community.github.io/helm-charts",
			Version: "1.0.0", Wait: true, Timeout: 5 * time.Minute,
		}).
		Build()
	require.NoError(t, err)

	kit, err := NewBuilder("kit", "kit").DependsOn("flux").
		Identity("kit").
		Permission("kit", Policy{Statements: []Statement{Allow("ec2:DescribeInstances")}}).
		Chart("chart", ChartRelease{Release: "kit-operator", Chart: "kit-operator", Repository: "https://awslabs.github.io/kubernetes-iteration-toolkit"}).
		Build()
	require.NoError(t, err)

	data, err := MarshalSpecs([]*AddonSpec{flux, kit})
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: flux")

	decoded, err := UnmarshalSpecs(data)
	require.NoError(t, err)
	require.Len(t, decoded, 2)

	assert.Equal(t, "flux", decoded[0].Name)
	assert.Equal(t, "kit", decoded[1].Name)
	assert.Equal(t, []string{"flux"}, decoded[1].DependsOn)
	assert.Equal(t, flux.Nodes[1].Chart.Timeout, decoded[0].Nodes[1].Chart.Timeout)
	assert.Equal(t, kit.Nodes[2].Policy.Statements, decoded[1].Nodes[2].Policy.Statements)
	for i := range kit.Nodes {
		assert.Equal(t, kit.Nodes[i].Name, decoded[1].Nodes[i].Name)
		assert.Equal(t, kit.Nodes[i].DependsOn, decoded[1].Nodes[i].DependsOn)
	}
}

func TestUnmarshalSpecs_ValidatesEachSpec(t *testing.T) {
	t.Parallel()

	data := []byte(`addons:
- name: broken
  namespace: broken
  enabled: true
  nodes:
  - kind: Workload
    name: chart
    namespace: broken
    chart:
      release: x
      chart: x
      repository: https://example.com
`)
	_, err := UnmarshalSpecs(data)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "exactly one Namespace node")
}

func TestUnmarshalSpecs_RejectsUnknownFields(t *testing.T) {
	t.Parallel()
	_, err := UnmarshalSpecs([]byte("addons:\n- name: x\n  bogus: true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal add-on specs")
}
