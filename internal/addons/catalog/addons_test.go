package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/imamik/kitinfra/internal/addons"
	"github.com/imamik/kitinfra/internal/addons/helm"
	"github.com/imamik/kitinfra/internal/config"
)

func TestFlux(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		yaml       string
		wantTest   int
		wantDepend []string
	}{
		{name: "self sync only", yaml: baseConfig, wantTest: 0},
		{
			name: "test repository and path",
			yaml: baseConfig + `
tests: {namespace: tests}
gitops:
  test_repository: https://github.com/example/tests
  test_branch: release
  test_path: ./pipelines
`,
			wantTest:   2,
			wantDepend: []string{config.AddonTektonTests},
		},
		{
			name: "test repository without path",
			yaml: baseConfig + `
tests: {namespace: tests}
gitops:
  test_repository: https://github.com/example/tests
`,
			wantTest:   1,
			wantDepend: []string{config.AddonTektonTests},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			spec, err := newCatalog(t, tt.yaml).Spec(config.AddonFlux)
			require.NoError(t, err)

			assert.Equal(t, tt.wantDepend, spec.DependsOn)

			chart := nodeByName(t, spec, "chart").Chart
			assert.Equal(t, "flux2", chart.Release)
			assert.Equal(t, "1.0.0", chart.Version)
			assert.True(t, chart.Wait)
			for _, component := range fluxComponents {
				assert.Contains(t, chart.Values, component)
			}

			sync := nodeByName(t, spec, "sync")
			assert.Contains(t, sync.DependsOn, "chart")
			require.Len(t, sync.Manifest.Objects, 2)
			assert.Equal(t, map[string]any{
				"interval": "2m0s",
				"ref":      map[string]any{"branch": "main"},
				"url":      config.DefaultGitOpsRepository,
			}, sync.Manifest.Objects[0]["spec"])
			assert.Equal(t, map[string]any{
				"interval":   "2m0s",
				"path":       config.DefaultGitOpsPath,
				"prune":      true,
				"sourceRef":  map[string]any{"kind": "GitRepository", "name": "flux-system"},
				"validation": "client",
			}, sync.Manifest.Objects[1]["spec"])

			testSync, ok := spec.Node("test-sync")
			if tt.wantTest == 0 {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			require.Len(t, testSync.Manifest.Objects, tt.wantTest)
			for _, obj := range testSync.Manifest.Objects {
				assert.Equal(t, map[string]any{"name": "tests", "namespace": "tests"}, obj["metadata"])
			}
		})
	}
}

func TestFlux_TestRepositoryBranch(t *testing.T) {
	t.Parallel()
	spec, err := newCatalog(t, baseConfig+`
tests: {namespace: tests}
gitops:
  test_repository: https://github.com/example/tests
  test_branch: release
`).Spec(config.AddonFlux)
	require.NoError(t, err)

	repo := nodeByName(t, spec, "test-sync").Manifest.Objects[0]
	assert.Equal(t, "GitRepository", repo["kind"])
	assert.Equal(t, map[string]any{"branch": "release"}, repo["spec"].(map[string]any)["ref"])
}

func TestBuildKarpenterValues(t *testing.T) {
	t.Parallel()
	c := newCatalog(t, baseConfig)
	values := c.buildKarpenterValues()

	assert.Equal(t, "kit", values["clusterName"])
	assert.Equal(t, testCluster.Endpoint, values["clusterEndpoint"])
	assert.Equal(t, helm.Values{"defaultInstanceProfile": "KarpenterNodeInstanceProfile-kit"}, values["aws"])
	assert.Equal(t, helm.Values{"create": false, "name": "karpenter"}, values["serviceAccount"])

	spec, err := c.Spec(config.AddonKarpenter)
	require.NoError(t, err)
	chart := nodeByName(t, spec, "chart")
	assert.True(t, chart.Chart.Wait)
	assert.Equal(t, c.chartTimeout, chart.Chart.Timeout)
	assert.Equal(t, []addons.ObjectRef{deployment("karpenter", "karpenter")}, chart.ReadyChecks)
}

func TestBuildEBSCSIDriverValues(t *testing.T) {
	t.Parallel()
	c := newCatalog(t, baseConfig)
	values := c.buildEBSCSIDriverValues(c.cfg.Addon(config.AddonEBSCSIDriver))

	controller := values["controller"].(helm.Values)
	assert.Equal(t, 1, controller["replicaCount"])
	assert.Equal(t, helm.Values{
		"create":      false,
		"name":        "aws-ebs-csi-driver",
		"annotations": helm.Values{helm.RoleARNAnnotation: "arn:aws:iam::123456789012:role/kit-aws-ebs-csi-driver-aws-ebs-csi-driver"},
	}, controller["serviceAccount"])
	assert.Equal(t, helm.Values{"tag": "v1.9.0"}, values["image"])

	spec, err := c.Spec(config.AddonEBSCSIDriver)
	require.NoError(t, err)
	assert.Equal(t, []string{ebsCSIDriverPolicyARN}, nodeByName(t, spec, "aws-ebs-csi-driver-policy").Policy.ManagedPolicyARNs)
}

func TestBuildLoadBalancerValues(t *testing.T) {
	t.Parallel()
	c := newCatalog(t, baseConfig)
	values := c.buildLoadBalancerValues(c.cfg.Addon(config.AddonLoadBalancer))

	assert.Equal(t, "kit", values["clusterName"])
	assert.Equal(t, helm.Values{"allowAllSecrets": true}, values["clusterSecretsPermissions"])
	assert.Equal(t, helm.Values{"tag": "v2.4.2"}, values["image"])
}

func TestBuildFluentBitValues(t *testing.T) {
	t.Parallel()
	c := newCatalog(t, baseConfig)
	values := c.buildFluentBitValues()

	assert.Equal(t, helm.Values{"region": "us-west-2", "logRetentionDays": "90"}, values["cloudWatch"])
	for _, sink := range []string{"firehose", "kinesis", "elasticsearch"} {
		assert.Equal(t, helm.Values{"enabled": false}, values[sink], sink)
	}

	spec, err := c.Spec(config.AddonFluentBit)
	require.NoError(t, err)
	assert.False(t, spec.Enabled)
	chart := nodeByName(t, spec, "chart")
	assert.Equal(t, "aws-fluent-bit", chart.Chart.Release)
	assert.Equal(t, "aws-for-fluent-bit", chart.Chart.Chart)
	assert.Equal(t, []addons.ObjectRef{daemonSet("aws-for-fluent-bit", "aws-fluent-bit-aws-for-fluent-bit")}, chart.ReadyChecks)
}

func TestCrossplane(t *testing.T) {
	t.Parallel()
	spec, err := newCatalog(t, baseConfig+`
addons:
  crossplane: {enabled: true}
`).Spec(config.AddonCrossplane)
	require.NoError(t, err)

	controllerConfig := nodeByName(t, spec, "controller-config")
	assert.Contains(t, controllerConfig.DependsOn, "chart")
	obj := controllerConfig.Manifest.Objects[0]
	assert.Equal(t, "ControllerConfig", obj["kind"])
	assert.Equal(t, map[string]any{helm.RoleARNAnnotation: "arn:aws:iam::123456789012:role/kit-crossplane-system-crossplane-aws-irsa"},
		obj["metadata"].(map[string]any)["annotations"])
	assert.Equal(t, map[string]any{"fsGroup": int64(2000)}, obj["spec"].(map[string]any)["podSecurityContext"])

	provider := nodeByName(t, spec, "provider")
	assert.Subset(t, provider.DependsOn, []string{"chart", "controller-config"})
	assert.Equal(t, map[string]any{
		"package":             CrossplaneAWSProviderPackage,
		"controllerConfigRef": map[string]any{"name": "aws-config"},
	}, provider.Manifest.Objects[0]["spec"])

	// Manifest objects must survive the JSON deep copy the control plane makes.
	data, err := addons.MarshalSpecs([]*addons.AddonSpec{spec})
	require.NoError(t, err)
	assert.Contains(t, string(data), "crossplane/provider-aws:v0.15.0")
}

func TestPerfdash(t *testing.T) {
	t.Parallel()
	spec, err := newCatalog(t, baseConfig+`
addons:
  perfdash: {enabled: true}
`).Spec(config.AddonPerfdash)
	require.NoError(t, err)

	assert.Equal(t, []string{config.AddonFlux}, spec.DependsOn)

	sync := nodeByName(t, spec, "sync")
	assert.Contains(t, sync.DependsOn, "perfdash-log-fetcher-policy")

	obj := sync.Manifest.Objects[0]
	assert.Equal(t, "flux-addon-perfdash", obj["metadata"].(map[string]any)["name"])
	objSpec := obj["spec"].(map[string]any)
	assert.Equal(t, "5m0s", objSpec["interval"])
	assert.Equal(t, config.DefaultGitOpsPath+"/perfdash", objSpec["path"])
	assert.Equal(t, map[string]any{"kind": "GitRepository", "name": "flux-system", "namespace": "flux-system"}, objSpec["sourceRef"])

	patches := objSpec["patches"].([]any)
	require.Len(t, patches, 1)
	var patched map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(patches[0].(map[string]any)["patch"].(string)), &patched))
	containers := patched["spec"].(map[string]any)["template"].(map[string]any)["spec"].(map[string]any)["containers"].([]any)
	env := containers[0].(map[string]any)["env"].([]any)[0].(map[string]any)
	assert.Equal(t, "AWS_ROLE_ARN", env["name"])
	assert.Equal(t, "arn:aws:iam::123456789012:role/kit-perfdash-perfdash-log-fetcher", env["value"])
}

func TestKit(t *testing.T) {
	t.Parallel()
	spec, err := newCatalog(t, baseConfig).Spec(config.AddonKit)
	require.NoError(t, err)

	assert.Equal(t, []string{config.AddonFlux}, spec.DependsOn)
	chart := nodeByName(t, spec, "chart").Chart
	assert.Equal(t, "https://awslabs.github.io/kubernetes-iteration-toolkit", chart.Repository)
	assert.Equal(t, map[string]any{"tag": "v0.0.18"}, chart.Values["image"])
}
