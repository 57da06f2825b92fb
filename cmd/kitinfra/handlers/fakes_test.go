package handlers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/imamik/kitinfra/internal/addons"
	"github.com/imamik/kitinfra/internal/config"
	awsplatform "github.com/imamik/kitinfra/internal/platform/aws"
	"github.com/imamik/kitinfra/internal/platform/s3"
)

const testConfig = `
cluster_name: kit
region: us-west-2
kubeconfig_path: %s
`

const testAccount = "123456789012"

// saveAndRestoreFactories restores every factory variable after the test.
func saveAndRestoreFactories(t *testing.T) {
	t.Helper()
	origLoadConfigFile := loadConfigFile
	origLoadTimeouts := loadTimeouts
	origNewCloudClient := newCloudClient
	origNewTokenClient := newTokenClient
	origNewRoleBackend := newRoleBackend
	origNewKubeClient := newKubeClient
	origNewChartInstaller := newChartInstaller
	origNewObjectStore := newObjectStore
	origExecutable := executable
	origWriteFile := writeFile
	origIsInteractive := isInteractive
	origConfirm := confirm

	t.Cleanup(func() {
		loadConfigFile = origLoadConfigFile
		loadTimeouts = origLoadTimeouts
		newCloudClient = origNewCloudClient
		newTokenClient = origNewTokenClient
		newRoleBackend = origNewRoleBackend
		newKubeClient = origNewKubeClient
		newChartInstaller = origNewChartInstaller
		newObjectStore = origNewObjectStore
		executable = origExecutable
		writeFile = origWriteFile
		isInteractive = origIsInteractive
		confirm = origConfirm
	})
}

// testEnv wires fakes into every factory.
type testEnv struct {
	configPath string
	cloud      *fakeCloud
	kube       *fakeKube
	roles      *fakeRoles
	charts     *fakeCharts
	store      *fakeStore
	files      map[string][]byte
}

func newTestEnv(t *testing.T, extraConfig string) *testEnv {
	t.Helper()
	saveAndRestoreFactories(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "kitinfra.yaml")
	content := strings.Replace(testConfig, "%s", filepath.Join(dir, "kubeconfig"), 1) + extraConfig
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	env := &testEnv{
		configPath: path,
		cloud:      &fakeCloud{},
		kube:       &fakeKube{},
		roles:      &fakeRoles{},
		charts:     &fakeCharts{},
		store:      newFakeStore(),
		files:      make(map[string][]byte),
	}

	loadTimeouts = func() *config.Timeouts {
		return &config.Timeouts{
			AddonNode:         time.Second,
			ReadyCheck:        time.Second,
			ChartInstall:      time.Second,
			RetryMaxAttempts:  1,
			RetryInitialDelay: time.Millisecond,
		}
	}
	newCloudClient = func(context.Context, *config.Config, string, *config.Timeouts) (cloudClient, error) {
		return env.cloud, nil
	}
	newTokenClient = func(context.Context, string, string, string) (tokenClient, error) {
		return env.cloud, nil
	}
	newRoleBackend = func(cloudClient, *awsplatform.Cluster) (roleBackend, error) {
		return env.roles, nil
	}
	newKubeClient = func([]byte) (kubeClient, error) {
		return env.kube, nil
	}
	newChartInstaller = func([]byte, time.Duration) addons.ChartInstaller {
		return env.charts
	}
	newObjectStore = func(context.Context, string) (s3.ObjectStore, error) {
		return env.store, nil
	}
	executable = func() (string, error) { return "/usr/local/bin/kitinfra", nil }
	writeFile = func(name string, data []byte, _ os.FileMode) error {
		env.files[name] = data
		return nil
	}
	isInteractive = func() bool { return false }
	confirm = func(context.Context, string, string) (bool, error) {
		return false, errors.New("unexpected prompt")
	}
	return env
}

type fakeCloud struct {
	mu         sync.Mutex
	calls      []string
	exec       *awsplatform.ExecCommand
	clusterErr error
}

func (f *fakeCloud) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeCloud) EnsureNetwork(_ context.Context, spec awsplatform.NetworkSpec) (*awsplatform.Network, error) {
	f.record("EnsureNetwork")
	return &awsplatform.Network{
		VPCID:            "vpc-1",
		CIDR:             spec.CIDR,
		PublicSubnetIDs:  []string{"subnet-a"},
		PrivateSubnetIDs: []string{"subnet-b"},
		NATGatewayID:     "nat-1",
	}, nil
}

func (f *fakeCloud) EnsureControlPlane(_ context.Context, spec awsplatform.ClusterSpec) (*awsplatform.Cluster, error) {
	f.record("EnsureControlPlane")
	if f.clusterErr != nil {
		return nil, f.clusterErr
	}
	return &awsplatform.Cluster{
		Name:            spec.Name,
		ARN:             "arn:aws:eks:us-west-2:" + testAccount + ":cluster/" + spec.Name,
		Version:         spec.Version,
		Endpoint:        "https://kit.eks.amazonaws.com",
		OIDCIssuer:      "https://oidc.eks.us-west-2.amazonaws.com/id/ABC",
		OIDCProviderARN: "arn:aws:iam::" + testAccount + ":oidc-provider/oidc.eks.us-west-2.amazonaws.com/id/ABC",
	}, nil
}

func (f *fakeCloud) EnsureNodePool(_ context.Context, spec awsplatform.NodePoolSpec) (*awsplatform.NodePool, error) {
	f.record("EnsureNodePool")
	return &awsplatform.NodePool{
		Name: spec.Name,
		Role: awsplatform.Role{Name: "kit-node", ARN: "arn:aws:iam::" + testAccount + ":role/kit-node"},
	}, nil
}

func (f *fakeCloud) Kubeconfig(context.Context, *awsplatform.Cluster) ([]byte, error) {
	f.record("Kubeconfig")
	return []byte("token-kubeconfig"), nil
}

func (f *fakeCloud) ExecKubeconfig(_ *awsplatform.Cluster, exec awsplatform.ExecCommand) ([]byte, error) {
	f.record("ExecKubeconfig:" + exec.Command)
	if exec.Command != "aws" {
		f.mu.Lock()
		f.exec = &exec
		f.mu.Unlock()
	}
	return []byte("exec-kubeconfig:" + exec.Command), nil
}

func (f *fakeCloud) AccountID(context.Context) (string, error) {
	return testAccount, nil
}

func (f *fakeCloud) ExecCredential(_ context.Context, cluster string) ([]byte, error) {
	return []byte(`{"kind":"ExecCredential","cluster":"` + cluster + `"}`), nil
}

func (f *fakeCloud) ServiceAccountRoles(*awsplatform.Cluster) (*awsplatform.ServiceAccountRoles, error) {
	return nil, errors.New("not used")
}

func (f *fakeCloud) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeKube struct {
	mu         sync.Mutex
	namespaces []string
	accounts   []addons.IdentityRef
	manifests  int
	nodeRoles  []string
}

func (f *fakeKube) CreateNamespace(_ context.Context, name string, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.namespaces = append(f.namespaces, name)
	return nil
}

func (f *fakeKube) WaitReady(context.Context, addons.ObjectRef, time.Duration) error {
	return nil
}

func (f *fakeKube) ApplyManifest(context.Context, string, []map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manifests++
	return nil
}

func (f *fakeKube) UpsertServiceAccount(_ context.Context, ref addons.IdentityRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = append(f.accounts, ref)
	return nil
}

func (f *fakeKube) RegisterNodeIdentity(_ context.Context, roleARN, _ string, _ []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodeRoles = append(f.nodeRoles, roleARN)
	return nil
}

type fakeRoles struct {
	mu       sync.Mutex
	policies []string
}

func (f *fakeRoles) EnsureServiceAccountRole(_ context.Context, namespace, serviceAccount string) (addons.IdentityRef, error) {
	return addons.IdentityRef{
		Namespace:      namespace,
		ServiceAccount: serviceAccount,
		RoleName:       "kit-" + serviceAccount,
		RoleARN:        "arn:aws:iam::" + testAccount + ":role/kit-" + serviceAccount,
	}, nil
}

func (f *fakeRoles) AttachPolicy(_ context.Context, ref addons.IdentityRef, _ addons.Policy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policies = append(f.policies, ref.RoleName)
	return nil
}

type fakeCharts struct {
	mu       sync.Mutex
	releases []string
	failOn   string
}

func (f *fakeCharts) Install(_ context.Context, _ string, rel addons.ChartRelease) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rel.Release == f.failOn {
		return errors.New("chart failed")
	}
	f.releases = append(f.releases, rel.Release)
	return nil
}

func (f *fakeCharts) Releases() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.releases...)
	sort.Strings(out)
	return out
}

type fakeStore struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{buckets: make(map[string]bool), objects: make(map[string][]byte)}
}

func (f *fakeStore) CreateBucket(_ context.Context, bucket string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[bucket] = true
	return nil
}

func (f *fakeStore) PutObject(_ context.Context, bucket, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+key] = data
	return nil
}

func (f *fakeStore) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, s3.ErrNotFound
	}
	return data, nil
}

func (f *fakeStore) ListObjects(_ context.Context, bucket, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if key, ok := strings.CutPrefix(k, bucket+"/"); ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
