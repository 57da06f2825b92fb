package k8sclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/imamik/kitinfra/internal/addons"
)

func deployment(name string, spec, status map[string]any) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata":   map[string]any{"name": name, "namespace": "kit", "generation": int64(2)},
		"spec":       spec,
		"status":     status,
	}}
}

func TestIsReady(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		obj    *unstructured.Unstructured
		ready  bool
		reason string
	}{
		{
			name:  "deployment available",
			obj:   deployment("a", map[string]any{"replicas": int64(2)}, map[string]any{"observedGeneration": int64(2), "updatedReplicas": int64(2), "availableReplicas": int64(2)}),
			ready: true,
		},
		{
			name:   "deployment rolling",
			obj:    deployment("a", map[string]any{"replicas": int64(2)}, map[string]any{"observedGeneration": int64(2), "updatedReplicas": int64(2), "availableReplicas": int64(1)}),
			reason: "1/2 replicas available",
		},
		{
			name:   "deployment stale generation",
			obj:    deployment("a", map[string]any{}, map[string]any{"observedGeneration": int64(1), "updatedReplicas": int64(1), "availableReplicas": int64(1)}),
			reason: "observed generation 1 of 2",
		},
		{
			name:   "deployment defaults to one replica",
			obj:    deployment("a", map[string]any{}, map[string]any{}),
			reason: "0/1 replicas available",
		},
		{
			name: "daemonset ready",
			obj: &unstructured.Unstructured{Object: map[string]any{
				"kind":   "DaemonSet",
				"status": map[string]any{"desiredNumberScheduled": int64(3), "numberReady": int64(3), "updatedNumberScheduled": int64(3)},
			}},
			ready: true,
		},
		{
			name: "daemonset partially ready",
			obj: &unstructured.Unstructured{Object: map[string]any{
				"kind":   "DaemonSet",
				"status": map[string]any{"desiredNumberScheduled": int64(3), "numberReady": int64(1), "updatedNumberScheduled": int64(3)},
			}},
			reason: "1/3 pods ready",
		},
		{
			name: "statefulset ready",
			obj: &unstructured.Unstructured{Object: map[string]any{
				"kind":   "StatefulSet",
				"spec":   map[string]any{"replicas": int64(1)},
				"status": map[string]any{"readyReplicas": int64(1)},
			}},
			ready: true,
		},
		{
			name: "crd established",
			obj: &unstructured.Unstructured{Object: map[string]any{
				"kind":   "CustomResourceDefinition",
				"status": map[string]any{"conditions": []any{map[string]any{"type": "Established", "status": "True"}}},
			}},
			ready: true,
		},
		{
			name:   "crd pending",
			obj:    &unstructured.Unstructured{Object: map[string]any{"kind": "CustomResourceDefinition"}},
			reason: "not established",
		},
		{
			name:  "namespace active",
			obj:   &unstructured.Unstructured{Object: map[string]any{"kind": "Namespace", "status": map[string]any{"phase": "Active"}}},
			ready: true,
		},
		{
			name:   "namespace terminating",
			obj:    &unstructured.Unstructured{Object: map[string]any{"kind": "Namespace", "status": map[string]any{"phase": "Terminating"}}},
			reason: "terminating",
		},
		{
			name: "custom resource not ready",
			obj: &unstructured.Unstructured{Object: map[string]any{
				"kind":   "Kustomization",
				"status": map[string]any{"conditions": []any{map[string]any{"type": "Ready", "status": "False"}}},
			}},
			reason: "Ready is False",
		},
		{
			name:  "custom resource without conditions",
			obj:   &unstructured.Unstructured{Object: map[string]any{"kind": "ControllerConfig"}},
			ready: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ready, reason := IsReady(tt.obj)
			assert.Equal(t, tt.ready, ready)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestWaitReady(t *testing.T) {
	t.Parallel()

	ready := deployment("kit-operator", map[string]any{"replicas": int64(1)},
		map[string]any{"observedGeneration": int64(2), "updatedReplicas": int64(1), "availableReplicas": int64(1)})
	c, _ := newTestClient(t, ready)
	c.WithPollInterval(10 * time.Millisecond)

	err := c.WaitReady(context.Background(), addons.ObjectRef{APIVersion: "apps/v1", Kind: "Deployment", Namespace: "kit", Name: "kit-operator"}, time.Second)
	assert.NoError(t, err)
}

func TestWaitReady_Timeout(t *testing.T) {
	t.Parallel()

	rolling := deployment("kit-operator", map[string]any{"replicas": int64(2)},
		map[string]any{"observedGeneration": int64(2), "updatedReplicas": int64(2), "availableReplicas": int64(0)})
	c, _ := newTestClient(t, rolling)
	c.WithPollInterval(10 * time.Millisecond)

	err := c.WaitReady(context.Background(), addons.ObjectRef{APIVersion: "apps/v1", Kind: "Deployment", Namespace: "kit", Name: "kit-operator"}, 50*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0/2 replicas available")
	assert.True(t, addons.IsDeadline(err))
}

func TestWaitReady_Missing(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	c.WithPollInterval(10 * time.Millisecond)

	err := c.WaitReady(context.Background(), addons.ObjectRef{APIVersion: "apps/v1", Kind: "Deployment", Namespace: "kit", Name: "missing"}, 30*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestWaitReady_BecomesReady(t *testing.T) {
	t.Parallel()

	rolling := deployment("kit-operator", map[string]any{"replicas": int64(1)},
		map[string]any{"observedGeneration": int64(2), "updatedReplicas": int64(1), "availableReplicas": int64(0)})
	c, _ := newTestClient(t, rolling)
	c.WithPollInterval(10 * time.Millisecond)

	gvr := schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"}
	go func() {
		time.Sleep(30 * time.Millisecond)
		updated := rolling.DeepCopy()
		_ = unstructured.SetNestedField(updated.Object, int64(1), "status", "availableReplicas")
		_, _ = c.dynamicClient.Resource(gvr).Namespace("kit").Update(context.Background(), updated, metav1.UpdateOptions{})
	}()

	err := c.WaitReady(context.Background(), addons.ObjectRef{APIVersion: "apps/v1", Kind: "Deployment", Namespace: "kit", Name: "kit-operator"}, 2*time.Second)
	assert.NoError(t, err)
}

func TestWaitReady_UnknownKind(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t)

	err := c.WaitReady(context.Background(), addons.ObjectRef{APIVersion: "example.com/v1", Kind: "Widget", Name: "w"}, time.Second)
	require.Error(t, err)
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
}
