package k8sclient

import (
	"context"
	"fmt"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/wait"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kitinfra/internal/addons"
)

// WaitReady polls the referenced object until it is ready or timeout
// elapses. A missing object is not ready yet.
func (c *Client) WaitReady(ctx context.Context, ref addons.ObjectRef, timeout time.Duration) error {
	logger := log.FromContext(ctx).WithValues("object", ref.String())

	mapping, err := c.restMapping(ctx, ref.APIVersion, ref.Kind)
	if err != nil {
		return err
	}
	resource := c.resourceFor(mapping, ref.Namespace)

	var reason string
	err = wait.PollUntilContextTimeout(ctx, c.pollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		obj, err := resource.Get(ctx, ref.Name, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			reason = "not found"
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to get %s: %w", ref, err)
		}
		var ready bool
		ready, reason = IsReady(obj)
		if !ready {
			logger.V(1).Info("waiting for object", "reason", reason)
		}
		return ready, nil
	})
	if err != nil {
		if reason != "" {
			return fmt.Errorf("%s not ready (%s): %w", ref, reason, err)
		}
		return err
	}
	return nil
}

// IsReady reports whether obj has converged, with a reason when it has not.
// Workloads compare their replica counts, CRDs need Established, namespaces
// must not be terminating and other kinds use a Ready or Available condition
// when they report conditions at all.
func IsReady(obj *unstructured.Unstructured) (bool, string) {
	if gen, observed := obj.GetGeneration(), nestedInt(obj, "status", "observedGeneration"); gen > 0 && observed > 0 && observed < gen {
		return false, fmt.Sprintf("observed generation %d of %d", observed, gen)
	}

	switch obj.GetKind() {
	case "Namespace":
		phase, _, _ := unstructured.NestedString(obj.Object, "status", "phase")
		if phase == "Terminating" {
			return false, "terminating"
		}
		return true, ""

	case "Deployment":
		want := replicas(obj)
		updated := nestedInt(obj, "status", "updatedReplicas")
		available := nestedInt(obj, "status", "availableReplicas")
		if updated < want || available < want {
			return false, fmt.Sprintf("%d/%d replicas available", available, want)
		}
		return true, ""

	case "StatefulSet":
		want := replicas(obj)
		ready := nestedInt(obj, "status", "readyReplicas")
		if ready < want {
			return false, fmt.Sprintf("%d/%d replicas ready", ready, want)
		}
		return true, ""

	case "DaemonSet":
		want := nestedInt(obj, "status", "desiredNumberScheduled")
		ready := nestedInt(obj, "status", "numberReady")
		updated := nestedInt(obj, "status", "updatedNumberScheduled")
		if ready < want || updated < want {
			return false, fmt.Sprintf("%d/%d pods ready", ready, want)
		}
		return true, ""

	case "CustomResourceDefinition":
		if status, ok := condition(obj, "Established"); !ok || status != "True" {
			return false, "not established"
		}
		return true, ""
	}

	for _, t := range []string{"Ready", "Available", "Healthy"} {
		if status, ok := condition(obj, t); ok {
			if status != "True" {
				return false, t + " is " + status
			}
			return true, ""
		}
	}
	return true, ""
}

func replicas(obj *unstructured.Unstructured) int64 {
	n, found, _ := unstructured.NestedInt64(obj.Object, "spec", "replicas")
	if !found {
		return 1
	}
	return n
}

func nestedInt(obj *unstructured.Unstructured, fields ...string) int64 {
	n, _, _ := unstructured.NestedInt64(obj.Object, fields...)
	return n
}

func condition(obj *unstructured.Unstructured, conditionType string) (string, bool) {
	conditions, _, _ := unstructured.NestedSlice(obj.Object, "status", "conditions")
	for _, c := range conditions {
		m, ok := c.(map[string]any)
		if !ok {
			continue
		}
		if m["type"] == conditionType {
			status, _ := m["status"].(string)
			return status, true
		}
	}
	return "", false
}
