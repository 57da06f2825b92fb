package k8sclient

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// ApplyManifest applies each object with Server-Side Apply, in order.
// Namespaced objects without a namespace are placed in namespace. Objects
// are applied with force so kitinfra takes ownership of its fields.
func (c *Client) ApplyManifest(ctx context.Context, namespace string, objects []map[string]any) error {
	for i, raw := range objects {
		obj := &unstructured.Unstructured{Object: runtime.DeepCopyJSON(raw)}
		if err := c.applyObject(ctx, namespace, obj); err != nil {
			return fmt.Errorf("failed to apply object %d (%s %s): %w", i, obj.GetKind(), obj.GetName(), err)
		}
	}
	return nil
}

func (c *Client) applyObject(ctx context.Context, namespace string, obj *unstructured.Unstructured) error {
	if obj.GetKind() == "" {
		return fmt.Errorf("object has no kind set")
	}
	if obj.GetName() == "" {
		return fmt.Errorf("object has no name set")
	}

	mapping, err := c.restMapping(ctx, obj.GetAPIVersion(), obj.GetKind())
	if err != nil {
		return err
	}

	ns := obj.GetNamespace()
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		if ns == "" {
			ns = namespace
		}
		if ns == "" {
			ns = metav1.NamespaceDefault
		}
		obj.SetNamespace(ns)
	}

	data, err := obj.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal object to JSON: %w", err)
	}

	force := true
	opts := metav1.PatchOptions{
		FieldManager: FieldManager,
		Force:        &force,
	}
	if _, err := c.resourceFor(mapping, ns).Patch(ctx, obj.GetName(), types.ApplyPatchType, data, opts); err != nil {
		return fmt.Errorf("server-side apply failed: %w", err)
	}

	log.FromContext(ctx).V(1).Info("applied object", "kind", obj.GetKind(), "namespace", ns, "name", obj.GetName())
	return nil
}

func parseGVK(apiVersion, kind string) (schema.GroupVersionKind, error) {
	gv, err := schema.ParseGroupVersion(apiVersion)
	if err != nil {
		return schema.GroupVersionKind{}, fmt.Errorf("invalid apiVersion %q: %w", apiVersion, err)
	}
	if kind == "" {
		return schema.GroupVersionKind{}, fmt.Errorf("kind is required")
	}
	return gv.WithKind(kind), nil
}
