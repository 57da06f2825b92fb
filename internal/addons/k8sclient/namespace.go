package k8sclient

import (
	"context"
	"fmt"
	"maps"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/util/retry"
)

// CreateNamespace creates the namespace if it does not exist. Labels are
// merged into an existing namespace.
func (c *Client) CreateNamespace(ctx context.Context, name string, labels map[string]string) error {
	namespaces := c.clientset.CoreV1().Namespaces()

	_, err := namespaces.Create(ctx, &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: name, Labels: labels},
	}, metav1.CreateOptions{FieldManager: FieldManager})
	if err == nil {
		return nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("failed to create namespace %s: %w", name, err)
	}
	if len(labels) == 0 {
		return nil
	}

	return retry.RetryOnConflict(retry.DefaultRetry, func() error {
		ns, err := namespaces.Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return fmt.Errorf("failed to get namespace %s: %w", name, err)
		}
		if ns.Labels == nil {
			ns.Labels = make(map[string]string, len(labels))
		}
		maps.Copy(ns.Labels, labels)
		_, err = namespaces.Update(ctx, ns, metav1.UpdateOptions{FieldManager: FieldManager})
		return err
	})
}
