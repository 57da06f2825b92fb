package k8sclient

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/util/retry"

	"github.com/imamik/kitinfra/internal/addons"
)

// RoleARNAnnotation binds a service account to an IAM role through IRSA.
const RoleARNAnnotation = "eks.amazonaws.com/role-arn"

// UpsertServiceAccount creates the service account of ref, or updates its
// role annotation when it exists.
func (c *Client) UpsertServiceAccount(ctx context.Context, ref addons.IdentityRef) error {
	if ref.Namespace == "" || ref.ServiceAccount == "" {
		return fmt.Errorf("service account namespace and name are required")
	}
	accounts := c.clientset.CoreV1().ServiceAccounts(ref.Namespace)

	return retry.RetryOnConflict(retry.DefaultRetry, func() error {
		sa, err := accounts.Get(ctx, ref.ServiceAccount, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			sa = &corev1.ServiceAccount{
				ObjectMeta: metav1.ObjectMeta{
					Name:      ref.ServiceAccount,
					Namespace: ref.Namespace,
					Labels:    map[string]string{"app.kubernetes.io/managed-by": FieldManager},
				},
			}
			setRoleAnnotation(sa, ref.RoleARN)
			_, err = accounts.Create(ctx, sa, metav1.CreateOptions{FieldManager: FieldManager})
			if err != nil {
				return fmt.Errorf("failed to create service account %s/%s: %w", ref.Namespace, ref.ServiceAccount, err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get service account %s/%s: %w", ref.Namespace, ref.ServiceAccount, err)
		}

		if sa.Annotations[RoleARNAnnotation] == ref.RoleARN {
			return nil
		}
		setRoleAnnotation(sa, ref.RoleARN)
		_, err = accounts.Update(ctx, sa, metav1.UpdateOptions{FieldManager: FieldManager})
		return err
	})
}

func setRoleAnnotation(sa *corev1.ServiceAccount, roleARN string) {
	if roleARN == "" {
		return
	}
	if sa.Annotations == nil {
		sa.Annotations = map[string]string{}
	}
	sa.Annotations[RoleARNAnnotation] = roleARN
}
