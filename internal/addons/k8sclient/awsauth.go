package k8sclient

import (
	"context"
	"fmt"
	"slices"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/yaml"
)

const (
	awsAuthNamespace = "kube-system"
	awsAuthName      = "aws-auth"
	mapRolesKey      = "mapRoles"
)

// RoleMapping is one entry of the aws-auth mapRoles list.
type RoleMapping struct {
	RoleARN  string   `json:"rolearn"`
	Username string   `json:"username"`
	Groups   []string `json:"groups,omitempty"`
}

// RegisterNodeIdentity maps roleARN into the aws-auth ConfigMap. An existing
// entry for the same role is replaced, so the call is idempotent.
func (c *Client) RegisterNodeIdentity(ctx context.Context, roleARN, usernamePattern string, groups []string) error {
	if roleARN == "" {
		return fmt.Errorf("role ARN is required")
	}
	entry := RoleMapping{RoleARN: roleARN, Username: usernamePattern, Groups: slices.Clone(groups)}
	configMaps := c.clientset.CoreV1().ConfigMaps(awsAuthNamespace)

	return retry.RetryOnConflict(retry.DefaultRetry, func() error {
		cm, err := configMaps.Get(ctx, awsAuthName, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			data, err := encodeRoleMappings([]RoleMapping{entry})
			if err != nil {
				return err
			}
			_, err = configMaps.Create(ctx, &corev1.ConfigMap{
				ObjectMeta: metav1.ObjectMeta{Name: awsAuthName, Namespace: awsAuthNamespace},
				Data:       map[string]string{mapRolesKey: data},
			}, metav1.CreateOptions{FieldManager: FieldManager})
			if err != nil {
				return fmt.Errorf("failed to create aws-auth: %w", err)
			}
			log.FromContext(ctx).Info("created aws-auth", "role", roleARN)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get aws-auth: %w", err)
		}

		mappings, err := decodeRoleMappings(cm.Data[mapRolesKey])
		if err != nil {
			return err
		}
		mappings = upsertRoleMapping(mappings, entry)
		data, err := encodeRoleMappings(mappings)
		if err != nil {
			return err
		}
		if cm.Data[mapRolesKey] == data {
			return nil
		}
		if cm.Data == nil {
			cm.Data = map[string]string{}
		}
		cm.Data[mapRolesKey] = data
		_, err = configMaps.Update(ctx, cm, metav1.UpdateOptions{FieldManager: FieldManager})
		if err == nil {
			log.FromContext(ctx).Info("updated aws-auth", "role", roleARN, "mappings", len(mappings))
		}
		return err
	})
}

// RoleMappings returns the current aws-auth mapRoles entries.
func (c *Client) RoleMappings(ctx context.Context) ([]RoleMapping, error) {
	cm, err := c.clientset.CoreV1().ConfigMaps(awsAuthNamespace).Get(ctx, awsAuthName, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get aws-auth: %w", err)
	}
	return decodeRoleMappings(cm.Data[mapRolesKey])
}

func upsertRoleMapping(mappings []RoleMapping, entry RoleMapping) []RoleMapping {
	for i, m := range mappings {
		if m.RoleARN == entry.RoleARN {
			mappings[i] = entry
			return mappings
		}
	}
	return append(mappings, entry)
}

func decodeRoleMappings(data string) ([]RoleMapping, error) {
	if data == "" {
		return nil, nil
	}
	var mappings []RoleMapping
	if err := yaml.Unmarshal([]byte(data), &mappings); err != nil {
		return nil, fmt.Errorf("failed to parse aws-auth mapRoles: %w", err)
	}
	return mappings, nil
}

func encodeRoleMappings(mappings []RoleMapping) (string, error) {
	data, err := yaml.Marshal(mappings)
	if err != nil {
		return "", fmt.Errorf("failed to encode aws-auth mapRoles: %w", err)
	}
	return string(data), nil
}
