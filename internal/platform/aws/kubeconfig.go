package aws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	clientauthv1beta1 "k8s.io/client-go/pkg/apis/clientauthentication/v1beta1"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

const (
	clusterIDHeader = "x-k8s-aws-id"
	tokenPrefix     = "k8s-aws-v1."
	// tokenExpiry is the lifetime of the presigned URL in seconds. EKS
	// accepts tokens for at most 15 minutes regardless.
	tokenExpiry = "60"

	tokenLifetime = 15 * time.Minute
)

// TokenPresigner presigns the STS request an EKS token wraps.
type TokenPresigner interface {
	PresignGetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Token returns a bearer token for cluster signed with the caller's
// credentials. EKS accepts it for tokenLifetime.
func (c *Client) Token(ctx context.Context, cluster string) (string, error) {
	req, err := c.signer.PresignGetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}, func(po *sts.PresignOptions) {
		po.ClientOptions = append(po.ClientOptions, func(o *sts.Options) {
			o.APIOptions = append(o.APIOptions,
				smithyhttp.SetHeaderValue(clusterIDHeader, cluster),
				smithyhttp.SetHeaderValue("X-Amz-Expires", tokenExpiry))
		})
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign token for %s: %w", cluster, err)
	}
	return tokenPrefix + base64.RawURLEncoding.EncodeToString([]byte(req.URL)), nil
}

// Kubeconfig returns a kubeconfig for cluster with an embedded token, for
// clients running inside this process.
func (c *Client) Kubeconfig(ctx context.Context, cluster *Cluster) ([]byte, error) {
	token, err := c.Token(ctx, cluster.Name)
	if err != nil {
		return nil, err
	}
	return renderKubeconfig(cluster, &clientcmdapi.AuthInfo{Token: token})
}

// ExecCommand is the credential plugin an exec kubeconfig runs.
type ExecCommand struct {
	Command string
	Args    []string
}

// AWSCLI returns the plugin invoking "aws eks get-token".
func AWSCLI(cluster, region string) ExecCommand {
	return ExecCommand{
		Command: "aws",
		Args:    []string{"eks", "get-token", "--cluster-name", cluster, "--region", region},
	}
}

// ExecKubeconfig returns a kubeconfig for cluster that fetches fresh tokens
// through exec whenever the current one expires.
func (c *Client) ExecKubeconfig(cluster *Cluster, exec ExecCommand) ([]byte, error) {
	return renderKubeconfig(cluster, &clientcmdapi.AuthInfo{
		Exec: &clientcmdapi.ExecConfig{
			APIVersion:      clientauthv1beta1.SchemeGroupVersion.String(),
			Command:         exec.Command,
			Args:            exec.Args,
			InteractiveMode: clientcmdapi.NeverExecInteractiveMode,
		},
	})
}

// ExecCredential returns the credential plugin response for cluster.
func (c *Client) ExecCredential(ctx context.Context, cluster string) ([]byte, error) {
	token, err := c.Token(ctx, cluster)
	if err != nil {
		return nil, err
	}
	// Refresh a minute before EKS stops accepting the token.
	expires := metav1.NewTime(time.Now().Add(tokenLifetime - time.Minute))
	cred := clientauthv1beta1.ExecCredential{
		TypeMeta: metav1.TypeMeta{
			APIVersion: clientauthv1beta1.SchemeGroupVersion.String(),
			Kind:       "ExecCredential",
		},
		Status: &clientauthv1beta1.ExecCredentialStatus{
			Token:               token,
			ExpirationTimestamp: &expires,
		},
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return nil, fmt.Errorf("failed to encode credential: %w", err)
	}
	return data, nil
}

func renderKubeconfig(cluster *Cluster, auth *clientcmdapi.AuthInfo) ([]byte, error) {
	if cluster.Endpoint == "" {
		return nil, fmt.Errorf("cluster %s has no endpoint", cluster.Name)
	}
	ca, err := base64.StdEncoding.DecodeString(cluster.CertificateAuthority)
	if err != nil {
		return nil, fmt.Errorf("failed to decode certificate authority of %s: %w", cluster.Name, err)
	}

	cfg := clientcmdapi.NewConfig()
	cfg.Clusters[cluster.Name] = &clientcmdapi.Cluster{
		Server:                   cluster.Endpoint,
		CertificateAuthorityData: ca,
	}
	cfg.AuthInfos[cluster.Name] = auth
	cfg.Contexts[cluster.Name] = &clientcmdapi.Context{Cluster: cluster.Name, AuthInfo: cluster.Name}
	cfg.CurrentContext = cluster.Name

	data, err := clientcmd.Write(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to render kubeconfig: %w", err)
	}
	return data, nil
}
