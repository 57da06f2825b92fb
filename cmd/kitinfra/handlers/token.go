package handlers

import (
	"context"
	"fmt"
	"io"
)

// tokenClient signs EKS authentication tokens.
type tokenClient interface {
	ExecCredential(ctx context.Context, cluster string) ([]byte, error)
}

// TokenOptions configures Token.
type TokenOptions struct {
	Cluster string
	Region  string
	Profile string
	Out     io.Writer
}

// Token prints an ExecCredential for the cluster. Kubeconfigs written by
// apply call it whenever their token expires.
func Token(ctx context.Context, opts TokenOptions) error {
	client, err := newTokenClient(ctx, opts.Cluster, opts.Region, opts.Profile)
	if err != nil {
		return err
	}
	data, err := client.ExecCredential(ctx, opts.Cluster)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(opts.Out, string(data))
	return err
}
