package provisioning

import (
	"fmt"
)

// Step names reported in BootstrapError.
const (
	StepValidation   = "validation"
	StepNetwork      = "network"
	StepControlPlane = "control-plane"
	StepNodePool     = "node-pool"
	StepNodeIdentity = "node-identity"
)

// NetworkPhase creates the VPC with its subnets.
type NetworkPhase struct{}

// Name implements the Phase interface.
func (NetworkPhase) Name() string { return StepNetwork }

// Provision implements the Phase interface.
func (NetworkPhase) Provision(ctx *Context) error {
	plan, err := ctx.Network.SubnetPlan()
	if err != nil {
		return err
	}

	LogResourceCreating(ctx.Observer, StepNetwork, "vpc", plan.VPC)
	network, err := ctx.Provisioner.CreateNetwork(ctx, ctx.Network.CIDR, plan)
	if err != nil {
		return err
	}
	ctx.State.Network = network
	LogResourceCreated(ctx.Observer, StepNetwork, "vpc", plan.VPC, network.VPCID)
	return nil
}

// ControlPlanePhase creates the EKS control plane.
type ControlPlanePhase struct{}

// Name implements the Phase interface.
func (ControlPlanePhase) Name() string { return StepControlPlane }

// Provision implements the Phase interface.
func (ControlPlanePhase) Provision(ctx *Context) error {
	if ctx.State.Network == nil {
		return fmt.Errorf("network not provisioned")
	}

	LogResourceCreating(ctx.Observer, StepControlPlane, "cluster", ctx.Cluster.Name)
	cluster, err := ctx.Provisioner.CreateControlPlane(ctx, ctx.State.Network, ctx.Cluster.Kubernetes.Version)
	if err != nil {
		return err
	}
	ctx.State.Cluster = cluster
	LogResourceCreated(ctx.Observer, StepControlPlane, "cluster", ctx.Cluster.Name, cluster.ARN)
	return nil
}

// NodePoolPhase creates the managed node group the add-ons are scheduled on.
type NodePoolPhase struct{}

// Name implements the Phase interface.
func (NodePoolPhase) Name() string { return StepNodePool }

// Provision implements the Phase interface.
func (NodePoolPhase) Provision(ctx *Context) error {
	if ctx.State.Cluster == nil {
		return fmt.Errorf("control plane not provisioned")
	}

	pool := ctx.Cluster.NodePool
	LogResourceCreating(ctx.Observer, StepNodePool, "nodegroup", pool.Name)
	np, err := ctx.Provisioner.CreateNodePool(ctx, ctx.State.Cluster, ctx.State.Network.NodeSubnetIDs(), pool)
	if err != nil {
		return err
	}
	ctx.State.NodePool = np
	LogResourceCreated(ctx.Observer, StepNodePool, "nodegroup", pool.Name, np.ARN)
	return nil
}

// NodeIdentityPhase maps the node role into the cluster so that nodes can
// join it, then hands out the credentials later steps use.
type NodeIdentityPhase struct{}

// Name implements the Phase interface.
func (NodeIdentityPhase) Name() string { return StepNodeIdentity }

// Provision implements the Phase interface.
func (NodeIdentityPhase) Provision(ctx *Context) error {
	if ctx.State.Cluster == nil || ctx.State.NodePool == nil {
		return fmt.Errorf("node pool not provisioned")
	}

	kubeconfig, err := ctx.Provisioner.Kubeconfig(ctx, ctx.State.Cluster)
	if err != nil {
		return fmt.Errorf("failed to build kubeconfig: %w", err)
	}
	ctx.State.Kubeconfig = kubeconfig

	registrar, err := ctx.Registrars(kubeconfig)
	if err != nil {
		return fmt.Errorf("failed to connect to cluster: %w", err)
	}

	roles := append([]string{ctx.State.NodePool.Role.ARN}, ctx.Cluster.ExtraNodeRoleARNs...)
	for _, arn := range roles {
		if arn == "" {
			continue
		}
		if err := registrar.RegisterNodeIdentity(ctx, arn, NodeUsernamePattern, NodeGroups); err != nil {
			return fmt.Errorf("failed to register node role %s: %w", arn, err)
		}
		ctx.State.NodeRoles = append(ctx.State.NodeRoles, arn)
		ctx.Observer.Printf("[%s] Registered node role %s", StepNodeIdentity, arn)
	}
	return nil
}
