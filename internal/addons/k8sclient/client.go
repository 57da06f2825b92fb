package k8sclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/imamik/kitinfra/internal/addons"
)

const (
	// FieldManager identifies kitinfra as the owner of applied fields.
	FieldManager = "kitinfra"

	// DefaultPollInterval is how often WaitReady re-reads an object.
	DefaultPollInterval = 2 * time.Second
)

// Client implements addons.ControlPlane with k8s.io/client-go.
type Client struct {
	clientset     kubernetes.Interface
	dynamicClient dynamic.Interface

	mu        sync.RWMutex
	mapper    meta.RESTMapper
	newMapper func() (meta.RESTMapper, error)

	pollInterval time.Duration
}

var _ addons.ControlPlane = (*Client)(nil)

// NewFromKubeconfig creates a Client from kubeconfig bytes.
// This avoids the need to write kubeconfig to a temporary file.
func NewFromKubeconfig(kubeconfig []byte) (*Client, error) {
	restConfig, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create REST config from kubeconfig: %w", err)
	}
	return NewFromRESTConfig(restConfig)
}

// NewFromRESTConfig creates a Client from a REST config.
func NewFromRESTConfig(restConfig *rest.Config) (*Client, error) {
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	discoveryClient, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}

	newMapper := func() (meta.RESTMapper, error) {
		groupResources, err := restmapper.GetAPIGroupResources(discoveryClient)
		if err != nil {
			return nil, fmt.Errorf("failed to get API group resources: %w", err)
		}
		return restmapper.NewDiscoveryRESTMapper(groupResources), nil
	}

	mapper, err := newMapper()
	if err != nil {
		return nil, err
	}

	return &Client{
		clientset:     clientset,
		dynamicClient: dynamicClient,
		mapper:        mapper,
		newMapper:     newMapper,
		pollInterval:  DefaultPollInterval,
	}, nil
}

// NewFromClients creates a Client from pre-configured clients.
// This is useful for testing with fake clients.
func NewFromClients(clientset kubernetes.Interface, dynamicClient dynamic.Interface, mapper meta.RESTMapper) *Client {
	return &Client{
		clientset:     clientset,
		dynamicClient: dynamicClient,
		mapper:        mapper,
		pollInterval:  DefaultPollInterval,
	}
}

// WithPollInterval sets how often WaitReady polls.
func (c *Client) WithPollInterval(d time.Duration) *Client {
	if d > 0 {
		c.pollInterval = d
	}
	return c
}

// WithMapperFactory sets how RefreshDiscovery rebuilds the REST mapper.
func (c *Client) WithMapperFactory(f func() (meta.RESTMapper, error)) *Client {
	c.newMapper = f
	return c
}

// Clientset returns the typed client.
func (c *Client) Clientset() kubernetes.Interface {
	return c.clientset
}

// RefreshDiscovery rebuilds the REST mapper to pick up CRDs installed since
// the client was created. Clients without a mapper factory keep their mapper.
func (c *Client) RefreshDiscovery(context.Context) error {
	if c.newMapper == nil {
		return nil
	}
	mapper, err := c.newMapper()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.mapper = mapper
	c.mu.Unlock()
	return nil
}

func (c *Client) restMapping(ctx context.Context, apiVersion, kind string) (*meta.RESTMapping, error) {
	gvk, err := parseGVK(apiVersion, kind)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	mapping, err := c.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	c.mu.RUnlock()
	if err == nil || !meta.IsNoMatchError(err) || c.newMapper == nil {
		if err != nil {
			return nil, fmt.Errorf("failed to get REST mapping for %v: %w", gvk, err)
		}
		return mapping, nil
	}

	// The kind may come from a CRD installed after the mapper was built.
	if err := c.RefreshDiscovery(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	mapping, err = c.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to get REST mapping for %v: %w", gvk, err)
	}
	return mapping, nil
}

func (c *Client) resourceFor(mapping *meta.RESTMapping, namespace string) dynamic.ResourceInterface {
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		return c.dynamicClient.Resource(mapping.Resource).Namespace(namespace)
	}
	return c.dynamicClient.Resource(mapping.Resource)
}
