package addons

import (
	"fmt"

	"sigs.k8s.io/yaml"
)

type specDocument struct {
	Addons []*AddonSpec `json:"addons"`
}

// MarshalSpecs encodes a spec set as YAML, preserving declaration order.
func MarshalSpecs(specs []*AddonSpec) ([]byte, error) {
	data, err := yaml.Marshal(specDocument{Addons: specs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal add-on specs: %w", err)
	}
	return data, nil
}

// UnmarshalSpecs decodes a spec set produced by MarshalSpecs. Every spec is
// validated as if built with NewAddonSpec.
func UnmarshalSpecs(data []byte) ([]*AddonSpec, error) {
	var doc specDocument
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal add-on specs: %w", err)
	}
	specs := make([]*AddonSpec, 0, len(doc.Addons))
	for i, s := range doc.Addons {
		if s == nil {
			return nil, NewConfigurationError("add-on set", "entry %d is empty", i)
		}
		spec, err := NewAddonSpec(s.Name, s.Namespace, s.Enabled, s.DependsOn, s.Nodes)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
