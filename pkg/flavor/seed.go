package flavor

import (
	"fmt"

	"gopkg.in/yaml.v3"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	devserverv1alpha1 "github.com/devserver-io/devserver-engine/api/v1alpha1"
)

// ParseManifest parses a single YAML flavor manifest document into a
// DevServerFlavor object ready to be applied. Grounded on
// applicationinstall_controller.go's parseManifest: a manual, type-asserted
// walk over a map[string]interface{} rather than a generated unmarshal
// target, since the manifest's top-level shape (apiVersion/kind/metadata/spec)
// mixes with arbitrary user YAML that should not abort parsing on
// unrecognized fields.
func ParseManifest(manifest string) (*devserverv1alpha1.DevServerFlavor, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal([]byte(manifest), &doc); err != nil {
		return nil, fmt.Errorf("flavor manifest: invalid YAML: %w", err)
	}

	meta, ok := doc["metadata"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("flavor manifest: missing 'metadata' field")
	}
	name, ok := meta["name"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("flavor manifest: metadata.name missing or empty")
	}

	specData, _ := doc["spec"].(map[string]interface{})

	flavor := &devserverv1alpha1.DevServerFlavor{
		ObjectMeta: metav1.ObjectMeta{Name: name},
	}

	if resourcesData, ok := specData["resources"].(map[string]interface{}); ok {
		requests, err := parseResourceList(resourcesData["requests"])
		if err != nil {
			return nil, fmt.Errorf("flavor manifest: requests: %w", err)
		}
		flavor.Spec.Resources.Requests = requests

		limits, err := parseResourceList(resourcesData["limits"])
		if err != nil {
			return nil, fmt.Errorf("flavor manifest: limits: %w", err)
		}
		flavor.Spec.Resources.Limits = limits
	}

	if nodeSelector, ok := specData["nodeSelector"].(map[string]interface{}); ok {
		flavor.Spec.NodeSelector = map[string]string{}
		for k, v := range nodeSelector {
			if s, ok := v.(string); ok {
				flavor.Spec.NodeSelector[k] = s
			}
		}
	}

	if tolerations, ok := specData["tolerations"].([]interface{}); ok {
		for _, t := range tolerations {
			tm, ok := t.(map[string]interface{})
			if !ok {
				continue
			}
			toleration := corev1.Toleration{}
			if v, ok := tm["key"].(string); ok {
				toleration.Key = v
			}
			if v, ok := tm["operator"].(string); ok {
				toleration.Operator = corev1.TolerationOperator(v)
			}
			if v, ok := tm["value"].(string); ok {
				toleration.Value = v
			}
			if v, ok := tm["effect"].(string); ok {
				toleration.Effect = corev1.TaintEffect(v)
			}
			flavor.Spec.Tolerations = append(flavor.Spec.Tolerations, toleration)
		}
	}

	return flavor, nil
}

func parseResourceList(raw interface{}) (corev1.ResourceList, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, nil
	}
	list := corev1.ResourceList{}
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			continue
		}
		q, err := resource.ParseQuantity(s)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity %q for %q: %w", s, k, err)
		}
		list[corev1.ResourceName(k)] = q
	}
	return list, nil
}
