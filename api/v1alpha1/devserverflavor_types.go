package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// DevServerFlavorSpec defines the desired state of DevServerFlavor.
//
// A flavor is a named, cluster-scoped resource envelope: requests/limits,
// a node selector and a set of tolerations. DevServers reference a flavor
// by name; the engine never writes a flavor's spec, and the Flavor
// Reconciler writes only its status conditions.
type DevServerFlavorSpec struct {
	// Resources carries the requests/limits every DevServer resolving this
	// flavor inherits for its workload container.
	// +optional
	Resources corev1.ResourceRequirements `json:"resources,omitempty"`

	// NodeSelector is copied verbatim onto every pod template of DevServers
	// resolving this flavor.
	// +optional
	NodeSelector map[string]string `json:"nodeSelector,omitempty"`

	// Tolerations is copied verbatim onto every pod template of DevServers
	// resolving this flavor.
	// +optional
	Tolerations []corev1.Toleration `json:"tolerations,omitempty"`
}

// DevServerFlavorStatus defines the observed state of DevServerFlavor.
type DevServerFlavorStatus struct {
	// Conditions records validation results; see the Available condition.
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Cluster,shortName=dsf
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// DevServerFlavor is the Schema for the devserverflavors API.
type DevServerFlavor struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   DevServerFlavorSpec   `json:"spec,omitempty"`
	Status DevServerFlavorStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// DevServerFlavorList contains a list of DevServerFlavor.
type DevServerFlavorList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []DevServerFlavor `json:"items"`
}

func init() {
	SchemeBuilder.Register(&DevServerFlavor{}, &DevServerFlavorList{})
}

// ConditionAvailable is set by the Flavor Reconciler once validation passes.
const ConditionAvailable = "Available"
