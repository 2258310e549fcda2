package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// DevServerUserSpec defines the desired state of DevServerUser.
//
// A DevServerUser binds a human identity to a dedicated namespace and a
// scoped set of RBAC permissions over DevServer objects in that namespace.
type DevServerUserSpec struct {
	// Username must be a DNS-label-compatible string; it names the derived
	// namespace (dev-<username>) and service account (<username>-sa).
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:Pattern=`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`
	Username string `json:"username"`

	// QuotaOverrides replaces the engine's default per-user resource quota
	// hard limits when non-empty.
	// +optional
	QuotaOverrides corev1.ResourceList `json:"quotaOverrides,omitempty"`
}

// DevServerUserStatus defines the observed state of DevServerUser.
type DevServerUserStatus struct {
	// Namespace is the namespace provisioned for this user
	// (dev-<username>).
	// +optional
	Namespace string `json:"namespace,omitempty"`

	// Conditions reports provisioning progress; see the Ready condition.
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Cluster,shortName=dsu
// +kubebuilder:printcolumn:name="Username",type=string,JSONPath=`.spec.username`
// +kubebuilder:printcolumn:name="Namespace",type=string,JSONPath=`.status.namespace`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// DevServerUser is the Schema for the devserverusers API.
type DevServerUser struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   DevServerUserSpec   `json:"spec,omitempty"`
	Status DevServerUserStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// DevServerUserList contains a list of DevServerUser.
type DevServerUserList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []DevServerUser `json:"items"`
}

func init() {
	SchemeBuilder.Register(&DevServerUser{}, &DevServerUserList{})
}

// DevServerUserFinalizer protects cascading cleanup of a user's namespace
// and RBAC objects.
const DevServerUserFinalizer = "devserver.devservers.io/user-finalizer"

// NamespaceName derives the namespace name owned by this user.
func (u *DevServerUser) NamespaceName() string {
	return "dev-" + u.Spec.Username
}

// ServiceAccountName derives the service account name owned by this user.
func (u *DevServerUser) ServiceAccountName() string {
	return u.Spec.Username + "-sa"
}

// RoleName is the fixed role name granted to every user's service account.
const RoleName = "dev-user"
