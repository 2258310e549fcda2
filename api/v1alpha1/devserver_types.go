package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// DevServerSpec defines the desired state of a single developer environment.
//
// A DevServer is always bound to exactly one DevServerFlavor (the resource
// envelope it runs with) and one owner identity. It runs as either a
// standalone single pod or, in distributed mode, an ordered set of peer
// pods discoverable through a headless service.
//
// Example:
//
//	spec:
//	  owner: alice@example.com
//	  flavor: cpu-small
//	  image: ghcr.io/devserver/base:22.04
//	  enableSSH: true
//	  ssh:
//	    publicKey: "ssh-ed25519 AAAA..."
//	  lifecycle:
//	    timeToLive: "8h"
type DevServerSpec struct {
	// Owner is an opaque identifier for the human this environment belongs
	// to, typically an email address. It is never interpreted or validated
	// against an identity provider by the engine.
	// +kubebuilder:validation:Required
	Owner string `json:"owner"`

	// Flavor names the DevServerFlavor this environment is resolved against
	// for resource requests/limits, node selectors and tolerations.
	// +kubebuilder:validation:Required
	Flavor string `json:"flavor"`

	// Image overrides the container image run in the workload. Left empty,
	// the engine substitutes a built-in default.
	// +optional
	Image string `json:"image,omitempty"`

	// Mode selects between a single pod (standalone) and an ordered set of
	// worldSize peer pods with headless-service discovery (distributed).
	// +kubebuilder:validation:Enum=standalone;distributed
	// +kubebuilder:default=standalone
	// +optional
	Mode string `json:"mode,omitempty"`

	// Distributed carries the peer-topology parameters and is only
	// meaningful when Mode is "distributed".
	// +optional
	Distributed *DistributedSpec `json:"distributed,omitempty"`

	// PersistentHomeSize is the storage request for the home-directory
	// volume claim. Immutable after the first successful reconcile.
	// +kubebuilder:default="100Gi"
	// +optional
	PersistentHomeSize string `json:"persistentHomeSize,omitempty"`

	// SharedVolumeClaimName optionally names a pre-existing volume claim to
	// mount read-write-many at /shared. Immutable after the first
	// successful reconcile.
	// +optional
	SharedVolumeClaimName string `json:"sharedVolumeClaimName,omitempty"`

	// EnableSSH controls whether an SSH service and host-key secret are
	// provisioned for this environment.
	// +kubebuilder:default=true
	// +optional
	EnableSSH bool `json:"enableSSH,omitempty"`

	// SSH carries SSH-specific configuration such as the authorized
	// public key. The engine does not read it when building children.
	// +optional
	SSH SSHSpec `json:"ssh,omitempty"`

	// Lifecycle controls idle and expiration behavior.
	// +optional
	Lifecycle LifecycleSpec `json:"lifecycle,omitempty"`
}

// DistributedSpec describes the peer topology of a distributed-mode
// DevServer. worldSize pods are created, ranked 0..worldSize-1, with rank 0
// acting as MASTER_ADDR for the group.
type DistributedSpec struct {
	// WorldSize is the total number of peer pods.
	// +kubebuilder:validation:Minimum=1
	WorldSize int `json:"worldSize"`

	// NprocsPerNode is the number of worker processes launched per pod.
	// +kubebuilder:validation:Minimum=1
	NprocsPerNode int `json:"nprocsPerNode"`

	// Backend is the collective-communication backend processes should use.
	// +kubebuilder:validation:Enum=nccl;gloo;mpi
	Backend string `json:"backend"`

	// NcclSettings are passed through as extra environment variables on
	// every pod. Empty is allowed and adds nothing.
	// +optional
	NcclSettings map[string]string `json:"ncclSettings,omitempty"`
}

// SSHSpec carries the authorized key material for SSH access.
type SSHSpec struct {
	// PublicKey is the authorized public key for the environment. The engine
	// stores it on the object only; it is not passed into the workload.
	// +optional
	PublicKey string `json:"publicKey,omitempty"`
}

// LifecycleSpec controls idle detection, auto-shutdown and expiration.
type LifecycleSpec struct {
	// IdleTimeout, in seconds, after which the environment is considered
	// idle. Together with AutoShutdown it only raises a Degraded condition
	// (see DESIGN.md on the autoShutdown open question); the engine does no
	// idle detection and never writes status.lastIdleTime.
	// +optional
	IdleTimeout int64 `json:"idleTimeout,omitempty"`

	// AutoShutdown requests that idle environments eventually shut down.
	// Currently surfaced only as a Degraded condition, never an automatic
	// deletion or scale-to-zero.
	// +optional
	AutoShutdown bool `json:"autoShutdown,omitempty"`

	// ExpirationTime is the absolute instant at which the environment is
	// deleted. Written once by the engine when TimeToLive is set and this
	// field is empty; never overwritten afterwards.
	// +optional
	ExpirationTime *metav1.Time `json:"expirationTime,omitempty"`

	// TimeToLive is a human-readable duration ("30m", "2h30m", "1d") parsed
	// into ExpirationTime relative to the object's creation time.
	// +optional
	TimeToLive string `json:"timeToLive,omitempty"`
}

// DevServerStatus defines the observed state of a DevServer.
type DevServerStatus struct {
	// Phase summarizes the environment's lifecycle state.
	// +kubebuilder:validation:Enum=Pending;Running;Terminating;Failed
	// +optional
	Phase string `json:"phase,omitempty"`

	// Ready is true only when Phase is Running and at least one pod has
	// passed readiness.
	// +optional
	Ready bool `json:"ready,omitempty"`

	// SSHEndpoint is the host:port an operator connects to, populated once
	// the SSH service exists and EnableSSH is set.
	// +optional
	SSHEndpoint string `json:"sshEndpoint,omitempty"`

	// StartTime is recorded the first time the environment reaches Running.
	// +optional
	StartTime *metav1.Time `json:"startTime,omitempty"`

	// LastIdleTime is the last observed instant the environment was judged
	// idle, independent of any state transition.
	// +optional
	LastIdleTime *metav1.Time `json:"lastIdleTime,omitempty"`

	// ServiceName is the name of the owned SSH service, when created.
	// +optional
	ServiceName string `json:"serviceName,omitempty"`

	// PodNames lists the currently observed owned pod names.
	// +optional
	PodNames []string `json:"podNames,omitempty"`

	// Conditions is an ordered set of observations with unique type keys.
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=ds
// +kubebuilder:printcolumn:name="Owner",type=string,JSONPath=`.spec.owner`
// +kubebuilder:printcolumn:name="Flavor",type=string,JSONPath=`.spec.flavor`
// +kubebuilder:printcolumn:name="Mode",type=string,JSONPath=`.spec.mode`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Ready",type=boolean,JSONPath=`.status.ready`
// +kubebuilder:printcolumn:name="SSH",type=string,JSONPath=`.status.sshEndpoint`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// DevServer is the Schema for the devservers API.
type DevServer struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   DevServerSpec   `json:"spec,omitempty"`
	Status DevServerStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// DevServerList contains a list of DevServer.
type DevServerList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []DevServer `json:"items"`
}

func init() {
	SchemeBuilder.Register(&DevServer{}, &DevServerList{})
}

// DevServerFinalizer is the single finalizer key the engine manages on a
// DevServer; its presence means the engine still owns teardown.
const DevServerFinalizer = "devserver.devservers.io/finalizer"

// well-known condition types and reasons used across the reconciler.
const (
	ConditionReady    = "Ready"
	ConditionDegraded = "Degraded"

	ReasonFlavorNotFound        = "FlavorNotFound"
	ReasonInvalidDuration       = "InvalidDuration"
	ReasonImmutableField        = "ImmutableField"
	ReasonAutoShutdownAmbiguous = "AutoShutdownAmbiguous"
	ReasonExpired               = "Expired"
)

// Phase values for DevServerStatus.Phase.
const (
	PhasePending     = "Pending"
	PhaseRunning     = "Running"
	PhaseTerminating = "Terminating"
	PhaseFailed      = "Failed"
)

// Mode values for DevServerSpec.Mode.
const (
	ModeStandalone  = "standalone"
	ModeDistributed = "distributed"
)

// defaultPersistentHomeSize is substituted when PersistentHomeSize is empty.
const defaultPersistentHomeSize = "100Gi"

// EffectivePersistentHomeSize returns the configured home size or the
// built-in default when unset.
func (d *DevServer) EffectivePersistentHomeSize() string {
	if d.Spec.PersistentHomeSize == "" {
		return defaultPersistentHomeSize
	}
	return d.Spec.PersistentHomeSize
}

// EffectiveMode returns the configured mode or "standalone" when unset.
func (d *DevServer) EffectiveMode() string {
	if d.Spec.Mode == "" {
		return ModeStandalone
	}
	return d.Spec.Mode
}

// DefaultImage is substituted when spec.image is left empty.
const DefaultImage = "ghcr.io/devserver-io/base:latest"

// EffectiveImage returns the configured image or the built-in default.
func (d *DevServer) EffectiveImage() string {
	if d.Spec.Image == "" {
		return DefaultImage
	}
	return d.Spec.Image
}
