// Package events defines the structured lifecycle events the engine
// publishes to NATS for observability (§6.5). Grounded on
// k8s-controller/pkg/events/types.go: the same EventID/Timestamp envelope
// and subject-constant style, re-subjected under devserver.* and trimmed
// to the transitions this engine actually reports: FinalizerAdded,
// FlavorNotFound, Expired, ChildCreated, ChildPatched, Ready, Degraded,
// Failed for DevServer, plus Ready/Failed for DevServerUser provisioning
// and Validated for DevServerFlavor. The engine only ever publishes; it
// has no command inbox, since the CLI/API that would originate commands
// is out of scope.
package events

import "time"

// NATS subjects, one per DevServer lifecycle transition.
const (
	SubjectFinalizerAdded = "devserver.devserver.finalizer_added"
	SubjectFlavorNotFound = "devserver.devserver.flavor_not_found"
	SubjectExpired        = "devserver.devserver.expired"
	SubjectChildCreated   = "devserver.devserver.child_created"
	SubjectChildPatched   = "devserver.devserver.child_patched"
	SubjectReady          = "devserver.devserver.ready"
	SubjectDegraded       = "devserver.devserver.degraded"
	SubjectFailed         = "devserver.devserver.failed"

	SubjectUserReady   = "devserver.user.ready"
	SubjectUserFailed  = "devserver.user.failed"

	SubjectFlavorValidated = "devserver.flavor.validated"
)

// DevServerEvent is the envelope published for every DevServer lifecycle
// transition.
type DevServerEvent struct {
	EventID    string    `json:"event_id"`
	Timestamp  time.Time `json:"timestamp"`
	Name       string    `json:"name"`
	Namespace  string    `json:"namespace"`
	Owner      string    `json:"owner,omitempty"`
	Phase      string    `json:"phase,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Message    string    `json:"message,omitempty"`
	ChildKind  string    `json:"child_kind,omitempty"`
	ChildName  string    `json:"child_name,omitempty"`
}

// DevServerUserEvent is published for DevServerUser lifecycle transitions.
type DevServerUserEvent struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username"`
	Namespace string    `json:"namespace,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// FlavorEvent is published when the Flavor Reconciler finishes validating
// a DevServerFlavor.
type FlavorEvent struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name"`
	Available bool      `json:"available"`
	Message   string    `json:"message,omitempty"`
}
