package controllers

import (
	"context"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"

	devserverv1alpha1 "github.com/devserver-io/devserver-engine/api/v1alpha1"
	"github.com/devserver-io/devserver-engine/pkg/duration"
	"github.com/devserver-io/devserver-engine/pkg/events"
	"github.com/devserver-io/devserver-engine/pkg/flavor"
	"github.com/devserver-io/devserver-engine/pkg/metrics"
	"github.com/devserver-io/devserver-engine/pkg/reconcileerr"
	"github.com/devserver-io/devserver-engine/pkg/sshkeys"
)

const (
	annotationHomeSize    = "devserver.devservers.io/home-size"
	annotationSharedClaim = "devserver.devservers.io/shared-claim"
	flavorRequeueInterval = 5 * time.Minute
)

// DevServerReconciler drives a single DevServer toward its desired state
// (spec.md §4.2): finalizer, TTL materialization, expiration, flavor
// resolution, mode dispatch, status projection. Grounded on
// session_controller.go's Reconcile shape (fetch → branch → per-branch
// handler → status write → metrics defer), generalized with a finalizer
// gate and TTL/expiration steps the teacher's Session never needed.
type DevServerReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	// Events publishes lifecycle transitions to NATS; nil-safe (see
	// pkg/events.Publisher).
	Events *events.Publisher

	// DefaultRequeue caps the expiration-driven requeue interval
	// (spec.md §6.4 default-requeue, default 30 min).
	DefaultRequeue time.Duration

	// ReconcileDeadline bounds a single Reconcile call (spec.md §5,
	// §6.4 reconcile-deadline, default 2 min). Zero disables the bound.
	ReconcileDeadline time.Duration
}

// Reconcile implements the DevServerReconciler's main entry point. It
// delegates to reconcile for the actual step sequence and wraps it with
// the DevServer duration/outcome metrics.
func (r *DevServerReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	start := time.Now()

	if r.ReconcileDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.ReconcileDeadline)
		defer cancel()
	}

	var ds devserverv1alpha1.DevServer
	if err := r.Get(ctx, req.NamespacedName, &ds); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	result, err := r.reconcile(ctx, &ds)
	if reconcileerr.IsDeadlineExceeded(ctx) {
		return reconcileerr.Result(reconcileerr.Cancelled(ctx.Err()))
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordReconciliation(ds.Namespace, outcome)
	metrics.ObserveReconciliationDuration(ds.Namespace, time.Since(start).Seconds())
	metrics.RecordDevServerPhase(ds.Status.Phase, ds.Namespace, 1)

	return result, err
}

func (r *DevServerReconciler) reconcile(ctx context.Context, ds *devserverv1alpha1.DevServer) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	// Step 2: finalizer gate / deletion handling.
	if !ds.DeletionTimestamp.IsZero() {
		return r.handleDeletion(ctx, ds)
	}
	if !controllerutil.ContainsFinalizer(ds, devserverv1alpha1.DevServerFinalizer) {
		controllerutil.AddFinalizer(ds, devserverv1alpha1.DevServerFinalizer)
		if err := r.Update(ctx, ds); err != nil {
			return reconcileerr.Result(reconcileerr.Classify(err))
		}
		r.Events.PublishDevServer(events.SubjectFinalizerAdded, ds.Name, ds.Namespace, ds.Spec.Owner, ds.Status.Phase, "", "finalizer added")
		return ctrl.Result{Requeue: true}, nil
	}

	// Step 3: time-to-live materialization (I3).
	if ds.Spec.Lifecycle.TimeToLive != "" && ds.Spec.Lifecycle.ExpirationTime == nil {
		d, err := duration.ParseTTL(ds.Spec.Lifecycle.TimeToLive)
		if err != nil {
			return r.setFailed(ctx, ds, devserverv1alpha1.ReasonInvalidDuration, err.Error())
		}
		expiry := metav1.NewTime(ds.CreationTimestamp.Add(d))
		ds.Spec.Lifecycle.ExpirationTime = &expiry
		if err := r.Update(ctx, ds); err != nil {
			return reconcileerr.Result(reconcileerr.Classify(err))
		}
		return ctrl.Result{Requeue: true}, nil
	}

	// Step 4: expiration check.
	var requeueAfter time.Duration
	if ds.Spec.Lifecycle.ExpirationTime != nil {
		remaining := time.Until(ds.Spec.Lifecycle.ExpirationTime.Time)
		if remaining <= 0 {
			logger.Info("devserver expired, issuing delete", "devserver", ds.Name)
			metrics.RecordExpiration(ds.Namespace)
			r.Events.PublishDevServer(events.SubjectExpired, ds.Name, ds.Namespace, ds.Spec.Owner, ds.Status.Phase, devserverv1alpha1.ReasonExpired, "expirationTime reached")
			if err := r.Delete(ctx, ds); err != nil {
				return reconcileerr.Result(reconcileerr.Classify(client.IgnoreNotFound(err)))
			}
			return ctrl.Result{}, nil
		}
		requeueAfter = capRequeue(remaining, r.effectiveDefaultRequeue())
	}

	// Step 5: flavor resolution.
	fl, err := flavor.Resolve(ctx, r.Client, ds.Spec.Flavor)
	if err != nil {
		if rerr, ok := err.(*reconcileerr.Error); ok && rerr.Kind == reconcileerr.KindPrecondition {
			metrics.RecordFlavorResolutionFailure(ds.Namespace, ds.Spec.Flavor)
			r.Events.PublishDevServer(events.SubjectFlavorNotFound, ds.Name, ds.Namespace, ds.Spec.Owner, devserverv1alpha1.PhaseFailed, devserverv1alpha1.ReasonFlavorNotFound, rerr.Message)
			return r.setFailedRetryable(ctx, ds, devserverv1alpha1.ReasonFlavorNotFound, rerr.Message, flavorRequeueInterval)
		}
		return reconcileerr.Result(reconcileerr.Classify(err))
	}

	// Immutable-field guard (I6), evaluated before mutating any children.
	r.guardImmutableFields(ctx, ds)

	// Step 6: mode dispatch.
	var dispatchErr error
	switch ds.EffectiveMode() {
	case devserverv1alpha1.ModeDistributed:
		dispatchErr = r.reconcileDistributed(ctx, ds, fl)
	default:
		dispatchErr = r.reconcileStandalone(ctx, ds, fl)
	}
	if dispatchErr != nil {
		if rerr, ok := dispatchErr.(*reconcileerr.Error); ok && rerr.Kind == reconcileerr.KindValidation {
			return r.setFailed(ctx, ds, rerr.Reason, rerr.Message)
		}
		return reconcileerr.Result(reconcileerr.Classify(dispatchErr))
	}

	// Step 7: status projection.
	if err := r.projectStatus(ctx, ds); err != nil {
		return reconcileerr.Result(reconcileerr.Classify(err))
	}

	if err := updateStatusWithRetry(ctx, r.Client, ds, func(live client.Object) {
		live.(*devserverv1alpha1.DevServer).Status = ds.Status
	}); err != nil {
		return reconcileerr.Result(reconcileerr.Classify(err))
	}

	// Step 8: requeue.
	return ctrl.Result{RequeueAfter: requeueAfter}, nil
}

func (r *DevServerReconciler) effectiveDefaultRequeue() time.Duration {
	if r.DefaultRequeue == 0 {
		return 30 * time.Minute
	}
	return r.DefaultRequeue
}

func capRequeue(d, ceiling time.Duration) time.Duration {
	if d > ceiling {
		return ceiling
	}
	if d < 0 {
		return 0
	}
	return d
}

// handleDeletion runs the cleanup-then-remove-finalizer path (§4.2.7). No
// explicit child deletion is required: owner references cascade.
func (r *DevServerReconciler) handleDeletion(ctx context.Context, ds *devserverv1alpha1.DevServer) (ctrl.Result, error) {
	if controllerutil.ContainsFinalizer(ds, devserverv1alpha1.DevServerFinalizer) {
		controllerutil.RemoveFinalizer(ds, devserverv1alpha1.DevServerFinalizer)
		if err := r.Update(ctx, ds); err != nil {
			return reconcileerr.Result(reconcileerr.Classify(err))
		}
	}
	return ctrl.Result{}, nil
}

// setFailed writes phase=Failed permanently (no requeue) for a Validation
// kind error (§7), e.g. a malformed duration.
func (r *DevServerReconciler) setFailed(ctx context.Context, ds *devserverv1alpha1.DevServer, reason, message string) (ctrl.Result, error) {
	ds.Status.Phase = devserverv1alpha1.PhaseFailed
	ds.Status.Ready = false
	meta.SetStatusCondition(&ds.Status.Conditions, newCondition(devserverv1alpha1.ConditionReady, metav1.ConditionFalse, reason, message, ds.Generation))
	if err := updateStatusWithRetry(ctx, r.Client, ds, func(live client.Object) {
		live.(*devserverv1alpha1.DevServer).Status = ds.Status
	}); err != nil {
		return ctrl.Result{}, err
	}
	r.Events.PublishDevServer(events.SubjectFailed, ds.Name, ds.Namespace, ds.Spec.Owner, devserverv1alpha1.PhaseFailed, reason, message)
	return ctrl.Result{}, nil
}

// setFailedRetryable writes phase=Failed with a bounded requeue, for a
// Precondition kind error (§7) such as a missing flavor.
func (r *DevServerReconciler) setFailedRetryable(ctx context.Context, ds *devserverv1alpha1.DevServer, reason, message string, requeue time.Duration) (ctrl.Result, error) {
	ds.Status.Phase = devserverv1alpha1.PhaseFailed
	ds.Status.Ready = false
	meta.SetStatusCondition(&ds.Status.Conditions, newCondition(devserverv1alpha1.ConditionReady, metav1.ConditionFalse, reason, message, ds.Generation))
	if err := updateStatusWithRetry(ctx, r.Client, ds, func(live client.Object) {
		live.(*devserverv1alpha1.DevServer).Status = ds.Status
	}); err != nil {
		return ctrl.Result{}, err
	}
	return ctrl.Result{RequeueAfter: requeue}, nil
}

// guardImmutableFields implements I6: the first reconcile that reaches this
// guard records persistentHomeSize and sharedVolumeClaimName as annotations,
// and later changes to either are violations. Violations are recorded as a
// Degraded condition; children keep being built from the recorded values,
// so the underlying claims are left untouched and reconciliation continues.
func (r *DevServerReconciler) guardImmutableFields(ctx context.Context, ds *devserverv1alpha1.DevServer) {
	homeSize := ds.EffectivePersistentHomeSize()
	sharedClaim := ds.Spec.SharedVolumeClaimName

	observedSize, hasSize := ds.Annotations[annotationHomeSize]
	observedClaim := ds.Annotations[annotationSharedClaim]

	if !hasSize {
		if ds.Annotations == nil {
			ds.Annotations = map[string]string{}
		}
		ds.Annotations[annotationHomeSize] = homeSize
		ds.Annotations[annotationSharedClaim] = sharedClaim
		_ = r.Update(ctx, ds)
		return
	}

	violated := false
	if observedSize != homeSize {
		violated = true
	}
	if observedClaim != sharedClaim {
		violated = true
	}
	if violated {
		meta.SetStatusCondition(&ds.Status.Conditions, newCondition(
			devserverv1alpha1.ConditionDegraded, metav1.ConditionTrue, devserverv1alpha1.ReasonImmutableField,
			"persistentHomeSize/sharedVolumeClaimName are immutable after first reconcile; the change was not applied", ds.Generation,
		))
		r.Events.PublishDevServer(events.SubjectDegraded, ds.Name, ds.Namespace, ds.Spec.Owner, ds.Status.Phase, devserverv1alpha1.ReasonImmutableField, "persistentHomeSize/sharedVolumeClaimName are immutable after first reconcile")
		// In-memory only: the builders below see the recorded values.
		ds.Spec.PersistentHomeSize = observedSize
		ds.Spec.SharedVolumeClaimName = observedClaim
	}
}

// reconcileStandalone ensures the single-pod standalone workload
// (spec.md §4.2 step 6, §4.3.1-§4.3.4).
func (r *DevServerReconciler) reconcileStandalone(ctx context.Context, ds *devserverv1alpha1.DevServer, fl *devserverv1alpha1.DevServerFlavor) error {
	if err := r.ensureHomeClaim(ctx, ds); err != nil {
		return err
	}
	if ds.Spec.EnableSSH {
		if err := r.ensureHostKeySecret(ctx, ds); err != nil {
			return err
		}
	}

	desired := buildStandaloneDeployment(ds, fl)
	live := &appsv1.Deployment{ObjectMeta: metav1.ObjectMeta{Name: desired.Name, Namespace: desired.Namespace}}
	op, err := createOrPatch(ctx, r.Client, live, func() error {
		live.Labels = desired.Labels
		live.Spec.Replicas = desired.Spec.Replicas
		live.Spec.Selector = desired.Spec.Selector
		live.Spec.Template = desired.Spec.Template
		return controllerutil.SetControllerReference(ds, live, r.Scheme)
	})
	if err != nil {
		return err
	}
	r.publishChildOp(ds, op, "Deployment", desired.Name)

	if ds.Spec.EnableSSH {
		if err := r.ensureSSHService(ctx, ds); err != nil {
			return err
		}
	}
	return nil
}

// reconcileDistributed ensures the ordered peer topology of distributed
// mode (spec.md §4.2 step 6, §4.3.2-§4.3.3).
func (r *DevServerReconciler) reconcileDistributed(ctx context.Context, ds *devserverv1alpha1.DevServer, fl *devserverv1alpha1.DevServerFlavor) error {
	if ds.Spec.Distributed == nil {
		return reconcileerr.Validation("InvalidDistributedSpec", "mode is distributed but spec.distributed is unset")
	}

	if err := r.ensurePeerService(ctx, ds); err != nil {
		return err
	}
	if ds.Spec.EnableSSH {
		if err := r.ensureHostKeySecret(ctx, ds); err != nil {
			return err
		}
	}

	desired := buildDistributedStatefulSet(ds, fl)
	live := &appsv1.StatefulSet{ObjectMeta: metav1.ObjectMeta{Name: desired.Name, Namespace: desired.Namespace}}
	op, err := createOrPatch(ctx, r.Client, live, func() error {
		live.Labels = desired.Labels
		live.Spec.ServiceName = desired.Spec.ServiceName
		live.Spec.Replicas = desired.Spec.Replicas
		live.Spec.Selector = desired.Spec.Selector
		live.Spec.Template = desired.Spec.Template
		if live.Spec.VolumeClaimTemplates == nil {
			live.Spec.VolumeClaimTemplates = desired.Spec.VolumeClaimTemplates
		}
		return controllerutil.SetControllerReference(ds, live, r.Scheme)
	})
	if err != nil {
		return err
	}
	r.publishChildOp(ds, op, "StatefulSet", desired.Name)

	if err := r.ensurePeerConfigMap(ctx, ds); err != nil {
		return err
	}
	if ds.Spec.EnableSSH {
		if err := r.ensureSSHService(ctx, ds); err != nil {
			return err
		}
	}
	return nil
}

// ensureHomeClaim creates the home-directory volume claim once; per
// spec.md §4.3.1 its spec is never re-patched after creation.
func (r *DevServerReconciler) ensureHomeClaim(ctx context.Context, ds *devserverv1alpha1.DevServer) error {
	pvc := &corev1.PersistentVolumeClaim{}
	err := r.Get(ctx, client.ObjectKeyFromObject(buildHomeVolumeClaim(ds)), pvc)
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return err
	}
	desired := buildHomeVolumeClaim(ds)
	if err := controllerutil.SetControllerReference(ds, desired, r.Scheme); err != nil {
		return err
	}
	if err := r.Create(ctx, desired); err != nil {
		return client.IgnoreAlreadyExists(err)
	}
	r.Events.PublishChild(events.SubjectChildCreated, ds.Name, ds.Namespace, "PersistentVolumeClaim", desired.Name)
	return nil
}

// ensureHostKeySecret generates and creates the SSH host key secret once;
// per spec.md §4.3.4 regeneration is forbidden, enforced by only acting in
// the not-found branch.
func (r *DevServerReconciler) ensureHostKeySecret(ctx context.Context, ds *devserverv1alpha1.DevServer) error {
	secret := &corev1.Secret{}
	name := hostKeySecretName(ds)
	err := r.Get(ctx, client.ObjectKey{Name: name, Namespace: ds.Namespace}, secret)
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return err
	}
	keys, err := sshkeys.Generate()
	if err != nil {
		return err
	}
	desired := buildHostKeySecret(ds, keys.PrivateKeyPEM, keys.PublicKeyLine)
	if err := controllerutil.SetControllerReference(ds, desired, r.Scheme); err != nil {
		return err
	}
	if err := r.Create(ctx, desired); err != nil {
		return client.IgnoreAlreadyExists(err)
	}
	r.Events.PublishChild(events.SubjectChildCreated, ds.Name, ds.Namespace, "Secret", desired.Name)
	return nil
}

// ensureSSHService create-or-patches the cluster-internal SSH service
// (spec.md §4.3.3), and also recovers it if deleted out-of-band (§8
// scenario 5).
func (r *DevServerReconciler) ensureSSHService(ctx context.Context, ds *devserverv1alpha1.DevServer) error {
	desired := buildSSHService(ds)
	live := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: desired.Name, Namespace: desired.Namespace}}
	op, err := createOrPatch(ctx, r.Client, live, func() error {
		live.Labels = desired.Labels
		live.Spec.Selector = desired.Spec.Selector
		live.Spec.Ports = desired.Spec.Ports
		return controllerutil.SetControllerReference(ds, live, r.Scheme)
	})
	if err != nil {
		return err
	}
	r.publishChildOp(ds, op, "Service", desired.Name)
	return nil
}

func (r *DevServerReconciler) ensurePeerService(ctx context.Context, ds *devserverv1alpha1.DevServer) error {
	desired := buildHeadlessService(ds)
	live := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: desired.Name, Namespace: desired.Namespace}}
	op, err := createOrPatch(ctx, r.Client, live, func() error {
		live.Labels = desired.Labels
		live.Spec.ClusterIP = desired.Spec.ClusterIP
		live.Spec.Selector = desired.Spec.Selector
		live.Spec.Ports = desired.Spec.Ports
		return controllerutil.SetControllerReference(ds, live, r.Scheme)
	})
	if err != nil {
		return err
	}
	r.publishChildOp(ds, op, "Service", desired.Name)
	return nil
}

func (r *DevServerReconciler) ensurePeerConfigMap(ctx context.Context, ds *devserverv1alpha1.DevServer) error {
	desired := buildPeerConfigMap(ds)
	live := &corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: desired.Name, Namespace: desired.Namespace}}
	op, err := createOrPatch(ctx, r.Client, live, func() error {
		live.Labels = desired.Labels
		live.Data = desired.Data
		return controllerutil.SetControllerReference(ds, live, r.Scheme)
	})
	if err != nil {
		return err
	}
	r.publishChildOp(ds, op, "ConfigMap", desired.Name)
	return nil
}

func (r *DevServerReconciler) publishChildOp(ds *devserverv1alpha1.DevServer, op controllerutil.OperationResult, kind, name string) {
	switch op {
	case controllerutil.OperationResultCreated:
		r.Events.PublishChild(events.SubjectChildCreated, ds.Name, ds.Namespace, kind, name)
	case controllerutil.OperationResultUpdated:
		r.Events.PublishChild(events.SubjectChildPatched, ds.Name, ds.Namespace, kind, name)
	}
}

// projectStatus implements step 7: inspect the owned workload controller
// and derive phase/ready/startTime/sshEndpoint/podNames.
func (r *DevServerReconciler) projectStatus(ctx context.Context, ds *devserverv1alpha1.DevServer) error {
	var desiredReplicas, readyReplicas int32
	var found bool

	switch ds.EffectiveMode() {
	case devserverv1alpha1.ModeDistributed:
		var sts appsv1.StatefulSet
		if err := r.Get(ctx, client.ObjectKey{Name: ds.Name, Namespace: ds.Namespace}, &sts); err == nil {
			found = true
			if sts.Spec.Replicas != nil {
				desiredReplicas = *sts.Spec.Replicas
			}
			readyReplicas = sts.Status.ReadyReplicas
		} else if !apierrors.IsNotFound(err) {
			return err
		}
	default:
		var dep appsv1.Deployment
		if err := r.Get(ctx, client.ObjectKey{Name: ds.Name, Namespace: ds.Namespace}, &dep); err == nil {
			found = true
			if dep.Spec.Replicas != nil {
				desiredReplicas = *dep.Spec.Replicas
			}
			readyReplicas = dep.Status.ReadyReplicas
		} else if !apierrors.IsNotFound(err) {
			return err
		}
	}

	var podList corev1.PodList
	if err := r.List(ctx, &podList, client.InNamespace(ds.Namespace), client.MatchingLabels(selectorLabels(ds))); err != nil {
		return err
	}
	names := make([]string, 0, len(podList.Items))
	for _, p := range podList.Items {
		names = append(names, p.Name)
	}
	ds.Status.PodNames = names

	ready := found && desiredReplicas > 0 && readyReplicas == desiredReplicas
	if ready {
		ds.Status.Phase = devserverv1alpha1.PhaseRunning
		ds.Status.Ready = true
		if ds.Status.StartTime == nil {
			now := metav1.Now()
			ds.Status.StartTime = &now
		}
		if ds.Spec.EnableSSH {
			ds.Status.ServiceName = sshServiceName(ds)
			ds.Status.SSHEndpoint = ds.Status.ServiceName + "." + ds.Namespace + ".svc:22"
		}
		meta.SetStatusCondition(&ds.Status.Conditions, newCondition(devserverv1alpha1.ConditionReady, metav1.ConditionTrue, "Running", "workload ready", ds.Generation))
		r.Events.PublishDevServer(events.SubjectReady, ds.Name, ds.Namespace, ds.Spec.Owner, ds.Status.Phase, "", "devserver ready")
	} else {
		ds.Status.Phase = devserverv1alpha1.PhasePending
		ds.Status.Ready = false
		meta.SetStatusCondition(&ds.Status.Conditions, newCondition(devserverv1alpha1.ConditionReady, metav1.ConditionFalse, "NotReady", "workload not yet ready", ds.Generation))
	}

	if ds.Spec.Lifecycle.AutoShutdown && ds.Spec.Lifecycle.IdleTimeout > 0 {
		// Open question resolved in DESIGN.md: surfaced only as Degraded,
		// never a deletion or scale-to-zero.
		meta.SetStatusCondition(&ds.Status.Conditions, newCondition(
			devserverv1alpha1.ConditionDegraded, metav1.ConditionTrue, devserverv1alpha1.ReasonAutoShutdownAmbiguous,
			"autoShutdown with idleTimeout has no defined transition; no action taken", ds.Generation,
		))
		metrics.RecordAutoShutdownAmbiguous(ds.Namespace)
		r.Events.PublishDevServer(events.SubjectDegraded, ds.Name, ds.Namespace, ds.Spec.Owner, ds.Status.Phase, devserverv1alpha1.ReasonAutoShutdownAmbiguous, "autoShutdown with idleTimeout has no defined transition")
	}

	return nil
}

// SetupWithManager registers the DevServerReconciler with the controller
// manager, watching the owned kinds listed in spec.md §3.4.
func (r *DevServerReconciler) SetupWithManager(mgr ctrl.Manager, workerCount int) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&devserverv1alpha1.DevServer{}).
		Owns(&appsv1.Deployment{}).
		Owns(&appsv1.StatefulSet{}).
		Owns(&corev1.Service{}).
		Owns(&corev1.PersistentVolumeClaim{}).
		Owns(&corev1.ConfigMap{}).
		Owns(&corev1.Secret{}).
		WithOptions(controller.Options{MaxConcurrentReconciles: workerCount}).
		Complete(r)
}
