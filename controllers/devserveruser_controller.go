package controllers

import (
	"context"
	"time"

	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"

	devserverv1alpha1 "github.com/devserver-io/devserver-engine/api/v1alpha1"
	"github.com/devserver-io/devserver-engine/pkg/events"
	"github.com/devserver-io/devserver-engine/pkg/metrics"
)

// defaultQuota is applied when a DevServerUser does not override it.
var defaultQuota = corev1.ResourceList{
	corev1.ResourceRequestsCPU:    resource.MustParse("8"),
	corev1.ResourceRequestsMemory: resource.MustParse("32Gi"),
	corev1.ResourceLimitsCPU:      resource.MustParse("16"),
	corev1.ResourceLimitsMemory:   resource.MustParse("64Gi"),
}

// DevServerUserReconciler drives a DevServerUser toward its desired state:
// a dedicated namespace, service account, role, role-binding and resource
// quota (spec.md §4.4). Grounded on other_examples' tenant_controller.go
// Silver-tier sequence (ensureNamespace → ensureResourceQuota → ensureRBAC).
// Provisioning progress is reported through a Ready condition; the status
// carries no phase field.
type DevServerUserReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	// Events publishes provisioning outcomes to NATS. A nil Events is
	// safe: Publisher's methods no-op on a nil receiver.
	Events *events.Publisher
}

// Reconcile provisions the five owned children of a DevServerUser and
// reports status.namespace plus a Ready condition.
func (r *DevServerUserReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	var user devserverv1alpha1.DevServerUser
	if err := r.Get(ctx, req.NamespacedName, &user); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	if !user.DeletionTimestamp.IsZero() {
		return r.handleDeletion(ctx, &user)
	}

	if !controllerutil.ContainsFinalizer(&user, devserverv1alpha1.DevServerUserFinalizer) {
		controllerutil.AddFinalizer(&user, devserverv1alpha1.DevServerUserFinalizer)
		if err := r.Update(ctx, &user); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{Requeue: true}, nil
	}

	start := time.Now()

	if err := r.ensureNamespace(ctx, &user); err != nil {
		return r.fail(ctx, &user, "NamespaceProvisioningFailed", err)
	}
	if err := r.ensureServiceAccount(ctx, &user); err != nil {
		return r.fail(ctx, &user, "ServiceAccountProvisioningFailed", err)
	}
	if err := r.ensureRole(ctx, &user); err != nil {
		return r.fail(ctx, &user, "RoleProvisioningFailed", err)
	}
	if err := r.ensureRoleBinding(ctx, &user); err != nil {
		return r.fail(ctx, &user, "RoleBindingProvisioningFailed", err)
	}
	if err := r.ensureResourceQuota(ctx, &user); err != nil {
		return r.fail(ctx, &user, "ResourceQuotaProvisioningFailed", err)
	}

	user.Status.Namespace = user.NamespaceName()
	meta.SetStatusCondition(&user.Status.Conditions, newCondition(
		devserverv1alpha1.ConditionReady, metav1.ConditionTrue, "Provisioned", "namespace and RBAC provisioned", user.Generation,
	))
	if err := updateStatusWithRetry(ctx, r.Client, &user, func(live client.Object) {
		live.(*devserverv1alpha1.DevServerUser).Status = user.Status
	}); err != nil {
		return ctrl.Result{}, err
	}

	metrics.ObserveUserProvisioningDuration(user.Spec.Username, time.Since(start).Seconds())
	metrics.RecordUserReconciliation("ready")
	_ = r.Events.PublishUser(events.SubjectUserReady, user.Spec.Username, user.Status.Namespace, "namespace and RBAC provisioned")
	logger.Info("devserveruser provisioned", "username", user.Spec.Username, "namespace", user.Status.Namespace)

	return ctrl.Result{}, nil
}

func (r *DevServerUserReconciler) fail(ctx context.Context, user *devserverv1alpha1.DevServerUser, reason string, cause error) (ctrl.Result, error) {
	meta.SetStatusCondition(&user.Status.Conditions, newCondition(
		devserverv1alpha1.ConditionReady, metav1.ConditionFalse, reason, cause.Error(), user.Generation,
	))
	_ = updateStatusWithRetry(ctx, r.Client, user, func(live client.Object) {
		live.(*devserverv1alpha1.DevServerUser).Status = user.Status
	})
	metrics.RecordUserReconciliation("failed")
	_ = r.Events.PublishUser(events.SubjectUserFailed, user.Spec.Username, user.NamespaceName(), cause.Error())
	return ctrl.Result{RequeueAfter: 30 * time.Second}, nil
}

// handleDeletion runs the finalizer-removal path; cascading deletion of the
// five owned children is left to the owner-reference garbage collector.
func (r *DevServerUserReconciler) handleDeletion(ctx context.Context, user *devserverv1alpha1.DevServerUser) (ctrl.Result, error) {
	if controllerutil.ContainsFinalizer(user, devserverv1alpha1.DevServerUserFinalizer) {
		controllerutil.RemoveFinalizer(user, devserverv1alpha1.DevServerUserFinalizer)
		if err := r.Update(ctx, user); err != nil {
			return ctrl.Result{}, err
		}
	}
	return ctrl.Result{}, nil
}

func (r *DevServerUserReconciler) ensureNamespace(ctx context.Context, user *devserverv1alpha1.DevServerUser) error {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: user.NamespaceName()}}
	err := r.Get(ctx, types.NamespacedName{Name: ns.Name}, ns)
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return err
	}
	ns.Labels = map[string]string{"devserver.io/user": user.Spec.Username}
	if err := controllerutil.SetControllerReference(user, ns, r.Scheme); err != nil {
		return err
	}
	return client.IgnoreAlreadyExists(r.Create(ctx, ns))
}

func (r *DevServerUserReconciler) ensureServiceAccount(ctx context.Context, user *devserverv1alpha1.DevServerUser) error {
	sa := &corev1.ServiceAccount{
		ObjectMeta: metav1.ObjectMeta{Name: user.ServiceAccountName(), Namespace: user.NamespaceName()},
	}
	err := r.Get(ctx, types.NamespacedName{Name: sa.Name, Namespace: sa.Namespace}, sa)
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return err
	}
	if err := controllerutil.SetControllerReference(user, sa, r.Scheme); err != nil {
		return err
	}
	return client.IgnoreAlreadyExists(r.Create(ctx, sa))
}

// ensureRole grants the verbs spec.md §4.4 step 3 requires over DevServer
// objects plus the primitives it owns, scoped to the user's namespace.
func (r *DevServerUserReconciler) ensureRole(ctx context.Context, user *devserverv1alpha1.DevServerUser) error {
	role := &rbacv1.Role{
		ObjectMeta: metav1.ObjectMeta{Name: devserverv1alpha1.RoleName, Namespace: user.NamespaceName()},
	}
	err := r.Get(ctx, types.NamespacedName{Name: role.Name, Namespace: role.Namespace}, role)
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return err
	}
	role.Rules = []rbacv1.PolicyRule{
		{
			APIGroups: []string{devserverv1alpha1.GroupVersion.Group},
			Resources: []string{"devservers"},
			Verbs:     []string{"get", "list", "watch", "create", "update", "patch", "delete"},
		},
		{
			APIGroups: []string{""},
			Resources: []string{"pods", "services", "persistentvolumeclaims", "configmaps", "secrets"},
			Verbs:     []string{"get", "list", "watch", "create", "update", "patch", "delete"},
		},
	}
	if err := controllerutil.SetControllerReference(user, role, r.Scheme); err != nil {
		return err
	}
	return client.IgnoreAlreadyExists(r.Create(ctx, role))
}

func (r *DevServerUserReconciler) ensureRoleBinding(ctx context.Context, user *devserverv1alpha1.DevServerUser) error {
	rb := &rbacv1.RoleBinding{
		ObjectMeta: metav1.ObjectMeta{Name: devserverv1alpha1.RoleName, Namespace: user.NamespaceName()},
	}
	err := r.Get(ctx, types.NamespacedName{Name: rb.Name, Namespace: rb.Namespace}, rb)
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return err
	}
	rb.RoleRef = rbacv1.RoleRef{APIGroup: rbacv1.GroupName, Kind: "Role", Name: devserverv1alpha1.RoleName}
	rb.Subjects = []rbacv1.Subject{
		{Kind: "ServiceAccount", Name: user.ServiceAccountName(), Namespace: user.NamespaceName()},
	}
	if err := controllerutil.SetControllerReference(user, rb, r.Scheme); err != nil {
		return err
	}
	return client.IgnoreAlreadyExists(r.Create(ctx, rb))
}

func (r *DevServerUserReconciler) ensureResourceQuota(ctx context.Context, user *devserverv1alpha1.DevServerUser) error {
	quota := &corev1.ResourceQuota{
		ObjectMeta: metav1.ObjectMeta{Name: "devserver-quota", Namespace: user.NamespaceName()},
	}
	err := r.Get(ctx, types.NamespacedName{Name: quota.Name, Namespace: quota.Namespace}, quota)
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return err
	}
	hard := defaultQuota
	if len(user.Spec.QuotaOverrides) > 0 {
		hard = user.Spec.QuotaOverrides
	}
	quota.Spec.Hard = hard
	if err := controllerutil.SetControllerReference(user, quota, r.Scheme); err != nil {
		return err
	}
	return client.IgnoreAlreadyExists(r.Create(ctx, quota))
}

// SetupWithManager registers the DevServerUserReconciler with the
// controller manager, owning its five provisioned child kinds.
func (r *DevServerUserReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&devserverv1alpha1.DevServerUser{}).
		Owns(&corev1.Namespace{}).
		Owns(&corev1.ServiceAccount{}).
		Owns(&rbacv1.Role{}).
		Owns(&rbacv1.RoleBinding{}).
		Owns(&corev1.ResourceQuota{}).
		Complete(r)
}
