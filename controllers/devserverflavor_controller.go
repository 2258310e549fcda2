package controllers

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	devserverv1alpha1 "github.com/devserver-io/devserver-engine/api/v1alpha1"
	"github.com/devserver-io/devserver-engine/pkg/events"
	"github.com/devserver-io/devserver-engine/pkg/metrics"
)

// DevServerFlavorReconciler validates DevServerFlavor objects and reports
// their readiness. It never creates children (spec.md §4.5): a flavor is a
// read-only template as far as the engine is concerned.
type DevServerFlavorReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	// Events publishes flavor validation outcomes to NATS. A nil Events
	// is safe: Publisher's methods no-op on a nil receiver.
	Events *events.Publisher
}

// Reconcile validates a DevServerFlavor and publishes its Available
// condition. Grounded on template_controller.go's validate-then-status
// shape.
func (r *DevServerFlavorReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	var flavor devserverv1alpha1.DevServerFlavor
	if err := r.Get(ctx, req.NamespacedName, &flavor); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	reason, message, ok := validateFlavor(&flavor)

	status := metav1ConditionStatus(ok)
	meta.SetStatusCondition(&flavor.Status.Conditions, newCondition(
		devserverv1alpha1.ConditionAvailable, status, reason, message, flavor.Generation,
	))

	if err := updateStatusWithRetry(ctx, r.Client, &flavor, func(live client.Object) {
		live.(*devserverv1alpha1.DevServerFlavor).Status = flavor.Status
	}); err != nil {
		return ctrl.Result{}, err
	}

	result := "valid"
	if !ok {
		result = "invalid"
		logger.Info("flavor failed validation", "flavor", flavor.Name, "reason", reason, "message", message)
	}
	metrics.RecordFlavorValidation(result)
	_ = r.Events.PublishFlavor(flavor.Name, ok, message)

	return ctrl.Result{}, nil
}

// validateFlavor checks the three structural rules of spec.md §4.5:
// requests <= limits for every resource key declared in both, tolerations
// are syntactically valid, and nodeSelector keys are non-empty.
func validateFlavor(flavor *devserverv1alpha1.DevServerFlavor) (reason, message string, ok bool) {
	requests := flavor.Spec.Resources.Requests
	limits := flavor.Spec.Resources.Limits
	for key, reqQty := range requests {
		limQty, hasLimit := limits[key]
		if !hasLimit {
			continue
		}
		if reqQty.Cmp(limQty) > 0 {
			return "RequestsExceedLimits", fmt.Sprintf("requests[%s]=%s exceeds limits[%s]=%s", key, reqQty.String(), key, limQty.String()), false
		}
	}

	for k := range flavor.Spec.NodeSelector {
		if k == "" {
			return "InvalidNodeSelector", "nodeSelector contains an empty key", false
		}
	}

	for _, t := range flavor.Spec.Tolerations {
		if !validTolerationOperator(t.Operator) {
			return "InvalidToleration", fmt.Sprintf("toleration %q has unsupported operator %q", t.Key, t.Operator), false
		}
		if t.Operator == corev1.TolerationOpExists && t.Value != "" {
			return "InvalidToleration", fmt.Sprintf("toleration %q uses operator Exists with a non-empty value", t.Key), false
		}
	}

	return "Validated", "flavor passed validation", true
}

func validTolerationOperator(op corev1.TolerationOperator) bool {
	return op == "" || op == corev1.TolerationOpEqual || op == corev1.TolerationOpExists
}

// SetupWithManager registers the DevServerFlavorReconciler with the
// controller manager.
func (r *DevServerFlavorReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&devserverv1alpha1.DevServerFlavor{}).
		Named("devserverflavor").
		Complete(r)
}
