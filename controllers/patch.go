package controllers

import (
	"context"

	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
)

// createOrPatch implements the builder contract of spec.md §4.3.5: read the
// current object; if absent, create it with mutate applied; if present,
// apply mutate to the live object and patch only if something changed.
// mutate is expected to set just the mutable fields a given owned-child
// builder knows about (labels, pod template, selector, ports) and leave
// immutable fields (volume-claim spec, service clusterIP) untouched, since
// mutate is the only place field assignment happens.
//
// Grounded on the tenant_controller.go discipline of only writing when the
// observed object actually diverges from desired state; realized with
// controllerutil.CreateOrPatch rather than a hand-rolled diff, since that is
// exactly the helper controller-runtime ships for this contract.
func createOrPatch(ctx context.Context, c client.Client, obj client.Object, mutate controllerutil.MutateFn) (controllerutil.OperationResult, error) {
	return controllerutil.CreateOrPatch(ctx, c, obj, mutate)
}

// updateStatusWithRetry implements spec.md §5/§7's bounded retry for a
// stale resource version on a status write: re-fetch the live object and
// re-apply applyStatus rather than failing the reconcile on the first
// conflict. Grounded on hibernation_controller.go's fix for the same race
// (fetch a fresh copy, retry.RetryOnConflict(retry.DefaultRetry, ...)),
// generalized from a single hard-coded field assignment to an arbitrary
// status mutation so all three reconcilers can share it.
func updateStatusWithRetry(ctx context.Context, c client.Client, obj client.Object, applyStatus func(live client.Object)) error {
	return retry.RetryOnConflict(retry.DefaultRetry, func() error {
		live := obj.DeepCopyObject().(client.Object)
		if err := c.Get(ctx, client.ObjectKeyFromObject(obj), live); err != nil {
			return err
		}
		applyStatus(live)
		return c.Status().Update(ctx, live)
	})
}
