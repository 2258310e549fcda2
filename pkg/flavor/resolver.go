// Package flavor resolves a DevServerFlavor name into the concrete
// resource envelope its spec carries. Grounded on session_controller.go's
// getTemplate helper (a simple Get-by-name wrapped to distinguish
// not-found from other errors).
package flavor

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	devserverv1alpha1 "github.com/devserver-io/devserver-engine/api/v1alpha1"
	"github.com/devserver-io/devserver-engine/pkg/reconcileerr"
)

// Resolve reads the named cluster-scoped DevServerFlavor. A not-found
// error is translated into a KindPrecondition reconcileerr with reason
// FlavorNotFound per the reconciler's flavor-resolution step; any other
// client error is returned unclassified for the caller to classify.
func Resolve(ctx context.Context, c client.Client, name string) (*devserverv1alpha1.DevServerFlavor, error) {
	f := &devserverv1alpha1.DevServerFlavor{}
	if err := c.Get(ctx, types.NamespacedName{Name: name}, f); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, reconcileerr.Precondition(
				devserverv1alpha1.ReasonFlavorNotFound,
				fmt.Sprintf("flavor %q not found", name),
			)
		}
		return nil, err
	}
	return f, nil
}
