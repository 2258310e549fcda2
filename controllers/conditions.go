package controllers

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// newCondition builds a metav1.Condition with the fields every reconciler
// in this package sets. Grounded on session_controller.go's setCondition
// helper, kept nearly verbatim and shared across all three reconcilers
// instead of being redefined per controller.
func newCondition(condType string, status metav1.ConditionStatus, reason, message string, observedGeneration int64) metav1.Condition {
	return metav1.Condition{
		Type:               condType,
		Status:             status,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: observedGeneration,
		LastTransitionTime: metav1.Now(),
	}
}

// metav1ConditionStatus maps a boolean validation/readiness outcome onto
// metav1.ConditionTrue/False.
func metav1ConditionStatus(ok bool) metav1.ConditionStatus {
	if ok {
		return metav1.ConditionTrue
	}
	return metav1.ConditionFalse
}
