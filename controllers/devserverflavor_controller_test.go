package controllers

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	devserverv1alpha1 "github.com/devserver-io/devserver-engine/api/v1alpha1"
)

var _ = Describe("DevServerFlavor Controller", func() {
	const (
		timeout  = time.Second * 10
		interval = time.Millisecond * 250
	)

	Context("When requests exceed limits", func() {
		It("Should mark the flavor Available=False", func() {
			ctx := context.Background()

			flavor := &devserverv1alpha1.DevServerFlavor{
				ObjectMeta: metav1.ObjectMeta{Name: "oversized"},
				Spec: devserverv1alpha1.DevServerFlavorSpec{
					Resources: corev1.ResourceRequirements{
						Requests: corev1.ResourceList{corev1.ResourceCPU: resource.MustParse("4")},
						Limits:   corev1.ResourceList{corev1.ResourceCPU: resource.MustParse("2")},
					},
				},
			}
			Expect(k8sClient.Create(ctx, flavor)).To(Succeed())

			fetched := &devserverv1alpha1.DevServerFlavor{}
			Eventually(func() metav1.ConditionStatus {
				_ = k8sClient.Get(ctx, types.NamespacedName{Name: "oversized"}, fetched)
				for _, c := range fetched.Status.Conditions {
					if c.Type == devserverv1alpha1.ConditionAvailable {
						return c.Status
					}
				}
				return metav1.ConditionUnknown
			}, timeout, interval).Should(Equal(metav1.ConditionFalse))
		})
	})

	Context("When the flavor is well-formed", func() {
		It("Should mark the flavor Available=True", func() {
			ctx := context.Background()

			flavor := &devserverv1alpha1.DevServerFlavor{
				ObjectMeta: metav1.ObjectMeta{Name: "cpu-small"},
				Spec: devserverv1alpha1.DevServerFlavorSpec{
					Resources: corev1.ResourceRequirements{
						Requests: corev1.ResourceList{corev1.ResourceCPU: resource.MustParse("1")},
						Limits:   corev1.ResourceList{corev1.ResourceCPU: resource.MustParse("2")},
					},
					NodeSelector: map[string]string{"pool": "cpu"},
				},
			}
			Expect(k8sClient.Create(ctx, flavor)).To(Succeed())

			fetched := &devserverv1alpha1.DevServerFlavor{}
			Eventually(func() metav1.ConditionStatus {
				_ = k8sClient.Get(ctx, types.NamespacedName{Name: "cpu-small"}, fetched)
				for _, c := range fetched.Status.Conditions {
					if c.Type == devserverv1alpha1.ConditionAvailable {
						return c.Status
					}
				}
				return metav1.ConditionUnknown
			}, timeout, interval).Should(Equal(metav1.ConditionTrue))
		})
	})

	Context("When a toleration uses Exists with a value", func() {
		It("Should mark the flavor Available=False", func() {
			ctx := context.Background()

			flavor := &devserverv1alpha1.DevServerFlavor{
				ObjectMeta: metav1.ObjectMeta{Name: "bad-toleration"},
				Spec: devserverv1alpha1.DevServerFlavorSpec{
					Tolerations: []corev1.Toleration{
						{Key: "gpu", Operator: corev1.TolerationOpExists, Value: "true"},
					},
				},
			}
			Expect(k8sClient.Create(ctx, flavor)).To(Succeed())

			fetched := &devserverv1alpha1.DevServerFlavor{}
			Eventually(func() string {
				_ = k8sClient.Get(ctx, types.NamespacedName{Name: "bad-toleration"}, fetched)
				for _, c := range fetched.Status.Conditions {
					if c.Type == devserverv1alpha1.ConditionAvailable {
						return c.Reason
					}
				}
				return ""
			}, timeout, interval).Should(Equal("InvalidToleration"))
		})
	})
})
