package controllers

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	devserverv1alpha1 "github.com/devserver-io/devserver-engine/api/v1alpha1"
)

var _ = Describe("DevServerUser Controller", func() {
	const (
		timeout  = time.Second * 10
		interval = time.Millisecond * 250
	)

	Context("When creating a new DevServerUser", func() {
		It("Should provision a namespace, service account and RBAC", func() {
			ctx := context.Background()

			user := &devserverv1alpha1.DevServerUser{
				ObjectMeta: metav1.ObjectMeta{Name: "alice"},
				Spec:       devserverv1alpha1.DevServerUserSpec{Username: "alice"},
			}
			Expect(k8sClient.Create(ctx, user)).To(Succeed())

			ns := &corev1.Namespace{}
			Eventually(func() error {
				return k8sClient.Get(ctx, types.NamespacedName{Name: "dev-alice"}, ns)
			}, timeout, interval).Should(Succeed())

			sa := &corev1.ServiceAccount{}
			Eventually(func() error {
				return k8sClient.Get(ctx, types.NamespacedName{Name: "alice-sa", Namespace: "dev-alice"}, sa)
			}, timeout, interval).Should(Succeed())

			role := &rbacv1.Role{}
			Eventually(func() error {
				return k8sClient.Get(ctx, types.NamespacedName{Name: devserverv1alpha1.RoleName, Namespace: "dev-alice"}, role)
			}, timeout, interval).Should(Succeed())
			Expect(role.Rules).NotTo(BeEmpty())

			rb := &rbacv1.RoleBinding{}
			Eventually(func() error {
				return k8sClient.Get(ctx, types.NamespacedName{Name: devserverv1alpha1.RoleName, Namespace: "dev-alice"}, rb)
			}, timeout, interval).Should(Succeed())
			Expect(rb.Subjects).To(ContainElement(rbacv1.Subject{
				Kind: "ServiceAccount", Name: "alice-sa", Namespace: "dev-alice",
			}))

			quota := &corev1.ResourceQuota{}
			Eventually(func() error {
				return k8sClient.Get(ctx, types.NamespacedName{Name: "devserver-quota", Namespace: "dev-alice"}, quota)
			}, timeout, interval).Should(Succeed())

			fetched := &devserverv1alpha1.DevServerUser{}
			Eventually(func() string {
				_ = k8sClient.Get(ctx, types.NamespacedName{Name: "alice"}, fetched)
				return fetched.Status.Namespace
			}, timeout, interval).Should(Equal("dev-alice"))
		})
	})

	Context("When a quota override is set", func() {
		It("Should apply the override instead of the default quota", func() {
			ctx := context.Background()

			user := &devserverv1alpha1.DevServerUser{
				ObjectMeta: metav1.ObjectMeta{Name: "bob"},
				Spec: devserverv1alpha1.DevServerUserSpec{
					Username: "bob",
					QuotaOverrides: corev1.ResourceList{
						corev1.ResourceRequestsCPU: resource.MustParse("2"),
					},
				},
			}
			Expect(k8sClient.Create(ctx, user)).To(Succeed())

			quota := &corev1.ResourceQuota{}
			Eventually(func() error {
				return k8sClient.Get(ctx, types.NamespacedName{Name: "devserver-quota", Namespace: "dev-bob"}, quota)
			}, timeout, interval).Should(Succeed())
			Expect(quota.Spec.Hard[corev1.ResourceRequestsCPU]).To(Equal(resource.MustParse("2")))
		})
	})
})
