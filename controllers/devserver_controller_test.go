package controllers

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	devserverv1alpha1 "github.com/devserver-io/devserver-engine/api/v1alpha1"
)

var _ = Describe("DevServer Controller", func() {
	const (
		timeout  = time.Second * 10
		interval = time.Millisecond * 250
	)

	var flavor *devserverv1alpha1.DevServerFlavor

	BeforeEach(func() {
		ctx := context.Background()
		flavor = &devserverv1alpha1.DevServerFlavor{
			ObjectMeta: metav1.ObjectMeta{Name: "cpu-small-" + randomSuffix()},
			Spec: devserverv1alpha1.DevServerFlavorSpec{
				Resources: corev1.ResourceRequirements{
					Requests: corev1.ResourceList{corev1.ResourceCPU: resource.MustParse("500m")},
					Limits:   corev1.ResourceList{corev1.ResourceCPU: resource.MustParse("1")},
				},
			},
		}
		Expect(k8sClient.Create(ctx, flavor)).To(Succeed())
	})

	Context("When creating a standalone DevServer", func() {
		It("Should create a home claim, Deployment and SSH service", func() {
			ctx := context.Background()

			ds := &devserverv1alpha1.DevServer{
				ObjectMeta: metav1.ObjectMeta{Name: "dev-" + randomSuffix(), Namespace: "default"},
				Spec: devserverv1alpha1.DevServerSpec{
					Owner:     "alice@example.com",
					Flavor:    flavor.Name,
					EnableSSH: true,
				},
			}
			Expect(k8sClient.Create(ctx, ds)).To(Succeed())

			dep := &appsv1.Deployment{}
			Eventually(func() error {
				return k8sClient.Get(ctx, types.NamespacedName{Name: ds.Name, Namespace: "default"}, dep)
			}, timeout, interval).Should(Succeed())
			Expect(*dep.Spec.Replicas).To(Equal(int32(1)))
			Expect(dep.Spec.Template.Spec.Containers[0].Image).To(Equal(devserverv1alpha1.DefaultImage))

			pvc := &corev1.PersistentVolumeClaim{}
			Eventually(func() error {
				return k8sClient.Get(ctx, types.NamespacedName{Name: ds.Name + "-home", Namespace: "default"}, pvc)
			}, timeout, interval).Should(Succeed())

			svc := &corev1.Service{}
			Eventually(func() error {
				return k8sClient.Get(ctx, types.NamespacedName{Name: ds.Name + "-ssh", Namespace: "default"}, svc)
			}, timeout, interval).Should(Succeed())

			secret := &corev1.Secret{}
			Eventually(func() error {
				return k8sClient.Get(ctx, types.NamespacedName{Name: ds.Name + "-hostkeys", Namespace: "default"}, secret)
			}, timeout, interval).Should(Succeed())
			Expect(secret.Data).To(HaveKey("ssh_host_ed25519_key"))

			// envtest runs no kube-controller-manager, so the Deployment's
			// ReadyReplicas never advances on its own; patch it the way a
			// real replica-set controller would so projectStatus has
			// something to observe.
			Eventually(func() error {
				if err := k8sClient.Get(ctx, types.NamespacedName{Name: ds.Name, Namespace: "default"}, dep); err != nil {
					return err
				}
				dep.Status.Replicas = 1
				dep.Status.ReadyReplicas = 1
				return k8sClient.Status().Update(ctx, dep)
			}, timeout, interval).Should(Succeed())

			fetched := &devserverv1alpha1.DevServer{}
			Eventually(func() bool {
				_ = k8sClient.Get(ctx, types.NamespacedName{Name: ds.Name, Namespace: "default"}, fetched)
				return fetched.Status.Ready
			}, timeout, interval).Should(BeTrue())
			Expect(fetched.Status.Phase).To(Equal(devserverv1alpha1.PhaseRunning))
		})
	})

	Context("When the referenced flavor does not exist", func() {
		It("Should mark the DevServer Failed with FlavorNotFound and keep retrying", func() {
			ctx := context.Background()

			ds := &devserverv1alpha1.DevServer{
				ObjectMeta: metav1.ObjectMeta{Name: "dev-" + randomSuffix(), Namespace: "default"},
				Spec: devserverv1alpha1.DevServerSpec{
					Owner:  "bob@example.com",
					Flavor: "does-not-exist",
				},
			}
			Expect(k8sClient.Create(ctx, ds)).To(Succeed())

			fetched := &devserverv1alpha1.DevServer{}
			Eventually(func() string {
				_ = k8sClient.Get(ctx, types.NamespacedName{Name: ds.Name, Namespace: "default"}, fetched)
				for _, c := range fetched.Status.Conditions {
					if c.Type == devserverv1alpha1.ConditionReady {
						return c.Reason
					}
				}
				return ""
			}, timeout, interval).Should(Equal(devserverv1alpha1.ReasonFlavorNotFound))
			Expect(fetched.Status.Phase).To(Equal(devserverv1alpha1.PhaseFailed))
		})
	})

	Context("When timeToLive is malformed", func() {
		It("Should mark the DevServer permanently Failed with InvalidDuration", func() {
			ctx := context.Background()

			ds := &devserverv1alpha1.DevServer{
				ObjectMeta: metav1.ObjectMeta{Name: "dev-" + randomSuffix(), Namespace: "default"},
				Spec: devserverv1alpha1.DevServerSpec{
					Owner:     "carol@example.com",
					Flavor:    flavor.Name,
					Lifecycle: devserverv1alpha1.LifecycleSpec{TimeToLive: "not-a-duration"},
				},
			}
			Expect(k8sClient.Create(ctx, ds)).To(Succeed())

			fetched := &devserverv1alpha1.DevServer{}
			Eventually(func() string {
				_ = k8sClient.Get(ctx, types.NamespacedName{Name: ds.Name, Namespace: "default"}, fetched)
				for _, c := range fetched.Status.Conditions {
					if c.Type == devserverv1alpha1.ConditionReady {
						return c.Reason
					}
				}
				return ""
			}, timeout, interval).Should(Equal(devserverv1alpha1.ReasonInvalidDuration))
		})
	})

	Context("When persistentHomeSize changes after the claim already exists", func() {
		It("Should raise a Degraded condition and leave the claim untouched", func() {
			ctx := context.Background()

			ds := &devserverv1alpha1.DevServer{
				ObjectMeta: metav1.ObjectMeta{Name: "dev-" + randomSuffix(), Namespace: "default"},
				Spec: devserverv1alpha1.DevServerSpec{
					Owner:              "dave@example.com",
					Flavor:             flavor.Name,
					PersistentHomeSize: "50Gi",
				},
			}
			Expect(k8sClient.Create(ctx, ds)).To(Succeed())

			pvc := &corev1.PersistentVolumeClaim{}
			Eventually(func() error {
				return k8sClient.Get(ctx, types.NamespacedName{Name: ds.Name + "-home", Namespace: "default"}, pvc)
			}, timeout, interval).Should(Succeed())
			Expect(pvc.Spec.Resources.Requests[corev1.ResourceStorage]).To(Equal(resource.MustParse("50Gi")))

			fetched := &devserverv1alpha1.DevServer{}
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: ds.Name, Namespace: "default"}, fetched)).To(Succeed())
			fetched.Spec.PersistentHomeSize = "200Gi"
			Expect(k8sClient.Update(ctx, fetched)).To(Succeed())

			Eventually(func() metav1.ConditionStatus {
				_ = k8sClient.Get(ctx, types.NamespacedName{Name: ds.Name, Namespace: "default"}, fetched)
				for _, c := range fetched.Status.Conditions {
					if c.Type == devserverv1alpha1.ConditionDegraded {
						return c.Status
					}
				}
				return metav1.ConditionUnknown
			}, timeout, interval).Should(Equal(metav1.ConditionTrue))

			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: ds.Name + "-home", Namespace: "default"}, pvc)).To(Succeed())
			Expect(pvc.Spec.Resources.Requests[corev1.ResourceStorage]).To(Equal(resource.MustParse("50Gi")))
		})
	})

	Context("When a child Service is deleted out-of-band", func() {
		It("Should recreate it on the next reconcile", func() {
			ctx := context.Background()

			ds := &devserverv1alpha1.DevServer{
				ObjectMeta: metav1.ObjectMeta{Name: "dev-" + randomSuffix(), Namespace: "default"},
				Spec: devserverv1alpha1.DevServerSpec{
					Owner:     "erin@example.com",
					Flavor:    flavor.Name,
					EnableSSH: true,
				},
			}
			Expect(k8sClient.Create(ctx, ds)).To(Succeed())

			svc := &corev1.Service{}
			Eventually(func() error {
				return k8sClient.Get(ctx, types.NamespacedName{Name: ds.Name + "-ssh", Namespace: "default"}, svc)
			}, timeout, interval).Should(Succeed())

			Expect(k8sClient.Delete(ctx, svc)).To(Succeed())

			Eventually(func() error {
				return k8sClient.Get(ctx, types.NamespacedName{Name: ds.Name + "-ssh", Namespace: "default"}, &corev1.Service{})
			}, timeout, interval).Should(Succeed())
		})
	})

	Context("When a distributed DevServer is created", func() {
		It("Should create a StatefulSet sized to worldSize and a headless service", func() {
			ctx := context.Background()

			ds := &devserverv1alpha1.DevServer{
				ObjectMeta: metav1.ObjectMeta{Name: "dev-" + randomSuffix(), Namespace: "default"},
				Spec: devserverv1alpha1.DevServerSpec{
					Owner:  "frank@example.com",
					Flavor: flavor.Name,
					Mode:   devserverv1alpha1.ModeDistributed,
					Distributed: &devserverv1alpha1.DistributedSpec{
						WorldSize:     3,
						NprocsPerNode: 1,
						Backend:       "gloo",
					},
				},
			}
			Expect(k8sClient.Create(ctx, ds)).To(Succeed())

			sts := &appsv1.StatefulSet{}
			Eventually(func() error {
				return k8sClient.Get(ctx, types.NamespacedName{Name: ds.Name, Namespace: "default"}, sts)
			}, timeout, interval).Should(Succeed())
			Expect(*sts.Spec.Replicas).To(Equal(int32(3)))
			Expect(sts.Spec.VolumeClaimTemplates).To(HaveLen(1))

			headless := &corev1.Service{}
			Eventually(func() error {
				return k8sClient.Get(ctx, types.NamespacedName{Name: ds.Name + "-peers", Namespace: "default"}, headless)
			}, timeout, interval).Should(Succeed())
			Expect(headless.Spec.ClusterIP).To(Equal(corev1.ClusterIPNone))

			cm := &corev1.ConfigMap{}
			Eventually(func() error {
				return k8sClient.Get(ctx, types.NamespacedName{Name: ds.Name + "-config", Namespace: "default"}, cm)
			}, timeout, interval).Should(Succeed())
			Expect(cm.Data["worldSize"]).To(Equal("3"))
		})
	})
})

// randomSuffix gives each spec its own object names so Contexts in this
// file never collide inside the shared envtest namespace.
func randomSuffix() string {
	return time.Now().Format("150405.000000000")
}
