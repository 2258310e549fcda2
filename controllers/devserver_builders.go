package controllers

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/util/intstr"

	devserverv1alpha1 "github.com/devserver-io/devserver-engine/api/v1alpha1"
)

// Owned object names, stable and user-visible per spec.md §6.2.
func homeClaimName(ds *devserverv1alpha1.DevServer) string  { return ds.Name + "-home" }
func sshServiceName(ds *devserverv1alpha1.DevServer) string { return ds.Name + "-ssh" }
func peersServiceName(ds *devserverv1alpha1.DevServer) string {
	return ds.Name + "-peers"
}
func hostKeySecretName(ds *devserverv1alpha1.DevServer) string { return ds.Name + "-hostkeys" }
func peerConfigMapName(ds *devserverv1alpha1.DevServer) string { return ds.Name + "-config" }

// selectorLabels is the stable selector every owned workload-facing object
// matches against, per spec.md §4.3.2 ("{app=devserver, devserver=<name>}").
func selectorLabels(ds *devserverv1alpha1.DevServer) map[string]string {
	return map[string]string{
		"app":       "devserver",
		"devserver": ds.Name,
	}
}

// buildHomeVolumeClaim returns the desired home-directory volume claim.
// Per spec.md §4.3.1, once created its spec is never re-patched; callers
// must only reconcile metadata through createOrPatch's mutate function,
// never Spec.Resources.
func buildHomeVolumeClaim(ds *devserverv1alpha1.DevServer) *corev1.PersistentVolumeClaim {
	return &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      homeClaimName(ds),
			Namespace: ds.Namespace,
			Labels:    selectorLabels(ds),
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: resource.MustParse(ds.EffectivePersistentHomeSize()),
				},
			},
		},
	}
}

// containerEnv assembles the fixed and mode-specific environment variables
// for the workload container (spec.md §4.3.2).
func containerEnv(ds *devserverv1alpha1.DevServer) []corev1.EnvVar {
	env := []corev1.EnvVar{
		{Name: "DEVSERVER_OWNER", Value: ds.Spec.Owner},
		{Name: "DEVSERVER_MODE", Value: ds.EffectiveMode()},
	}

	if ds.EffectiveMode() != devserverv1alpha1.ModeDistributed || ds.Spec.Distributed == nil {
		return env
	}

	masterAddr := fmt.Sprintf("%s-0.%s.%s.svc.cluster.local", ds.Name, peersServiceName(ds), ds.Namespace)
	env = append(env,
		corev1.EnvVar{
			Name: "RANK",
			ValueFrom: &corev1.EnvVarSource{
				FieldRef: &corev1.ObjectFieldSelector{
					FieldPath: "metadata.labels['apps.kubernetes.io/pod-index']",
				},
			},
		},
		corev1.EnvVar{Name: "WORLD_SIZE", Value: fmt.Sprintf("%d", ds.Spec.Distributed.WorldSize)},
		corev1.EnvVar{Name: "MASTER_ADDR", Value: masterAddr},
		corev1.EnvVar{Name: "MASTER_PORT", Value: "29500"},
	)

	// NCCL settings pass through verbatim; empty map contributes nothing,
	// satisfying the §8 boundary behavior.
	for k, v := range ds.Spec.Distributed.NcclSettings {
		env = append(env, corev1.EnvVar{Name: k, Value: v})
	}
	return env
}

// buildPodTemplate constructs the shared pod template used by both the
// standalone Deployment and the distributed StatefulSet. Resource
// requests/limits, node selector and tolerations are copied verbatim from
// the resolved flavor per spec.md §4.3.2.
func buildPodTemplate(ds *devserverv1alpha1.DevServer, flavor *devserverv1alpha1.DevServerFlavor) corev1.PodTemplateSpec {
	volumes := []corev1.Volume{
		{
			Name: "home",
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
					ClaimName: homeClaimName(ds),
				},
			},
		},
	}
	mounts := []corev1.VolumeMount{
		{Name: "home", MountPath: "/home/dev"},
	}

	if ds.Spec.SharedVolumeClaimName != "" {
		volumes = append(volumes, corev1.Volume{
			Name: "shared",
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
					ClaimName: ds.Spec.SharedVolumeClaimName,
				},
			},
		})
		mounts = append(mounts, corev1.VolumeMount{Name: "shared", MountPath: "/shared"})
	}

	if ds.Spec.EnableSSH {
		volumes = append(volumes, corev1.Volume{
			Name: "hostkeys",
			VolumeSource: corev1.VolumeSource{
				Secret: &corev1.SecretVolumeSource{SecretName: hostKeySecretName(ds)},
			},
		})
		mounts = append(mounts, corev1.VolumeMount{Name: "hostkeys", MountPath: "/etc/ssh/hostkeys", ReadOnly: true})
	}

	return corev1.PodTemplateSpec{
		ObjectMeta: metav1.ObjectMeta{Labels: selectorLabels(ds)},
		Spec: corev1.PodSpec{
			NodeSelector: flavor.Spec.NodeSelector,
			Tolerations:  flavor.Spec.Tolerations,
			Containers: []corev1.Container{
				{
					Name:      "devserver",
					Image:     ds.EffectiveImage(),
					Command:   []string{"sleep", "infinity"},
					Env:       containerEnv(ds),
					Resources: flavor.Spec.Resources,
					VolumeMounts: mounts,
				},
			},
			Volumes: volumes,
		},
	}
}

// buildStandaloneDeployment returns the desired single-replica Deployment
// for standalone mode.
func buildStandaloneDeployment(ds *devserverv1alpha1.DevServer, flavor *devserverv1alpha1.DevServerFlavor) *appsv1.Deployment {
	replicas := int32(1)
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ds.Name,
			Namespace: ds.Namespace,
			Labels:    selectorLabels(ds),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: selectorLabels(ds)},
			Template: buildPodTemplate(ds, flavor),
		},
	}
}

// buildDistributedStatefulSet returns the desired ordered StatefulSet for
// distributed mode, replicas = worldSize, one home volume claim per
// replica via the claim template (spec.md §4.3.2).
func buildDistributedStatefulSet(ds *devserverv1alpha1.DevServer, flavor *devserverv1alpha1.DevServerFlavor) *appsv1.StatefulSet {
	replicas := int32(ds.Spec.Distributed.WorldSize)
	template := buildPodTemplate(ds, flavor)

	// The per-replica home claim is provisioned through volumeClaimTemplates
	// instead of the single buildHomeVolumeClaim PVC; drop the standalone
	// PVC-backed volume entry for "home" so the StatefulSet's generated
	// "home-<name>-<ordinal>" claim is mounted instead.
	var volumes []corev1.Volume
	for _, v := range template.Spec.Volumes {
		if v.Name != "home" {
			volumes = append(volumes, v)
		}
	}
	template.Spec.Volumes = volumes

	return &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ds.Name,
			Namespace: ds.Namespace,
			Labels:    selectorLabels(ds),
		},
		Spec: appsv1.StatefulSetSpec{
			ServiceName: peersServiceName(ds),
			Replicas:    &replicas,
			Selector:    &metav1.LabelSelector{MatchLabels: selectorLabels(ds)},
			Template:    template,
			VolumeClaimTemplates: []corev1.PersistentVolumeClaim{
				{
					ObjectMeta: metav1.ObjectMeta{Name: "home"},
					Spec: corev1.PersistentVolumeClaimSpec{
						AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
						Resources: corev1.VolumeResourceRequirements{
							Requests: corev1.ResourceList{
								corev1.ResourceStorage: resource.MustParse(ds.EffectivePersistentHomeSize()),
							},
						},
					},
				},
			},
		},
	}
}

// buildSSHService returns the desired cluster-internal SSH service
// (spec.md §4.3.3).
func buildSSHService(ds *devserverv1alpha1.DevServer) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      sshServiceName(ds),
			Namespace: ds.Namespace,
			Labels:    selectorLabels(ds),
		},
		Spec: corev1.ServiceSpec{
			Selector: selectorLabels(ds),
			Ports: []corev1.ServicePort{
				{Name: "ssh", Port: 22, TargetPort: intstr.FromInt(22), Protocol: corev1.ProtocolTCP},
			},
		},
	}
}

// buildHeadlessService returns the desired headless peer-discovery service
// for distributed mode (spec.md §4.3.3).
func buildHeadlessService(ds *devserverv1alpha1.DevServer) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      peersServiceName(ds),
			Namespace: ds.Namespace,
			Labels:    selectorLabels(ds),
		},
		Spec: corev1.ServiceSpec{
			ClusterIP: corev1.ClusterIPNone,
			Selector:  selectorLabels(ds),
			Ports: []corev1.ServicePort{
				{Name: "ssh", Port: 22, TargetPort: intstr.FromInt(22), Protocol: corev1.ProtocolTCP},
			},
		},
	}
}

// buildHostKeySecret returns the desired host-key secret populated with a
// freshly generated key pair. Callers must only call this the first time a
// DevServer is observed without one; per spec.md §4.3.4 regeneration is
// forbidden once the secret exists, enforced by the reconciler only ever
// calling this inside the not-found branch of ensureHostKeySecret's Get;
// an existing secret is never updated.
func buildHostKeySecret(ds *devserverv1alpha1.DevServer, privateKeyPEM, publicKeyLine []byte) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      hostKeySecretName(ds),
			Namespace: ds.Namespace,
			Labels:    selectorLabels(ds),
		},
		Type: corev1.SecretTypeOpaque,
		Data: map[string][]byte{
			"ssh_host_ed25519_key":     privateKeyPEM,
			"ssh_host_ed25519_key.pub": publicKeyLine,
		},
	}
}

// buildPeerConfigMap returns the desired peer-discovery config map for
// distributed mode (spec.md §4.2 step 6).
func buildPeerConfigMap(ds *devserverv1alpha1.DevServer) *corev1.ConfigMap {
	data := map[string]string{
		"worldSize":  fmt.Sprintf("%d", ds.Spec.Distributed.WorldSize),
		"backend":    ds.Spec.Distributed.Backend,
		"masterAddr": fmt.Sprintf("%s-0.%s.%s.svc.cluster.local", ds.Name, peersServiceName(ds), ds.Namespace),
		"masterPort": "29500",
	}
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      peerConfigMapName(ds),
			Namespace: ds.Namespace,
			Labels:    selectorLabels(ds),
		},
		Data: data,
	}
}
