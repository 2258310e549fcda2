package controllers

import (
	"testing"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	devserverv1alpha1 "github.com/devserver-io/devserver-engine/api/v1alpha1"
)

func testFlavor() *devserverv1alpha1.DevServerFlavor {
	return &devserverv1alpha1.DevServerFlavor{
		ObjectMeta: metav1.ObjectMeta{Name: "cpu-small"},
		Spec: devserverv1alpha1.DevServerFlavorSpec{
			Resources: corev1.ResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceCPU: resource.MustParse("500m")},
			},
			NodeSelector: map[string]string{"pool": "cpu"},
		},
	}
}

func TestBuildHomeVolumeClaimIsDeterministic(t *testing.T) {
	ds := &devserverv1alpha1.DevServer{
		ObjectMeta: metav1.ObjectMeta{Name: "env-1", Namespace: "default"},
		Spec:       devserverv1alpha1.DevServerSpec{PersistentHomeSize: "50Gi"},
	}

	a := buildHomeVolumeClaim(ds)
	b := buildHomeVolumeClaim(ds)

	if a.Name != "env-1-home" || a.Namespace != "default" {
		t.Fatalf("unexpected name/namespace: %s/%s", a.Namespace, a.Name)
	}
	if a.Spec.Resources.Requests[corev1.ResourceStorage] != b.Spec.Resources.Requests[corev1.ResourceStorage] {
		t.Fatalf("builder is not deterministic across calls")
	}
	if got := a.Spec.Resources.Requests[corev1.ResourceStorage]; got.String() != "50Gi" {
		t.Fatalf("got storage request %s, want 50Gi", got.String())
	}
}

func TestBuildHomeVolumeClaimDefaultsSize(t *testing.T) {
	ds := &devserverv1alpha1.DevServer{ObjectMeta: metav1.ObjectMeta{Name: "env-2", Namespace: "default"}}
	pvc := buildHomeVolumeClaim(ds)
	if got := pvc.Spec.Resources.Requests[corev1.ResourceStorage]; got.String() != "100Gi" {
		t.Fatalf("got default storage request %s, want 100Gi", got.String())
	}
}

func TestContainerEnvStandaloneHasNoRankVars(t *testing.T) {
	ds := &devserverv1alpha1.DevServer{
		ObjectMeta: metav1.ObjectMeta{Name: "env-3", Namespace: "default"},
		Spec:       devserverv1alpha1.DevServerSpec{Owner: "alice@example.com"},
	}
	env := containerEnv(ds)
	for _, e := range env {
		if e.Name == "RANK" || e.Name == "WORLD_SIZE" || e.Name == "MASTER_ADDR" {
			t.Fatalf("standalone mode must not set %s", e.Name)
		}
	}
	if len(env) != 2 {
		t.Fatalf("expected exactly the two fixed env vars, got %d: %v", len(env), env)
	}
}

func TestContainerEnvDistributedSetsRankAndPeerVars(t *testing.T) {
	ds := &devserverv1alpha1.DevServer{
		ObjectMeta: metav1.ObjectMeta{Name: "env-4", Namespace: "default"},
		Spec: devserverv1alpha1.DevServerSpec{
			Owner: "bob@example.com",
			Mode:  devserverv1alpha1.ModeDistributed,
			Distributed: &devserverv1alpha1.DistributedSpec{
				WorldSize:     4,
				NprocsPerNode: 1,
				Backend:       "nccl",
				NcclSettings:  map[string]string{"NCCL_DEBUG": "INFO"},
			},
		},
	}
	env := containerEnv(ds)

	byName := map[string]corev1.EnvVar{}
	for _, e := range env {
		byName[e.Name] = e
	}

	if _, ok := byName["RANK"]; !ok {
		t.Fatalf("distributed mode must set RANK")
	}
	if byName["RANK"].ValueFrom == nil || byName["RANK"].ValueFrom.FieldRef == nil {
		t.Fatalf("RANK must be sourced from a field ref, got a literal value")
	}
	if got := byName["RANK"].ValueFrom.FieldRef.FieldPath; got != "metadata.labels['apps.kubernetes.io/pod-index']" {
		t.Fatalf("RANK field path = %q, want the pod-index downward API label", got)
	}
	if byName["WORLD_SIZE"].Value != "4" {
		t.Fatalf("WORLD_SIZE = %q, want 4", byName["WORLD_SIZE"].Value)
	}
	if byName["NCCL_DEBUG"].Value != "INFO" {
		t.Fatalf("pass-through NCCL setting missing")
	}
}

func TestBuildDistributedStatefulSetReplicasMatchWorldSize(t *testing.T) {
	ds := &devserverv1alpha1.DevServer{
		ObjectMeta: metav1.ObjectMeta{Name: "env-5", Namespace: "default"},
		Spec: devserverv1alpha1.DevServerSpec{
			Mode: devserverv1alpha1.ModeDistributed,
			Distributed: &devserverv1alpha1.DistributedSpec{
				WorldSize:     5,
				NprocsPerNode: 1,
				Backend:       "gloo",
			},
		},
	}
	sts := buildDistributedStatefulSet(ds, testFlavor())

	if sts.Spec.Replicas == nil || *sts.Spec.Replicas != 5 {
		t.Fatalf("replicas = %v, want 5", sts.Spec.Replicas)
	}
	for _, v := range sts.Spec.Template.Spec.Volumes {
		if v.Name == "home" {
			t.Fatalf("distributed pod template must not carry the standalone PVC-backed home volume")
		}
	}
	if len(sts.Spec.VolumeClaimTemplates) != 1 || sts.Spec.VolumeClaimTemplates[0].Name != "home" {
		t.Fatalf("expected exactly one home volume claim template")
	}
}

func TestBuildStandaloneDeploymentUsesFlavorResources(t *testing.T) {
	ds := &devserverv1alpha1.DevServer{ObjectMeta: metav1.ObjectMeta{Name: "env-6", Namespace: "default"}}
	dep := buildStandaloneDeployment(ds, testFlavor())

	if *dep.Spec.Replicas != 1 {
		t.Fatalf("standalone mode must always be a single replica")
	}
	container := dep.Spec.Template.Spec.Containers[0]
	if got := container.Resources.Requests[corev1.ResourceCPU]; got.String() != "500m" {
		t.Fatalf("container resources not copied from flavor, got %s", got.String())
	}
	if dep.Spec.Template.Spec.NodeSelector["pool"] != "cpu" {
		t.Fatalf("nodeSelector not copied from flavor")
	}
}

func TestSelectorLabelsAreStableAcrossBuilders(t *testing.T) {
	ds := &devserverv1alpha1.DevServer{ObjectMeta: metav1.ObjectMeta{Name: "env-7", Namespace: "default"}}
	dep := buildStandaloneDeployment(ds, testFlavor())
	svc := buildSSHService(ds)

	want := selectorLabels(ds)
	for k, v := range want {
		if dep.Spec.Selector.MatchLabels[k] != v {
			t.Fatalf("deployment selector missing label %s=%s", k, v)
		}
		if svc.Spec.Selector[k] != v {
			t.Fatalf("service selector missing label %s=%s", k, v)
		}
	}
}

func TestBuildHeadlessServiceIsHeadless(t *testing.T) {
	ds := &devserverv1alpha1.DevServer{ObjectMeta: metav1.ObjectMeta{Name: "env-8", Namespace: "default"}}
	svc := buildHeadlessService(ds)
	if svc.Spec.ClusterIP != corev1.ClusterIPNone {
		t.Fatalf("peer discovery service must be headless, got ClusterIP=%q", svc.Spec.ClusterIP)
	}
}
