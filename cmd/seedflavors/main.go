// Package main implements a bootstrap CLI that bulk-applies
// DevServerFlavor manifests to a cluster, one YAML document per flavor
// (documents separated by "---"). It is meant to run once per cluster
// setup or upgrade, ahead of the devserver-engine controller itself,
// the way applicationinstall_controller.go's manifest-to-Template flow
// runs as part of the reconcile loop rather than as an operator tool -
// here the same parse-then-create step is pulled out into a standalone
// command instead, since flavors are cluster-scoped seed data rather
// than user-submitted objects.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	devserverv1alpha1 "github.com/devserver-io/devserver-engine/api/v1alpha1"
	"github.com/devserver-io/devserver-engine/pkg/flavor"
)

var setupLog = ctrl.Log.WithName("seedflavors")

func main() {
	var manifestPath string
	var kubeconfigPath string

	flag.StringVar(&manifestPath, "manifests", "", "path to a YAML file containing one or more DevServerFlavor documents separated by '---'")
	flag.StringVar(&kubeconfigPath, "kubeconfig", os.Getenv("KUBECONFIG"), "path to a kubeconfig file; empty uses in-cluster config")
	opts := zap.Options{Development: true}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	if manifestPath == "" {
		setupLog.Error(fmt.Errorf("missing required flag"), "-manifests is required")
		os.Exit(1)
	}

	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		setupLog.Error(err, "unable to read manifest file", "path", manifestPath)
		os.Exit(1)
	}

	flavors, err := parseAll(string(raw))
	if err != nil {
		setupLog.Error(err, "unable to parse flavor manifests")
		os.Exit(1)
	}

	cfg, err := getConfig(kubeconfigPath)
	if err != nil {
		setupLog.Error(err, "unable to load kubernetes config")
		os.Exit(1)
	}

	scheme := runtime.NewScheme()
	if err := devserverv1alpha1.AddToScheme(scheme); err != nil {
		setupLog.Error(err, "unable to register scheme")
		os.Exit(1)
	}

	c, err := client.New(cfg, client.Options{Scheme: scheme})
	if err != nil {
		setupLog.Error(err, "unable to create client")
		os.Exit(1)
	}

	ctx := ctrl.SetupSignalHandler()
	applied, failed := 0, 0
	for _, f := range flavors {
		if err := applyFlavor(ctx, c, f); err != nil {
			setupLog.Error(err, "failed to apply flavor", "flavor", f.Name)
			failed++
			continue
		}
		setupLog.Info("applied flavor", "flavor", f.Name)
		applied++
	}

	setupLog.Info("seeding complete", "applied", applied, "failed", failed, "total", len(flavors))
	if failed > 0 {
		os.Exit(1)
	}
}

// parseAll splits a multi-document YAML file on "---" separators and
// parses each document with pkg/flavor.ParseManifest, skipping blank
// documents.
func parseAll(manifest string) ([]*devserverv1alpha1.DevServerFlavor, error) {
	var flavors []*devserverv1alpha1.DevServerFlavor
	for i, doc := range strings.Split(manifest, "\n---\n") {
		if strings.TrimSpace(doc) == "" {
			continue
		}
		f, err := flavor.ParseManifest(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		flavors = append(flavors, f)
	}
	return flavors, nil
}

// applyFlavor creates the flavor, or patches its spec in place if it
// already exists, so re-running the seeder is always safe.
func applyFlavor(ctx context.Context, c client.Client, f *devserverv1alpha1.DevServerFlavor) error {
	existing := &devserverv1alpha1.DevServerFlavor{ObjectMeta: f.ObjectMeta}
	_, err := controllerutil.CreateOrPatch(ctx, c, existing, func() error {
		existing.Spec = f.Spec
		return nil
	})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return err
	}
	return nil
}

// getConfig loads a kubeconfig when provided, falling back to
// in-cluster config. Grounded on k8s/client.go's getConfig fallback,
// extended with an explicit -kubeconfig flag instead of only $KUBECONFIG.
func getConfig(kubeconfigPath string) (*rest.Config, error) {
	if kubeconfigPath != "" {
		return clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	}
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("no kubeconfig provided and unable to resolve home directory: %w", err)
	}
	return clientcmd.BuildConfigFromFlags("", filepath.Join(home, ".kube", "config"))
}
