// Package main is the entry point for the devserver-engine controller.
//
// This controller manages the lifecycle of the devserver-engine custom
// resources:
//   - DevServer: a single developer environment, standalone or distributed
//   - DevServerFlavor: the resource envelope a DevServer resolves against
//   - DevServerUser: a human identity's dedicated namespace and RBAC
//
// It uses the Kubebuilder/controller-runtime framework and implements
// reconciliation loops to ensure the actual cluster state matches the
// desired state defined in these CRDs.
//
// Key responsibilities:
//   - DevServer lifecycle management (finalizer, TTL, expiration, mode dispatch)
//   - Flavor validation
//   - Per-user namespace and RBAC provisioning
//   - Prometheus metrics export for monitoring
//   - NATS event publication for platform-agnostic observers
//
// Deployment:
//   The controller is designed to run as a Kubernetes Deployment with:
//   - Leader election for high availability
//   - Health and readiness probes
//   - Prometheus metrics endpoint on :8080
//   - Health probes on :8081
//
// Example usage:
//
//	# Run controller with leader election enabled
//	./devserver-engine --leader-election=true
//
//	# Run with a higher worker count
//	./devserver-engine --worker-count=8
//
//	# Enable debug logging
//	./devserver-engine --zap-log-level=debug
package main

import (
	"flag"
	"os"
	"time"

	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	_ "k8s.io/client-go/plugin/pkg/client/auth"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	devserverv1alpha1 "github.com/devserver-io/devserver-engine/api/v1alpha1"
	"github.com/devserver-io/devserver-engine/controllers"
	"github.com/devserver-io/devserver-engine/pkg/events"
	_ "github.com/devserver-io/devserver-engine/pkg/metrics" // registers the custom metrics
)

var (
	// scheme defines the runtime scheme used by the controller. It
	// includes standard Kubernetes types and devserver-engine custom
	// resources.
	scheme = runtime.NewScheme()

	// setupLog is the logger used during controller initialization.
	setupLog = ctrl.Log.WithName("setup")
)

// init registers all required schemes with the controller's runtime
// scheme. This must happen before the manager is created.
func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(devserverv1alpha1.AddToScheme(scheme))
}

// main is the entry point for the devserver-engine controller.
//
// It performs the following initialization steps:
//  1. Parse command-line flags for configuration
//  2. Initialize structured logging with zap
//  3. Create controller manager with leader election
//  4. Register reconcilers for the three custom resources
//  5. Setup health and readiness probes
//  6. Start the manager and wait for shutdown signal
//
// The controller will exit with code 1 if any initialization step fails.
func main() {
	var metricsAddr string
	var probeAddr string
	var enableLeaderElection bool
	var workerCount int
	var reconcileDeadline time.Duration
	var resyncPeriod time.Duration
	var defaultRequeue time.Duration
	var watchNamespace string
	var natsURL string
	var natsUser string
	var natsPassword string

	// Parse command-line flags, matching the configuration surface of
	// spec.md §6.4.
	flag.StringVar(&metricsAddr, "metrics-bind-address", ":8080", "The address the metric endpoint binds to.")
	flag.StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	flag.BoolVar(&enableLeaderElection, "leader-election", true,
		"Enable leader election for controller manager. "+
			"Enabling this will ensure there is only one active controller manager.")
	flag.IntVar(&workerCount, "worker-count", 4, "Number of concurrent DevServer reconciles; the flavor and user controllers use controller-runtime's default.")
	flag.DurationVar(&reconcileDeadline, "reconcile-deadline", 2*time.Minute, "Deadline applied to a single Reconcile call.")
	flag.DurationVar(&resyncPeriod, "resync-period", 10*time.Minute, "Periodic full resync interval to catch missed events.")
	flag.DurationVar(&defaultRequeue, "default-requeue", 30*time.Minute, "Ceiling applied to the expiration-driven requeue interval.")
	flag.StringVar(&watchNamespace, "watch-namespace", getEnv("WATCH_NAMESPACE", ""), "Namespace to watch for DevServer objects; empty means cluster-wide.")
	flag.StringVar(&natsURL, "nats-url", getEnv("NATS_URL", "nats://localhost:4222"), "NATS server URL")
	flag.StringVar(&natsUser, "nats-user", getEnv("NATS_USER", ""), "NATS username")
	flag.StringVar(&natsPassword, "nats-password", getEnv("NATS_PASSWORD", ""), "NATS password")

	// Setup logging options (can be configured via flags like --zap-log-level=debug)
	opts := zap.Options{
		Development: true,
	}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	// Initialize structured logger
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	managerOpts := ctrl.Options{
		Scheme: scheme,

		// Health probe endpoint for Kubernetes liveness/readiness checks
		HealthProbeBindAddress: probeAddr,
		Metrics:                metricsserver.Options{BindAddress: metricsAddr},

		// Leader election ensures only one controller instance is active,
		// critical for preventing race conditions in multi-replica
		// deployments.
		LeaderElection:   enableLeaderElection,
		LeaderElectionID: "devserver.devservers.io",

		Cache: cache.Options{SyncPeriod: &resyncPeriod},
	}
	if watchNamespace != "" {
		managerOpts.Cache.DefaultNamespaces = map[string]cache.Config{watchNamespace: {}}
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), managerOpts)
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		os.Exit(1)
	}

	// Initialize the NATS event publisher. A failed connection does not
	// abort startup: reconcilers publish through a nil-safe Publisher
	// and the controller keeps reconciling directly off the API server,
	// matching the teacher's "continuing without NATS" degradation.
	setupLog.Info("connecting to NATS", "url", natsURL)
	publisher, err := events.NewPublisher(events.Config{
		URL:      natsURL,
		User:     natsUser,
		Password: natsPassword,
	})
	if err != nil {
		setupLog.Error(err, "unable to connect to NATS")
		setupLog.Info("continuing without NATS - lifecycle events will not be published")
		publisher = nil
	} else {
		defer publisher.Close()
	}

	// Register DevServerReconciler: the main reconciler managing a
	// single developer environment's lifecycle.
	if err = (&controllers.DevServerReconciler{
		Client:            mgr.GetClient(),
		Scheme:            mgr.GetScheme(),
		Events:            publisher,
		DefaultRequeue:    defaultRequeue,
		ReconcileDeadline: reconcileDeadline,
	}).SetupWithManager(mgr, workerCount); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "DevServer")
		os.Exit(1)
	}

	// Register DevServerFlavorReconciler: validates resource envelopes
	// DevServers resolve against.
	if err = (&controllers.DevServerFlavorReconciler{
		Client: mgr.GetClient(),
		Scheme: mgr.GetScheme(),
		Events: publisher,
	}).SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "DevServerFlavor")
		os.Exit(1)
	}

	// Register DevServerUserReconciler: provisions the namespace and
	// RBAC objects a human identity needs to own DevServers.
	if err = (&controllers.DevServerUserReconciler{
		Client: mgr.GetClient(),
		Scheme: mgr.GetScheme(),
		Events: publisher,
	}).SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "DevServerUser")
		os.Exit(1)
	}

	// Setup health check endpoint.
	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		os.Exit(1)
	}

	// Setup readiness check endpoint.
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		os.Exit(1)
	}

	// Start the manager and begin reconciliation loops.
	// SetupSignalHandler() ensures graceful shutdown on SIGTERM/SIGINT.
	setupLog.Info("starting manager", "workerCount", workerCount, "watchNamespace", watchNamespace)
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "problem running manager")
		os.Exit(1)
	}
}

// getEnv gets an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
