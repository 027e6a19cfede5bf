// flowerpress serves the FlowerPress web UI: a pressed-flower gallery
// backed by Firestore and Cloud Storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flowerpress/bgremoval"
	"flowerpress/blobstore"
	"flowerpress/dblayer"
	"flowerpress/feedback"
	"flowerpress/healthz"
	"flowerpress/httpmetrics"
	"flowerpress/webui"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/profiler"
	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/storage"
	"contrib.go.opencensus.io/exporter/stackdriver"
	cloudmetrics "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/metric"
	cloudtrace "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"github.com/golang/glog"
	"github.com/sendgrid/sendgrid-go"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	googleopt "google.golang.org/api/option"
	secretmanagerpb "google.golang.org/genproto/googleapis/cloud/secretmanager/v1"
)

var (
	uiListen    = flag.String("ui-listen", "127.0.0.1:8000", "Server address:port for ui endpoint.")
	debugListen = flag.String("debug-listen", "127.0.0.1:8001", "Server address:port for debug endpoint.")

	dataProject = flag.String("data-project", "", "GCP project that contains the application state.")
	blobBucket  = flag.String("blob-bucket", "", "GCS bucket that stores flower and background images.")

	googleOAuthClientID = flag.String("google-oauth-client-id", "", "OAuth client ID for Sign in with Google.")

	sendgridKeySecret = flag.String("sendgrid-key-secret", "", "GCP Secret Manager secret name that contains the Sendgrid API key.  Empty disables the feedback form.")
	feedbackTo        = flag.String("feedback-to", "", "Address that receives feedback submissions.")
	feedbackFrom      = flag.String("feedback-from", "", "Sender address for feedback emails.")

	bgRemovalHost      = flag.String("bg-removal-host", "api.remove.bg", "Host of the background-removal API.")
	bgRemovalKeySecret = flag.String("bg-removal-key-secret", "", "GCP Secret Manager secret name that contains the background-removal API key.  Empty disables background removal.")

	enableProfiling      = flag.Bool("enable-profiling", false, "Enable Cloud Profiler?")
	monitoring           = flag.Bool("monitoring", false, "Enable monitoring?")
	monitoringProject    = flag.String("monitoring-project", "", "Override project used for monitoring integration.  If not specified, the project associated with Application Default Credentials is used.")
	monitoringTraceRatio = flag.Float64("monitoring-trace-ratio", 0.0001, "What ratio of traces should be exported?")
)

func main() {
	flag.Parse()

	glog.CopyStandardLogTo("INFO")

	glog.Infof("flags:")
	glog.Infof("ui-listen: %q", *uiListen)
	glog.Infof("debug-listen: %q", *debugListen)
	glog.Infof("data-project: %q", *dataProject)
	glog.Infof("blob-bucket: %q", *blobBucket)
	glog.Infof("google-oauth-client-id: %q", *googleOAuthClientID)
	glog.Infof("sendgrid-key-secret: %q", *sendgridKeySecret)
	glog.Infof("feedback-to: %q", *feedbackTo)
	glog.Infof("feedback-from: %q", *feedbackFrom)
	glog.Infof("bg-removal-host: %q", *bgRemovalHost)
	glog.Infof("bg-removal-key-secret: %q", *bgRemovalKeySecret)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := do(ctx); err != nil {
		glog.Exitf("Error: %v", err)
	}
}

func do(ctx context.Context) error {
	if *enableProfiling {
		if err := profiler.Start(profiler.Config{
			Service:        "flowerpress",
			ServiceVersion: "0.0.1",
		}); err != nil {
			return fmt.Errorf("while initializing profiler: %w", err)
		}
	}

	if *monitoring {
		metricsOpts := []cloudmetrics.Option{}
		traceOpts := []cloudtrace.Option{}
		if *monitoringProject != "" {
			metricsOpts = append(metricsOpts, cloudmetrics.WithProjectID(*monitoringProject))
			traceOpts = append(traceOpts, cloudtrace.WithProjectID(*monitoringProject))
		}

		_, traceShutdown, err := cloudtrace.InstallNewPipeline(traceOpts, sdktrace.WithSampler(sdktrace.TraceIDRatioBased(*monitoringTraceRatio)))
		if err != nil {
			return fmt.Errorf("while installing Cloud Trace OpenTelemetry trace pipeline: %w", err)
		}
		defer traceShutdown()

		pusher, err := cloudmetrics.InstallNewPipeline(metricsOpts)
		if err != nil {
			return fmt.Errorf("while installing Cloud Metrics OpenTelemetry meter pipeline: %w", err)
		}
		defer pusher.Stop(ctx)

		viewExporter, err := stackdriver.NewExporter(stackdriver.Options{
			MetricPrefix:      "flowerpress",
			ReportingInterval: 60 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("while initializing Stackdriver view exporter: %w", err)
		}
		viewExporter.StartMetricsExporter()
		defer viewExporter.Flush()
		defer viewExporter.StopMetricsExporter()
	}

	fstore, err := firestore.NewClient(ctx, *dataProject)
	if err != nil {
		return fmt.Errorf("while creating FireStore client: %w", err)
	}

	gcs, err := storage.NewClient(ctx, googleopt.WithGRPCConnectionPool(1))
	if err != nil {
		return fmt.Errorf("while creating GCS client: %w", err)
	}

	var feedbackMailer *feedback.Mailer
	if *sendgridKeySecret != "" {
		sendgridKey, err := accessSecret(ctx, *sendgridKeySecret)
		if err != nil {
			return fmt.Errorf("while fetching Sendgrid API key: %w", err)
		}
		feedbackMailer = feedback.New(sendgrid.NewSendClient(sendgridKey), *feedbackTo, *feedbackFrom)
	}

	var bgRemover *bgremoval.Client
	if *bgRemovalKeySecret != "" {
		bgRemovalKey, err := accessSecret(ctx, *bgRemovalKeySecret)
		if err != nil {
			return fmt.Errorf("while fetching background-removal API key: %w", err)
		}
		bgRemover = bgremoval.New(&http.Client{Timeout: 60 * time.Second}, *bgRemovalHost, bgRemovalKey)
	}

	debugServeMux := http.NewServeMux()
	debugServeMux.Handle("/healthz", healthz.New())
	debugServeMux.Handle("/readyz", healthz.New())
	debugServeMux.HandleFunc("/debug/pprof/", pprof.Index)
	debugServeMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	debugServeMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	debugServeMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	debugServeMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	debugServer := &http.Server{
		Addr:    *debugListen,
		Handler: debugServeMux,

		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	db := dblayer.New(fstore, *googleOAuthClientID)
	blobs := blobstore.New(gcs, *blobBucket)

	ui := webui.New(db, blobs, bgRemover, feedbackMailer, *googleOAuthClientID)
	uiServeMux := http.NewServeMux()
	ui.Register(uiServeMux)

	metricsWrapper := httpmetrics.New(uiServeMux)
	metricsWrapper.RegisterMetrics()

	uiServer := &http.Server{
		Addr:    *uiListen,
		Handler: metricsWrapper,

		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := debugServer.ListenAndServe(); err != nil {
			glog.Fatalf("Debug server died: %v", err)
		}
	}()

	go func() {
		if err := uiServer.ListenAndServe(); err != nil {
			glog.Fatalf("UI server died: %v", err)
		}
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	<-signalCh

	glog.Flush()

	return nil
}

func accessSecret(ctx context.Context, secret string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	secretClient, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("while creating Secret Manager client: %w", err)
	}
	defer secretClient.Close()

	resp, err := secretClient.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", *dataProject, secret),
	})
	if err != nil {
		return "", fmt.Errorf("while pulling secret: %w", err)
	}

	return string(resp.GetPayload().GetData()), nil
}
