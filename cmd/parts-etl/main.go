// Command parts-etl runs the hardware listing pipeline: raw listings in
// (vendor CSV exports or saved product-list HTML), structured spec records
// out (sqlite, postgres, mssql or plain JSON files).
//
// Usage:
//
//	parts-etl -config configs/pipelines/sample.json
//
// Validate a config without running anything:
//
//	parts-etl -config configs/pipelines/sample.json -validate
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"partsetl/internal/metrics"
	"partsetl/internal/metrics/datadog"
	"partsetl/internal/pipeline"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "partsetl/internal/storage/all"
)

func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/pipelines/sample.json", "pipeline config JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (datadog, none)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	f, err := os.Open(cfgPath)
	if err != nil {
		fatalf("open config: %v", err)
	}
	cfg, err := pipeline.LoadConfig(f)
	f.Close()
	if err != nil {
		fatalf("%v", err)
	}

	issues := pipeline.Validate(cfg)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == pipeline.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	// Decide metrics backend: flag → env → default.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "datadog":
		jobName := cfg.Job
		if jobName == "" {
			jobName = "parts-etl"
		}
		extraTags := datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))

		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: jobName,
			Tags:    extraTags,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			log.Printf("metrics: backend=%v job_name=%v tags=%v", backendName, jobName, extraTags)
			metrics.SetBackend(b)

			// Close stops the periodic flush loop and performs the final
			// Flush; this is the clean shutdown path for the backend.
			defer func() {
				if err := b.Close(); err != nil {
					log.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}

	case "", "none":
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	runner := pipeline.NewDefaultRunner()
	runner.Logger = log.New(os.Stderr, "", log.LstdFlags)

	start := time.Now()
	if err := runner.Run(context.Background(), cfg); err != nil {
		log.Fatalf("%v", err)
	}
	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
