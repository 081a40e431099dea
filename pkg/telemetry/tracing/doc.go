// Package tracing provides OpenTelemetry distributed tracing for the edge
// relay.
//
// # Spans
//
// Tracer.Middleware starts one server span per inbound request after
// extracting the caller's W3C traceparent. Tracer.Transport wraps the
// upstream HTTP transport, starts a client span per forwarded call or health
// probe, and injects traceparent so upstream services join the same trace.
//
// # Configuration
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    sampler: ratio        # always, never, ratio
//	    sample_ratio: 0.1
//	    endpoint: localhost:4317
//	    insecure: true
//	    timeout: 10s
//	    service_name: edgerelay
//
// Spans are exported with the OTLP gRPC exporter. When tracing is disabled a
// noop tracer is used, and incoming trace headers are still carried to the
// upstreams because the propagator runs either way.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	client := relay.NewHTTPClient(tracer.Transport(nil))
//	handler := tracer.Middleware(rl)
package tracing
