// Edgerelay is a stateless HTTP edge relay. It answers CORS preflights,
// reports the health of its upstream origins, and forwards /api requests to
// the backend or the orchestrator with the /api prefix stripped.
//
// Usage:
//
//	# Start the relay with the built-in topology
//	edgerelay run
//
//	# Start with a configuration file and a dotenv file
//	edgerelay run --config /etc/edgerelay/config.yaml --env-file /etc/edgerelay/.env
//
//	# Check configuration and print the route table
//	edgerelay validate -c config.yaml
//
//	# Probe every upstream once (exit status 1 when degraded)
//	edgerelay probe
//
//	# Show where a path is forwarded
//	edgerelay routes --path /api/v1/quotes?id=7
package main

func main() {
	Execute()
}
