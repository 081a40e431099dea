// Package relay implements the edge relay: a stateless HTTP handler that sits
// between a static frontend and its API origins.
//
// Every inbound request is classified in this order:
//
//  1. OPTIONS on any path is a CORS preflight and is answered locally with
//     204 and the CORS headers. No upstream is contacted.
//  2. A configured health path runs a Prober against every upstream and
//     returns an aggregate HealthReport (200 when all upstreams are healthy,
//     503 otherwise).
//  3. The path is matched against the RouteTable, longest prefix first. The
//     matched route rewrites the path and the Forwarder sends the request to
//     the route's upstream.
//  4. Anything else is a plain-text 404.
//
// The CORS headers from Policy are set on every response, so browser callers
// can read 404 and 502 bodies instead of seeing an opaque CORS failure.
//
// # Forwarding
//
// Forward returns an explicit Result. A response from the upstream, whatever
// its status, is copied back verbatim. A transport failure (DNS, refused
// connection, timeout) is carried as *UpstreamError and written as 502 with a
// JSON body:
//
//	{"error":"Backend proxy error","message":"...","backend":"https://api.example.com"}
//
// There are no retries.
//
// # Usage
//
//	cfg, err := config.LoadConfigWithEnvOverrides(path)
//	if err != nil {
//	    return err
//	}
//	rl, err := relay.New(cfg, relay.NewHTTPClient(nil), relay.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	http.ListenAndServe(cfg.Server.ListenAddress, rl)
package relay
