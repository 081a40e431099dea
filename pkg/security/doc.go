/*
Package security provides transport security for the edge relay.

# TLS Configuration

Serve the relay listener over HTTPS:

	security:
	  tls:
	    enabled: true
	    cert_file: /etc/edgerelay/certs/server.crt
	    key_file: /etc/edgerelay/certs/server.key
	    min_version: "1.3"
	    watch_certificates: true

With watch_certificates set, a tls.CertificateReloader swaps the key pair when
either file changes on disk, so certificate renewals need no restart:

	reloader := tls.NewCertificateReloader(cfg.CertFile, cfg.KeyFile, logger)
	if err := reloader.Start(ctx); err != nil {
		return err
	}
	tlsConfig, err := tls.ServerConfig(cfg, reloader)

Upstream connections use the system trust store; the relay does not
terminate client certificates.
*/
package security
