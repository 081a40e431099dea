// Package tls configures TLS for the relay listener.
//
// ServerConfig turns security.tls into a crypto/tls.Config with TLS 1.2 or
// newer. With watch_certificates set, a CertificateReloader serves the
// certificate and swaps it when the files change on disk:
//
//	reloader := tls.NewCertificateReloader(cfg.CertFile, cfg.KeyFile, logger)
//	if err := reloader.Start(ctx); err != nil {
//		return err
//	}
//	tlsConfig, err := tls.ServerConfig(cfg, reloader)
package tls
