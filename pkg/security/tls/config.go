package tls

import (
	"crypto/tls"
	"fmt"

	"estimategenie/edgerelay/pkg/config"
)

// ServerConfig converts the relay's TLS settings to a crypto/tls.Config.
// It returns nil when TLS is disabled.
//
// When reloader is non-nil the certificate is served from it, so renewals on
// disk take effect without a restart. Otherwise the key pair is loaded once.
func ServerConfig(cfg config.TLSConfig, reloader *CertificateReloader) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	if cfg.CertFile == "" {
		return nil, fmt.Errorf("cert_file is required when TLS is enabled")
	}
	if cfg.KeyFile == "" {
		return nil, fmt.Errorf("key_file is required when TLS is enabled")
	}

	minVersion, err := parseTLSVersion(cfg.MinVersion)
	if err != nil {
		return nil, err
	}

	// #nosec G402 - MinVersion is validated (TLS 1.0/1.1 rejected)
	tlsConfig := &tls.Config{
		MinVersion: minVersion,
	}

	if reloader != nil {
		if reloader.GetCertificate() == nil {
			if err := reloader.Reload(); err != nil {
				return nil, err
			}
		}
		tlsConfig.GetCertificate = reloader.GetCertificateFunc()
		return tlsConfig, nil
	}

	cert, err := loadCertificate(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	tlsConfig.Certificates = []tls.Certificate{*cert}

	return tlsConfig, nil
}

// parseTLSVersion converts the min_version string to a tls.Version constant.
// TLS 1.0 and 1.1 are not supported.
func parseTLSVersion(v string) (uint16, error) {
	switch v {
	case "1.2", "":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported TLS min_version %q (must be 1.2 or 1.3)", v)
	}
}

// loadCertificate reads and validates a PEM key pair.
func loadCertificate(certFile, keyFile string) (*tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	if err := ValidateCertificate(&cert); err != nil {
		return nil, fmt.Errorf("certificate validation failed: %w", err)
	}

	return &cert, nil
}
