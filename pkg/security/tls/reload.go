package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDebounce is how long the reloader waits after the last file
// event before reading the key pair.
const DefaultReloadDebounce = 100 * time.Millisecond

// CertificateReloader watches the certificate and key files with fsnotify and
// swaps the served certificate atomically when they change. A failed reload
// keeps the previous certificate.
type CertificateReloader struct {
	certFile string
	keyFile  string
	debounce time.Duration
	logger   *slog.Logger

	cert    atomic.Pointer[tls.Certificate]
	reloads atomic.Int64

	mu    sync.Mutex
	timer *time.Timer
}

// NewCertificateReloader creates a reloader for the given key pair.
func NewCertificateReloader(certFile, keyFile string, logger *slog.Logger) *CertificateReloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &CertificateReloader{
		certFile: filepath.Clean(certFile),
		keyFile:  filepath.Clean(keyFile),
		debounce: DefaultReloadDebounce,
		logger:   logger.With("component", "tls.reloader"),
	}
}

// Start loads the certificate and watches the directories holding the files
// until ctx is cancelled. Directories are watched rather than the files so
// that atomic rename and symlink swaps are seen.
func (r *CertificateReloader) Start(ctx context.Context) error {
	if err := r.Reload(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	for _, dir := range r.watchDirs() {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	r.logger.Info("certificate watcher started",
		"cert_file", r.certFile,
		"key_file", r.keyFile,
	)

	go r.watch(ctx, watcher)
	return nil
}

func (r *CertificateReloader) watchDirs() []string {
	certDir := filepath.Dir(r.certFile)
	keyDir := filepath.Dir(r.keyFile)
	if certDir == keyDir {
		return []string{certDir}
	}
	return []string{certDir, keyDir}
}

func (r *CertificateReloader) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			if r.timer != nil {
				r.timer.Stop()
			}
			r.mu.Unlock()
			r.logger.Info("certificate watcher stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !r.relevant(event) {
				continue
			}
			r.logger.Debug("certificate file event",
				"path", event.Name,
				"op", event.Op.String(),
			)
			r.schedule()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error("certificate watcher error", "error", err)
		}
	}
}

// relevant reports whether an event may have changed the key pair. Kubernetes
// secret mounts update through a "..data" symlink swap.
func (r *CertificateReloader) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(event.Name)
	return name == r.certFile || name == r.keyFile || filepath.Base(name) == "..data"
}

// schedule debounces bursts of events into one reload.
func (r *CertificateReloader) schedule() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, func() {
		if err := r.Reload(); err != nil {
			r.logger.Error("failed to reload certificate",
				"error", err,
				"cert_file", r.certFile,
				"key_file", r.keyFile,
			)
			return
		}
		r.logger.Info("certificate reloaded", "cert_file", r.certFile)
	})
}

// Reload reads the key pair from disk and swaps it in when valid.
func (r *CertificateReloader) Reload() error {
	cert, err := loadCertificate(r.certFile, r.keyFile)
	if err != nil {
		return err
	}

	r.cert.Store(cert)
	r.reloads.Add(1)
	r.logCertificateInfo(cert)
	return nil
}

// Reloads returns how many times a certificate was loaded successfully.
func (r *CertificateReloader) Reloads() int64 {
	return r.reloads.Load()
}

// GetCertificate returns the current certificate, or nil before the first load.
func (r *CertificateReloader) GetCertificate() *tls.Certificate {
	return r.cert.Load()
}

// GetCertificateFunc returns a function compatible with tls.Config.GetCertificate.
func (r *CertificateReloader) GetCertificateFunc() func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		cert := r.GetCertificate()
		if cert == nil {
			return nil, fmt.Errorf("no certificate loaded")
		}
		return cert, nil
	}
}

// logCertificateInfo logs the subject and expiry of a loaded certificate.
func (r *CertificateReloader) logCertificateInfo(cert *tls.Certificate) {
	if len(cert.Certificate) == 0 {
		return
	}

	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return
	}

	info := ExtractCertificateInfo(x509Cert)
	daysUntilExpiry, warning := CheckCertificateExpiration(x509Cert)

	if warning != "" {
		r.logger.Warn("certificate expiring soon",
			"subject", info.Subject,
			"expires_in_days", daysUntilExpiry,
			"expires_at", x509Cert.NotAfter.Format(time.RFC3339),
		)
	} else {
		r.logger.Info("certificate loaded",
			"subject", info.Subject,
			"issuer", info.Issuer,
			"dns_names", info.DNSNames,
			"expires_in_days", daysUntilExpiry,
			"expires_at", x509Cert.NotAfter.Format(time.RFC3339),
		)
	}
}
