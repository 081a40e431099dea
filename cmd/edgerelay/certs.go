package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"estimategenie/edgerelay/pkg/cli"
	"estimategenie/edgerelay/pkg/config"
	tlsconf "estimategenie/edgerelay/pkg/security/tls"
)

var certsCmd = &cobra.Command{
	Use:   "certs",
	Short: "Manage the relay's TLS certificate",
	Long: `Utilities for the certificate served when security.tls.enabled is set.

Subcommands:
  generate - Generate a self-signed certificate for local testing
  check    - Load the configured key pair and report its validity

Examples:
  edgerelay certs generate --host "localhost,127.0.0.1"
  edgerelay certs check --config config.yaml`,
}

var generateFlags struct {
	hosts    string
	org      string
	validity int
	keySize  int
	output   string
}

var certsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate self-signed certificate",
	Long: `Generate a self-signed TLS certificate and private key for testing.

The private key is written with 0600 permissions. Do not use self-signed
certificates in production.

Examples:
  edgerelay certs generate --host localhost
  edgerelay certs generate --host "localhost,127.0.0.1" --validity 30 --output certs/`,
	RunE: generateCertificate,
}

var certsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configured certificate and key",
	Long: `Load security.tls.cert_file and security.tls.key_file from the
configuration, verify that they form a valid pair, and print the certificate
details. Exit code 1 means the certificate expires within 30 days.`,
	RunE: checkCertificate,
}

func init() {
	rootCmd.AddCommand(certsCmd)
	certsCmd.AddCommand(certsGenerateCmd)
	certsCmd.AddCommand(certsCheckCmd)

	certsGenerateCmd.Flags().StringVar(&generateFlags.hosts, "host", "localhost", "comma-separated hostnames and IPs")
	certsGenerateCmd.Flags().StringVar(&generateFlags.org, "org", "edgerelay", "organization name")
	certsGenerateCmd.Flags().IntVar(&generateFlags.validity, "validity", 365, "validity in days")
	certsGenerateCmd.Flags().IntVar(&generateFlags.keySize, "key-size", 2048, "RSA key size (2048, 3072, 4096)")
	certsGenerateCmd.Flags().StringVarP(&generateFlags.output, "output", "o", "certs", "output directory")
}

func generateCertificate(cmd *cobra.Command, args []string) error {
	if generateFlags.keySize != 2048 && generateFlags.keySize != 3072 && generateFlags.keySize != 4096 {
		return cli.NewConfigError("key-size", fmt.Sprintf("invalid key size %d (must be 2048, 3072, or 4096)", generateFlags.keySize))
	}
	if generateFlags.validity <= 0 {
		return cli.NewConfigError("validity", "validity must be positive")
	}

	var (
		hosts       []string
		dnsNames    []string
		ipAddresses []net.IP
	)
	for _, host := range strings.Split(generateFlags.hosts, ",") {
		host = strings.TrimSpace(host)
		if host == "" {
			continue
		}
		hosts = append(hosts, host)
		if ip := net.ParseIP(host); ip != nil {
			ipAddresses = append(ipAddresses, ip)
		} else {
			dnsNames = append(dnsNames, host)
		}
	}
	if len(hosts) == 0 {
		return cli.NewConfigError("host", "at least one host is required")
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, generateFlags.keySize)
	if err != nil {
		return fmt.Errorf("failed to generate private key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("failed to generate serial number: %w", err)
	}

	notBefore := time.Now()
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{generateFlags.org},
			CommonName:   hosts[0],
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.AddDate(0, 0, generateFlags.validity),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              dnsNames,
		IPAddresses:           ipAddresses,
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	if err := os.MkdirAll(generateFlags.output, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	certPath := filepath.Join(generateFlags.output, "cert.pem")
	if err := writePEM(certPath, 0o644, "CERTIFICATE", derBytes); err != nil {
		return err
	}
	keyPath := filepath.Join(generateFlags.output, "key.pem")
	if err := writePEM(keyPath, 0o600, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(privateKey)); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Certificate generated: %s\n", certPath)
	fmt.Fprintf(out, "✓ Private key generated: %s\n", keyPath)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "To serve the relay over HTTPS, add to your config.yaml:")
	fmt.Fprintln(out, "security:")
	fmt.Fprintln(out, "  tls:")
	fmt.Fprintln(out, "    enabled: true")
	fmt.Fprintf(out, "    cert_file: %q\n", certPath)
	fmt.Fprintf(out, "    key_file: %q\n", keyPath)
	return nil
}

func writePEM(path string, perm os.FileMode, blockType string, der []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func checkCertificate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	tlsCfg := cfg.Security.TLS
	if tlsCfg.CertFile == "" || tlsCfg.KeyFile == "" {
		return cli.NewConfigError("security.tls", "cert_file and key_file must be set")
	}
	tlsCfg.Enabled = true

	serverTLS, err := tlsconf.ServerConfig(tlsCfg, nil)
	if err != nil {
		return cli.NewCommandError("certs check", err)
	}
	leaf := serverTLS.Certificates[0].Leaf
	if leaf == nil {
		if leaf, err = x509.ParseCertificate(serverTLS.Certificates[0].Certificate[0]); err != nil {
			return cli.NewCommandError("certs check", err)
		}
	}

	printCertificateInfo(cmd, tlsCfg, tlsconf.ExtractCertificateInfo(leaf))

	days, warning := tlsconf.CheckCertificateExpiration(leaf)
	if warning != "" {
		return cli.NewExitError(1, warning)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Certificate valid for %d more days\n", days)
	return nil
}

func printCertificateInfo(cmd *cobra.Command, cfg config.TLSConfig, info *tlsconf.CertificateInfo) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Certificate: %s\n", cfg.CertFile)
	fmt.Fprintf(out, "  Subject:    %s\n", info.Subject)
	fmt.Fprintf(out, "  Issuer:     %s\n", info.Issuer)
	fmt.Fprintf(out, "  Serial:     %s\n", info.SerialNumber)
	fmt.Fprintf(out, "  Not Before: %s\n", info.NotBefore.Format(time.RFC3339))
	fmt.Fprintf(out, "  Not After:  %s\n", info.NotAfter.Format(time.RFC3339))
	if len(info.DNSNames) > 0 {
		fmt.Fprintf(out, "  DNS Names:  %s\n", strings.Join(info.DNSNames, ", "))
	}
	if len(info.IPAddresses) > 0 {
		fmt.Fprintf(out, "  IPs:        %s\n", strings.Join(info.IPAddresses, ", "))
	}
}
