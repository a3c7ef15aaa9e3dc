// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package tls provisions the self-signed certificate used when the viewer
// page is served over HTTPS without a terminating tunnel in front.
package tls

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
)

const (
	// DefaultCertPath is the default path for the TLS certificate
	DefaultCertPath = "certs/boardcast.crt"
	// DefaultKeyPath is the default path for the TLS key
	DefaultKeyPath = "certs/boardcast.key"
	// DefaultValidity is how long a generated certificate stays valid.
	DefaultValidity = 365 * 24 * time.Hour
)

// Config holds configuration for certificate generation
type Config struct {
	CertPath string
	KeyPath  string
	// Hosts are extra DNS names or IPs to put in the certificate, e.g. the
	// name the room display is reached by.
	Hosts  []string
	Logger zerolog.Logger
}

// EnsureCertificates returns an existing cert/key pair or generates a fresh
// self-signed one. A half-present pair is regenerated.
func EnsureCertificates(cfg Config) (certPath, keyPath string, err error) {
	certPath, keyPath = cfg.CertPath, cfg.KeyPath
	if certPath == "" {
		certPath = DefaultCertPath
	}
	if keyPath == "" {
		keyPath = DefaultKeyPath
	}

	certExists := fileExists(certPath)
	keyExists := fileExists(keyPath)
	if certExists && keyExists {
		cfg.Logger.Debug().Str("cert", certPath).Str("key", keyPath).Msg("TLS certificates found")
		return certPath, keyPath, nil
	}
	if certExists || keyExists {
		cfg.Logger.Warn().
			Bool("cert_exists", certExists).
			Bool("key_exists", keyExists).
			Msg("incomplete TLS certificate pair found, regenerating both")
	}

	ips, dns := splitHosts(cfg.Hosts)
	networkIPs, err := GetNetworkIPs()
	if err != nil {
		cfg.Logger.Warn().Err(err).Msg("failed to detect network IPs, certificate will only cover configured hosts")
	}
	ips = append(ips, networkIPs...)

	if err := GenerateSelfSigned(certPath, keyPath, DefaultValidity, ips, dns); err != nil {
		return "", "", fmt.Errorf("generate self-signed certificate: %w", err)
	}
	cfg.Logger.Info().
		Str("cert", certPath).
		Str("key", keyPath).
		Int("ip_sans", len(ips)).
		Strs("dns_sans", dns).
		Msg("generated self-signed TLS certificate")
	return certPath, keyPath, nil
}

// GenerateSelfSigned writes a new ECDSA P-256 certificate and key. localhost
// and the loopback addresses are always included.
func GenerateSelfSigned(certPath, keyPath string, validity time.Duration, ips []net.IP, dns []string) error {
	for _, p := range []string{certPath, keyPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			return fmt.Errorf("create cert directory: %w", err)
		}
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate private key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("generate serial number: %w", err)
	}

	notBefore := time.Now().Add(-time.Minute)
	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"boardcast self-signed"},
			CommonName:   "boardcast",
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IPAddresses:           uniqueIPs(append([]net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback}, ips...)),
		DNSNames:              uniqueStrings(append([]string{"localhost"}, dns...)),
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	privBytes, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return fmt.Errorf("marshal private key: %w", err)
	}

	var keyPEM bytes.Buffer
	if err := pem.Encode(&keyPEM, &pem.Block{Type: "EC PRIVATE KEY", Bytes: privBytes}); err != nil {
		return fmt.Errorf("encode private key: %w", err)
	}
	if err := renameio.WriteFile(keyPath, keyPEM.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write key: %w", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := renameio.WriteFile(certPath, certPEM, 0o644); err != nil {
		return fmt.Errorf("write certificate: %w", err)
	}
	return nil
}

func splitHosts(hosts []string) (ips []net.IP, dns []string) {
	for _, h := range hosts {
		if h == "" {
			continue
		}
		if ip := net.ParseIP(h); ip != nil {
			ips = append(ips, ip)
			continue
		}
		dns = append(dns, h)
	}
	return ips, dns
}

func uniqueIPs(in []net.IP) []net.IP {
	seen := make(map[string]net.IP, len(in))
	for _, ip := range in {
		if ip != nil {
			seen[ip.String()] = ip
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]net.IP, 0, len(keys))
	for _, k := range keys {
		out = append(out, seen[k])
	}
	return out
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// GetNetworkIPs returns the non-loopback, non-link-local addresses of all up
// interfaces, so LAN viewers can reach the page by IP.
func GetNetworkIPs() ([]net.IP, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("get network interfaces: %w", err)
	}

	var ips []net.IP
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
				continue
			}
			ips = append(ips, ip)
		}
	}
	return ips, nil
}
