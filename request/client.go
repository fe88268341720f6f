package request

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/proxy"
)

// ClientOptions configures the *http.Client built by NewHTTPClient.
type ClientOptions struct {
	Timeout            time.Duration
	ConnectTimeout     time.Duration
	InsecureSkipVerify bool
	// CertPath points to a PEM file. Its certificates are trusted in
	// addition to the system pool; if it also holds a private key the pair
	// is presented as client certificate.
	CertPath      string
	ProxyURL      string
	ProxyUsername string
	ProxyPassword string
}

// NewHTTPClient builds an *http.Client with connection pooling, TLS and
// proxy settings taken from opts. http(s) and socks5 proxies are supported.
func NewHTTPClient(opts ClientOptions) (*http.Client, error) {
	tlsConfig, err := newTLSConfig(opts)
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		TLSClientConfig:       tlsConfig,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		Proxy:                 http.ProxyFromEnvironment,
	}

	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, errors.Wrap(err, "invalid proxy url")
		}
		if opts.ProxyUsername != "" {
			proxyURL.User = url.UserPassword(opts.ProxyUsername, opts.ProxyPassword)
		}

		if strings.HasPrefix(proxyURL.Scheme, "socks5") {
			var auth *proxy.Auth
			if proxyURL.User != nil {
				password, _ := proxyURL.User.Password()
				auth = &proxy.Auth{User: proxyURL.User.Username(), Password: password}
			}
			socks, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, dialer)
			if err != nil {
				return nil, errors.Wrap(err, "create socks5 dialer")
			}
			transport.Proxy = nil
			if cd, ok := socks.(proxy.ContextDialer); ok {
				transport.DialContext = cd.DialContext
			} else {
				transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
					return socks.Dial(network, addr)
				}
			}
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	}, nil
}

func newTLSConfig(opts ClientOptions) (*tls.Config, error) {
	cfg := &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify}
	if opts.CertPath == "" {
		return cfg, nil
	}

	pem, err := os.ReadFile(opts.CertPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read certificate %s", opts.CertPath)
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", opts.CertPath)
	}
	cfg.RootCAs = pool

	if pair, err := tls.X509KeyPair(pem, pem); err == nil {
		cfg.Certificates = []tls.Certificate{pair}
	}
	return cfg, nil
}
