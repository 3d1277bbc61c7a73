package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"history-mind-companion/internal/config"

	"golang.org/x/net/proxy"
)

// applyProxy routes transport through the configured proxy. HTTP proxies go
// through the transport's own CONNECT handling; SOCKS5 replaces the dialer.
func applyProxy(transport *http.Transport, proxyConfig *config.ProxyConfig) error {
	switch proxyConfig.Type {
	case "http":
		proxyURL := &url.URL{Scheme: "http", Host: proxyConfig.Address}
		if proxyConfig.Username != "" && proxyConfig.Password != "" {
			proxyURL.User = url.UserPassword(proxyConfig.Username, proxyConfig.Password)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		return nil
	case "socks5":
		dialer, err := newSOCKS5Dialer(proxyConfig)
		if err != nil {
			return err
		}
		transport.Proxy = nil
		transport.DialContext = dialer.DialContext
		return nil
	default:
		return fmt.Errorf("unsupported proxy type: %s", proxyConfig.Type)
	}
}

type contextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

func newSOCKS5Dialer(proxyConfig *config.ProxyConfig) (contextDialer, error) {
	var auth *proxy.Auth
	if proxyConfig.Username != "" && proxyConfig.Password != "" {
		auth = &proxy.Auth{
			User:     proxyConfig.Username,
			Password: proxyConfig.Password,
		}
	}

	forward := &net.Dialer{
		Timeout:   config.Default.ProxyDialer.Timeout,
		KeepAlive: config.Default.ProxyDialer.KeepAlive,
	}
	dialer, err := proxy.SOCKS5("tcp", proxyConfig.Address, auth, forward)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 proxy: %v", err)
	}

	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd, nil
	}
	return &blockingDialer{dialer: dialer}, nil
}

// blockingDialer adds context cancellation to a dialer that lacks it
type blockingDialer struct {
	dialer proxy.Dialer
}

func (b *blockingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}

	resultCh := make(chan result, 1)
	go func() {
		conn, err := b.dialer.Dial(network, address)
		resultCh <- result{conn: conn, err: err}
	}()

	select {
	case res := <-resultCh:
		return res.conn, res.err
	case <-ctx.Done():
		go func() {
			if res := <-resultCh; res.conn != nil {
				res.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}
