package httpclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"history-mind-companion/internal/config"
)

func TestCreateChatClient(t *testing.T) {
	factory := NewFactory()

	client, err := factory.CreateChatClient(config.BackendConfig{}, config.TimeoutConfig{
		ResponseHeader: "5s",
		OverallRequest: "2m",
	})
	if err != nil {
		t.Fatalf("CreateChatClient() error = %v", err)
	}

	if client.Timeout != 2*time.Minute {
		t.Errorf("client.Timeout = %v, want 2m", client.Timeout)
	}
	transport := client.Transport.(*http.Transport)
	if transport.ResponseHeaderTimeout != 5*time.Second {
		t.Errorf("ResponseHeaderTimeout = %v, want 5s", transport.ResponseHeaderTimeout)
	}
	if transport.TLSHandshakeTimeout != 10*time.Second {
		t.Errorf("TLSHandshakeTimeout = %v, want default 10s", transport.TLSHandshakeTimeout)
	}
	if transport.MaxIdleConnsPerHost != config.Default.HTTPClient.MaxIdlePerHost {
		t.Errorf("MaxIdleConnsPerHost = %d", transport.MaxIdleConnsPerHost)
	}
}

func TestCreateChatClientStreamingHasNoOverallTimeout(t *testing.T) {
	client, err := NewFactory().CreateChatClient(config.BackendConfig{}, config.TimeoutConfig{})
	if err != nil {
		t.Fatalf("CreateChatClient() error = %v", err)
	}
	if client.Timeout != 0 {
		t.Errorf("client.Timeout = %v, want 0", client.Timeout)
	}
}

func TestCreateChatClientInvalidTimeout(t *testing.T) {
	_, err := NewFactory().CreateChatClient(config.BackendConfig{}, config.TimeoutConfig{IdleConnection: "soon"})
	if err == nil {
		t.Fatal("expected an error for an invalid duration")
	}
}

func TestProxyConfiguration(t *testing.T) {
	tests := []struct {
		name      string
		proxy     *config.ProxyConfig
		wantErr   bool
		wantProxy string
	}{
		{
			name:      "http proxy with credentials",
			proxy:     &config.ProxyConfig{Type: "http", Address: "127.0.0.1:3128", Username: "u", Password: "p"},
			wantProxy: "http://u:p@127.0.0.1:3128",
		},
		{
			name:  "socks5 proxy",
			proxy: &config.ProxyConfig{Type: "socks5", Address: "127.0.0.1:1080"},
		},
		{
			name:    "unknown proxy type",
			proxy:   &config.ProxyConfig{Type: "ftp", Address: "127.0.0.1:21"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewFactory().CreateChatClient(config.BackendConfig{Proxy: tt.proxy}, config.TimeoutConfig{})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateChatClient() error = %v", err)
			}

			transport := client.Transport.(*http.Transport)
			if tt.wantProxy == "" {
				if transport.DialContext == nil {
					t.Error("expected a SOCKS5 dialer")
				}
				return
			}

			req, _ := http.NewRequest(http.MethodPost, "http://backend.local/api/v1/chat/ask", nil)
			proxyURL, err := transport.Proxy(req)
			if err != nil {
				t.Fatalf("Proxy() error = %v", err)
			}
			if proxyURL.String() != tt.wantProxy {
				t.Errorf("Proxy() = %s, want %s", proxyURL, tt.wantProxy)
			}
		})
	}
}

func TestChatClientRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	defer server.Close()

	client, err := NewFactory().CreateChatClient(config.BackendConfig{}, config.TimeoutConfig{})
	if err != nil {
		t.Fatalf("CreateChatClient() error = %v", err)
	}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
}
