// Package client is the OAGW client SDK. It presents one API over two
// deployment modes: SharedProcess (direct in-process calls into the data
// plane) and RemoteProxy (HTTP calls to a gateway's proxy endpoint).
package client

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/striped-zebra-dev/oagw/internal/dataplane"
)

// Client executes proxied requests against an upstream alias. Both modes
// present identical semantics; response bodies are always streaming.
type Client interface {
	Execute(ctx context.Context, alias string, tenantID uuid.UUID, req *Request) (*Response, error)
}

// Mode selects the deployment mode.
type Mode string

const (
	// ModeShared calls the data plane in-process with no serialization.
	ModeShared Mode = "shared"
	// ModeRemote issues HTTP requests to a remote gateway.
	ModeRemote Mode = "remote"
)

// Config selects and parameterizes the client mode.
type Config struct {
	Mode Mode

	// DataPlane backs ModeShared.
	DataPlane *dataplane.Service

	// BaseURL, AuthToken, and Timeout back ModeRemote.
	BaseURL   string
	AuthToken string
	Timeout   time.Duration
}

// New creates a client for the configured mode.
func New(cfg Config) (Client, error) {
	switch cfg.Mode {
	case ModeShared, "":
		if cfg.DataPlane == nil {
			return nil, fmt.Errorf("client: shared mode requires a data plane service")
		}
		return NewSharedProcessClient(cfg.DataPlane), nil
	case ModeRemote:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("client: remote mode requires a base URL")
		}
		return NewRemoteProxyClient(cfg.BaseURL, cfg.AuthToken, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("client: unknown mode %q", cfg.Mode)
	}
}

// FromEnv builds a client from OAGW_MODE, OAGW_BASE_URL, OAGW_AUTH_TOKEN,
// and OAGW_TIMEOUT_SECS. The data plane argument backs shared mode (the
// default) and is ignored for remote mode.
func FromEnv(dp *dataplane.Service) (Client, error) {
	switch os.Getenv("OAGW_MODE") {
	case "remote":
		baseURL := os.Getenv("OAGW_BASE_URL")
		if baseURL == "" {
			baseURL = "http://localhost:8080"
		}
		token := os.Getenv("OAGW_AUTH_TOKEN")
		if token == "" {
			return nil, fmt.Errorf("client: OAGW_AUTH_TOKEN required for remote mode")
		}
		timeout := 30 * time.Second
		if v := os.Getenv("OAGW_TIMEOUT_SECS"); v != "" {
			secs, err := strconv.Atoi(v)
			if err != nil || secs <= 0 {
				return nil, fmt.Errorf("client: invalid OAGW_TIMEOUT_SECS %q", v)
			}
			timeout = time.Duration(secs) * time.Second
		}
		return New(Config{Mode: ModeRemote, BaseURL: baseURL, AuthToken: token, Timeout: timeout})
	default:
		return New(Config{Mode: ModeShared, DataPlane: dp})
	}
}
