package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/travigo/gbfs/pkg/util"
)

const defaultTraccarURL = "http://localhost:8082"

type TraccarConfig struct {
	URL      string
	Email    string
	Password string
}

func TraccarConfigFromEnvironment() TraccarConfig {
	return TraccarConfig{
		URL:      strings.TrimSuffix(util.GetEnvironmentString("GBFS_TRACCAR_URL", defaultTraccarURL), "/"),
		Email:    util.GetEnvironmentString("GBFS_TRACCAR_EMAIL", ""),
		Password: util.GetEnvironmentString("GBFS_TRACCAR_PASSWORD", ""),
	}
}

// TraccarSource streams messages from the Traccar websocket into a PayloadHandler
type TraccarSource struct {
	config     TraccarConfig
	handler    PayloadHandler
	httpClient *http.Client
	dialer     *websocket.Dialer
	newBackOff func() backoff.BackOff
}

type TraccarOption func(*TraccarSource)

func WithTraccarHTTPClient(httpClient *http.Client) TraccarOption {
	return func(s *TraccarSource) {
		s.httpClient = httpClient
	}
}

func WithReconnectBackOff(newBackOff func() backoff.BackOff) TraccarOption {
	return func(s *TraccarSource) {
		s.newBackOff = newBackOff
	}
}

func NewTraccarSource(config TraccarConfig, handler PayloadHandler, opts ...TraccarOption) *TraccarSource {
	source := &TraccarSource{
		config:     config,
		handler:    handler,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		dialer:     websocket.DefaultDialer,
		newBackOff: func() backoff.BackOff {
			exponential := backoff.NewExponentialBackOff()
			exponential.MaxElapsedTime = 0
			exponential.MaxInterval = time.Minute

			return exponential
		},
	}

	for _, opt := range opts {
		opt(source)
	}

	return source
}

// Run keeps a websocket session open until ctx is cancelled, reconnecting after any failure
func (s *TraccarSource) Run(ctx context.Context) error {
	reconnect := backoff.WithContext(s.newBackOff(), ctx)

	return backoff.RetryNotify(func() error {
		connected, err := s.stream(ctx)
		if connected {
			reconnect.Reset()
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err == nil {
			err = errors.New("traccar socket closed")
		}

		return err
	}, reconnect, func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("retry", wait.String()).Msg("Traccar websocket disconnected")
	})
}

func (s *TraccarSource) stream(ctx context.Context) (bool, error) {
	cookies, err := s.login(ctx)
	if err != nil {
		return false, err
	}

	socketURL, err := s.socketURL()
	if err != nil {
		return false, err
	}

	header := http.Header{}
	for _, cookie := range cookies {
		header.Add("Cookie", cookie.String())
	}

	connection, _, err := s.dialer.DialContext(ctx, socketURL, header)
	if err != nil {
		return false, fmt.Errorf("dial traccar socket: %w", err)
	}
	defer connection.Close()

	log.Info().Str("url", socketURL).Msg("Connected to Traccar websocket")

	stop := context.AfterFunc(ctx, func() {
		connection.Close()
	})
	defer stop()

	for {
		_, message, err := connection.ReadMessage()
		if err != nil {
			return true, err
		}

		if err := s.handler.UpdateJSON(message); err != nil {
			log.Error().Err(err).Msg("Failed to ingest Traccar message")
		}
	}
}

func (s *TraccarSource) login(ctx context.Context) ([]*http.Cookie, error) {
	form := url.Values{}
	form.Set("email", s.config.Email)
	form.Set("password", s.config.Password)

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL+"/api/session", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := s.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("traccar session: %w", err)
	}
	defer response.Body.Close()
	io.Copy(io.Discard, response.Body)

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("traccar session: unexpected HTTP status %s", response.Status)
	}

	return response.Cookies(), nil
}

func (s *TraccarSource) socketURL() (string, error) {
	parsed, err := url.Parse(s.config.URL)
	if err != nil {
		return "", err
	}

	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/api/socket"

	return parsed.String(), nil
}
