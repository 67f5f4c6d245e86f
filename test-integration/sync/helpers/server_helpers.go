package helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/onsi/gomega"

	v1 "github.com/stacklok/gitsorted/internal/api/v1"
	"github.com/stacklok/gitsorted/internal/app"
	"github.com/stacklok/gitsorted/internal/config"
)

// ServerTestHelper manages a gitsorted process in-memory
type ServerTestHelper struct {
	ctx        context.Context
	configPath string
	baseURL    string
	address    string
	httpClient *http.Client
	app        *app.SyncApp
	errCh      chan error
}

// Settings are the values substituted into the test configuration
type Settings struct {
	GitHubURL       string
	WebhookURL      string
	StoreURL        string
	InternalAuthors []string
	TickInterval    time.Duration
	PageSize        int
}

// WriteConfig renders a configuration file into dir
func WriteConfig(dir string, s Settings) (string, error) {
	authors, err := json.Marshal(s.InternalAuthors)
	if err != nil {
		return "", err
	}
	content := fmt.Sprintf(`
repository:
  owner: acme
  name: widgets
source:
  token: ghp_integration
  base_url: %s
  page_size: %d
sync:
  tick_interval: %s
  internal_authors: %s
notify:
  webhook_url: %s
  template: "New issue #{{.Number}} by {{.Author}}"
comment:
  template: "Thanks @{{.Author}}, we will take a look."
store:
  url: %s
  migrate_on_start: true
`, s.GitHubURL, s.PageSize, s.TickInterval, authors, s.WebhookURL, s.StoreURL)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return "", err
	}
	return path, nil
}

// NewServerTestHelper creates a helper listening on a free local port
func NewServerTestHelper(ctx context.Context, configPath string) (*ServerTestHelper, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	address := listener.Addr().String()
	if err := listener.Close(); err != nil {
		return nil, err
	}

	return &ServerTestHelper{
		ctx:        ctx,
		configPath: configPath,
		address:    address,
		baseURL:    "http://" + address,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		errCh:      make(chan error, 1),
	}, nil
}

// StartServer loads the configuration and starts the scheduler and the HTTP server
func (s *ServerTestHelper) StartServer() error {
	cfg, err := config.LoadConfig(config.WithConfigPath(s.configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	syncApp, err := app.NewSyncApp(s.ctx, app.WithConfig(cfg), app.WithAddress(s.address))
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}
	s.app = syncApp

	go func() {
		s.errCh <- syncApp.Start()
	}()
	return nil
}

// StopServer stops the app and waits for Start to return
func (s *ServerTestHelper) StopServer() error {
	if s.app == nil {
		return nil
	}
	if err := s.app.Stop(5 * time.Second); err != nil {
		return err
	}
	select {
	case err := <-s.errCh:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("server did not stop")
	}
}

// WaitForServerReady waits until /readiness answers 200
func (s *ServerTestHelper) WaitForServerReady(timeout time.Duration) {
	gomega.Eventually(func() int {
		resp, err := s.httpClient.Get(s.baseURL + "/readiness")
		if err != nil {
			return 0
		}
		defer resp.Body.Close()
		return resp.StatusCode
	}, timeout, 100*time.Millisecond).Should(gomega.Equal(http.StatusOK))
}

// ListIssues fetches /api/v1/issues
func (s *ServerTestHelper) ListIssues() (v1.ListIssuesResponse, error) {
	var out v1.ListIssuesResponse
	resp, err := s.httpClient.Get(s.baseURL + "/api/v1/issues")
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	err = json.NewDecoder(resp.Body).Decode(&out)
	return out, err
}

// IssueNumbers returns the stored issue numbers in display order
func (s *ServerTestHelper) IssueNumbers() []int {
	list, err := s.ListIssues()
	if err != nil {
		return nil
	}
	numbers := make([]int, 0, len(list.Issues))
	for _, is := range list.Issues {
		numbers = append(numbers, is.Number)
	}
	return numbers
}
