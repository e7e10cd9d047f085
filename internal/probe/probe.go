// Package probe checks the local capabilities a kindling deployment relies on.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okontny/kindling/internal/config"
	"github.com/okontny/kindling/internal/store"
)

// Check is the outcome of probing one capability.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"` // ok, missing, error
	Detail string `json:"detail,omitempty"`
}

// Prober inspects the environment described by a configuration without
// needing the daemon to be up.
type Prober struct {
	cfg        *config.Config
	httpClient *http.Client
}

// New creates a new prober.
func New(cfg *config.Config) *Prober {
	return &Prober{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Run performs all checks. It never fails as a whole; each capability
// reports its own status.
func (p *Prober) Run(ctx context.Context) []Check {
	checks := []Check{}
	checks = append(checks, p.checkModel(ctx))
	checks = append(checks, p.checkStores(ctx))
	checks = append(checks, p.checkNotion())
	checks = append(checks, p.checkSlack())
	return checks
}

// checkModel asks the Ollama endpoint for its installed models.
func (p *Prober) checkModel(ctx context.Context) Check {
	check := Check{Name: "model endpoint"}

	url := strings.TrimRight(p.cfg.Model.BaseURL, "/") + "/api/tags"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		check.Status = "error"
		check.Detail = err.Error()
		return check
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		check.Status = "error"
		check.Detail = fmt.Sprintf("%s unreachable: %v", p.cfg.Model.BaseURL, err)
		return check
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		check.Status = "error"
		check.Detail = fmt.Sprintf("%s answered %s", p.cfg.Model.BaseURL, resp.Status)
		return check
	}

	check.Status = "ok"
	check.Detail = fmt.Sprintf("%s reachable, configured model %s", p.cfg.Model.BaseURL, p.cfg.Model.Name)
	return check
}

// checkStores opens and pings the configured backend, then closes it again.
func (p *Prober) checkStores(ctx context.Context) Check {
	check := Check{Name: "stores"}

	stores, err := store.Open(ctx, store.Options{
		Driver:      p.cfg.Store.Driver,
		DataDir:     p.cfg.DataDirPath(),
		PostgresDSN: p.cfg.Store.PostgresDSN,
	})
	if err != nil {
		check.Status = "error"
		check.Detail = err.Error()
		return check
	}
	defer stores.Close()

	if err := stores.Ping(ctx); err != nil {
		check.Status = "error"
		check.Detail = err.Error()
		return check
	}

	driver := p.cfg.Store.Driver
	if driver == "" {
		driver = "sqlite"
	}
	check.Status = "ok"
	check.Detail = driver
	return check
}

func (p *Prober) checkNotion() Check {
	check := Check{Name: "notion credentials"}
	if p.cfg.Notion.APIKey == "" || p.cfg.Notion.DatabaseID == "" {
		check.Status = "missing"
		check.Detail = "api_key or database_id not set; approvals cannot publish"
		return check
	}
	check.Status = "ok"
	return check
}

func (p *Prober) checkSlack() Check {
	check := Check{Name: "slack credentials"}
	if p.cfg.Slack.Token == "" || p.cfg.Slack.Channel == "" {
		check.Status = "missing"
		check.Detail = "token or channel not set; notifications disabled"
		return check
	}
	check.Status = "ok"
	return check
}
