package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const defaultCheckTimeout = 2 * time.Second

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

// Probes serves /healthz and /readyz. Once Drain is called /readyz reports
// not ready so load balancers stop routing before the server shuts down.
type Probes struct {
	checks   []ReadyCheck
	timeout  time.Duration
	draining atomic.Bool
}

type readyReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func NewProbes(checks ...ReadyCheck) *Probes {
	return &Probes{checks: checks, timeout: defaultCheckTimeout}
}

// NewBaseMuxWithReady returns a mux with the probes already mounted.
func NewBaseMuxWithReady(checks ...ReadyCheck) (*http.ServeMux, *Probes) {
	p := NewProbes(checks...)
	mux := http.NewServeMux()
	p.Register(mux)
	return mux, p
}

func (p *Probes) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeReport(w, http.StatusOK, readyReport{Status: "ok"})
	})
	mux.HandleFunc("GET /readyz", p.serveReady)
}

func (p *Probes) Drain() {
	p.draining.Store(true)
}

func (p *Probes) serveReady(w http.ResponseWriter, r *http.Request) {
	if p.draining.Load() {
		writeReport(w, http.StatusServiceUnavailable, readyReport{Status: "draining"})
		return
	}

	results := make(map[string]string, len(p.checks))
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		failed bool
	)
	for _, c := range p.checks {
		if c.Check == nil {
			continue
		}
		name := c.Name
		if name == "" {
			name = "dependency"
		}
		wg.Add(1)
		go func(name string, check func(context.Context) error) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
			defer cancel()
			status := "ok"
			if err := check(ctx); err != nil {
				status = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			results[name] = status
			if status != "ok" {
				failed = true
			}
		}(name, c.Check)
	}
	wg.Wait()

	if failed {
		writeReport(w, http.StatusServiceUnavailable, readyReport{Status: "not_ready", Checks: results})
		return
	}
	writeReport(w, http.StatusOK, readyReport{Status: "ready", Checks: results})
}

func writeReport(w http.ResponseWriter, code int, rep readyReport) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(rep)
}
