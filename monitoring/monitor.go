// Package monitoring serves the state of a running scheduler over HTTP and
// lets a remote user release the next tact in step mode.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/tactsched/sim/hooking"
	"github.com/sarchlab/tactsched/sim/scheduler"
)

// Monitor is a hook on the scheduler that keeps the latest tact report and
// serves it. It is safe to use from the simulation goroutine and the HTTP
// goroutines at the same time.
type Monitor struct {
	portNumber int
	logger     *slog.Logger

	lock   sync.Mutex
	latest scheduler.TactReport

	continueCh chan struct{}
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		logger:     slog.Default(),
		continueCh: make(chan struct{}, 1),
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// replaced by a random free port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger for server errors.
func (m *Monitor) WithLogger(logger *slog.Logger) *Monitor {
	m.logger = logger
	return m
}

// Func keeps the report of every finished tact.
func (m *Monitor) Func(ctx hooking.HookCtx) {
	if ctx.Pos != scheduler.HookPosTactEnd {
		return
	}

	m.Publish(ctx.Item.(scheduler.TactReport))
}

// Publish replaces the served report.
func (m *Monitor) Publish(report scheduler.TactReport) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.latest = report
}

// Latest returns the served report.
func (m *Monitor) Latest() scheduler.TactReport {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.latest
}

// WaitForContinue blocks until /api/continue is requested or ctx is done.
func (m *Monitor) WaitForContinue(ctx context.Context) error {
	select {
	case <-m.continueCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now).Methods(http.MethodGet)
	r.HandleFunc("/api/board", m.board).Methods(http.MethodGet)
	r.HandleFunc("/api/progress", m.progress).Methods(http.MethodGet)
	r.HandleFunc("/api/component/{name}", m.component).Methods(http.MethodGet)
	r.HandleFunc("/api/continue", m.continueRun).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)

	return r
}

// StartServer listens on the configured port and serves until ctx is done.
// It returns the URL of the monitor and a function that waits for the server
// to stop.
func (m *Monitor) StartServer(ctx context.Context) (string, func() error, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", m.portNumber))
	if err != nil {
		return "", nil, err
	}

	url := fmt.Sprintf("http://localhost:%d", listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	server := &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	wait := func() error {
		select {
		case err := <-serveErr:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		if serr := <-serveErr; !errors.Is(serr, http.ErrServerClosed) {
			err = errors.Join(err, serr)
		}

		return err
	}

	return url, wait, nil
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	report := m.Latest()

	m.writeJSON(w, map[string]any{
		"tact": report.Tact,
		"done": report.Done,
	})
}

func (m *Monitor) board(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, m.Latest())
}

type progressRsp struct {
	Completed uint64 `json:"completed"`
	Total     uint64 `json:"total"`
	InFlight  int    `json:"in_flight"`
}

func (m *Monitor) progress(w http.ResponseWriter, _ *http.Request) {
	report := m.Latest()

	m.writeJSON(w, progressRsp{
		Completed: report.Completed,
		Total:     report.Submitted,
		InFlight:  report.InFlight(),
	})
}

func (m *Monitor) findComponent(name string, report scheduler.TactReport) (any, bool) {
	switch name {
	case "Backlog":
		return &report.Backlog, true
	case "Stack":
		return &report.Stack, true
	case "Queue":
		return &report.Queue, true
	}

	for i := range report.Processors {
		if report.Processors[i].Name == name {
			return &report.Processors[i], true
		}
	}

	return nil, false
}

func (m *Monitor) component(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component, ok := m.findComponent(name, m.Latest())
	if !ok {
		http.Error(w, "Component not found", http.StatusNotFound)
		return
	}

	buf := &bytes.Buffer{}
	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(2)

	if err := serializer.Serialize(buf); err != nil {
		m.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

func (m *Monitor) continueRun(w http.ResponseWriter, _ *http.Request) {
	select {
	case m.continueCh <- struct{}{}:
		w.WriteHeader(http.StatusOK)
	default:
		// A continue is already pending.
		w.WriteHeader(http.StatusAccepted)
	}
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.fail(w, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		m.fail(w, err)
		return
	}

	memory, err := proc.MemoryInfo()
	if err != nil {
		m.fail(w, err)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		m.fail(w, err)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		m.fail(w, err)
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (m *Monitor) fail(w http.ResponseWriter, err error) {
	m.logger.Error("monitor request failed", "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
