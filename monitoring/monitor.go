// Package monitoring serves the state of the command channels over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/sarchlab/guclink/guc"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor turns a set of channels into a server that reports their state.
type Monitor struct {
	portNumber int
	log        logr.Logger

	mu       sync.Mutex
	channels []*guc.Channel
	server   *http.Server

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{log: logr.Discard()}
}

// WithPortNumber sets the port number of the monitor. Zero, or a port below
// 1000, picks a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.log.Info("port not allowed, using a random port", "port", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(log logr.Logger) *Monitor {
	m.log = log.WithName("monitor")
	return m
}

// RegisterChannel adds a channel to be monitored.
func (m *Monitor) RegisterChannel(c *guc.Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.channels = append(m.channels, c)
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			bars = append(bars, b)
		}
	}

	m.progressBars = bars
}

// Router returns the handler of every monitoring endpoint.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/channels", m.listChannels)
	r.HandleFunc("/api/channel/{name}", m.channelStats)
	r.HandleFunc("/api/channel/{name}/detail", m.channelDetail)
	r.HandleFunc("/api/channel/{name}/field/{json}", m.channelField)
	r.HandleFunc("/api/channel/{name}/regions", m.channelRegions)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts serving in the background and returns the address the
// server listens on.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", m.portNumber))
	if err != nil {
		return "", err
	}

	server := &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	m.mu.Lock()
	m.server = server
	m.mu.Unlock()

	url := "http://" + listener.Addr().String()
	m.log.Info("monitoring channels", "url", url)

	go func() {
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error(err, "monitoring server stopped")
		}
	}()

	return url, nil
}

// StopServer closes the server started by StartServer.
func (m *Monitor) StopServer() error {
	m.mu.Lock()
	server := m.server
	m.server = nil
	m.mu.Unlock()

	if server == nil {
		return nil
	}

	return server.Close()
}

func (m *Monitor) listChannels(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	names := make([]string, 0, len(m.channels))
	for _, c := range m.channels {
		names = append(names, c.Name())
	}
	m.mu.Unlock()

	m.writeJSON(w, names)
}

func (m *Monitor) channelStats(w http.ResponseWriter, r *http.Request) {
	c := m.findChannelOr404(w, mux.Vars(r)["name"])
	if c == nil {
		return
	}

	m.writeJSON(w, c.Stats())
}

func (m *Monitor) channelRegions(w http.ResponseWriter, r *http.Request) {
	c := m.findChannelOr404(w, mux.Vars(r)["name"])
	if c == nil {
		return
	}

	m.writeJSON(w, c.Regions())
}

func (m *Monitor) channelDetail(w http.ResponseWriter, r *http.Request) {
	c := m.findChannelOr404(w, mux.Vars(r)["name"])
	if c == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(c)
	serializer.SetMaxDepth(1)

	if err := serializer.Serialize(w); err != nil {
		m.log.Error(err, "cannot serialize channel", "channel", c.Name())
	}
}

type fieldReq struct {
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) channelField(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	c := m.findChannelOr404(w, vars["name"])
	if c == nil {
		return
	}

	req := fieldReq{}
	if err := json.Unmarshal([]byte(vars["json"]), &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(c)
	serializer.SetMaxDepth(1)

	err := serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := serializer.Serialize(w); err != nil {
		m.log.Error(err, "cannot serialize field", "channel", c.Name(),
			"field", req.FieldName)
	}
}

func (m *Monitor) findChannelOr404(
	w http.ResponseWriter,
	name string,
) *guc.Channel {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.channels {
		if c.Name() == name {
			return c
		}
	}

	http.Error(w, "Channel not found", http.StatusNotFound)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]*ProgressBar, len(m.progressBars))
	copy(bars, m.progressBars)
	m.progressBarsLock.Unlock()

	snapshots := make([]ProgressSnapshot, 0, len(bars))
	for _, b := range bars {
		snapshots = append(snapshots, b.Snapshot())
	}

	m.writeJSON(w, snapshots)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memory, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, r *http.Request) {
	duration := time.Second
	if s := r.URL.Query().Get("duration"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		duration = d
	}

	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(duration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.log.Error(err, "cannot write response")
	}
}
