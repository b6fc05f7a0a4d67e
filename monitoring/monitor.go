// Package monitoring turns a simulation into a server and allows external
// control of the simulation while it runs.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/synclab/netsim/analysis"
	"github.com/synclab/netsim/driver"
	"github.com/synclab/netsim/generator"
	"github.com/synclab/netsim/sim"
)

// Monitor exposes the control plane of one simulation instance over HTTP.
// It holds explicit references to the engine, driver, and generator it
// controls; there is no ambient shared simulation.
type Monitor struct {
	engine     *sim.Engine
	clock      sim.TimeTeller
	driver     *driver.Driver
	generator  *generator.Generator
	analyzer   *analysis.LatencyAnalyzer
	portNumber int
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterEngine registers the engine that is used in the simulation. The
// engine also serves as the clock the status endpoint reports.
func (m *Monitor) RegisterEngine(e *sim.Engine) {
	m.engine = e
	m.clock = e
}

// RegisterDriver registers the time driver that paces the simulation.
func (m *Monitor) RegisterDriver(d *driver.Driver) {
	m.driver = d
}

// RegisterGenerator registers the traffic generator whose rates the control
// plane adjusts.
func (m *Monitor) RegisterGenerator(g *generator.Generator) {
	m.generator = g
}

// RegisterAnalyzer registers the latency analyzer served by the stats
// endpoint.
func (m *Monitor) RegisterAnalyzer(a *analysis.LatencyAnalyzer) {
	m.analyzer = a
}

// Handler returns the HTTP handler serving the control-plane API.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", m.health).Methods(http.MethodGet)
	r.HandleFunc("/api/config", m.getConfig).Methods(http.MethodGet)
	r.HandleFunc("/api/config", m.setConfig).Methods(http.MethodPost)
	r.HandleFunc("/api/status", m.status).Methods(http.MethodGet)
	r.HandleFunc("/api/device/{id}", m.deviceStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/device/{id}/enabled", m.setDeviceEnabled).
		Methods(http.MethodPost)
	r.HandleFunc("/api/rate/message", m.setMessageRate).Methods(http.MethodPost)
	r.HandleFunc("/api/rate/attachment", m.setAttachmentRate).
		Methods(http.MethodPost)
	r.HandleFunc("/api/start", m.start).Methods(http.MethodPost)
	r.HandleFunc("/api/pause", m.pause).Methods(http.MethodPost)
	r.HandleFunc("/api/speed", m.setSpeed).Methods(http.MethodPost)
	r.HandleFunc("/api/stats", m.stats).Methods(http.MethodGet)
	r.HandleFunc("/api/inspect", m.inspect).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)

	return r
}

// StartServer starts the monitor as a web server with a custom port if
// wanted. It returns the address the server listens on.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	addr := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", addr)

	handler := m.Handler()
	go func() {
		err := http.Serve(listener, handler)
		dieOnErr(err)
	}()

	return addr
}

func (m *Monitor) health(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, `{"status":"ok"}`)
}

func (m *Monitor) getConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.engine.Config())
}

func (m *Monitor) setConfig(w http.ResponseWriter, r *http.Request) {
	cfg := m.engine.Config()
	if !decodeBody(w, r, &cfg) {
		return
	}

	if err := m.engine.SetConfig(cfg); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, m.engine.Config())
}

type statusRsp struct {
	State   string                   `json:"state"`
	Speed   float64                  `json:"speed"`
	NowMs   float64                  `json:"now_ms"`
	Devices []sim.DeviceNetworkState `json:"devices"`
}

func (m *Monitor) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, statusRsp{
		State:   m.driver.State().String(),
		Speed:   m.driver.Speed(),
		NowMs:   float64(m.clock.CurrentTime()),
		Devices: m.engine.Devices(),
	})
}

func (m *Monitor) deviceStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	d, err := m.engine.Device(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	writeJSON(w, d)
}

type enabledReq struct {
	Enabled bool `json:"enabled"`
}

func (m *Monitor) setDeviceEnabled(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	req := enabledReq{}
	if !decodeBody(w, r, &req) {
		return
	}

	d, err := m.engine.SetDeviceEnabled(id, req.Enabled)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	writeJSON(w, d)
}

type rateReq struct {
	Rate float64 `json:"rate"`
}

type rateRsp struct {
	Rate float64 `json:"rate"`
}

func (m *Monitor) setMessageRate(w http.ResponseWriter, r *http.Request) {
	req := rateReq{}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := m.generator.SetMessageRate(req.Rate); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, rateRsp{Rate: m.generator.MessageRate()})
}

func (m *Monitor) setAttachmentRate(w http.ResponseWriter, r *http.Request) {
	req := rateReq{}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := m.generator.SetAttachmentRate(req.Rate); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, rateRsp{Rate: m.generator.AttachmentRate()})
}

// start moves the driver to the running state. Starting an already-running
// simulation is a no-op, so the operation is idempotent.
func (m *Monitor) start(w http.ResponseWriter, _ *http.Request) {
	m.driver.Start()
	writeJSON(w, map[string]string{"state": m.driver.State().String()})
}

// pause freezes the simulation. Pausing an already-paused simulation is a
// no-op.
func (m *Monitor) pause(w http.ResponseWriter, _ *http.Request) {
	m.driver.Pause()
	writeJSON(w, map[string]string{"state": m.driver.State().String()})
}

type speedReq struct {
	Multiplier float64 `json:"multiplier"`
}

func (m *Monitor) setSpeed(w http.ResponseWriter, r *http.Request) {
	req := speedReq{}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := m.driver.SetSpeed(req.Multiplier); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, map[string]float64{"multiplier": m.driver.Speed()})
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	if m.analyzer == nil {
		writeError(w, http.StatusNotFound,
			errors.New("no analyzer registered"))
		return
	}

	writeJSON(w, m.analyzer.Snapshot())
}

func (m *Monitor) inspect(w http.ResponseWriter, _ *http.Request) {
	serializer := goseth.NewSerializer()
	serializer.SetRoot(m.engine)
	serializer.SetMaxDepth(2)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

// decodeBody parses a JSON request body, answering 400 on malformed input.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	bytes, err := json.Marshal(v)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":%q}`, err.Error())
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
