// Package monitoring turns running simulations into a small web server, so
// that they can be watched and paused from a browser.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/regbench/monitoring/web"
	"github.com/sarchlab/regbench/sim"
)

// Monitor can turn a simulation into a server and allows external monitoring
// and controlling of the simulation.
type Monitor struct {
	portNumber      int
	profileDuration time.Duration

	lock        sync.Mutex
	engineNames []string
	engines     map[string]sim.Engine
	components  []monitoredComponent
	states      map[string]string

	// controlLock orders pause requests from the browser with the pauses
	// taken while inspecting a component.
	controlLock sync.Mutex

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	listener net.Listener
	server   *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		profileDuration: time.Second,
		engines:         make(map[string]sim.Engine),
		states:          make(map[string]string),
	}
}

// WithPortNumber sets the port number of the monitor.
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

// WithProfileDuration sets how long /api/profile samples the CPU.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileDuration = d
	return m
}

// RegisterEngine registers the engine that runs the named test.
func (m *Monitor) RegisterEngine(name string, e sim.Engine) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, found := m.engines[name]; !found {
		m.engineNames = append(m.engineNames, name)
	}

	m.engines[name] = e
}

type monitoredComponent struct {
	component sim.Component
	engine    sim.Engine
}

// RegisterComponent registers a component to be inspected. The engine is the
// one that runs the component. It is paused while the component is read.
func (m *Monitor) RegisterComponent(e sim.Engine, c sim.Component) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.components = append(m.components, monitoredComponent{
		component: c,
		engine:    e,
	})
}

// SetState records the state shown for a test.
func (m *Monitor) SetState(test, state string) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.states[test] = state
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        sim.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler serving the web page and the API.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	fServer := http.FileServer(web.GetAssets())
	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/state", m.state)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(fServer)

	return r
}

// StartServer starts the monitor as a web server. It returns the port that
// the server listens on.
func (m *Monitor) StartServer() int {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	dieOnErr(err)

	m.listener = listener
	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	port := m.Port()
	fmt.Fprintf(os.Stderr,
		"Monitoring simulation with http://localhost:%d\n", port)

	go func() {
		err := m.server.Serve(listener)
		if err != http.ErrServerClosed {
			dieOnErr(err)
		}
	}()

	return port
}

// Port returns the port the server listens on, or 0 before StartServer.
func (m *Monitor) Port() int {
	if m.listener == nil {
		return 0
	}

	return m.listener.Addr().(*net.TCPAddr).Port
}

// OpenBrowser opens the monitoring page with the default browser.
func (m *Monitor) OpenBrowser() error {
	return browser.OpenURL(fmt.Sprintf("http://localhost:%d", m.Port()))
}

// StopServer shuts the server down.
func (m *Monitor) StopServer() error {
	if m.server == nil {
		return nil
	}

	return m.server.Close()
}

func (m *Monitor) selectedEngines(r *http.Request) []sim.Engine {
	m.lock.Lock()
	defer m.lock.Unlock()

	name := r.URL.Query().Get("test")
	if name != "" {
		if e, found := m.engines[name]; found {
			return []sim.Engine{e}
		}

		return nil
	}

	engines := make([]sim.Engine, 0, len(m.engineNames))
	for _, n := range m.engineNames {
		engines = append(engines, m.engines[n])
	}

	return engines
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, r *http.Request) {
	m.controlLock.Lock()
	for _, e := range m.selectedEngines(r) {
		e.Pause()
	}
	m.controlLock.Unlock()

	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, r *http.Request) {
	m.controlLock.Lock()
	for _, e := range m.selectedEngines(r) {
		e.Continue()
	}
	m.controlLock.Unlock()

	_, err := w.Write(nil)
	dieOnErr(err)
}

type nowRsp struct {
	Now map[string]float64 `json:"now"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	rsp := nowRsp{Now: make(map[string]float64, len(m.engines))}
	for name, e := range m.engines {
		rsp.Now[name] = e.CurrentTime().InNS()
	}
	m.lock.Unlock()

	writeJSON(w, rsp)
}

type stateRsp struct {
	Tests map[string]string `json:"tests"`
}

func (m *Monitor) state(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	rsp := stateRsp{Tests: make(map[string]string, len(m.states))}
	for name, s := range m.states {
		rsp.Tests[name] = s
	}
	m.lock.Unlock()

	writeJSON(w, rsp)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	names := make([]string, 0, len(m.components))
	for _, c := range m.components {
		names = append(names, c.component.Name())
	}
	m.lock.Unlock()

	sort.Strings(names)
	writeJSON(w, names)
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	c, found := m.findComponentOr404(w, name)
	if !found {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(c.component)
	serializer.SetMaxDepth(1)

	m.whilePaused(c.engine, func() {
		dieOnErr(serializer.Serialize(w))
	})
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	c, found := m.findComponentOr404(w, req.CompName)
	if !found {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(c.component)
	serializer.SetMaxDepth(1)

	m.whilePaused(c.engine, func() {
		err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "Error: %s", err)
			return
		}

		dieOnErr(serializer.Serialize(w))
	})
}

// whilePaused runs f with the engine stopped between two events. An engine
// that was already paused stays paused.
func (m *Monitor) whilePaused(e sim.Engine, f func()) {
	if e == nil {
		f()
		return
	}

	m.controlLock.Lock()
	defer m.controlLock.Unlock()

	if e.IsPaused() {
		f()
		return
	}

	e.Pause()
	defer e.Continue()

	f()
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) (monitoredComponent, bool) {
	m.lock.Lock()
	var found *monitoredComponent
	for i := range m.components {
		if m.components[i].component.Name() == name {
			found = &m.components[i]
		}
	}

	var c monitoredComponent
	if found != nil {
		c = *found
	}
	m.lock.Unlock()

	if found == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Component not found"))
		dieOnErr(err)

		return c, false
	}

	return c, true
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
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
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
