package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/regbench/cosim"
	"github.com/sarchlab/regbench/regfiletb"
	"github.com/sarchlab/regbench/sim"
)

type sampleComponent struct {
	*sim.ComponentBase

	Count int
}

func (c *sampleComponent) Handle(_ sim.Event) error {
	c.Count++
	return nil
}

func newSampleComponent(name string) *sampleComponent {
	return &sampleComponent{
		ComponentBase: sim.NewComponentBase(name),
	}
}

func get(m *Monitor, url string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	m.Router().ServeHTTP(rec, req)

	return rec
}

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		engine *sim.SerialEngine
		comp   *sampleComponent
	)

	BeforeEach(func() {
		m = NewMonitor().WithProfileDuration(10 * time.Millisecond)
		engine = sim.NewSerialEngine()
		comp = newSampleComponent("Comp")

		m.RegisterEngine("register_file", engine)
		m.RegisterComponent(engine, comp)
	})

	It("should refuse privileged ports", func() {
		m.WithPortNumber(80)
		Expect(m.portNumber).To(Equal(0))

		m.WithPortNumber(8080)
		Expect(m.portNumber).To(Equal(8080))
	})

	It("should report the time of each engine", func() {
		engine.Schedule(sim.NewEventBase(5*sim.NS, comp))
		Expect(engine.Run()).To(Succeed())

		rec := get(m, "/api/now")

		Expect(rec.Code).To(Equal(http.StatusOK))
		rsp := nowRsp{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Now).To(HaveKeyWithValue("register_file", 5.0))
	})

	It("should pause and continue the engines", func() {
		get(m, "/api/pause")
		Expect(engine.IsPaused()).To(BeTrue())

		get(m, "/api/continue")
		Expect(engine.IsPaused()).To(BeFalse())
	})

	It("should only pause the selected test", func() {
		other := sim.NewSerialEngine()
		m.RegisterEngine("reset_only", other)

		get(m, "/api/pause?test=reset_only")

		Expect(other.IsPaused()).To(BeTrue())
		Expect(engine.IsPaused()).To(BeFalse())

		get(m, "/api/continue?test=reset_only")
		Expect(other.IsPaused()).To(BeFalse())
	})

	It("should list components", func() {
		m.RegisterComponent(nil, newSampleComponent("Another"))

		rec := get(m, "/api/list_components")

		names := []string{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(Equal([]string{"Another", "Comp"}))
	})

	It("should serialize a component", func() {
		rec := get(m, "/api/component/Comp")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("Count"))
		Expect(engine.IsPaused()).To(BeFalse())
	})

	It("should hold the engine while serializing a component", func() {
		engine.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			if ctx.Pos == sim.HookPosBeforeEvent {
				time.Sleep(time.Millisecond)
			}
		}))
		for i := 1; i <= 50; i++ {
			engine.Schedule(sim.NewEventBase(sim.VTime(i)*sim.NS, comp))
		}

		done := make(chan error)
		go func() { done <- engine.Run() }()

		field := url.PathEscape(`{"comp_name":"Comp","field_name":"Count"}`)
		for i := 0; i < 10; i++ {
			rec := get(m, "/api/field/"+field)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(engine.IsPaused()).To(BeFalse())
		}

		Eventually(done).Should(Receive(BeNil()))
		Expect(comp.Count).To(Equal(50))
	})

	It("should leave an engine paused from the browser paused", func() {
		get(m, "/api/pause")

		rec := get(m, "/api/component/Comp")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(engine.IsPaused()).To(BeTrue())

		get(m, "/api/continue")
		Expect(engine.IsPaused()).To(BeFalse())
	})

	It("should return 404 for unknown components", func() {
		rec := get(m, "/api/component/Nothing")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should reject malformed field requests", func() {
		rec := get(m, "/api/field/notjson")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should list progress bars", func() {
		bar := m.CreateProgressBar("register_file", 64)
		bar.IncrementInProgress(2)
		bar.MoveInProgressToFinished(1)

		rec := get(m, "/api/progress")

		bars := []progressBarRsp{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Total).To(Equal(uint64(64)))
		Expect(bars[0].Finished).To(Equal(uint64(1)))
		Expect(bars[0].InProgress).To(Equal(uint64(1)))

		m.CompleteProgressBar(bar)

		rec = get(m, "/api/progress")
		Expect(rec.Body.String()).To(Equal("[]"))
	})

	It("should report process resources", func() {
		rec := get(m, "/api/resource")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("memory_size"))
	})

	It("should collect a profile", func() {
		rec := get(m, "/api/profile")

		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("should serve the page", func() {
		rec := get(m, "/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("regbench"))
	})

	It("should serve over TCP", func() {
		port := m.StartServer()
		defer func() { Expect(m.StopServer()).To(Succeed()) }()

		Expect(port).NotTo(BeZero())
		Expect(m.Port()).To(Equal(port))
	})
})

var _ = Describe("TestTracker", func() {
	var (
		m       *Monitor
		tracker *TestTracker
	)

	state := func() map[string]string {
		rsp := stateRsp{}
		Expect(json.Unmarshal(
			get(m, "/api/state").Body.Bytes(), &rsp)).To(Succeed())

		return rsp.Tests
	}

	invoke := func(pos *sim.HookPos, item any) {
		tracker.Func(sim.HookCtx{Pos: pos, Item: item})
	}

	BeforeEach(func() {
		m = NewMonitor()
		tracker = m.TrackTest("register_file")
	})

	It("should follow a test", func() {
		Expect(state()).To(HaveKeyWithValue("register_file", "Pending"))

		invoke(cosim.HookPosTestStart,
			cosim.Test{Name: "register_file", Steps: 64})
		Expect(state()).To(HaveKeyWithValue("register_file", "Running"))
		Expect(m.progressBars).To(HaveLen(1))
		Expect(m.progressBars[0].Total).To(Equal(uint64(64)))
		Expect(m.progressBars[0].InProgress).To(Equal(uint64(1)))

		invoke(regfiletb.HookPosStateChange, regfiletb.StateResetAsserted)
		invoke(regfiletb.HookPosCheckpoint, regfiletb.Checkpoint{Passed: true})
		invoke(regfiletb.HookPosCheckpoint, regfiletb.Checkpoint{Passed: true})

		Expect(state()).To(HaveKeyWithValue("register_file", "ResetAsserted"))
		Expect(m.progressBars[0].Finished).To(Equal(uint64(2)))
		Expect(m.progressBars[0].InProgress).To(Equal(uint64(1)))

		invoke(cosim.HookPosTestEnd, cosim.Result{Passed: false})

		Expect(state()).To(HaveKeyWithValue("register_file", "Failed"))
		Expect(m.progressBars).To(BeEmpty())
	})

	It("should fill the bar with the steps of the test", func() {
		invoke(cosim.HookPosTestStart,
			cosim.Test{Name: "register_file", Steps: 3})
		bar := m.progressBars[0]

		for i := 0; i < 3; i++ {
			invoke(regfiletb.HookPosCheckpoint,
				regfiletb.Checkpoint{Passed: true})
		}

		Expect(bar.Finished).To(Equal(bar.Total))
		Expect(bar.InProgress).To(BeZero())

		invoke(regfiletb.HookPosCheckpoint, regfiletb.Checkpoint{Passed: true})

		Expect(bar.Finished).To(Equal(uint64(4)))
		Expect(bar.InProgress).To(BeZero())
	})
})
