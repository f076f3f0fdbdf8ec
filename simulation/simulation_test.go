package simulation

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"

	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/regbench/cosim"
	"github.com/sarchlab/regbench/datarecording"
	"github.com/sarchlab/regbench/monitoring"
	"github.com/sarchlab/regbench/regfile"
	"github.com/sarchlab/regbench/regfiletb"
	"github.com/sarchlab/regbench/sim"
)

func lookupTest(name string) cosim.Test {
	reg := cosim.NewRegistry()
	regfiletb.Register(reg, regfiletb.DefaultConfig())

	t, err := reg.Lookup(name)
	Expect(err).NotTo(HaveOccurred())

	return t
}

var _ = Describe("Simulation", func() {
	var (
		mockCtrl   *gomock.Controller
		simulation *Simulation
		comp       *MockComponent
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		simulation = MakeBuilder().Build(regfiletb.TestRegisterFile)

		comp = NewMockComponent(mockCtrl)
		comp.EXPECT().Name().Return("Comp").AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should name components after the test", func() {
		Expect(simulation.TestName()).To(Equal(regfiletb.TestRegisterFile))
		Expect(simulation.GetRegFile().Name()).
			To(Equal("RegisterFile.RegFile"))
		Expect(simulation.GetComponentByName("RegisterFile.Clock")).
			To(BeIdenticalTo(simulation.GetClock()))
		Expect(simulation.Components()).To(HaveLen(3))
	})

	It("should register a component", func() {
		simulation.RegisterComponent(comp)

		Expect(simulation.GetComponentByName("Comp")).To(Equal(comp))
		Expect(simulation.GetComponentByName("None")).To(BeNil())
	})

	It("should refuse duplicated components", func() {
		simulation.RegisterComponent(comp)

		Expect(func() { simulation.RegisterComponent(comp) }).To(Panic())
	})

	It("should start the clock", func() {
		Expect(simulation.GetClock().Running()).To(BeTrue())
	})

	It("should run the register file test", func() {
		result := simulation.Run(lookupTest(regfiletb.TestRegisterFile))

		Expect(result.Err).NotTo(HaveOccurred())
		Expect(result.Passed).To(BeTrue())
		Expect(simulation.GetRegFile().Commits()).To(Equal(uint64(31)))
	})

	It("should inject faults", func() {
		s := MakeBuilder().
			WithFault(regfile.FaultX0Writable).
			Build(regfiletb.TestX0WriteIgnored)

		result := s.Run(lookupTest(regfiletb.TestX0WriteIgnored))

		Expect(result.Passed).To(BeFalse())
	})

	It("should log events when asked", func() {
		logger, hook := test.NewNullLogger()
		logger.SetLevel(logrus.DebugLevel)

		s := MakeBuilder().
			WithLogger(logger).
			WithEventLogging().
			Build(regfiletb.TestResetOnly)
		s.Run(lookupTest(regfiletb.TestResetOnly))

		Expect(hook.AllEntries()).NotTo(BeEmpty())
	})
})

var _ = Describe("Builder", func() {
	DescribeTable("should reject invalid parameters",
		func(b Builder) {
			Expect(b.Validate()).To(HaveOccurred())
			Expect(func() { b.Build("bad") }).To(Panic())
		},
		Entry("zero frequency", MakeBuilder().WithFreq(0)),
		Entry("too many registers", MakeBuilder().WithNumRegs(64)),
		Entry("not a power of two", MakeBuilder().WithNumRegs(12)),
		Entry("narrow data", MakeBuilder().WithDataWidth(4)),
		Entry("no logger", MakeBuilder().WithLogger(nil)),
	)

	It("should report factory errors", func() {
		factory := MakeBuilder().WithFreq(0).Factory()

		_, err := factory(lookupTest(regfiletb.TestRegisterFile))

		Expect(err).To(HaveOccurred())
	})

	It("should run every test in parallel", func() {
		results, err := cosim.RunAll(context.Background(),
			regfiletb.Tests(regfiletb.DefaultConfig()),
			MakeBuilder().Factory(), 4)

		Expect(err).NotTo(HaveOccurred())
		Expect(cosim.AllPassed(results)).To(BeTrue())
	})

	It("should wire the recorder and the monitor", func() {
		db, err := sql.Open("sqlite3", ":memory:")
		Expect(err).NotTo(HaveOccurred())
		db.SetMaxOpenConns(1)

		w := datarecording.NewWithDB(db)
		recorder := datarecording.NewBenchRecorder(w)
		monitor := monitoring.NewMonitor()

		s := MakeBuilder().
			WithRecorder(recorder).
			WithMonitor(monitor).
			Build(regfiletb.TestDirectedWrites)
		result := s.Run(lookupTest(regfiletb.TestDirectedWrites))
		w.Flush()

		Expect(result.Passed).To(BeTrue())

		var commits, results int
		Expect(db.QueryRow("SELECT COUNT(*) FROM commits").
			Scan(&commits)).To(Succeed())
		Expect(db.QueryRow("SELECT COUNT(*) FROM results").
			Scan(&results)).To(Succeed())
		Expect(commits).To(Equal(2))
		Expect(results).To(Equal(1))
	})

	It("should let the monitor read a running register file", func() {
		monitor := monitoring.NewMonitor()
		s := MakeBuilder().
			WithMonitor(monitor).
			Build(regfiletb.TestRegisterFile)

		done := make(chan cosim.Result)
		go func() { done <- s.Run(lookupTest(regfiletb.TestRegisterFile)) }()

		var result cosim.Result
		for running := true; running; {
			select {
			case result = <-done:
				running = false
			default:
				req := httptest.NewRequest(http.MethodGet,
					"/api/component/RegisterFile.RegFile", nil)
				rec := httptest.NewRecorder()
				monitor.Router().ServeHTTP(rec, req)
				Expect(rec.Code).To(Equal(http.StatusOK))
			}
		}

		Expect(result.Passed).To(BeTrue())
		Expect(s.GetEngine().IsPaused()).To(BeFalse())
	})

	It("should build a narrow register file", func() {
		cfg := regfiletb.DefaultConfig()
		cfg.NumRegs = 8

		reg := cosim.NewRegistry()
		regfiletb.Register(reg, cfg)
		t, err := reg.Lookup(regfiletb.TestRegisterFile)
		Expect(err).NotTo(HaveOccurred())

		s := MakeBuilder().WithNumRegs(8).Build(t.Name)
		result := s.Run(t)

		Expect(result.Passed).To(BeTrue())
		Expect(s.GetRegFile().NumRegs()).To(Equal(8))
		Expect(s.GetEngine().CurrentTime()).To(BeNumerically(">", sim.VTime(0)))
	})
})
