// Package cosim runs testbench code against a simulated device.
//
// A test body is an ordinary Go function. It runs on its own goroutine, but
// never at the same time as the simulation engine: every call to Timer,
// RisingEdge or FallingEdge hands control back to the engine, and the engine
// hands it back when the awaited moment arrives. From the point of view of
// both sides there is a single thread of control, so pins can be read and
// written without locking.
//
// Resumptions are secondary events. When a test wakes up at time T, every
// primary event at T, including the device's own reaction to a clock edge,
// has already been handled.
package cosim
