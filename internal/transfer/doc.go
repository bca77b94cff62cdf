// Package transfer schedules polled HTTP exchanges.
//
// A [Transfer] wraps one [Primitive]: an operation that runs on its own once
// created and can only be observed, never waited on. A [Queue] advances every
// pending transfer by one step per [Queue.Tick] and parks finished
// asynchronous transfers until [Queue.Deliver] runs their callbacks.
//
// Tick, Deliver and Shutdown are meant to be called from a single driver
// goroutine at a steady cadence, the queue has no clock of its own. Enqueue may
// be called from anywhere.
package transfer
