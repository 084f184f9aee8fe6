package vm

import (
	"math"
	"sync/atomic"
	"time"
)

// timerDevice is the one genuinely asynchronous peripheral the VM exposes:
// a host-side goroutine that fires after an armed duration and leaves a
// mark for the next step() to notice. It never touches VM state directly --
// the single-threaded execution guarantee (§5) is preserved by having the
// interpreter poll and deliver the interrupt itself, rather than the timer
// goroutine reaching into vm.regs/vm.flags/vm.mem.
//
// Grounded on the teacher's vm/devices.go systemTimer: a buffered "rearm"
// channel feeding a select loop around a single time.Timer, the same
// non-blocking-channel idiom used throughout that file.
type timerDevice struct {
	rearm  chan time.Duration
	fired  atomic.Bool
	closed chan struct{}
}

func newTimerDevice() *timerDevice {
	d := &timerDevice{
		rearm:  make(chan time.Duration, 1),
		closed: make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *timerDevice) loop() {
	t := time.NewTimer(math.MaxInt64)
	defer t.Stop()
	for {
		select {
		case <-d.closed:
			return
		case dur := <-d.rearm:
			if !t.Stop() {
				select {
				case <-t.C:
				default:
				}
			}
			t.Reset(dur)
		case <-t.C:
			d.fired.Store(true)
			t.Reset(math.MaxInt64)
		}
	}
}

// arm schedules the timer to fire after micros microseconds, replacing any
// previously armed deadline.
func (d *timerDevice) arm(micros uint32) {
	select {
	case <-d.rearm:
	default:
	}
	d.rearm <- time.Duration(micros) * time.Microsecond
}

// cancel re-arms the timer to effectively never fire.
func (d *timerDevice) cancel() {
	d.arm(uint32(math.MaxUint32))
}

// consumeFired reports whether the timer has fired since the last call,
// clearing the flag -- the non-blocking poll step() performs once per
// fetch-execute cycle.
func (d *timerDevice) consumeFired() bool {
	return d.fired.CompareAndSwap(true, false)
}

func (d *timerDevice) close() {
	select {
	case <-d.closed:
	default:
		close(d.closed)
	}
}
