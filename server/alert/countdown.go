package alert

import (
	"context"
	"time"
)

type countdown struct {
	stopChan chan struct{}
}

// startCountdown must be called with mu held
func (w *Workflow) startCountdown() {
	w.remaining = w.opts.CountdownTicks

	cd := &countdown{stopChan: make(chan struct{})}
	w.countdown = cd
	go w.runCountdown(cd)
}

// stopCountdown is the single cancel path for the countdown, it must be
// called with mu held
func (w *Workflow) stopCountdown() {
	if w.countdown != nil {
		close(w.countdown.stopChan)
		w.countdown = nil
	}
	w.remaining = w.opts.CountdownTicks
}

func (w *Workflow) runCountdown(cd *countdown) {
	ticker := time.NewTicker(w.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-cd.stopChan:
			return
		case <-ticker.C:
		}

		w.mu.Lock()
		// Stopped between the tick & acquiring the lock
		if w.countdown != cd {
			w.mu.Unlock()
			return
		}

		w.remaining--
		if w.remaining > 0 {
			update := Update{Status: w.status()}
			w.mu.Unlock()
			w.publish(update)
			continue
		}

		w.countdown = nil
		w.remaining = w.opts.CountdownTicks
		w.state = DISPATCHING
		w.lastResolution = RESOLVED_DISPATCH
		w.sosUntil = w.now().Add(w.opts.SOSCooldown)
		update := Update{Status: w.status()}
		w.mu.Unlock()

		logg.Warn("No response to fall alert, alerting contacts")
		w.publish(update)

		if _, err := w.dispatch(context.Background(), FALL_TIMEOUT_REASON); err != nil {
			logg.Errorf("fall alert not sent: %v", err)
		}
		return
	}
}
