package scanner

import "sync"

// ProgressTracker tracks and reports discovery progress.
type ProgressTracker struct {
	callback func(*Progress)
	progress Progress
	mu       sync.RWMutex
}

// NewProgressTracker creates a new progress tracker.
func NewProgressTracker(callback func(*Progress)) *ProgressTracker {
	return &ProgressTracker{
		callback: callback,
		progress: Progress{
			Phase: PhaseWalking,
		},
	}
}

// SetPhase updates the current phase and resets the counters.
func (p *ProgressTracker) SetPhase(phase Phase) {
	p.update(func(pr *Progress) {
		pr.Phase = phase
		pr.Current = 0
		pr.Total = 0
		pr.CurrentItem = ""
	})
}

// SetTotal sets the total items for the current phase.
func (p *ProgressTracker) SetTotal(total int) {
	p.update(func(pr *Progress) {
		pr.Total = total
	})
}

// Increment increments the current progress.
func (p *ProgressTracker) Increment(currentItem string) {
	p.update(func(pr *Progress) {
		pr.Current++
		pr.CurrentItem = currentItem
	})
}

// AddError counts a rejected file.
func (p *ProgressTracker) AddError() {
	p.update(func(pr *Progress) {
		pr.Errors++
	})
}

// Get returns current progress.
func (p *ProgressTracker) Get() Progress {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.progress
}

// update applies fn under the lock and notifies with a copy once the lock is
// released, so callbacks may call Get.
func (p *ProgressTracker) update(fn func(*Progress)) {
	p.mu.Lock()
	fn(&p.progress)
	snapshot := p.progress
	p.mu.Unlock()

	if p.callback != nil {
		p.callback(&snapshot)
	}
}
