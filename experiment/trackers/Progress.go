package trackers

import (
	"github.com/samuelfneumann/qcartpole/timestep"
	"github.com/samuelfneumann/qcartpole/utils/progressbar"
)

// Progress displays a progress bar that advances once per finished
// episode. Progress saves no data.
type Progress struct {
	bar *progressbar.ManualProgressBar
}

// NewProgress returns a new Progress Tracker displaying bar
func NewProgress(bar *progressbar.ManualProgressBar) *Progress {
	return &Progress{bar}
}

// Track advances the progress bar on the last timestep of an episode
func (p *Progress) Track(t timestep.TimeStep) {
	if t.Last() {
		p.bar.Increment()
		p.bar.Display()
	}
}

// Save is a no-op
func (p *Progress) Save() error {
	return nil
}
