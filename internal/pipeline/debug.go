package pipeline

import (
	"image"
	"sort"
	"sync"
)

// StageCapture is a snapshot of the working buffer after one stage.
type StageCapture struct {
	Name  string
	Image *image.NRGBA
}

// DebugContext collects stage snapshots during a render. The zero value is ready to use.
type DebugContext struct {
	mu     sync.Mutex
	stages map[string]*image.NRGBA
}

func (d *DebugContext) capture(name string, img *image.NRGBA) {
	if d == nil {
		return
	}
	snap := image.NewNRGBA(img.Bounds())
	copyPixels(snap, img)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stages == nil {
		d.stages = make(map[string]*image.NRGBA)
	}
	d.stages[name] = snap
}

// SortedStages returns the captured snapshots ordered by name, which follows stage order.
func (d *DebugContext) SortedStages() []StageCapture {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]StageCapture, 0, len(d.stages))
	for name, img := range d.stages {
		out = append(out, StageCapture{Name: name, Image: img})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
