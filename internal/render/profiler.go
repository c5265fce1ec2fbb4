package render

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profiler times the named scopes of one frame, adapted from the
// teacher's app.Profiler (voxelrt/rt/app/profiler.go), narrowed to the
// handful of scopes this renderer's frame loop has (updateScene,
// updateCamera, dispatch, blit, gizmo).
type Profiler struct {
	scopes     map[string]time.Duration
	startTimes map[string]time.Time
	counts     map[string]int
	order      []string
}

func NewProfiler() *Profiler {
	return &Profiler{
		scopes:     make(map[string]time.Duration),
		startTimes: make(map[string]time.Time),
		counts:     make(map[string]int),
		order:      make([]string, 0),
	}
}

func (p *Profiler) BeginScope(name string) {
	p.startTimes[name] = time.Now()
	for _, n := range p.order {
		if n == name {
			return
		}
	}
	p.order = append(p.order, name)
}

func (p *Profiler) EndScope(name string) {
	if start, ok := p.startTimes[name]; ok {
		p.scopes[name] = time.Since(start)
	}
}

func (p *Profiler) SetCount(name string, count int) {
	p.counts[name] = count
}

// Scope returns the last recorded duration for name.
func (p *Profiler) Scope(name string) time.Duration {
	return p.scopes[name]
}

func (p *Profiler) Reset() {
	for k := range p.scopes {
		p.scopes[k] = 0
	}
}

func (p *Profiler) StatsString() string {
	var sb strings.Builder

	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.order {
		ms := float64(p.scopes[name].Microseconds()) / 1000.0
		fmt.Fprintf(&sb, "  %-15s: %.2f ms\n", name, ms)
	}

	sb.WriteString("\nStats:\n")
	keys := make([]string, 0, len(p.counts))
	for k := range p.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %-15s: %d\n", k, p.counts[k])
	}

	return sb.String()
}
