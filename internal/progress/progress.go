// Package progress renders engine progress reports.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/gosuri/uiprogress"
)

const barLen = 60

// Text redraws a single status line in place:
//
//	migrating from a to b(40/100):[========----...] 40.0%
type Text struct {
	w io.Writer
}

func NewText(w io.Writer) *Text { return &Text{w: w} }

func (t *Text) Report(current, total int, status string) {
	ratio := 1.0
	if total > 0 {
		ratio = float64(current) / float64(total)
	}
	filled := int(float64(barLen)*ratio + 0.5)
	if filled > barLen {
		filled = barLen
	}
	bar := strings.Repeat("=", filled) + strings.Repeat("-", barLen-filled)
	fmt.Fprintf(t.w, "%s:[%s] %.1f%%\r", status, bar, 100*ratio)
}

// Bar draws one uiprogress bar per job. A new bar starts whenever the total
// changes or the count goes backwards. Report must be called from one
// goroutine; labels are read by the render loop.
type Bar struct {
	p     *uiprogress.Progress
	cur   *jobBar
	total int
}

type jobBar struct {
	bar    *uiprogress.Bar
	status atomic.Value // string
}

// NewBar starts rendering to w.
func NewBar(w io.Writer) *Bar {
	p := uiprogress.New()
	p.SetOut(w)
	p.Start()
	return &Bar{p: p}
}

func (b *Bar) Report(current, total int, status string) {
	if total <= 0 {
		return
	}
	if b.cur == nil || total != b.total || current < b.cur.bar.Current() {
		jb := &jobBar{}
		jb.status.Store(status)
		jb.bar = b.p.AddBar(total).AppendCompleted().PrependElapsed()
		jb.bar.PrependFunc(func(*uiprogress.Bar) string {
			return jb.status.Load().(string)
		})
		b.cur, b.total = jb, total
	}
	b.cur.status.Store(status)
	if current > total {
		current = total
	}
	b.cur.bar.Set(current)
}

// Stop flushes the last frame.
func (b *Bar) Stop() { b.p.Stop() }
