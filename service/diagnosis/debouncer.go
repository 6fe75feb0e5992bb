package diagnosis

import (
	"sync"
	"time"
)

// Debouncer 合并短时间内的多次触发，只执行最后一次
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	seq     uint64
	stopped bool
}

// NewDebouncer 创建防抖器
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger 重新计时，delay 后执行 fn；返回本次触发序号
func (d *Debouncer) Trigger(fn func()) uint64 {
	return d.TriggerAfter(0, fn)
}

// TriggerAfter 同 Trigger，delay 大于0时替换默认延迟
func (d *Debouncer) TriggerAfter(delay time.Duration, fn func()) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if delay > 0 {
		d.delay = delay
	}

	d.seq++
	if d.stopped {
		return d.seq
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current := d.seq == seq && !d.stopped
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if current {
			fn()
		}
	})
	return seq
}

// Cancel 取消待执行的任务
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Stop 取消待执行任务，之后的 Trigger 不再生效
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	d.Cancel()
}

// Pending 是否有待执行的任务
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
