package notify

import (
	"context"
	"fishdisease-service/service/metrics"
	"log/slog"
	"sync"
	"time"
)

// AsyncPublisher 带缓冲队列的发布器，Publish 不阻塞调用方
type AsyncPublisher struct {
	inner   Publisher
	queue   chan *DiagnosisEvent
	timeout time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

// NewAsyncPublisher 创建异步发布器并启动后台发送协程
func NewAsyncPublisher(inner Publisher, buffer int) *AsyncPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	p := &AsyncPublisher{
		inner:   inner,
		queue:   make(chan *DiagnosisEvent, buffer),
		timeout: 10 * time.Second,
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish 入队，队列满时丢弃并计数
func (p *AsyncPublisher) Publish(_ context.Context, event *DiagnosisEvent) (err error) {
	defer func() {
		// Close 之后入队会 panic
		if r := recover(); r != nil {
			metrics.PublishFailures.WithLabelValues(p.inner.Driver()).Inc()
			err = nil
		}
	}()

	select {
	case p.queue <- event:
	default:
		metrics.PublishFailures.WithLabelValues(p.inner.Driver()).Inc()
		slog.Warn("诊断事件队列已满，丢弃事件", "event_id", event.ID, "driver", p.inner.Driver())
	}
	return nil
}

// Driver 实现 Publisher
func (p *AsyncPublisher) Driver() string {
	return p.inner.Driver()
}

// Close 发送完队列中剩余事件后关闭底层发布器
func (p *AsyncPublisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.queue)
		<-p.done
		err = p.inner.Close()
	})
	return err
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for event := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.inner.Publish(ctx, event); err != nil {
			metrics.PublishFailures.WithLabelValues(p.inner.Driver()).Inc()
			slog.Error("发布诊断事件失败", "event_id", event.ID, "driver", p.inner.Driver(), "error", err)
		}
		cancel()
	}
}
