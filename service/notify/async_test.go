package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*DiagnosisEvent
	fail   bool
	closed bool
}

func (r *recordingPublisher) Publish(_ context.Context, event *DiagnosisEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broker unavailable")
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) Driver() string { return "recording" }

func (r *recordingPublisher) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func TestAsyncPublisher_DeliversQueuedEventsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	inner := &recordingPublisher{}
	p := NewAsyncPublisher(inner, 8)

	for i := 0; i < 5; i++ {
		event := NewDiagnosisEvent("api", "", []string{"G01"}, []Candidate{{Code: "P01", Name: "Bintik Putih", Percentage: 20}}, "v1")
		require.NoError(t, p.Publish(context.Background(), event))
	}
	require.NoError(t, p.Close())

	assert.Len(t, inner.events, 5)
	assert.True(t, inner.closed)
	assert.Equal(t, "recording", p.Driver())
}

func TestAsyncPublisher_FailuresDoNotSurface(t *testing.T) {
	defer goleak.VerifyNone(t)

	inner := &recordingPublisher{fail: true}
	p := NewAsyncPublisher(inner, 1)

	event := NewDiagnosisEvent("checklist", "abc", []string{"G01"}, nil, "v1")
	assert.NoError(t, p.Publish(context.Background(), event))
	require.NoError(t, p.Close())

	// 关闭后再发布不 panic
	assert.NoError(t, p.Publish(context.Background(), event))
	assert.NoError(t, p.Close())
}

func TestNewPublisherFromEnv(t *testing.T) {
	t.Setenv("NOTIFY_DRIVER", "")
	p, err := NewPublisherFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DriverNone, p.Driver())

	t.Setenv("NOTIFY_DRIVER", "carrier-pigeon")
	_, err = NewPublisherFromEnv()
	assert.Error(t, err)
}

func TestDiagnosisEvent_Payload(t *testing.T) {
	event := NewDiagnosisEvent("api", "s1", []string{"G01", "G02"}, []Candidate{{Code: "P01", Percentage: 40}}, "abc123")
	payload, err := event.Payload()
	require.NoError(t, err)

	assert.Contains(t, string(payload), `"session_id":"s1"`)
	assert.Contains(t, string(payload), `"knowledge_version":"abc123"`)
	assert.NotEmpty(t, event.ID)
}
