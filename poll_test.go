package main

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPoller(t *testing.T, cw *fakeCloudWatch, queues ...string) *poller {
	r, _ := newTestReconciler(t, cw, queues...)
	return &poller{reconciler: r, cfg: r.cfg}
}

func createEventBody(t *testing.T, queueName string) string {
	src := &QueueEvent{}
	src.Detail.EventName = "CreateQueue"
	src.Detail.RequestParameters.QueueName = queueName
	return snsBody(t, src)
}

func TestPollerHandleCreate(t *testing.T) {
	cw := newFakeCloudWatch()
	p := newTestPoller(t, cw, "orders-queue")

	done, err := p.handle(createEventBody(t, "orders-queue"))
	require.NoError(t, err)

	assert.True(t, done)
	assert.Len(t, cw.alarms, 1)
}

func TestPollerHandleMalformedMessageIsDropped(t *testing.T) {
	cw := newFakeCloudWatch()
	p := newTestPoller(t, cw)

	done, err := p.handle("not json")
	assert.Error(t, err)
	assert.True(t, done)
	assert.Zero(t, cw.putCalls)
}

func TestPollerHandleFailedAPICall(t *testing.T) {
	src := &QueueEvent{}
	src.Detail.EventName = "CreateQueue"
	src.Detail.ErrorCode = "AccessDenied"
	src.Detail.RequestParameters.QueueName = "orders-queue"

	cw := newFakeCloudWatch()
	p := newTestPoller(t, cw, "orders-queue")

	done, err := p.handle(snsBody(t, src))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Zero(t, cw.putCalls)
}

func TestPollerHandleUnmanagedQueue(t *testing.T) {
	cw := newFakeCloudWatch()
	p := newTestPoller(t, cw, "temp-batch-queue")
	p.cfg.Queues.Exclude = []string{"temp-*"}

	done, err := p.handle(createEventBody(t, "temp-batch-queue"))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Zero(t, cw.putCalls)
}

func TestPollerHandleVanishedQueueIsDropped(t *testing.T) {
	cw := newFakeCloudWatch()
	p := newTestPoller(t, cw)

	done, err := p.handle(createEventBody(t, "orders-queue"))
	assert.Error(t, err)
	assert.Equal(t, ErrQueueNotFound, errors.Cause(err))
	assert.True(t, done)
	assert.Zero(t, cw.putCalls)
}

func TestPollerHandleTransientFailureIsRetained(t *testing.T) {
	cw := newFakeCloudWatch()
	cw.describeErr = errors.New("throttled")
	p := newTestPoller(t, cw, "orders-queue")

	done, err := p.handle(createEventBody(t, "orders-queue"))
	assert.Error(t, err)
	assert.False(t, done)
}

func TestPollerHandleUnhandledEvent(t *testing.T) {
	src := &QueueEvent{}
	src.Detail.EventName = "PurgeQueue"
	src.Detail.RequestParameters.QueueName = "orders-queue"

	cw := newFakeCloudWatch()
	p := newTestPoller(t, cw, "orders-queue")

	done, err := p.handle(snsBody(t, src))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Zero(t, cw.putCalls)
	assert.Zero(t, cw.describeCalls)
}
