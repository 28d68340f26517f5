package streamcapture

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil-worker-go/internal/models"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeCapture struct {
	opened   atomic.Bool
	readOK   atomic.Bool
	reads    atomic.Int32
	closures atomic.Int32
}

func (f *fakeCapture) Read() (*models.RawFrame, bool) {
	f.reads.Add(1)
	if !f.opened.Load() || !f.readOK.Load() {
		return nil, false
	}
	return &models.RawFrame{Data: []byte{1, 2, 3}, Width: 1, Height: 1}, true
}

func (f *fakeCapture) IsOpened() bool { return f.opened.Load() }

func (f *fakeCapture) Close() error {
	f.closures.Add(1)
	f.opened.Store(false)
	return nil
}

type fakeOpener struct {
	mu       sync.Mutex
	fail     bool
	readOK   bool
	sources  []string
	captures []*fakeCapture
}

func (o *fakeOpener) Open(source string, _ CaptureOptions) (Capture, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sources = append(o.sources, source)
	if o.fail {
		return nil, errors.New("device busy")
	}
	c := &fakeCapture{}
	c.opened.Store(true)
	c.readOK.Store(o.readOK)
	o.captures = append(o.captures, c)
	return c, nil
}

func (o *fakeOpener) calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sources)
}

func (o *fakeOpener) openHandles() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, c := range o.captures {
		if c.IsOpened() {
			n++
		}
	}
	return n
}

type recordingReporter struct {
	mu       sync.Mutex
	statuses []models.SystemStatus
}

func (r *recordingReporter) ReportStatus(_ *Connection, status models.SystemStatus) {
	r.mu.Lock()
	r.statuses = append(r.statuses, status)
	r.mu.Unlock()
}

func (r *recordingReporter) last() models.SystemStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return ""
	}
	return r.statuses[len(r.statuses)-1]
}

func testOptions(clock *fakeClock) Options {
	return Options{
		MaxRetries:     3,
		StaleThreshold: 5 * time.Second,
		Backoff:        BackoffPolicy{Min: 2 * time.Second, Max: 2 * time.Second},
		Clock:          clock.Now,
	}
}

func TestConnection_ConnectAndRead(t *testing.T) {
	clock := newFakeClock()
	opener := &fakeOpener{readOK: true}
	reporter := &recordingReporter{}
	conn := NewConnection("cam-1", "0", opener, testOptions(clock), reporter)

	require.True(t, conn.Connect())
	assert.Equal(t, models.SystemStatusRunning, reporter.last())
	assert.True(t, conn.IsOpen())

	first, ok := conn.Read()
	require.True(t, ok)
	second, ok := conn.Read()
	require.True(t, ok)

	assert.Equal(t, "cam-1", first.CameraID)
	assert.Equal(t, int64(1), first.FrameID)
	assert.Equal(t, int64(2), second.FrameID)
	assert.Equal(t, clock.Now(), first.Timestamp)
}

func TestConnection_ConnectFailureReportsOffline(t *testing.T) {
	clock := newFakeClock()
	opener := &fakeOpener{fail: true}
	reporter := &recordingReporter{}
	conn := NewConnection("cam-1", "rtsp://bad", opener, testOptions(clock), reporter)

	assert.False(t, conn.Connect())
	assert.Equal(t, models.SystemStatusOffline, reporter.last())
	assert.False(t, conn.IsOpen())
}

func TestConnection_ReadRetriesWithinCeilingThenBacksOff(t *testing.T) {
	clock := newFakeClock()
	opener := &fakeOpener{fail: true}
	conn := NewConnection("cam-1", "rtsp://bad", opener, testOptions(clock), &recordingReporter{})

	for i := 0; i < 3; i++ {
		frame, ok := conn.Read()
		assert.False(t, ok)
		assert.Nil(t, frame)
	}
	assert.Equal(t, 3, opener.calls())

	// ceiling reached: no further attempts until the backoff window passes
	_, ok := conn.Read()
	assert.False(t, ok)
	assert.Equal(t, 3, opener.calls())

	clock.Advance(3 * time.Second)
	_, ok = conn.Read()
	assert.False(t, ok)
	assert.Equal(t, 4, opener.calls())
}

func TestConnection_ReconnectRecoversAndRetriesReadOnce(t *testing.T) {
	clock := newFakeClock()
	opener := &fakeOpener{fail: true, readOK: true}
	conn := NewConnection("cam-1", "0", opener, testOptions(clock), &recordingReporter{})

	_, ok := conn.Read()
	assert.False(t, ok)

	opener.mu.Lock()
	opener.fail = false
	opener.mu.Unlock()

	frame, ok := conn.Read()
	require.True(t, ok)
	assert.Equal(t, int64(1), frame.FrameID)
	assert.Equal(t, 2, opener.calls())
}

func TestConnection_StaleSourceReconnects(t *testing.T) {
	clock := newFakeClock()
	opener := &fakeOpener{readOK: false}
	reporter := &recordingReporter{}
	conn := NewConnection("cam-1", "0", opener, testOptions(clock), reporter)
	require.True(t, conn.Connect())

	// transient hiccup inside the staleness window
	clock.Advance(2 * time.Second)
	_, ok := conn.Read()
	assert.False(t, ok)
	assert.Equal(t, 1, opener.calls())

	clock.Advance(4 * time.Second)
	_, ok = conn.Read()
	assert.False(t, ok)
	assert.Equal(t, 2, opener.calls())
	assert.Equal(t, 1, opener.openHandles())

	reporter.mu.Lock()
	statuses := append([]models.SystemStatus(nil), reporter.statuses...)
	reporter.mu.Unlock()
	assert.Equal(t, []models.SystemStatus{
		models.SystemStatusRunning,
		models.SystemStatusOffline,
		models.SystemStatusRunning,
	}, statuses)
}

func TestConnection_ReleaseIsIdempotentAndFinal(t *testing.T) {
	clock := newFakeClock()
	opener := &fakeOpener{readOK: true}
	conn := NewConnection("cam-1", "0", opener, testOptions(clock), nil)
	require.True(t, conn.Connect())

	conn.Release()
	conn.Release()
	assert.False(t, conn.IsOpen())
	assert.Equal(t, int32(1), opener.captures[0].closures.Load())

	_, ok := conn.Read()
	assert.False(t, ok)
	assert.Equal(t, 1, opener.calls(), "a released connection must not reopen")
}

func TestConnection_SwitchSource(t *testing.T) {
	clock := newFakeClock()
	opener := &fakeOpener{readOK: true}
	conn := NewConnection("cam-1", "0", opener, testOptions(clock), nil)
	require.True(t, conn.Connect())

	require.True(t, conn.SwitchSource("rtsp://10.0.0.5/stream"))

	assert.Equal(t, "rtsp://10.0.0.5/stream", conn.Source())
	assert.Equal(t, []string{"0", "rtsp://10.0.0.5/stream"}, opener.sources)
	assert.Equal(t, 1, opener.openHandles())
}

func TestBackoffPolicy_CalculateBackoffDelay(t *testing.T) {
	policy := BackoffPolicy{Min: time.Second, Max: 30 * time.Second, JitterPct: 20}

	tests := []struct {
		attempt int
		base    time.Duration
	}{
		{attempt: 0, base: time.Second},
		{attempt: 2, base: 4 * time.Second},
		{attempt: 10, base: 30 * time.Second},
		{attempt: 100, base: 30 * time.Second},
	}

	for _, tt := range tests {
		delay := policy.CalculateBackoffDelay(tt.attempt)
		assert.GreaterOrEqual(t, delay, tt.base*8/10)
		assert.LessOrEqual(t, delay, tt.base*12/10)
	}
}

func TestConnection_ReleasedRefusesConnectAndSwitch(t *testing.T) {
	clock := newFakeClock()
	opener := &fakeOpener{readOK: true}
	conn := NewConnection("cam-1", "0", opener, testOptions(clock), nil)
	conn.Release()

	assert.False(t, conn.Connect())
	assert.False(t, conn.SwitchSource("1"))
	assert.Equal(t, 0, opener.calls())
}

type stallingCapture struct {
	*fakeCapture
	entered chan struct{}
	unblock chan struct{}
}

func (s *stallingCapture) Read() (*models.RawFrame, bool) {
	s.entered <- struct{}{}
	<-s.unblock
	return s.fakeCapture.Read()
}

type stallingOpener struct {
	capture *stallingCapture
}

func (o *stallingOpener) Open(string, CaptureOptions) (Capture, error) {
	o.capture.opened.Store(true)
	return o.capture, nil
}

func TestConnection_IsOpenDoesNotWaitForRead(t *testing.T) {
	capture := &stallingCapture{
		fakeCapture: &fakeCapture{},
		entered:     make(chan struct{}, 1),
		unblock:     make(chan struct{}),
	}
	capture.readOK.Store(true)
	conn := NewConnection("cam-1", "0", &stallingOpener{capture: capture}, testOptions(newFakeClock()), nil)
	require.True(t, conn.Connect())

	readDone := make(chan bool, 1)
	go func() {
		_, ok := conn.Read()
		readDone <- ok
	}()
	<-capture.entered

	open := make(chan bool, 1)
	go func() { open <- conn.IsOpen() }()
	select {
	case v := <-open:
		assert.True(t, v)
	case <-time.After(2 * time.Second):
		t.Fatal("IsOpen waited for the in-flight read")
	}

	close(capture.unblock)
	assert.True(t, <-readDone)

	conn.Release()
	assert.False(t, conn.IsOpen())
}
