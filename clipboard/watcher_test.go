package clipboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"cliprecipe/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errFlaky = errors.New("flaky")

func TestPollForChange_DetectsNewText(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	w := NewWatcher(b, nil)

	snap, err := w.PollForChange(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap, "empty clipboard yields nothing")

	b.SetText("hello")
	snap, err = w.PollForChange(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "hello", snap.Content)
	assert.Equal(t, model.FingerprintOf("hello"), snap.Fingerprint)

	snap, err = w.PollForChange(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap, "same content is not a change")
}

func TestPollForChange_IgnoresNonText(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	w := NewWatcher(b, nil)

	b.SetImage()
	snap, err := w.PollForChange(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestPrime_SkipsStartupContent(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	b.SetText("already there")
	w := NewWatcher(b, nil)

	require.NoError(t, w.Prime(ctx))
	snap, err := w.PollForChange(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSelfWriteSuppression(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	w := NewWatcher(b, nil)

	b.SetText("Hello")
	snap, err := w.PollForChange(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)

	require.NoError(t, w.WriteBack(ctx, "hello"))
	assert.Equal(t, model.FingerprintOf("hello"), w.SelfWriteFingerprint())

	snap, err = w.PollForChange(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap, "own write is not re-emitted")
	assert.Empty(t, w.SelfWriteFingerprint())

	b.SetText("next")
	snap, err = w.PollForChange(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "next", snap.Content)
}

func TestSelfWriteClearedByForeignChange(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	w := NewWatcher(b, nil)

	require.NoError(t, w.WriteBack(ctx, "mine"))
	b.SetText("theirs")

	snap, err := w.PollForChange(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "theirs", snap.Content)
	assert.Empty(t, w.SelfWriteFingerprint())
}

func TestWriteBack_RetriesOnceThenAbandons(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	b.SetText("original")
	w := NewWatcher(b, nil)

	b.Fail(0, 1, errFlaky)
	require.NoError(t, w.WriteBack(ctx, "first"))
	assert.Equal(t, "first", b.Text())

	b.Fail(0, 2, errFlaky)
	err := w.WriteBack(ctx, "second")
	require.Error(t, err)
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, "first", b.Text(), "content left untouched")
	assert.Empty(t, w.SelfWriteFingerprint())
}

func TestRead(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	w := NewWatcher(b, nil)

	_, err := w.Read(ctx)
	assert.ErrorIs(t, err, ErrNoText)

	b.SetText("x")
	b.Fail(1, 0, errFlaky)
	text, err := w.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "x", text)

	b.Fail(2, 0, errFlaky)
	_, err = w.Read(ctx)
	assert.ErrorIs(t, err, errFlaky)
}

type slowBackend struct {
	release chan struct{}
}

func (s slowBackend) ReadText(ctx context.Context) (string, bool, error) {
	<-s.release
	return "late", true, nil
}

func (s slowBackend) WriteText(ctx context.Context, text string) error {
	<-s.release
	return nil
}

func TestOperationsAreBounded(t *testing.T) {
	sb := slowBackend{release: make(chan struct{})}
	defer close(sb.release)
	w := NewWatcher(sb, nil, WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := w.PollForChange(context.Background())
	assert.True(t, errors.Is(err, model.ErrClipboardUnavailable))
	assert.Less(t, time.Since(start), time.Second)
}

func TestRun_EmitsChanges(t *testing.T) {
	b := NewMemoryBackend()
	b.SetText("startup")
	w := NewWatcher(b, nil, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// 等待 Run 记录启动时的内容
	time.Sleep(50 * time.Millisecond)
	b.SetText("copied")
	select {
	case snap := <-w.Changes():
		assert.Equal(t, "copied", snap.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("no change emitted")
	}
}

// gatedBackend 写入阻塞到 gate 关闭
type gatedBackend struct {
	*MemoryBackend
	gate chan struct{}
	err  error
}

func newGatedBackend(err error) *gatedBackend {
	return &gatedBackend{MemoryBackend: NewMemoryBackend(), gate: make(chan struct{}), err: err}
}

func (g *gatedBackend) WriteText(ctx context.Context, text string) error {
	<-g.gate
	if g.err != nil {
		return g.err
	}
	return g.MemoryBackend.WriteText(ctx, text)
}

func TestWriteBack_SlowWriteStaysSuppressed(t *testing.T) {
	ctx := context.Background()
	b := newGatedBackend(nil)
	b.SetText("hello")
	w := NewWatcher(b, nil, WithTimeout(30*time.Millisecond))
	require.NoError(t, w.Prime(ctx))

	err := w.WriteBack(ctx, "HELLO")
	assert.ErrorIs(t, err, ErrWritePending)
	assert.Equal(t, model.FingerprintOf("HELLO"), w.SelfWriteFingerprint())

	// 写入未结束时不开始新的写入
	err = w.WriteBack(ctx, "other")
	assert.ErrorIs(t, err, model.ErrClipboardUnavailable)
	assert.Equal(t, model.FingerprintOf("HELLO"), w.SelfWriteFingerprint())

	// 写入结束前看到的旧内容不算变化，指纹仍然有效
	snap, err := w.PollForChange(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	close(b.gate)
	require.Eventually(t, func() bool { return b.Text() == "HELLO" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, b.Writes())

	snap, err = w.PollForChange(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap, "late self-write is not reported")
	assert.Empty(t, w.SelfWriteFingerprint())
}

func TestWriteBack_LateFailureClearsFingerprint(t *testing.T) {
	ctx := context.Background()
	b := newGatedBackend(errFlaky)
	b.SetText("hello")
	w := NewWatcher(b, nil, WithTimeout(30*time.Millisecond))

	assert.ErrorIs(t, w.WriteBack(ctx, "HELLO"), ErrWritePending)
	close(b.gate)
	require.Eventually(t, func() bool { return w.SelfWriteFingerprint() == "" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "hello", b.Text())
	assert.Zero(t, b.Writes())

	// 之前的写入结束后可以正常写入；这次同样失败，重试一次后放弃
	err := w.WriteBack(ctx, "again")
	assert.ErrorIs(t, err, errFlaky)
	assert.NotErrorIs(t, err, ErrWritePending)
}
