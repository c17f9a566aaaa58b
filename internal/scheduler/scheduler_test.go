package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDayTimes(t *testing.T) {
	times, err := ParseDayTimes([]string{"21:00", "09:00", "15:00"})
	require.NoError(t, err)
	require.Len(t, times, 3)
	// 解析后按时刻升序
	assert.Equal(t, "09:00", times[0].String())
	assert.Equal(t, "15:00", times[1].String())
	assert.Equal(t, "21:00", times[2].String())
}

func TestParseDayTimesRejectsInvalid(t *testing.T) {
	for _, raw := range []string{"9", "25:00", "09:60", "ab:cd", ""} {
		_, err := ParseDayTimes([]string{raw})
		assert.Error(t, err, "raw=%q", raw)
	}
	_, err := ParseDayTimes(nil)
	assert.Error(t, err)
}

func newTestScheduler(t *testing.T) *DailyScheduler {
	t.Helper()
	times, err := ParseDayTimes([]string{"09:00", "15:00", "21:00"})
	require.NoError(t, err)
	s, err := New(Config{Times: times}, func(context.Context) error { return nil })
	require.NoError(t, err)
	return s
}

func TestNextRunSameDay(t *testing.T) {
	s := newTestScheduler(t)
	after := time.Date(2026, 8, 29, 10, 30, 0, 0, time.Local)
	next := s.NextRun(after)
	assert.Equal(t, time.Date(2026, 8, 29, 15, 0, 0, 0, time.Local), next)
}

func TestNextRunExactSlotSkipsToNext(t *testing.T) {
	s := newTestScheduler(t)
	// 恰好落在时刻本身时取下一个, 避免同一时刻重复触发
	after := time.Date(2026, 8, 29, 15, 0, 0, 0, time.Local)
	next := s.NextRun(after)
	assert.Equal(t, time.Date(2026, 8, 29, 21, 0, 0, 0, time.Local), next)
}

func TestNextRunRollsToNextDay(t *testing.T) {
	s := newTestScheduler(t)
	after := time.Date(2026, 8, 29, 22, 15, 0, 0, time.Local)
	next := s.NextRun(after)
	assert.Equal(t, time.Date(2026, 8, 30, 9, 0, 0, 0, time.Local), next)
}

func TestRunOncePanicRecovers(t *testing.T) {
	times, err := ParseDayTimes([]string{"09:00"})
	require.NoError(t, err)
	s, err := New(Config{Times: times, Cooldown: time.Millisecond}, func(context.Context) error {
		panic("boom")
	})
	require.NoError(t, err)

	// panic 被吸收并按普通失败冷却, 调度循环不终止
	err = s.runOnce(context.Background())
	assert.NoError(t, err)
}

func TestRunImmediatelyThenCancel(t *testing.T) {
	times, err := ParseDayTimes([]string{"09:00"})
	require.NoError(t, err)

	ran := make(chan struct{}, 1)
	s, err := New(Config{Times: times, PollInterval: 10 * time.Millisecond, RunImmediately: true},
		func(context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("启动后未立即执行周期")
	}
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("调度循环未随 ctx 退出")
	}
}
