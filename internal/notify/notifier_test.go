package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	name   string
	err    error
	titles []string
}

func (f *fakeSender) Send(ctx context.Context, title, message string) error {
	if f.err != nil {
		return f.err
	}
	f.titles = append(f.titles, title)
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNotifyEmptyFilterAllowsEverything(t *testing.T) {
	s := &fakeSender{name: "a"}
	n := NewNotifier([]Sender{s}, nil, testLogger())

	require.NoError(t, n.Notify(context.Background(), EventOpportunity, "t1", "m"))
	require.NoError(t, n.Notify(context.Background(), EventTradeCompleted, "t2", "m"))
	assert.Equal(t, []string{"t1", "t2"}, s.titles)
}

func TestNotifyFiltersUnlistedEvents(t *testing.T) {
	s := &fakeSender{name: "a"}
	n := NewNotifier([]Sender{s}, []string{EventTradeCompleted}, testLogger())

	require.NoError(t, n.Notify(context.Background(), EventOpportunity, "skipped", "m"))
	require.NoError(t, n.Notify(context.Background(), EventTradeCompleted, "sent", "m"))
	assert.Equal(t, []string{"sent"}, s.titles)
}

func TestNotifyCriticalEventsBypassFilter(t *testing.T) {
	s := &fakeSender{name: "a"}
	// Filter names only completions, yet partial fills and halts get through.
	n := NewNotifier([]Sender{s}, []string{EventTradeCompleted}, testLogger())

	require.NoError(t, n.Notify(context.Background(), EventPartialFill, "unhedged", "m"))
	require.NoError(t, n.Notify(context.Background(), EventHalted, "halted", "m"))
	assert.Equal(t, []string{"unhedged", "halted"}, s.titles)
}

func TestNotifyContinuesPastFailedSender(t *testing.T) {
	broken := &fakeSender{name: "broken", err: errors.New("http 500")}
	ok := &fakeSender{name: "ok"}
	n := NewNotifier([]Sender{broken, ok}, nil, testLogger())

	err := n.Notify(context.Background(), EventHalted, "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	// The healthy sender still got the message.
	assert.Equal(t, []string{"t"}, ok.titles)
}

func TestNotifyNoSenders(t *testing.T) {
	n := NewNotifier(nil, nil, testLogger())
	assert.NoError(t, n.Notify(context.Background(), EventHalted, "t", "m"))
}
