package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestListener_StopBeforeRun - Stop до Run возвращается сразу, а
// запущенный после него Run завершается, не трогая пул
func TestListener_StopBeforeRun(t *testing.T) {
	t.Parallel()

	listener := NewListener(nil, "support_changes")

	stopped := make(chan struct{})
	go func() {
		listener.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop завис без запущенного Run")
	}

	// Run после Stop выходит до обращения к пулу, nil-пул это проверяет
	finished := make(chan struct{})
	go func() {
		listener.Run(context.Background())
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Run не заметил остановку")
	}
}

// TestListener_SubscribeDispatch - события доходят только до
// подписчиков нужной таблицы и вида
func TestListener_SubscribeDispatch(t *testing.T) {
	t.Parallel()

	listener := NewListener(nil, "support_changes")

	var messages, conversations int
	listener.Subscribe(TableMessages, []EventKind{EventInsert}, func(ChangeEvent) {
		messages++
	})
	handle := listener.Subscribe(TableConversations, []EventKind{EventUpdate}, func(ChangeEvent) {
		conversations++
	})

	listener.dispatch(ChangeEvent{Table: TableMessages, Kind: EventInsert})
	listener.dispatch(ChangeEvent{Table: TableConversations, Kind: EventInsert})
	assert.Equal(t, 1, messages)
	assert.Equal(t, 0, conversations)

	listener.Unsubscribe(handle)
	listener.dispatch(ChangeEvent{Table: TableConversations, Kind: EventUpdate})
	assert.Equal(t, 0, conversations)
}
