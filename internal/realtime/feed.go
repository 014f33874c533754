package realtime

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"helpdesk_backend/internal/logger"
	"helpdesk_backend/pkg/apperrors"
)

type Handler func(ChangeEvent)
type Handle uint64

// Feed - абстракция канала изменений. Подписчики получают события
// асинхронно, порядок между таблицами не гарантируется.
type Feed interface {
	Subscribe(table Table, kinds []EventKind, handler Handler) Handle
	Unsubscribe(handle Handle)
}

type subscription struct {
	table   Table
	kinds   map[EventKind]bool
	handler Handler
}

// Listener слушает Postgres NOTIFY-канал на выделенном соединении и
// раздает события подписчикам. Повторного подключения нет: при обрыве
// локальное состояние подписчиков устаревает до явного обновления.
type Listener struct {
	pool    *pgxpool.Pool
	channel string

	mu      sync.RWMutex
	nextID  Handle
	subs    map[Handle]subscription
	stopped bool

	cancel context.CancelFunc
	done   chan struct{}
}

func NewListener(pool *pgxpool.Pool, channel string) *Listener {
	return &Listener{
		pool:    pool,
		channel: channel,
		nextID:  1,
		subs:    make(map[Handle]subscription),
		done:    make(chan struct{}),
	}
}

func (l *Listener) Subscribe(table Table, kinds []EventKind, handler Handler) Handle {
	kindSet := make(map[EventKind]bool, len(kinds))
	for _, k := range kinds {
		kindSet[k] = true
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.subs[id] = subscription{table: table, kinds: kindSet, handler: handler}
	return id
}

func (l *Listener) Unsubscribe(handle Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.subs, handle)
}

// Run захватывает соединение, выполняет LISTEN и блокируется в цикле
// ожидания уведомлений; запускается в отдельной горутине.
func (l *Listener) Run(ctx context.Context) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		close(l.done)
		return
	}
	ctx, l.cancel = context.WithCancel(ctx)
	l.mu.Unlock()
	defer close(l.done)

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		logger.Error("feed: failed to acquire listen connection", "error", apperrors.ChannelDropped(err))
		return
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+l.channel); err != nil {
		logger.Error("feed: LISTEN failed", "channel", l.channel, "error", apperrors.ChannelDropped(err))
		return
	}
	logger.Info("feed: listening", "channel", l.channel)

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("feed: listener stopped", "channel", l.channel)
				return
			}
			// Обрыв канала: фиксируем и выходим, без ретраев
			logger.Error("feed: connection lost", "channel", l.channel, "error", apperrors.ChannelDropped(err))
			return
		}

		event, err := ParseEvent([]byte(notification.Payload))
		if err != nil {
			logger.FeedLog(l.channel, "parse", err)
			continue
		}
		logger.FeedLog(l.channel, string(event.Table)+"/"+string(event.Kind), nil)
		l.dispatch(event)
	}
}

// Stop останавливает цикл и дожидается его выхода. Безопасен до Run:
// запущенный позже Run сразу завершится.
func (l *Listener) Stop() {
	l.mu.Lock()
	l.stopped = true
	cancel := l.cancel
	l.mu.Unlock()

	if cancel == nil {
		// Run еще не стартовал: ждать нечего
		return
	}
	cancel()
	<-l.done
}

func (l *Listener) dispatch(event ChangeEvent) {
	l.mu.RLock()
	handlers := make([]Handler, 0, len(l.subs))
	for _, sub := range l.subs {
		if sub.table == event.Table && sub.kinds[event.Kind] {
			handlers = append(handlers, sub.handler)
		}
	}
	l.mu.RUnlock()

	// Обработчики зовутся вне блокировки: они сами ходят в сторы
	for _, handler := range handlers {
		handler(event)
	}
}
