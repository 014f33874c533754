package ws

import (
	"sync"

	"helpdesk_backend/internal/logger"
)

// Manager держит подключенных операторских UI-клиентов и доставляет им
// срезы состояния инбокса после каждой мутации
type Manager struct {
	clients    map[string]*Client // ключ: operator id
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (manager *Manager) Run() {
	for {
		select {
		case client := <-manager.register:
			manager.mu.Lock()
			if old, ok := manager.clients[client.ID]; ok {
				close(old.Send)
			}
			manager.clients[client.ID] = client
			manager.mu.Unlock()
			logger.Info("ws client registered", "operator_id", client.ID)

		case client := <-manager.unregister:
			manager.mu.Lock()
			if current, ok := manager.clients[client.ID]; ok && current == client {
				close(client.Send)
				delete(manager.clients, client.ID)
				logger.Info("ws client unregistered", "operator_id", client.ID)
			}
			manager.mu.Unlock()
		}
	}
}

// PushToOperator отправляет сообщение клиенту оператора, если тот
// подключен. Заполненный канал отключает клиента, не блокируя отправителя.
func (manager *Manager) PushToOperator(operatorID string, message any) {
	manager.mu.RLock()
	client, ok := manager.clients[operatorID]
	manager.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case client.Send <- message:
	default:
		logger.Warn("ws client send buffer full, disconnecting", "operator_id", operatorID)
		go func() {
			manager.unregister <- client
		}()
	}
}

// IsConnected проверяет, подключен ли оператор
func (manager *Manager) IsConnected(operatorID string) bool {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	_, exists := manager.clients[operatorID]
	return exists
}
