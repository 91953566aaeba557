// Package sse tracks Server-Sent Events clients watching public project pages.
package sse

import (
	"sync"

	"github.com/debemdeboas/microsites/internal/event"
	"github.com/debemdeboas/microsites/internal/model"
)

// ReloadMessage tells a public page to fetch itself again.
const ReloadMessage = "reload"

type Client struct {
	Msg     chan string
	Project model.ProjectID
}

func NewClient(project model.ProjectID) *Client {
	return &Client{
		Msg:     make(chan string, 1),
		Project: project,
	}
}

type SSEClients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewSSEClients() *SSEClients {
	return &SSEClients{
		clients: make(map[*Client]bool),
	}
}

func (s *SSEClients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *SSEClients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[client] {
		delete(s.clients, client)
		close(client.Msg)
	}
}

func (s *SSEClients) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast drops msg for clients that have not consumed the previous one.
func (s *SSEClients) Broadcast(project model.ProjectID, msg string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if client.Project == project {
			select {
			case client.Msg <- msg:
			default:
			}
		}
	}
}

// Listen broadcasts a reload for every event that changes a public page.
func (s *SSEClients) Listen(bus *event.Bus) (func(), error) {
	return bus.Subscribe(func(e event.Event) {
		if e.PublicChange() {
			s.Broadcast(e.Project, ReloadMessage)
		}
	})
}
