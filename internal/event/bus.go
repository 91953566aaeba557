// Package event carries project domain events between the service and its
// consumers (live reload, page mirroring) over a watermill gochannel.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/microsites/internal/model"
)

var eventLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	eventLogger = l
}

type Type string

const (
	ProjectCreated     Type = "project.created"
	ProjectUpdated     Type = "project.updated"
	ProjectDeleted     Type = "project.deleted"
	ProjectStateSaved  Type = "project.state_saved"
	ProjectPublished   Type = "project.published"
	ProjectUnpublished Type = "project.unpublished"
	ProfileSaved       Type = "profile.saved"
	RoleAssigned       Type = "role.assigned"
)

const topic = "microsites.events"

const metadataType = "type"

var ErrClosed = errors.New("event bus closed")

type Event struct {
	Type    Type            `json:"type"`
	Project model.ProjectID `json:"project_id,omitempty"`
	User    model.UserID    `json:"user,omitempty"`
	// Published is the publish state of the project after the change.
	Published bool `json:"published"`
}

// PublicChange reports whether the public page of the project may have changed.
func (e Event) PublicChange() bool {
	switch e.Type {
	case ProjectPublished, ProjectUnpublished, ProjectDeleted:
		return true
	case ProjectStateSaved:
		return e.Published
	}
	return false
}

// Bus delivers every event to every live subscriber. Delivery is
// asynchronous and not ordered across events.
type Bus struct {
	pubsub *gochannel.GoChannel

	mu     sync.RWMutex
	closed bool
}

func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 64,
				Persistent:          false,
			},
			newWatermillLogger(eventLogger),
		),
	}
}

func (b *Bus) Publish(e Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metadataType, string(e.Type))

	eventLogger.Debug().Str("type", string(e.Type)).Stringer("project", e.Project).Str("msg_uuid", msg.UUID).Msg("Publishing event")
	return b.pubsub.Publish(topic, msg)
}

// Subscribe calls fn for every event of the given types, or of every type
// when none are given. The returned function stops the subscription.
func (b *Bus) Subscribe(fn func(Event), types ...Type) (func(), error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithCancel(context.Background())
	messages, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		cancel()
		return nil, err
	}

	want := make(map[Type]bool, len(types))
	for _, t := range types {
		want[t] = true
	}

	go func() {
		for msg := range messages {
			if len(want) > 0 && !want[Type(msg.Metadata.Get(metadataType))] {
				msg.Ack()
				continue
			}

			var e Event
			if err := json.Unmarshal(msg.Payload, &e); err != nil {
				eventLogger.Error().Err(err).Str("msg_uuid", msg.UUID).Msg("Dropping malformed event")
				msg.Ack()
				continue
			}
			fn(e)
			msg.Ack()
		}
	}()

	return cancel, nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}
