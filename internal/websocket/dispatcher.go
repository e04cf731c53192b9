package websocket

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marco/chatlink/internal/domain"
	"github.com/marco/chatlink/internal/metrics"
	"github.com/marco/chatlink/internal/repository"
	"go.uber.org/zap"
)

const fanoutTimeout = 5 * time.Second

// Dispatcher is the stateless notification fan-out: it resolves the target's
// connection through the registry and delivers the event if the user is
// online. Offline targets are a silent drop; there is no persistence or
// replay, clients pick the state up on their next fetch.
type Dispatcher struct {
	registry    *Registry
	friendships repository.FriendshipRepository
	collector   *metrics.Collector
	log         *zap.Logger
}

func NewDispatcher(registry *Registry, friendships repository.FriendshipRepository, collector *metrics.Collector, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		friendships: friendships,
		collector:   collector,
		log:         log,
	}
}

// PresenceChanged notifies every online friend of the user. The friend list
// is read at the moment of the transition; a failure to read it is logged
// and swallowed so the presence transition itself is never affected.
func (d *Dispatcher) PresenceChanged(userID uuid.UUID, online bool) {
	ctx, cancel := context.WithTimeout(context.Background(), fanoutTimeout)
	defer cancel()

	edges, err := d.friendships.ListByOwner(ctx, userID)
	if err != nil {
		d.log.Warn("presence fan-out: failed to read friend list",
			zap.String("user", userID.String()), zap.Error(err))
		return
	}

	payload := PresencePayload{UserID: userID, IsOnline: online}
	for _, edge := range edges {
		if edge.IsPending || edge.IsRejected {
			continue
		}
		d.emit(edge.FriendID, EventPresenceChanged, payload)
	}
}

func (d *Dispatcher) FriendRequestCreated(toUserID uuid.UUID, req *domain.FriendRequest) {
	d.emit(toUserID, EventFriendRequestCreated, req)
}

func (d *Dispatcher) FriendRequestResolved(userID uuid.UUID, req *domain.FriendRequest) {
	d.emit(userID, EventFriendRequestResolved, RequestResolvedPayload{
		RequestID:  req.ID,
		FromUserID: req.FromUserID,
		ToUserID:   req.ToUserID,
		Status:     req.Status,
	})
}

// MessageDelivered pushes the message to the receiver and echoes it to the
// sender's own connection so the sender's other views update without a
// refetch.
func (d *Dispatcher) MessageDelivered(msg *domain.Message) {
	d.emit(msg.ReceiverID, EventMessageDelivered, msg)
	d.emit(msg.SenderID, EventMessageDelivered, msg)
}

func (d *Dispatcher) emit(userID uuid.UUID, eventType EventType, payload interface{}) {
	client, ok := d.registry.Resolve(userID)
	if !ok {
		d.collector.RecordEventDropped(string(eventType))
		return
	}

	ev, err := NewEvent(eventType, payload)
	if err != nil {
		d.log.Warn("failed to build event", zap.String("type", string(eventType)), zap.Error(err))
		return
	}

	if client.Send(ev) {
		d.collector.RecordEventDelivered(string(eventType))
	} else {
		d.collector.RecordEventDropped(string(eventType))
	}
}
