package rules

import (
	"sync"
	"time"
)

// EventType indicates the category of a rules event.
type EventType string

const (
	// Game lifecycle events
	EventGameCreated   EventType = "GAME_CREATED"
	EventGameStarted   EventType = "GAME_STARTED"
	EventGameCompleted EventType = "GAME_COMPLETED"
	EventGameCancelled EventType = "GAME_CANCELLED"
	EventGamePaused    EventType = "GAME_PAUSED"
	EventGameResumed   EventType = "GAME_RESUMED"

	// Dealing and placement events
	EventCardsDealt    EventType = "CARDS_DEALT"
	EventCardPlaced    EventType = "CARD_PLACED"
	EventCardDiscarded EventType = "CARD_DISCARDED"

	// Turn and round events
	EventTurnAdvanced   EventType = "TURN_ADVANCED"
	EventRoundStarted   EventType = "ROUND_STARTED"
	EventRoundCompleted EventType = "ROUND_COMPLETED"

	// Layout events
	EventLayoutCompleted EventType = "LAYOUT_COMPLETED"
	EventPlayerFouled    EventType = "PLAYER_FOULED"

	// Fantasy land events
	EventFantasyLandEntered EventType = "FANTASY_LAND_ENTERED"
	EventFantasyLandStayed  EventType = "FANTASY_LAND_STAYED"
	EventFantasyLandExited  EventType = "FANTASY_LAND_EXITED"

	// Scoring events
	EventScoresSettled EventType = "SCORES_SETTLED"
)

// Event represents a state change that other subsystems may react to.
type Event struct {
	Type        EventType
	ID          string // Unique event ID
	GameID      string
	PlayerID    string            // Player the event concerns, if any
	Card        string            // Card code such as "As", if any
	Row         string            // Row name such as "TOP", if any
	Round       int               // Round the event occurred in
	Amount      int               // Numeric value (score, royalty, card count)
	Data        string            // Additional string data
	Timestamp   time.Time         // When the event occurred
	Metadata    map[string]string // Additional metadata
	Description string            // Human-readable description
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus provides a synchronous publish/subscribe implementation with type filtering.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener              // All listeners
	typedListeners map[EventType][]TypedListener // Listeners filtered by event type
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	listener := TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	}
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], listener)
	return handle
}

// Unsubscribe removes the listener identified by the provided handle.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	for _, listener := range bus.listeners {
		listener(event)
	}

	if typedListeners, ok := bus.typedListeners[event.Type]; ok {
		for _, listener := range typedListeners {
			listener.Callback(event)
		}
	}
}

// PublishBatch publishes multiple events in order.
func (bus *EventBus) PublishBatch(events []Event) {
	for _, event := range events {
		bus.Publish(event)
	}
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, gameID, playerID string) Event {
	return Event{
		Type:      eventType,
		GameID:    gameID,
		PlayerID:  playerID,
		Timestamp: time.Now(),
		Metadata:  make(map[string]string),
	}
}

// NewCardEvent creates a placement or discard event for a single card.
func NewCardEvent(eventType EventType, gameID, playerID, card, row string) Event {
	evt := NewEvent(eventType, gameID, playerID)
	evt.Card = card
	evt.Row = row
	return evt
}

// NewEventWithAmount creates a new event with an amount value.
func NewEventWithAmount(eventType EventType, gameID, playerID string, amount int) Event {
	evt := NewEvent(eventType, gameID, playerID)
	evt.Amount = amount
	return evt
}
