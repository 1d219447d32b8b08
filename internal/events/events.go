package events

import (
	"context"
	"time"

	"parceltrack-backend/internal/logger"

	"github.com/google/uuid"
)

// Event types consumed by the notification layer. Payloads are plain data;
// delivery transport beyond publishing is out of scope here.
const (
	TypeParcelDelivered  = "parcel.delivered"
	TypeShipmentUploaded = "shipment.uploaded"
)

type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type ParcelDeliveredPayload struct {
	PackageID      uint   `json:"package_id"`
	TrackingNumber string `json:"tracking_number"`
	DeliveredBy    string `json:"delivered_by"`
}

type ShipmentUploadedPayload struct {
	ShipmentID uint   `json:"shipment_id"`
	ProviderID uint   `json:"provider_id"`
	Rows       int    `json:"rows"`
	UploadedBy string `json:"uploaded_by"`
}

// Publisher delivers one event. Implementations: KafkaPublisher, LogPublisher.
type Publisher interface {
	Publish(ctx context.Context, key string, event Event) error
	Close() error
}

// Emitter wraps a Publisher with fire-and-forget semantics: failures are
// logged, never propagated to the mutation that produced the event.
type Emitter struct {
	pub Publisher
	log *logger.Logger
}

func NewEmitter(pub Publisher, log *logger.Logger) *Emitter {
	return &Emitter{pub: pub, log: log}
}

// Emit publishes asynchronously with its own timeout so a slow broker never
// blocks or aborts the caller's transaction.
func (e *Emitter) Emit(eventType, key string, payload any) {
	evt := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.pub.Publish(ctx, key, evt); err != nil {
			e.log.Error("event publish failed", "type", eventType, "key", key, "error", err)
		}
	}()
}

func (e *Emitter) Close() error { return e.pub.Close() }

// LogPublisher writes events to the structured log. Used when no broker is
// configured.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher { return &LogPublisher{log: log} }

func (p *LogPublisher) Publish(_ context.Context, key string, event Event) error {
	p.log.Info("domain event", "type", event.Type, "key", key, "id", event.ID, "payload", event.Payload)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
