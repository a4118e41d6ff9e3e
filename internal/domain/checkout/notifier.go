package checkout

import "context"

// Message is a single outbound notification
type Message struct {
	Recipient string
	Subject   string
	BodyText  string
}

// DeliveryStatus is the outcome of one notification delivery
type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// Delivery records the outcome of one notification attempt
type Delivery struct {
	Name      string         `json:"name"`
	Recipient string         `json:"recipient"`
	Status    DeliveryStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
}

// DeliveryReport aggregates the outcomes of a dispatch round. Deliveries are
// independent; one failing never prevents the others, and no failure rolls
// back the order.
type DeliveryReport struct {
	Deliveries []Delivery `json:"deliveries"`
}

// AllSent returns true if every delivery succeeded
func (r DeliveryReport) AllSent() bool {
	for _, d := range r.Deliveries {
		if d.Status != DeliveryStatusSent {
			return false
		}
	}
	return true
}

// Add records a delivery outcome
func (r *DeliveryReport) Add(name, recipient string, err error) {
	d := Delivery{Name: name, Recipient: recipient, Status: DeliveryStatusSent}
	if err != nil {
		d.Status = DeliveryStatusFailed
		d.Error = err.Error()
	}
	r.Deliveries = append(r.Deliveries, d)
}

// Notifier delivers a single message to its recipient
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
