package domain

import (
	"time"

	"github.com/google/uuid"
)

type MovementType string

const (
	MovementPurchase MovementType = "purchase"
	MovementPayment  MovementType = "payment"
	MovementTrial    MovementType = "trial"
)

type PaymentMode string

const (
	PaymentFull    PaymentMode = "full"
	PaymentPartial PaymentMode = "partial"
	PaymentNone    PaymentMode = "none"
)

func ParsePaymentMode(s string) (PaymentMode, error) {
	switch PaymentMode(s) {
	case PaymentFull, PaymentPartial, PaymentNone:
		return PaymentMode(s), nil
	}
	return "", ErrInvalid
}

// Movement es un evento histórico sobre la cuenta de una clienta. Los campos
// de prenda quedan vacíos en los pagos; Price es el total de la compra o el
// precio congelado al momento de la prueba.
type Movement struct {
	ID       uuid.UUID    `json:"id"`
	Type     MovementType `json:"type"`
	Date     time.Time    `json:"date"`
	Item     string       `json:"item,omitempty"`
	Size     Size         `json:"size,omitempty"`
	Quantity int          `json:"quantity,omitempty"`
	Price    float64      `json:"price,omitempty"`
	Payment  PaymentMode  `json:"payment,omitempty"`
	Amount   float64      `json:"amount"`
}

type Client struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Debt      float64    `json:"debt"`
	Movements []Movement `json:"movements"`
}

// Trial busca una prueba por su identificador de movimiento.
func (c *Client) Trial(id uuid.UUID) (int, bool) {
	for i, m := range c.Movements {
		if m.Type == MovementTrial && m.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (c *Client) HasTrials() bool {
	for _, m := range c.Movements {
		if m.Type == MovementTrial {
			return true
		}
	}
	return false
}
