package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phenrril/bella/internal/domain"
)

type LedgerUC struct {
	Store domain.Store
	Sync  domain.ChangePublisher
}

func (uc *LedgerUC) List(ctx context.Context) ([]domain.Client, error) {
	clients, err := uc.Store.LoadClients(ctx)
	if err != nil {
		return nil, err
	}
	domain.SortClients(clients)
	return clients, nil
}

func (uc *LedgerUC) Get(ctx context.Context, id int) (*domain.Client, error) {
	clients, err := uc.Store.LoadClients(ctx)
	if err != nil {
		return nil, err
	}
	i, ok := findClient(clients, id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := clients[i]
	return &c, nil
}

// Movements devuelve el historial ordenado por fecha descendente, como lo
// muestra el detalle de la clienta.
func (uc *LedgerUC) Movements(ctx context.Context, id int) ([]domain.Movement, error) {
	c, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	movs := append([]domain.Movement(nil), c.Movements...)
	sort.SliceStable(movs, func(i, j int) bool { return movs[i].Date.After(movs[j].Date) })
	return movs, nil
}

func (uc *LedgerUC) AddClient(ctx context.Context, name string) (*domain.Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("nombre vacío: %w", domain.ErrInvalid)
	}
	clients, err := uc.Store.LoadClients(ctx)
	if err != nil {
		return nil, err
	}
	for i := range clients {
		if strings.EqualFold(clients[i].Name, name) {
			return nil, fmt.Errorf("clienta %q: %w", name, domain.ErrDuplicate)
		}
	}
	next, err := uc.Store.LoadNextClientID(ctx)
	if err != nil {
		return nil, err
	}
	c := domain.Client{ID: next, Name: name, Movements: []domain.Movement{}}
	clients = append(clients, c)
	next++
	if err := uc.Store.Apply(ctx, domain.Changes{Clients: &clients, NextClientID: &next}); err != nil {
		return nil, err
	}
	uc.publish(domain.KeyClients, domain.KeyNextClientID)
	return &c, nil
}

// RemoveClient exige el reconocimiento explícito de la deuda pendiente; el
// contador no se toca, los ids no se reciclan.
func (uc *LedgerUC) RemoveClient(ctx context.Context, id int, acknowledgeDebt bool) error {
	clients, err := uc.Store.LoadClients(ctx)
	if err != nil {
		return err
	}
	i, ok := findClient(clients, id)
	if !ok {
		return domain.ErrNotFound
	}
	if clients[i].Debt > 0 && !acknowledgeDebt {
		return fmt.Errorf("clienta %q: %w", clients[i].Name, domain.ErrDebtOutstanding)
	}
	clients = append(clients[:i], clients[i+1:]...)
	if err := uc.Store.Apply(ctx, domain.Changes{Clients: &clients}); err != nil {
		return err
	}
	uc.publish(domain.KeyClients)
	return nil
}

func (uc *LedgerUC) RecordPurchase(ctx context.Context, clientID int, item string, size domain.Size, quantity int, date time.Time, mode domain.PaymentMode, partialAmount float64) (*domain.Movement, error) {
	return uc.recordPurchase(ctx, clientID, item, size, quantity, date, mode, partialAmount, uuid.Nil)
}

// ConvertTrialToPurchase retira la prueba y registra la compra con el
// chequeo y el descuento de stock suprimidos: las unidades ya salieron del
// stock cuando se registró la prueba.
func (uc *LedgerUC) ConvertTrialToPurchase(ctx context.Context, clientID int, movementID uuid.UUID, date time.Time, mode domain.PaymentMode, partialAmount float64) (*domain.Movement, error) {
	if movementID == uuid.Nil {
		return nil, domain.ErrNotFound
	}
	return uc.recordPurchase(ctx, clientID, "", "", 0, date, mode, partialAmount, movementID)
}

func (uc *LedgerUC) recordPurchase(ctx context.Context, clientID int, item string, size domain.Size, quantity int, date time.Time, mode domain.PaymentMode, partialAmount float64, fromTrial uuid.UUID) (*domain.Movement, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("fecha vacía: %w", domain.ErrInvalid)
	}
	stock, err := uc.Store.LoadStock(ctx)
	if err != nil {
		return nil, err
	}
	clients, err := uc.Store.LoadClients(ctx)
	if err != nil {
		return nil, err
	}
	ci, ok := findClient(clients, clientID)
	if !ok {
		return nil, fmt.Errorf("clienta %d: %w", clientID, domain.ErrNotFound)
	}

	if fromTrial != uuid.Nil {
		ti, ok := clients[ci].Trial(fromTrial)
		if !ok {
			return nil, fmt.Errorf("prueba: %w", domain.ErrNotFound)
		}
		trial := clients[ci].Movements[ti]
		item, size, quantity = trial.Item, trial.Size, trial.Quantity
		clients[ci].Movements = append(clients[ci].Movements[:ti], clients[ci].Movements[ti+1:]...)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("cantidad inválida: %w", domain.ErrInvalid)
	}
	gi, ok := findGarment(stock, item)
	if !ok {
		return nil, fmt.Errorf("prenda %q: %w", item, domain.ErrNotFound)
	}
	total := stock[gi].Price * float64(quantity)

	var amount float64
	switch mode {
	case domain.PaymentFull:
		amount = total
	case domain.PaymentPartial:
		if math.IsNaN(partialAmount) || partialAmount <= 0 || partialAmount >= total {
			return nil, fmt.Errorf("pago parcial fuera de rango: %w", domain.ErrInvalid)
		}
		amount = partialAmount
	case domain.PaymentNone:
		amount = 0
	default:
		return nil, fmt.Errorf("modo de pago %q: %w", mode, domain.ErrInvalid)
	}

	ch := domain.Changes{Clients: &clients}
	if fromTrial == uuid.Nil {
		if stock[gi].Sizes[size] < quantity {
			return nil, fmt.Errorf("%s talle %s: %w", item, size, domain.ErrInsufficientStock)
		}
		stock[gi].Sizes[size] -= quantity
		ch.Stock = &stock
	}

	m := domain.Movement{
		ID:       uuid.New(),
		Type:     domain.MovementPurchase,
		Date:     date,
		Item:     stock[gi].Name,
		Size:     size,
		Quantity: quantity,
		Price:    total,
		Payment:  mode,
		Amount:   amount,
	}
	clients[ci].Movements = append(clients[ci].Movements, m)
	clients[ci].Debt += total - amount

	if err := uc.Store.Apply(ctx, ch); err != nil {
		return nil, err
	}
	uc.publish(ch.Keys()...)
	return &m, nil
}

func (uc *LedgerUC) RecordPayment(ctx context.Context, clientID int, amount float64, date time.Time) (*domain.Movement, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("fecha vacía: %w", domain.ErrInvalid)
	}
	if math.IsNaN(amount) || amount <= 0 {
		return nil, fmt.Errorf("monto inválido: %w", domain.ErrInvalid)
	}
	clients, err := uc.Store.LoadClients(ctx)
	if err != nil {
		return nil, err
	}
	ci, ok := findClient(clients, clientID)
	if !ok {
		return nil, fmt.Errorf("clienta %d: %w", clientID, domain.ErrNotFound)
	}
	if amount > clients[ci].Debt {
		return nil, fmt.Errorf("el pago supera la deuda: %w", domain.ErrInvalid)
	}
	m := domain.Movement{
		ID:      uuid.New(),
		Type:    domain.MovementPayment,
		Date:    date,
		Payment: domain.PaymentFull,
		Amount:  amount,
	}
	clients[ci].Debt -= amount
	clients[ci].Movements = append(clients[ci].Movements, m)
	if err := uc.Store.Apply(ctx, domain.Changes{Clients: &clients}); err != nil {
		return nil, err
	}
	uc.publish(domain.KeyClients)
	return &m, nil
}

// RecordTrial descuenta el stock en el momento: la prueba es una reserva
// especulativa que después se convierte en compra o se devuelve.
func (uc *LedgerUC) RecordTrial(ctx context.Context, clientID int, item string, size domain.Size, quantity int, date time.Time) (*domain.Movement, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("fecha vacía: %w", domain.ErrInvalid)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("cantidad inválida: %w", domain.ErrInvalid)
	}
	stock, err := uc.Store.LoadStock(ctx)
	if err != nil {
		return nil, err
	}
	clients, err := uc.Store.LoadClients(ctx)
	if err != nil {
		return nil, err
	}
	ci, ok := findClient(clients, clientID)
	if !ok {
		return nil, fmt.Errorf("clienta %d: %w", clientID, domain.ErrNotFound)
	}
	gi, ok := findGarment(stock, item)
	if !ok {
		return nil, fmt.Errorf("prenda %q: %w", item, domain.ErrNotFound)
	}
	if stock[gi].Sizes[size] < quantity {
		return nil, fmt.Errorf("%s talle %s: %w", item, size, domain.ErrInsufficientStock)
	}
	stock[gi].Sizes[size] -= quantity

	m := domain.Movement{
		ID:       uuid.New(),
		Type:     domain.MovementTrial,
		Date:     date,
		Item:     stock[gi].Name,
		Size:     size,
		Quantity: quantity,
		Price:    stock[gi].Price,
	}
	clients[ci].Movements = append(clients[ci].Movements, m)
	if err := uc.Store.Apply(ctx, domain.Changes{Stock: &stock, Clients: &clients}); err != nil {
		return nil, err
	}
	uc.publish(domain.KeyStock, domain.KeyClients)
	return &m, nil
}

// ReturnTrial devuelve las unidades al stock y retira el movimiento. Si la
// prenda fue eliminada mientras la prueba estaba abierta, las unidades no
// tienen adónde volver y solo se retira el movimiento.
func (uc *LedgerUC) ReturnTrial(ctx context.Context, clientID int, movementID uuid.UUID) error {
	stock, err := uc.Store.LoadStock(ctx)
	if err != nil {
		return err
	}
	clients, err := uc.Store.LoadClients(ctx)
	if err != nil {
		return err
	}
	ci, ok := findClient(clients, clientID)
	if !ok {
		return fmt.Errorf("clienta %d: %w", clientID, domain.ErrNotFound)
	}
	ti, ok := clients[ci].Trial(movementID)
	if !ok {
		return fmt.Errorf("prueba: %w", domain.ErrNotFound)
	}
	trial := clients[ci].Movements[ti]
	clients[ci].Movements = append(clients[ci].Movements[:ti], clients[ci].Movements[ti+1:]...)

	ch := domain.Changes{Clients: &clients}
	if gi, ok := findGarment(stock, trial.Item); ok {
		stock[gi].Sizes[trial.Size] += trial.Quantity
		ch.Stock = &stock
	}
	if err := uc.Store.Apply(ctx, ch); err != nil {
		return err
	}
	uc.publish(ch.Keys()...)
	return nil
}

func (uc *LedgerUC) publish(keys ...string) {
	if uc.Sync != nil {
		uc.Sync.Publish(keys...)
	}
}

func findClient(clients []domain.Client, id int) (int, bool) {
	for i := range clients {
		if clients[i].ID == id {
			return i, true
		}
	}
	return -1, false
}
