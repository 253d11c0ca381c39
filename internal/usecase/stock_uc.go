package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/phenrril/bella/internal/domain"
)

type StockUC struct {
	Store domain.Store
	Sync  domain.ChangePublisher
}

func (uc *StockUC) List(ctx context.Context) ([]domain.Garment, error) {
	list, err := uc.Store.LoadStock(ctx)
	if err != nil {
		return nil, err
	}
	domain.SortGarments(list)
	return list, nil
}

func (uc *StockUC) AddGarment(ctx context.Context, name string, costPrice, price float64) (*domain.Garment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("nombre vacío: %w", domain.ErrInvalid)
	}
	if !validPrice(costPrice) || !validPrice(price) {
		return nil, fmt.Errorf("precio inválido: %w", domain.ErrInvalid)
	}
	stock, err := uc.Store.LoadStock(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := findGarment(stock, name); ok {
		return nil, fmt.Errorf("prenda %q: %w", name, domain.ErrDuplicate)
	}
	g := domain.NewGarment(name, costPrice, price)
	stock = append(stock, g)
	if err := uc.Store.Apply(ctx, domain.Changes{Stock: &stock}); err != nil {
		return nil, err
	}
	uc.publish(domain.KeyStock)
	return &g, nil
}

func (uc *StockUC) SetQuantity(ctx context.Context, name string, size domain.Size, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("cantidad negativa: %w", domain.ErrInvalid)
	}
	stock, err := uc.Store.LoadStock(ctx)
	if err != nil {
		return err
	}
	i, ok := findGarment(stock, name)
	if !ok {
		return domain.ErrNotFound
	}
	if _, ok := stock[i].Sizes[size]; !ok {
		return fmt.Errorf("talle %q: %w", size, domain.ErrInvalid)
	}
	stock[i].Sizes[size] = quantity
	if err := uc.Store.Apply(ctx, domain.Changes{Stock: &stock}); err != nil {
		return err
	}
	uc.publish(domain.KeyStock)
	return nil
}

// RemoveGarment borra sin chequear referencias: los movimientos históricos
// conservan el nombre como etiqueta de texto y pueden quedar colgando.
func (uc *StockUC) RemoveGarment(ctx context.Context, name string) error {
	stock, err := uc.Store.LoadStock(ctx)
	if err != nil {
		return err
	}
	i, ok := findGarment(stock, name)
	if !ok {
		return domain.ErrNotFound
	}
	stock = append(stock[:i], stock[i+1:]...)
	if err := uc.Store.Apply(ctx, domain.Changes{Stock: &stock}); err != nil {
		return err
	}
	uc.publish(domain.KeyStock)
	return nil
}

func (uc *StockUC) publish(keys ...string) {
	if uc.Sync != nil {
		uc.Sync.Publish(keys...)
	}
}

func findGarment(stock []domain.Garment, name string) (int, bool) {
	for i := range stock {
		if strings.EqualFold(stock[i].Name, name) {
			return i, true
		}
	}
	return -1, false
}

func validPrice(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
