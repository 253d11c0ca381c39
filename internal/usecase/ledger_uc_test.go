package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/phenrril/bella/internal/adapters/repo/memory"
	"github.com/phenrril/bella/internal/domain"
)

// seedLedger deja una Blusa con 5 unidades en S y una clienta Ana.
func seedLedger(t *testing.T) (*StockUC, *LedgerUC, *domain.Client) {
	t.Helper()
	store := memory.NewStore()
	stock := &StockUC{Store: store}
	ledger := &LedgerUC{Store: store}
	ctx := context.Background()

	if _, err := stock.AddGarment(ctx, "Blusa", 1000, 2500); err != nil {
		t.Fatalf("AddGarment: %v", err)
	}
	if err := stock.SetQuantity(ctx, "Blusa", domain.SizeS, 5); err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}
	ana, err := ledger.AddClient(ctx, "Ana")
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}
	return stock, ledger, ana
}

func sizeQty(t *testing.T, stock *StockUC, name string, sz domain.Size) int {
	t.Helper()
	list, err := stock.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, g := range list {
		if g.Name == name {
			return g.Sizes[sz]
		}
	}
	t.Fatalf("prenda %q no está en el stock", name)
	return 0
}

func TestAddClientAssignsSequentialIDs(t *testing.T) {
	ledger := &LedgerUC{Store: memory.NewStore()}
	ctx := context.Background()

	ana, err := ledger.AddClient(ctx, "Ana")
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}
	if ana.ID != 1 {
		t.Errorf("primer id = %d, quería 1", ana.ID)
	}
	eva, err := ledger.AddClient(ctx, "Eva")
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}
	if eva.ID != 2 {
		t.Errorf("segundo id = %d, quería 2", eva.ID)
	}
	if _, err := ledger.AddClient(ctx, "ana"); !errors.Is(err, domain.ErrDuplicate) {
		t.Errorf("duplicada: err = %v, quería ErrDuplicate", err)
	}
}

func TestClientIDsNeverRecycled(t *testing.T) {
	ledger := &LedgerUC{Store: memory.NewStore()}
	ctx := context.Background()

	ana, err := ledger.AddClient(ctx, "Ana")
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}
	if err := ledger.RemoveClient(ctx, ana.ID, false); err != nil {
		t.Fatalf("RemoveClient: %v", err)
	}
	eva, err := ledger.AddClient(ctx, "Eva")
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}
	if eva.ID != 2 {
		t.Errorf("id tras borrar = %d, quería 2", eva.ID)
	}
}

func TestRemoveClientWithDebtNeedsAcknowledgement(t *testing.T) {
	_, ledger, ana := seedLedger(t)
	ctx := context.Background()

	if _, err := ledger.RecordPurchase(ctx, ana.ID, "Blusa", domain.SizeS, 1, time.Now(), domain.PaymentNone, 0); err != nil {
		t.Fatalf("RecordPurchase: %v", err)
	}
	if err := ledger.RemoveClient(ctx, ana.ID, false); !errors.Is(err, domain.ErrDebtOutstanding) {
		t.Fatalf("err = %v, quería ErrDebtOutstanding", err)
	}
	if err := ledger.RemoveClient(ctx, ana.ID, true); err != nil {
		t.Fatalf("RemoveClient con reconocimiento: %v", err)
	}
	if _, err := ledger.Get(ctx, ana.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get tras borrar: err = %v, quería ErrNotFound", err)
	}
}

func TestRecordPurchasePartial(t *testing.T) {
	stock, ledger, ana := seedLedger(t)
	ctx := context.Background()

	m, err := ledger.RecordPurchase(ctx, ana.ID, "Blusa", domain.SizeS, 2, time.Now(), domain.PaymentPartial, 1500)
	if err != nil {
		t.Fatalf("RecordPurchase: %v", err)
	}
	if m.Price != 5000 {
		t.Errorf("total = %v, quería 5000", m.Price)
	}
	if m.Amount != 1500 {
		t.Errorf("monto = %v, quería 1500", m.Amount)
	}
	if got := sizeQty(t, stock, "Blusa", domain.SizeS); got != 3 {
		t.Errorf("stock S = %d, quería 3", got)
	}
	c, err := ledger.Get(ctx, ana.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c.Debt != 3500 {
		t.Errorf("deuda = %v, quería 3500", c.Debt)
	}
	if len(c.Movements) != 1 {
		t.Errorf("movimientos = %d, quería 1", len(c.Movements))
	}
}

func TestRecordPurchaseDebtPerMode(t *testing.T) {
	cases := []struct {
		mode     domain.PaymentMode
		partial  float64
		wantDebt float64
	}{
		{domain.PaymentFull, 0, 0},
		{domain.PaymentPartial, 1000, 1500},
		{domain.PaymentNone, 0, 2500},
	}
	for _, tc := range cases {
		_, ledger, ana := seedLedger(t)
		ctx := context.Background()
		if _, err := ledger.RecordPurchase(ctx, ana.ID, "Blusa", domain.SizeS, 1, time.Now(), tc.mode, tc.partial); err != nil {
			t.Fatalf("%s: RecordPurchase: %v", tc.mode, err)
		}
		c, err := ledger.Get(ctx, ana.ID)
		if err != nil {
			t.Fatalf("%s: Get: %v", tc.mode, err)
		}
		if c.Debt != tc.wantDebt {
			t.Errorf("%s: deuda = %v, quería %v", tc.mode, c.Debt, tc.wantDebt)
		}
	}
}

func TestRecordPurchasePartialBounds(t *testing.T) {
	_, ledger, ana := seedLedger(t)
	ctx := context.Background()

	// total de 1 unidad: 2500
	for _, amount := range []float64{0, -100, 2500, 3000} {
		_, err := ledger.RecordPurchase(ctx, ana.ID, "Blusa", domain.SizeS, 1, time.Now(), domain.PaymentPartial, amount)
		if !errors.Is(err, domain.ErrInvalid) {
			t.Errorf("parcial %v: err = %v, quería ErrInvalid", amount, err)
		}
	}
}

func TestRecordPurchaseInsufficientStock(t *testing.T) {
	stock, ledger, ana := seedLedger(t)
	ctx := context.Background()

	_, err := ledger.RecordPurchase(ctx, ana.ID, "Blusa", domain.SizeS, 6, time.Now(), domain.PaymentFull, 0)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("err = %v, quería ErrInsufficientStock", err)
	}
	// talle sin unidades
	_, err = ledger.RecordPurchase(ctx, ana.ID, "Blusa", domain.SizeM, 1, time.Now(), domain.PaymentFull, 0)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("talle M: err = %v, quería ErrInsufficientStock", err)
	}
	if got := sizeQty(t, stock, "Blusa", domain.SizeS); got != 5 {
		t.Errorf("stock S = %d, el rechazo no debe descontar", got)
	}
}

func TestRecordPayment(t *testing.T) {
	_, ledger, ana := seedLedger(t)
	ctx := context.Background()

	if _, err := ledger.RecordPurchase(ctx, ana.ID, "Blusa", domain.SizeS, 1, time.Now(), domain.PaymentNone, 0); err != nil {
		t.Fatalf("RecordPurchase: %v", err)
	}

	if _, err := ledger.RecordPayment(ctx, ana.ID, 3000, time.Now()); !errors.Is(err, domain.ErrInvalid) {
		t.Errorf("pago mayor a la deuda: err = %v, quería ErrInvalid", err)
	}
	if _, err := ledger.RecordPayment(ctx, ana.ID, 0, time.Now()); !errors.Is(err, domain.ErrInvalid) {
		t.Errorf("pago cero: err = %v, quería ErrInvalid", err)
	}

	if _, err := ledger.RecordPayment(ctx, ana.ID, 1000, time.Now()); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	c, err := ledger.Get(ctx, ana.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c.Debt != 1500 {
		t.Errorf("deuda = %v, quería 1500", c.Debt)
	}

	// saldar el resto, la deuda queda exactamente en cero
	if _, err := ledger.RecordPayment(ctx, ana.ID, 1500, time.Now()); err != nil {
		t.Fatalf("RecordPayment final: %v", err)
	}
	c, _ = ledger.Get(ctx, ana.ID)
	if c.Debt != 0 {
		t.Errorf("deuda final = %v, quería 0", c.Debt)
	}
}

func TestTrialAndReturnRestoresStock(t *testing.T) {
	stock, ledger, ana := seedLedger(t)
	ctx := context.Background()

	m, err := ledger.RecordTrial(ctx, ana.ID, "Blusa", domain.SizeS, 2, time.Now())
	if err != nil {
		t.Fatalf("RecordTrial: %v", err)
	}
	if m.Price != 2500 {
		t.Errorf("precio congelado = %v, quería 2500", m.Price)
	}
	if got := sizeQty(t, stock, "Blusa", domain.SizeS); got != 3 {
		t.Errorf("stock tras la prueba = %d, quería 3", got)
	}

	if err := ledger.ReturnTrial(ctx, ana.ID, m.ID); err != nil {
		t.Fatalf("ReturnTrial: %v", err)
	}
	if got := sizeQty(t, stock, "Blusa", domain.SizeS); got != 5 {
		t.Errorf("stock tras devolver = %d, quería 5", got)
	}
	c, _ := ledger.Get(ctx, ana.ID)
	if len(c.Movements) != 0 {
		t.Errorf("movimientos = %d, la prueba devuelta no deja rastro", len(c.Movements))
	}
	if err := ledger.ReturnTrial(ctx, ana.ID, m.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("devolver dos veces: err = %v, quería ErrNotFound", err)
	}
}

func TestTrialRejectedWithoutStock(t *testing.T) {
	_, ledger, ana := seedLedger(t)
	ctx := context.Background()

	_, err := ledger.RecordTrial(ctx, ana.ID, "Blusa", domain.SizeM, 1, time.Now())
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("err = %v, quería ErrInsufficientStock", err)
	}
}

func TestConvertTrialDoesNotDecrementTwice(t *testing.T) {
	stock, ledger, ana := seedLedger(t)
	ctx := context.Background()

	m, err := ledger.RecordTrial(ctx, ana.ID, "Blusa", domain.SizeS, 2, time.Now())
	if err != nil {
		t.Fatalf("RecordTrial: %v", err)
	}
	conv, err := ledger.ConvertTrialToPurchase(ctx, ana.ID, m.ID, time.Now(), domain.PaymentPartial, 2000)
	if err != nil {
		t.Fatalf("ConvertTrialToPurchase: %v", err)
	}
	if conv.Price != 5000 {
		t.Errorf("total = %v, quería 5000", conv.Price)
	}
	if got := sizeQty(t, stock, "Blusa", domain.SizeS); got != 3 {
		t.Errorf("stock = %d, la conversión no debe volver a descontar", got)
	}
	c, _ := ledger.Get(ctx, ana.ID)
	if c.Debt != 3000 {
		t.Errorf("deuda = %v, quería 3000", c.Debt)
	}
	if len(c.Movements) != 1 || c.Movements[0].Type != domain.MovementPurchase {
		t.Errorf("la prueba debe quedar reemplazada por la compra: %+v", c.Movements)
	}
	if c.HasTrials() {
		t.Error("no deben quedar pruebas abiertas")
	}
}

func TestConvertTrialUnknownMovement(t *testing.T) {
	_, ledger, ana := seedLedger(t)
	ctx := context.Background()

	_, err := ledger.ConvertTrialToPurchase(ctx, ana.ID, uuid.New(), time.Now(), domain.PaymentFull, 0)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, quería ErrNotFound", err)
	}
	_, err = ledger.ConvertTrialToPurchase(ctx, ana.ID, uuid.Nil, time.Now(), domain.PaymentFull, 0)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("uuid nulo: err = %v, quería ErrNotFound", err)
	}
}

func TestMovementsSortedNewestFirst(t *testing.T) {
	_, ledger, ana := seedLedger(t)
	ctx := context.Background()

	day := func(d int) time.Time { return time.Date(2026, 3, d, 12, 0, 0, 0, time.UTC) }
	if _, err := ledger.RecordPurchase(ctx, ana.ID, "Blusa", domain.SizeS, 1, day(1), domain.PaymentNone, 0); err != nil {
		t.Fatalf("RecordPurchase: %v", err)
	}
	if _, err := ledger.RecordPayment(ctx, ana.ID, 500, day(3)); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if _, err := ledger.RecordPurchase(ctx, ana.ID, "Blusa", domain.SizeS, 1, day(2), domain.PaymentFull, 0); err != nil {
		t.Fatalf("RecordPurchase: %v", err)
	}

	movs, err := ledger.Movements(ctx, ana.ID)
	if err != nil {
		t.Fatalf("Movements: %v", err)
	}
	if len(movs) != 3 {
		t.Fatalf("movimientos = %d, quería 3", len(movs))
	}
	for i := 1; i < len(movs); i++ {
		if movs[i].Date.After(movs[i-1].Date) {
			t.Fatalf("orden incorrecto en la posición %d: %v antes de %v", i, movs[i-1].Date, movs[i].Date)
		}
	}
}
