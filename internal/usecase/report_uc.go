package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/phenrril/bella/internal/domain"
)

type ReportUC struct {
	Store domain.Store
}

// SaleRow es una compra dentro del período, con el nombre de la clienta
// copiado para el listado.
type SaleRow struct {
	ClientName string             `json:"clientName"`
	Date       time.Time          `json:"date"`
	Item       string             `json:"item"`
	Size       domain.Size        `json:"size"`
	Quantity   int                `json:"quantity"`
	Price      float64            `json:"price"`
	Payment    domain.PaymentMode `json:"payment"`
	Amount     float64            `json:"amount"`
}

type SalesSummary struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	TotalSales      float64   `json:"totalSales"`
	SalesCount      int       `json:"salesCount"`
	Invested        float64   `json:"invested"`
	Projected       float64   `json:"projected"`
	ProjectedProfit float64   `json:"projectedProfit"`
	TotalDebt       float64   `json:"totalDebt"`
	Sales           []SaleRow `json:"sales"`
}

// Summary recalcula todo en cada consulta: compras dentro del rango
// [start, fin del día de end], y los agregados de inversión y proyección
// sobre la foto actual del stock, no la histórica.
func (uc *ReportUC) Summary(ctx context.Context, start, end time.Time) (*SalesSummary, error) {
	if start.After(end) {
		return nil, fmt.Errorf("rango de fechas invertido: %w", domain.ErrInvalid)
	}
	endOfDay := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 999999999, end.Location())

	stock, err := uc.Store.LoadStock(ctx)
	if err != nil {
		return nil, err
	}
	clients, err := uc.Store.LoadClients(ctx)
	if err != nil {
		return nil, err
	}

	sum := &SalesSummary{Start: start, End: endOfDay, Sales: []SaleRow{}}
	for _, g := range stock {
		units := float64(g.TotalUnits())
		sum.Invested += units * g.CostPrice
		sum.Projected += units * g.Price
	}
	sum.ProjectedProfit = sum.Projected - sum.Invested

	for _, c := range clients {
		sum.TotalDebt += c.Debt
		for _, m := range c.Movements {
			if m.Type != domain.MovementPurchase {
				continue
			}
			if m.Date.Before(start) || m.Date.After(endOfDay) {
				continue
			}
			sum.TotalSales += m.Price
			sum.SalesCount++
			sum.Sales = append(sum.Sales, SaleRow{
				ClientName: c.Name,
				Date:       m.Date,
				Item:       m.Item,
				Size:       m.Size,
				Quantity:   m.Quantity,
				Price:      m.Price,
				Payment:    m.Payment,
				Amount:     m.Amount,
			})
		}
	}
	sort.SliceStable(sum.Sales, func(i, j int) bool { return sum.Sales[i].Date.After(sum.Sales[j].Date) })
	return sum, nil
}

// ExportXLSX arma la planilla del período: indicadores arriba, ventas abajo.
func (uc *ReportUC) ExportXLSX(ctx context.Context, start, end time.Time) ([]byte, error) {
	sum, err := uc.Summary(ctx, start, end)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Ventas"
	f.SetSheetName("Sheet1", sheet)

	kpis := [][]any{
		{"Período", fmt.Sprintf("%s a %s", start.Format("2006-01-02"), end.Format("2006-01-02"))},
		{"Total ventas", sum.TotalSales},
		{"Cantidad de ventas", sum.SalesCount},
		{"Dinero invertido", sum.Invested},
		{"Dinero proyectado", sum.Projected},
		{"Ganancia proyectada", sum.ProjectedProfit},
		{"Total deudas", sum.TotalDebt},
	}
	for i, row := range kpis {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	headerRow := len(kpis) + 2
	header := []any{"Fecha", "Clienta", "Prenda", "Talle", "Cantidad", "Precio", "Pago", "Monto"}
	cell, _ := excelize.CoordinatesToCellName(1, headerRow)
	if err := f.SetSheetRow(sheet, cell, &header); err != nil {
		return nil, err
	}
	for i, s := range sum.Sales {
		row := []any{
			s.Date.Format("2006-01-02"),
			s.ClientName,
			s.Item,
			string(s.Size),
			s.Quantity,
			s.Price,
			paymentLabel(s.Payment),
			s.Amount,
		}
		cell, _ := excelize.CoordinatesToCellName(1, headerRow+1+i)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func paymentLabel(m domain.PaymentMode) string {
	switch m {
	case domain.PaymentFull:
		return "Pago total"
	case domain.PaymentPartial:
		return "Pago parcial"
	case domain.PaymentNone:
		return "Sin pagar"
	}
	return string(m)
}
