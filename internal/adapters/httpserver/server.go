package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/bella/internal/domain"
	"github.com/phenrril/bella/internal/usecase"
)

// Server expone los flujos del negocio como comandos JSON, sin ninguna
// superficie de render: el que consume decide cómo mostrar.
type Server struct {
	mux     *http.ServeMux
	stock   *usecase.StockUC
	ledger  *usecase.LedgerUC
	reports *usecase.ReportUC
}

func New(stock *usecase.StockUC, ledger *usecase.LedgerUC, reports *usecase.ReportUC) http.Handler {
	s := &Server{mux: http.NewServeMux(), stock: stock, ledger: ledger, reports: reports}
	s.routes()
	return Chain(s.mux,
		RequestID,
		Recovery,
		Logging,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/api/stock", s.apiStock)
	s.mux.HandleFunc("/api/stock/", s.apiStockItem)

	s.mux.HandleFunc("/api/clients", s.apiClients)
	s.mux.HandleFunc("/api/clients/", s.apiClientByID)

	s.mux.HandleFunc("/api/reports/sales", s.apiSalesReport)
	s.mux.HandleFunc("/api/reports/sales/export", s.apiSalesExport)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

// --- Stock ---

func (s *Server) apiStock(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.stock.List(r.Context())
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"items": list, "total": len(list)})
	case http.MethodPost:
		var req struct {
			Name      string  `json:"name"`
			CostPrice float64 `json:"cost_price"`
			Price     float64 `json:"price"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "json", 400)
			return
		}
		g, err := s.stock.AddGarment(r.Context(), req.Name, req.CostPrice, req.Price)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, 201, g)
	default:
		http.Error(w, "method", 405)
	}
}

// apiStockItem resuelve DELETE /api/stock/{name} y
// PUT /api/stock/{name}/sizes/{size}.
func (s *Server) apiStockItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/stock/")
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		if r.Method != http.MethodDelete {
			http.Error(w, "method", 405)
			return
		}
		if err := s.stock.RemoveGarment(r.Context(), parts[0]); err != nil {
			s.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case len(parts) == 3 && parts[1] == "sizes":
		if r.Method != http.MethodPut {
			http.Error(w, "method", 405)
			return
		}
		size, err := domain.ParseSize(parts[2])
		if err != nil {
			s.fail(w, err)
			return
		}
		var req struct {
			Quantity int `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "json", 400)
			return
		}
		if err := s.stock.SetQuantity(r.Context(), parts[0], size, req.Quantity); err != nil {
			s.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

// --- Clientas ---

func (s *Server) apiClients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.ledger.List(r.Context())
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"items": list, "total": len(list)})
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "json", 400)
			return
		}
		c, err := s.ledger.AddClient(r.Context(), req.Name)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, 201, c)
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) apiClientByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/clients/")
	parts := strings.Split(rest, "/")
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		http.Error(w, "id", 400)
		return
	}
	switch len(parts) {
	case 1:
		s.apiClient(w, r, id)
	case 2:
		switch parts[1] {
		case "movements":
			s.apiClientMovements(w, r, id)
		case "purchases":
			s.apiClientPurchase(w, r, id)
		case "payments":
			s.apiClientPayment(w, r, id)
		case "trials":
			s.apiClientTrial(w, r, id)
		default:
			http.NotFound(w, r)
		}
	case 3, 4:
		// /api/clients/{id}/trials/{movementID}[/purchase|/return]
		if parts[1] != "trials" {
			http.NotFound(w, r)
			return
		}
		movID, err := uuid.Parse(parts[2])
		if err != nil {
			http.Error(w, "movimiento", 400)
			return
		}
		action := ""
		if len(parts) == 4 {
			action = parts[3]
		}
		s.apiClientTrialAction(w, r, id, movID, action)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) apiClient(w http.ResponseWriter, r *http.Request, id int) {
	switch r.Method {
	case http.MethodGet:
		c, err := s.ledger.Get(r.Context(), id)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, 200, c)
	case http.MethodDelete:
		force := r.URL.Query().Get("force") == "1" || r.URL.Query().Get("force") == "true"
		if err := s.ledger.RemoveClient(r.Context(), id, force); err != nil {
			s.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) apiClientMovements(w http.ResponseWriter, r *http.Request, id int) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	movs, err := s.ledger.Movements(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"items": movs, "total": len(movs)})
}

type purchaseReq struct {
	Item     string  `json:"item"`
	Size     string  `json:"size"`
	Quantity int     `json:"quantity"`
	Date     string  `json:"date"`
	Payment  string  `json:"payment"`
	Amount   float64 `json:"amount"`
}

func (s *Server) apiClientPurchase(w http.ResponseWriter, r *http.Request, id int) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req purchaseReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	size, date, mode, err := parsePurchaseFields(req.Size, req.Date, req.Payment)
	if err != nil {
		s.fail(w, err)
		return
	}
	m, err := s.ledger.RecordPurchase(r.Context(), id, req.Item, size, req.Quantity, date, mode, req.Amount)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 201, m)
}

func (s *Server) apiClientPayment(w http.ResponseWriter, r *http.Request, id int) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req struct {
		Amount float64 `json:"amount"`
		Date   string  `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		s.fail(w, err)
		return
	}
	m, err := s.ledger.RecordPayment(r.Context(), id, req.Amount, date)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 201, m)
}

func (s *Server) apiClientTrial(w http.ResponseWriter, r *http.Request, id int) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req struct {
		Item     string `json:"item"`
		Size     string `json:"size"`
		Quantity int    `json:"quantity"`
		Date     string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	size, err := domain.ParseSize(req.Size)
	if err != nil {
		s.fail(w, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		s.fail(w, err)
		return
	}
	m, err := s.ledger.RecordTrial(r.Context(), id, req.Item, size, req.Quantity, date)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 201, m)
}

func (s *Server) apiClientTrialAction(w http.ResponseWriter, r *http.Request, id int, movID uuid.UUID, action string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	switch action {
	case "purchase":
		var req struct {
			Date    string  `json:"date"`
			Payment string  `json:"payment"`
			Amount  float64 `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "json", 400)
			return
		}
		date, err := parseDate(req.Date)
		if err != nil {
			s.fail(w, err)
			return
		}
		mode, err := domain.ParsePaymentMode(req.Payment)
		if err != nil {
			s.fail(w, fmt.Errorf("modo de pago %q: %w", req.Payment, err))
			return
		}
		m, err := s.ledger.ConvertTrialToPurchase(r.Context(), id, movID, date, mode, req.Amount)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, 201, m)
	case "return":
		if err := s.ledger.ReturnTrial(r.Context(), id, movID); err != nil {
			s.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

// --- Reportes ---

func (s *Server) apiSalesReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	start, end, err := parseRange(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	sum, err := s.reports.Summary(r.Context(), start, end)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 200, sum)
}

func (s *Server) apiSalesExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	start, end, err := parseRange(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	buf, err := s.reports.ExportXLSX(r.Context(), start, end)
	if err != nil {
		s.fail(w, err)
		return
	}
	name := fmt.Sprintf("ventas_%s_%s.xlsx", start.Format("2006-01-02"), end.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(buf)
}

// parseRange toma start/end de la query; sin parámetros cubre el último
// mes, como la vista de ventas original.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	start, end := now.AddDate(0, -1, 0), now
	var err error
	if v := r.URL.Query().Get("start"); v != "" {
		if start, err = parseDate(v); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if v := r.URL.Query().Get("end"); v != "" {
		if end, err = parseDate(v); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return start, end, nil
}

func parsePurchaseFields(size, date, payment string) (domain.Size, time.Time, domain.PaymentMode, error) {
	sz, err := domain.ParseSize(size)
	if err != nil {
		return "", time.Time{}, "", err
	}
	d, err := parseDate(date)
	if err != nil {
		return "", time.Time{}, "", err
	}
	mode, err := domain.ParsePaymentMode(payment)
	if err != nil {
		return "", time.Time{}, "", fmt.Errorf("modo de pago %q: %w", payment, err)
	}
	return sz, d, mode, nil
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("fecha %q: %w", v, domain.ErrInvalid)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode respuesta")
	}
}

// fail mapea los errores de dominio al código HTTP; los errores de
// almacenamiento se loguean y salen como mensaje genérico.
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrDuplicate),
		errors.Is(err, domain.ErrDebtOutstanding),
		errors.Is(err, domain.ErrInsufficientStock):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrInvalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Error().Err(err).Msg("error de almacenamiento")
		http.Error(w, "error al guardar los datos", http.StatusInternalServerError)
	}
}
