package app

import (
	"context"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/phenrril/bella/internal/adapters/httpserver"
	"github.com/phenrril/bella/internal/adapters/mirror"
	"github.com/phenrril/bella/internal/adapters/repo/memory"
	"github.com/phenrril/bella/internal/adapters/repo/postgres"
	"github.com/phenrril/bella/internal/domain"
	"github.com/phenrril/bella/internal/usecase"
)

type App struct {
	Store   domain.Store
	StockUC *usecase.StockUC
	Ledger  *usecase.LedgerUC
	Reports *usecase.ReportUC
	Mirror  *mirror.Syncer
}

// NewApp arma el grafo de dependencias. Con db en nil trabaja todo en
// memoria, útil para pruebas y para correr sin Postgres.
func NewApp(db *gorm.DB) (*App, error) {
	var store domain.Store
	var pg *postgres.Store
	if db != nil {
		pg = postgres.NewStore(db)
		store = pg
	} else {
		store = memory.NewStore()
	}

	app := &App{Store: store}

	if base := os.Getenv("MIRROR_URL"); base != "" {
		var ts oauth2.TokenSource
		if tok := os.Getenv("MIRROR_TOKEN"); tok != "" {
			ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok})
		}
		app.Mirror = mirror.NewSyncer(store, mirror.NewClient(base, ts))
	}

	var sync domain.ChangePublisher
	if app.Mirror != nil {
		sync = app.Mirror
	}

	app.StockUC = &usecase.StockUC{Store: store, Sync: sync}
	app.Ledger = &usecase.LedgerUC{Store: store, Sync: sync}
	app.Reports = &usecase.ReportUC{Store: store}

	return app, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.StockUC, a.Ledger, a.Reports)
}

func (a *App) Migrate() error {
	if pg, ok := a.Store.(*postgres.Store); ok {
		return pg.Migrate()
	}
	return nil
}

// StartMirror sincroniza con el espejo remoto y deja las suscripciones
// corriendo hasta que se cancele ctx. Sin MIRROR_URL no hace nada.
func (a *App) StartMirror(ctx context.Context) {
	if a.Mirror == nil {
		return
	}
	a.Mirror.Bootstrap(ctx, !envBool("MIRROR_DISABLE_SUBSCRIBE"))
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes"
}
