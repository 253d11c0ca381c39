// Package memory implementa el Store sobre un mapa en memoria. Sirve para
// los tests y para correr la aplicación sin base de datos (DB_DSN=memory),
// sin persistencia entre procesos.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/phenrril/bella/internal/domain"
)

type Store struct {
	mu      sync.Mutex
	records map[string]json.RawMessage
}

func NewStore() *Store {
	return &Store{records: make(map[string]json.RawMessage)}
}

func (s *Store) LoadStock(ctx context.Context) ([]domain.Garment, error) {
	return domain.DecodeStock(s.get(domain.KeyStock)), nil
}

func (s *Store) LoadClients(ctx context.Context) ([]domain.Client, error) {
	return domain.DecodeClients(s.get(domain.KeyClients)), nil
}

func (s *Store) LoadNextClientID(ctx context.Context) (int, error) {
	return domain.DecodeNextClientID(s.get(domain.KeyNextClientID)), nil
}

func (s *Store) Apply(ctx context.Context, ch domain.Changes) error {
	staged := make(map[string]json.RawMessage)
	stage := func(key string, v any) error {
		buf, err := json.Marshal(v)
		if err != nil {
			return err
		}
		staged[key] = buf
		return nil
	}
	if ch.Stock != nil {
		if err := stage(domain.KeyStock, *ch.Stock); err != nil {
			return err
		}
	}
	if ch.Clients != nil {
		if err := stage(domain.KeyClients, *ch.Clients); err != nil {
			return err
		}
	}
	if ch.Sales != nil {
		if err := stage(domain.KeySales, *ch.Sales); err != nil {
			return err
		}
	}
	if ch.NextClientID != nil {
		if err := stage(domain.KeyNextClientID, *ch.NextClientID); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, raw := range staged {
		s.records[key] = raw
	}
	return nil
}

func (s *Store) LoadRaw(ctx context.Context, key string) (json.RawMessage, error) {
	return s.get(key), nil
}

func (s *Store) SaveRaw(ctx context.Context, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return domain.ErrInvalid
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = append(json.RawMessage(nil), value...)
	return nil
}

func (s *Store) get(key string) json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[key]
}
