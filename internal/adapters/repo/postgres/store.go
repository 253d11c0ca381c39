package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phenrril/bella/internal/domain"
)

// Record es un documento JSON con nombre; los cuatro registros del negocio
// viven en esta tabla.
type Record struct {
	Key       string `gorm:"primaryKey;size:40"`
	Value     string `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

func (Record) TableName() string { return "records" }

type Store struct{ db *gorm.DB }

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Record{})
}

func (s *Store) LoadStock(ctx context.Context) ([]domain.Garment, error) {
	raw, err := s.LoadRaw(ctx, domain.KeyStock)
	if err != nil {
		return nil, err
	}
	return domain.DecodeStock(raw), nil
}

func (s *Store) LoadClients(ctx context.Context) ([]domain.Client, error) {
	raw, err := s.LoadRaw(ctx, domain.KeyClients)
	if err != nil {
		return nil, err
	}
	return domain.DecodeClients(raw), nil
}

func (s *Store) LoadNextClientID(ctx context.Context) (int, error) {
	raw, err := s.LoadRaw(ctx, domain.KeyNextClientID)
	if err != nil {
		return 0, err
	}
	return domain.DecodeNextClientID(raw), nil
}

func (s *Store) Apply(ctx context.Context, ch domain.Changes) error {
	recs, err := encodeChanges(ch)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range recs {
			if err := upsert(tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) LoadRaw(ctx context.Context, key string) (json.RawMessage, error) {
	var rec Record
	if err := s.db.WithContext(ctx).First(&rec, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return json.RawMessage(rec.Value), nil
}

func (s *Store) SaveRaw(ctx context.Context, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		log.Warn().Str("key", key).Msg("valor no es JSON válido, se descarta")
		return domain.ErrInvalid
	}
	return upsert(s.db.WithContext(ctx), Record{Key: key, Value: string(value)})
}

func upsert(db *gorm.DB, rec Record) error {
	rec.UpdatedAt = time.Now()
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
}

func encodeChanges(ch domain.Changes) ([]Record, error) {
	var recs []Record
	add := func(key string, v any) error {
		buf, err := json.Marshal(v)
		if err != nil {
			return err
		}
		recs = append(recs, Record{Key: key, Value: string(buf)})
		return nil
	}
	if ch.Stock != nil {
		if err := add(domain.KeyStock, *ch.Stock); err != nil {
			return nil, err
		}
	}
	if ch.Clients != nil {
		if err := add(domain.KeyClients, *ch.Clients); err != nil {
			return nil, err
		}
	}
	if ch.Sales != nil {
		if err := add(domain.KeySales, *ch.Sales); err != nil {
			return nil, err
		}
	}
	if ch.NextClientID != nil {
		if err := add(domain.KeyNextClientID, *ch.NextClientID); err != nil {
			return nil, err
		}
	}
	return recs, nil
}
