package mirror

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/bella/internal/domain"
)

// Syncer mantiene los registros locales y remotos alineados: pull y push
// completos al arrancar, suscripciones por clave después, y pushes
// asincrónicos tras cada mutación local. No hay detección de conflictos:
// gana la última escritura observada.
type Syncer struct {
	store  domain.Store
	client *Client

	retryInterval time.Duration
	pushTimeout   time.Duration
}

func NewSyncer(store domain.Store, client *Client) *Syncer {
	return &Syncer{
		store:         store,
		client:        client,
		retryInterval: 5 * time.Second,
		pushTimeout:   10 * time.Second,
	}
}

// PullAll sobrescribe los registros locales con los remotos. Un valor con
// forma inválida (ni array ni número, según la clave) se saltea sin cortar
// el resto; un error de red o del almacén corta y se informa.
func (s *Syncer) PullAll(ctx context.Context) error {
	for _, key := range domain.RecordKeys {
		raw, err := s.client.Get(ctx, key)
		if err != nil {
			return err
		}
		if !domain.ValidRecordValue(key, raw) {
			log.Warn().Str("key", key).Msg("valor remoto inválido, se saltea")
			continue
		}
		if err := s.store.SaveRaw(ctx, key, raw); err != nil {
			return err
		}
	}
	return nil
}

// PushAll envía los valores locales de las cuatro claves; un registro local
// ausente se envía como su default.
func (s *Syncer) PushAll(ctx context.Context) error {
	for _, key := range domain.RecordKeys {
		if err := s.pushKey(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) pushKey(ctx context.Context, key string) error {
	raw, err := s.store.LoadRaw(ctx, key)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		raw = domain.DefaultRecordValue(key)
	}
	return s.client.Put(ctx, key, raw)
}

// Bootstrap aplica la política de arranque: intentar pull, caer a push si
// falla (sin distinguir causa) y dejar instaladas las suscripciones.
func (s *Syncer) Bootstrap(ctx context.Context, subscribe bool) {
	if err := s.PullAll(ctx); err != nil {
		log.Warn().Err(err).Msg("pull inicial falló, se empujan los datos locales")
		if err := s.PushAll(ctx); err != nil {
			log.Error().Err(err).Msg("push inicial falló")
		}
	}
	if !subscribe {
		return
	}
	for _, key := range domain.RecordKeys {
		go s.subscribeKey(ctx, key)
	}
}

func (s *Syncer) subscribeKey(ctx context.Context, key string) {
	for {
		err := s.client.Stream(ctx, key, func(raw json.RawMessage) {
			if !domain.ValidRecordValue(key, raw) {
				log.Warn().Str("key", key).Msg("notificación remota inválida, se ignora")
				return
			}
			if err := s.store.SaveRaw(ctx, key, raw); err != nil {
				log.Error().Err(err).Str("key", key).Msg("no se pudo aplicar el cambio remoto")
			}
		})
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Str("key", key).Msg("stream cortado, reintentando")
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retryInterval):
		}
	}
}

// Publish empuja las claves tocadas sin que el llamador espere: la escritura
// local ya terminó y el resultado remoto solo se loguea.
func (s *Syncer) Publish(keys ...string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.pushTimeout)
		defer cancel()
		for _, key := range keys {
			if err := s.pushKey(ctx, key); err != nil {
				log.Error().Err(err).Str("key", key).Msg("push al espejo falló")
			}
		}
	}()
}
