package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
)

// Claves de los cuatro registros persistidos. El registro de ventas es
// vestigial: se conserva y se espeja como JSON opaco, el libro de clientas
// no lo consulta.
const (
	KeyStock        = "stock"
	KeyClients      = "clients"
	KeySales        = "sales"
	KeyNextClientID = "nextClientId"
)

var RecordKeys = []string{KeyStock, KeyClients, KeySales, KeyNextClientID}

// Changes agrupa las mutaciones de una operación; los campos nil no se
// tocan. Apply persiste todo el conjunto en una sola unidad, de modo que un
// flujo que descuenta stock y anota un movimiento no pueda dejar los dos
// registros a mitad de camino.
type Changes struct {
	Stock        *[]Garment
	Clients      *[]Client
	Sales        *json.RawMessage
	NextClientID *int
}

func (ch Changes) Keys() []string {
	var keys []string
	if ch.Stock != nil {
		keys = append(keys, KeyStock)
	}
	if ch.Clients != nil {
		keys = append(keys, KeyClients)
	}
	if ch.Sales != nil {
		keys = append(keys, KeySales)
	}
	if ch.NextClientID != nil {
		keys = append(keys, KeyNextClientID)
	}
	return keys
}

// Store lee y escribe los registros con tolerancia a datos malformados: una
// carga sobre contenido ilegible devuelve el default del registro, nunca un
// error de parseo. LoadRaw/SaveRaw mueven los bytes tal cual para el espejo
// remoto.
type Store interface {
	LoadStock(ctx context.Context) ([]Garment, error)
	LoadClients(ctx context.Context) ([]Client, error)
	LoadNextClientID(ctx context.Context) (int, error)
	Apply(ctx context.Context, ch Changes) error
	LoadRaw(ctx context.Context, key string) (json.RawMessage, error)
	SaveRaw(ctx context.Context, key string, value json.RawMessage) error
}

// ChangePublisher recibe el aviso de que registros locales cambiaron, para
// empujarlos al espejo remoto sin que el llamador espere el resultado.
type ChangePublisher interface {
	Publish(keys ...string)
}

func DecodeStock(raw []byte) []Garment {
	var list []Garment
	if len(raw) == 0 || json.Unmarshal(raw, &list) != nil || list == nil {
		return []Garment{}
	}
	for i := range list {
		list[i].EnsureSizes()
	}
	return list
}

func DecodeClients(raw []byte) []Client {
	var list []Client
	if len(raw) == 0 || json.Unmarshal(raw, &list) != nil || list == nil {
		return []Client{}
	}
	for i := range list {
		if list[i].Movements == nil {
			list[i].Movements = []Movement{}
		}
	}
	return list
}

func DecodeNextClientID(raw []byte) int {
	var id int
	if len(raw) == 0 || json.Unmarshal(raw, &id) != nil || id < 1 {
		return 1
	}
	return id
}

// DefaultRecordValue es el valor canónico de un registro ausente.
func DefaultRecordValue(key string) json.RawMessage {
	if key == KeyNextClientID {
		return json.RawMessage("1")
	}
	return json.RawMessage("[]")
}

// ValidRecordValue decide si un valor recibido del espejo remoto puede
// sobrescribir el registro local: arrays para los listados, número para el
// contador. null y cualquier otra forma se descartan.
func ValidRecordValue(key string, raw []byte) bool {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return false
	}
	if key == KeyNextClientID {
		var n float64
		return json.Unmarshal(raw, &n) == nil
	}
	var arr []json.RawMessage
	return json.Unmarshal(raw, &arr) == nil
}

// SortGarments ordena por nombre, como se listan en la vista de stock.
func SortGarments(list []Garment) {
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
}

func SortClients(list []Client) {
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
}
