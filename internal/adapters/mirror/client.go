// Package mirror espeja los cuatro registros contra un almacén de
// documentos remoto que habla JSON sobre REST: un documento por registro en
// <base>/<clave>.json, GET devuelve el valor almacenado (null si no existe),
// PUT lo sobrescribe, y una conexión text/event-stream notifica cambios.
package mirror

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient arma el cliente HTTP; con un TokenSource las peticiones salen
// con Authorization: Bearer. El cliente de streaming no lleva timeout
// global porque la conexión de eventos queda abierta.
func NewClient(baseURL string, ts oauth2.TokenSource) *Client {
	transport := http.DefaultTransport
	if ts != nil {
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Transport: transport, Timeout: 10 * time.Second},
		streamClient: &http.Client{Transport: transport},
	}
}

func (c *Client) url(key string) string {
	return c.baseURL + "/" + key + ".json"
}

// Get devuelve el documento remoto, o nil si el registro no existe.
func (c *Client) Get(ctx context.Context, key string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(key), nil)
	if err != nil {
		return nil, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("espejo get %s: %w", key, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return nil, fmt.Errorf("espejo get %s status %d: %s", key, res.StatusCode, string(body))
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	return raw, nil
}

func (c *Client) Put(ctx context.Context, key string, value json.RawMessage) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url(key), bytes.NewReader(value))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("espejo put %s: %w", key, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("espejo put %s status %d: %s", key, res.StatusCode, string(body))
	}
	return nil
}

type streamEvent struct {
	Path string          `json:"path"`
	Data json.RawMessage `json:"data"`
}

// Stream mantiene abierta la conexión de eventos de un registro e invoca fn
// con cada valor completo recibido. Devuelve cuando el servidor corta o el
// contexto termina; la reconexión es responsabilidad del que llama.
func (c *Client) Stream(ctx context.Context, key string, fn func(json.RawMessage)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(key), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	res, err := c.streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("espejo stream %s: %w", key, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("espejo stream %s status %d", key, res.StatusCode)
	}

	var event, data string
	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "":
			// fin del evento
			if (event == "put" || event == "patch") && data != "" {
				var ev streamEvent
				if err := json.Unmarshal([]byte(data), &ev); err == nil && ev.Path == "/" {
					fn(ev.Data)
				}
			}
			event, data = "", ""
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("espejo stream %s: %w", key, err)
	}
	return ctx.Err()
}
