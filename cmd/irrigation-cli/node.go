package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jbuck2005/irrigation-ha/internal/irrigation"
)

const VERSION_HEADER = "X-Irrigation-Version"

// Node holds connection information for an available irrigation bridge.
// It also exposes one shot calls to its HTTP API.
type Node struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	Label   string `yaml:"label,omitempty"`
	Version string `yaml:"version,omitempty"`
}

// ZoneReport mirrors the bridge's zone description.
type ZoneReport struct {
	Zone                      int    `json:"zone"`
	Name                      string `json:"name"`
	Running                   bool   `json:"running"`
	RemainingSeconds          int    `json:"remaining_seconds"`
	ConfiguredDurationSeconds int    `json:"configured_duration_seconds"`
	DefaultDurationSeconds    int    `json:"default_duration_seconds"`
	Level                     uint8  `json:"level"`
	UpdatedAt                 string `json:"updated_at"`
	LastStartedAt             string `json:"last_started_at,omitempty"`
	Runs                      int    `json:"runs"`
}

type RunRequest struct {
	Duration *int `json:"duration,omitempty"`
	Level    *int `json:"level,omitempty"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func (n Node) DialAddress() string {
	return net.JoinHostPort(n.Address, strconv.Itoa(n.Port))
}

func (n Node) url(scheme, path string) string {
	u := url.URL{Scheme: scheme, Host: n.DialAddress(), Path: path}
	return u.String()
}

func mapError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := apiError{}
	if err := json.Unmarshal(body, &apiErr); err != nil || len(apiErr.Error.Message) == 0 {
		return fmt.Errorf("unexpected response %s", resp.Status)
	}
	return errors.New(apiErr.Error.Message)
}

func (n Node) call(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, n.url("http", path), reader)
	if err != nil {
		return err
	}
	req.Header.Set(VERSION_HEADER, irrigation.IRRIGATION_VERSION)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return mapError(resp)
	}
	if result == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

func (n Node) Version(ctx context.Context) (string, error) {
	res := struct {
		Version string `json:"version"`
	}{}
	err := n.call(ctx, "GET", "/api/version", nil, &res)
	return res.Version, err
}

func (n Node) Zones(ctx context.Context) ([]ZoneReport, error) {
	var res []ZoneReport
	err := n.call(ctx, "GET", "/api/zones", nil, &res)
	return res, err
}

func (n Node) Zone(ctx context.Context, zone int) (ZoneReport, error) {
	res := ZoneReport{}
	err := n.call(ctx, "GET", fmt.Sprintf("/api/zones/%d", zone), nil, &res)
	return res, err
}

func (n Node) Run(ctx context.Context, zone int, request RunRequest) (irrigation.ZoneState, error) {
	res := irrigation.ZoneState{}
	err := n.call(ctx, "POST", fmt.Sprintf("/api/zones/%d/run", zone), request, &res)
	return res, err
}

func (n Node) Stop(ctx context.Context, zone int) (irrigation.ZoneState, error) {
	res := irrigation.ZoneState{}
	err := n.call(ctx, "POST", fmt.Sprintf("/api/zones/%d/stop", zone), nil, &res)
	return res, err
}

func (n Node) StopAll(ctx context.Context) error {
	return n.call(ctx, "POST", "/api/stop", nil, nil)
}

// Watch calls onState for every state change until ctx is done or the
// bridge closes the stream.
func (n Node) Watch(ctx context.Context, onState func(irrigation.ZoneState)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, n.url("ws", "/api/events"), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		st := irrigation.ZoneState{}
		if err := conn.ReadJSON(&st); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		onState(st)
	}
}
