package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jbuck2005/irrigation-ha/internal/irrigation"
	"github.com/sirupsen/logrus"
)

const VERSION_HEADER = "X-Irrigation-Version"

type httpAPI struct {
	registry   *irrigation.Registry
	dispatcher *irrigation.Dispatcher
	reporter   *stateReporter
	logger     *logrus.Entry

	upgrader websocket.Upgrader
}

func newHTTPAPI(registry *irrigation.Registry, dispatcher *irrigation.Dispatcher, reporter *stateReporter) *httpAPI {
	return &httpAPI{
		registry:   registry,
		dispatcher: dispatcher,
		reporter:   reporter,
		logger:     irrigation.NewLogger("http"),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
		},
	}
}

func JSON(w http.ResponseWriter, status int, obj interface{}) {
	data, err := json.Marshal(obj)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, map[string]apiError{
		"error": {Code: code, Message: message},
	})
}

func errorStatus(err error) (int, string) {
	var rejected *irrigation.DaemonRejectedError
	var nerr *irrigation.NetworkError
	switch {
	case errors.Is(err, irrigation.ErrUnknownZone):
		return http.StatusNotFound, "unknown_zone"
	case errors.Is(err, irrigation.ErrInvalidDuration):
		return http.StatusBadRequest, "invalid_duration"
	case errors.As(err, &rejected):
		return http.StatusBadGateway, "daemon_rejected"
	case errors.As(err, &nerr):
		if nerr.Timeout() {
			return http.StatusBadGateway, "daemon_timeout"
		}
		return http.StatusBadGateway, "daemon_unreachable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (a *httpAPI) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	a.logger.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"uri":    r.RequestURI,
		"status": status,
	}).Warn("request failed")
	writeError(w, status, code, err.Error())
}

func RecoverWrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			var err error
			switch t := rec.(type) {
			case string:
				err = errors.New(t)
			case error:
				err = t
			default:
				err = errors.New("Unknown error")
			}
			writeError(w, http.StatusInternalServerError, "internal", err.Error())
		}()
		h.ServeHTTP(w, r)
	})
}

func (a *httpAPI) logWrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.logger.WithFields(logrus.Fields{
			"method": r.Method,
			"uri":    r.RequestURI,
			"remote": r.RemoteAddr,
		}).Debug("request")
		h.ServeHTTP(w, r)
	})
}

// versionWrap refuses mutating requests from incompatible clients.
func versionWrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := irrigation.CheckClientVersion(r.Header.Get(VERSION_HEADER)); err != nil {
			writeError(w, http.StatusBadRequest, "incompatible_version", err.Error())
			return
		}
		h.ServeHTTP(w, r)
	})
}

func (a *httpAPI) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/api/version", a.getVersion).Methods("GET")
	router.HandleFunc("/api/zones", a.getZones).Methods("GET")
	router.HandleFunc("/api/zones/{zone}", a.getZone).Methods("GET")
	router.HandleFunc("/api/events", a.streamEvents).Methods("GET")

	post := router.Methods("POST").Subrouter()
	post.Use(versionWrap)
	post.HandleFunc("/api/zones/{zone}/run", a.runZone)
	post.HandleFunc("/api/zones/{zone}/stop", a.stopZone)
	post.HandleFunc("/api/stop", a.stopAll)

	router.Use(a.logWrap)
	router.Use(RecoverWrap)
	return router
}

func (a *httpAPI) getVersion(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"version": irrigation.IRRIGATION_VERSION})
}

func (a *httpAPI) getZones(w http.ResponseWriter, r *http.Request) {
	res := a.reporter.Last()
	if res == nil {
		writeError(w, http.StatusServiceUnavailable, "shutting_down", "bridge is shutting down")
		return
	}
	JSON(w, http.StatusOK, res)
}

func zoneVar(r *http.Request) (int, error) {
	value := mux.Vars(r)["zone"]
	zone, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid zone '%s'", value)
	}
	return zone, nil
}

// zoneFromRequest resolves the {zone} path variable. It writes the error
// response itself and returns false on failure.
func (a *httpAPI) zoneFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	zone, err := zoneVar(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_zone", err.Error())
		return 0, false
	}
	if _, err := a.registry.Config(zone); err != nil {
		a.fail(w, r, err)
		return 0, false
	}
	return zone, true
}

func (a *httpAPI) getZone(w http.ResponseWriter, r *http.Request) {
	zone, ok := a.zoneFromRequest(w, r)
	if ok == false {
		return
	}
	res := a.reporter.LastZone(zone)
	if res == nil {
		writeError(w, http.StatusServiceUnavailable, "shutting_down", "bridge is shutting down")
		return
	}
	JSON(w, http.StatusOK, res)
}

type RunRequest struct {
	Duration *int `json:"duration,omitempty"`
	Level    *int `json:"level,omitempty"`
}

func readRunRequest(r *http.Request) (RunRequest, error) {
	res := RunRequest{}
	err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&res)
	if errors.Is(err, io.EOF) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("invalid request body: %w", err)
	}
	if res.Duration != nil && res.Level != nil {
		return res, errors.New("duration and level are mutually exclusive")
	}
	if res.Level != nil && (*res.Level < 0 || *res.Level > 255) {
		return res, fmt.Errorf("invalid level %d ( should be in [0,255] )", *res.Level)
	}
	return res, nil
}

func (a *httpAPI) writeState(w http.ResponseWriter, r *http.Request, zone int) {
	st, err := a.registry.State(zone)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, st)
}

func (a *httpAPI) runZone(w http.ResponseWriter, r *http.Request) {
	zone, ok := a.zoneFromRequest(w, r)
	if ok == false {
		return
	}
	req, err := readRunRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	switch {
	case req.Duration != nil:
		err = a.dispatcher.RunFor(r.Context(), zone, *req.Duration)
	case req.Level != nil:
		err = a.dispatcher.RunLevel(r.Context(), zone, uint8(*req.Level))
	default:
		err = a.dispatcher.Run(r.Context(), zone)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeState(w, r, zone)
}

func (a *httpAPI) stopZone(w http.ResponseWriter, r *http.Request) {
	zone, ok := a.zoneFromRequest(w, r)
	if ok == false {
		return
	}
	if err := a.dispatcher.Stop(r.Context(), zone); err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeState(w, r, zone)
}

func (a *httpAPI) stopAll(w http.ResponseWriter, r *http.Request) {
	if err := a.dispatcher.StopAll(r.Context()); err != nil {
		a.logger.WithError(err).Warn("stop all failed")
		writeError(w, http.StatusBadGateway, "stop_failed", err.Error())
		return
	}
	JSON(w, http.StatusOK, a.registry.States())
}

// streamEvents sends every state change as a JSON message until the
// client goes away or the registry closes.
func (a *httpAPI) streamEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	updates := a.registry.Subscribe()
	defer a.registry.Unsubscribe(updates)

	// the client never speaks, reading only detects its departure
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	a.logger.WithField("remote", r.RemoteAddr).Debug("event stream opened")
	for {
		select {
		case <-gone:
			a.logger.WithField("remote", r.RemoteAddr).Debug("event stream closed by client")
			return
		case s, ok := <-updates:
			if ok == false {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "bridge shutting down"),
					time.Now().Add(time.Second))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(s); err != nil {
				a.logger.WithError(err).Debug("event stream write failed")
				return
			}
		}
	}
}
