package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/jbuck2005/irrigation-ha/internal/irrigation"
	"github.com/sirupsen/logrus"
)

const ZEROCONF_SERVICE = "_irrigation._tcp"

// Bridge exposes the zones of one irrigationd over HTTP.
type Bridge struct {
	config     Config
	registry   *irrigation.Registry
	dispatcher *irrigation.Dispatcher
	reporter   *stateReporter
	api        *httpAPI

	logger *logrus.Entry

	listener         net.Listener
	quit, done, idle chan struct{}
}

func OpenBridge(c Config, options ...irrigation.Option) (*Bridge, error) {
	if err := c.Check(); err != nil {
		return nil, fmt.Errorf("Invalid config: %w", err)
	}
	registry, err := irrigation.Configure(c.ZoneConfigs(), options...)
	if err != nil {
		return nil, err
	}
	b := &Bridge{
		config:     c,
		registry:   registry,
		dispatcher: irrigation.NewDispatcher(registry),
		reporter:   newStateReporter(c, registry),
		logger:     irrigation.NewLogger("bridge"),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		idle:       make(chan struct{}),
	}
	b.api = newHTTPAPI(b.registry, b.dispatcher, b.reporter)
	return b, nil
}

func (b *Bridge) port() int {
	return b.listener.Addr().(*net.TCPAddr).Port
}

func (b *Bridge) spawnZeroconf() {
	if b.config.NoZeroconf == true {
		return
	}
	logger := irrigation.NewLogger("zeroconf")
	go func() {
		host, err := os.Hostname()
		if err != nil {
			logger.WithError(err).Error("could not get hostname")
			return
		}
		server, err := zeroconf.Register("irrigation."+host, ZEROCONF_SERVICE, "local.", b.port(),
			[]string{
				"version=" + irrigation.IRRIGATION_VERSION,
				"name=" + b.config.Name,
			}, nil)
		if err != nil {
			logger.WithError(err).Error("could not register service")
			return
		}
		logger.WithField("port", b.port()).Info("service announced")
		<-b.idle
		server.Shutdown()
	}()
}

func (b *Bridge) runHTTP() error {
	server := &http.Server{
		Handler:           b.api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	served := make(chan struct{})
	go func() {
		select {
		case <-b.quit:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				b.logger.WithError(err).Error("http server did not shutdown gracefully")
			}
		case <-served:
		}
		close(b.idle)
	}()

	b.logger.WithField("address", b.listener.Addr().String()).Info("listening")
	err := server.Serve(b.listener)
	close(served)
	<-b.idle
	if errors.Is(err, http.ErrServerClosed) == true {
		return nil
	}
	return err
}

// run serves until shutdown is called. ready is closed once the bridge
// accepts connections.
func (b *Bridge) run(ready chan<- struct{}) (err error) {
	reporting := false
	defer close(b.done)
	defer func() {
		if cerr := b.registry.Close(); cerr != nil {
			b.logger.WithError(cerr).Error("registry did not close gracefully")
		}
		if reporting == true {
			<-b.reporter.done
		}
	}()

	b.listener, err = net.Listen("tcp", b.config.Listen)
	if err != nil {
		close(ready)
		return err
	}

	reporterReady := make(chan struct{})
	go b.reporter.Report(reporterReady)
	<-reporterReady
	reporting = true

	for _, zc := range b.config.ZoneConfigs() {
		b.logger.WithFields(logrus.Fields{
			"zone":     zc.Zone,
			"daemon":   zc.Address(),
			"duration": zc.DefaultDuration,
		}).Debug("managing zone")
	}
	b.spawnZeroconf()
	close(ready)

	return b.runHTTP()
}

// shutdown stops serving and drops every countdown. Zones still running
// are left to the daemon, which stops them on its own timer.
func (b *Bridge) shutdown() error {
	select {
	case <-b.quit:
		return errors.New("bridge: already shut down")
	default:
	}
	close(b.quit)
	<-b.done
	return nil
}

func (b *Bridge) Address() string {
	return b.listener.Addr().String()
}
