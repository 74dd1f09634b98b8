package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/grandcat/zeroconf"
	"github.com/jbuck2005/irrigation-ha/internal/irrigation"
	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

const BRIDGE_SERVICE = "_irrigation._tcp"

// BridgeName designates a bridge on the command line: either the name it
// announces over zeroconf, or a literal host:port.
type BridgeName string

func (n *BridgeName) Complete(match string) []flags.Completion {
	bridges, err := directory.Bridges(context.Background())
	if err != nil {
		return nil
	}
	res := []flags.Completion{}
	for _, b := range bridges {
		if strings.HasPrefix(b.Name, match) == true {
			res = append(res, flags.Completion{Item: b.Name, Description: b.Label})
		}
	}
	return res
}

type browseFunc func(ctx context.Context) ([]*zeroconf.ServiceEntry, error)

// bridgeDirectory finds the bridges of the local network. Browse results
// are kept in the user cache for ttl, so shell completion stays fast.
type bridgeDirectory struct {
	path   string
	ttl    time.Duration
	browse browseFunc
	logger *logrus.Entry
}

type directoryCache struct {
	Refreshed time.Time `yaml:"refreshed"`
	Bridges   []Node    `yaml:"bridges"`
}

var directory = &bridgeDirectory{
	path:   filepath.Join(xdg.CacheHome, "irrigation", "bridges.yml"),
	ttl:    5 * time.Second,
	browse: browseZeroconf,
	logger: irrigation.NewLogger("directory"),
}

func browseZeroconf(ctx context.Context) ([]*zeroconf.ServiceEntry, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 16)
	collected := make(chan []*zeroconf.ServiceEntry)
	go func() {
		res := []*zeroconf.ServiceEntry{}
		for e := range entries {
			res = append(res, e)
		}
		collected <- res
	}()

	if err := resolver.Browse(ctx, BRIDGE_SERVICE, "local.", entries); err != nil {
		return nil, fmt.Errorf("could not browse for bridges: %w", err)
	}
	<-ctx.Done()
	return <-collected, nil
}

// bridgeFromEntry reads the announce of a bridge: its instance is
// "irrigation.<host>", its TXT records carry name= and version=.
func bridgeFromEntry(e *zeroconf.ServiceEntry) Node {
	n := Node{
		Name:    strings.TrimPrefix(e.Instance, "irrigation."),
		Address: strings.TrimSuffix(e.HostName, "."),
		Port:    e.Port,
	}
	if len(e.AddrIPv4) > 0 {
		n.Address = e.AddrIPv4[0].String()
	}
	for _, txt := range e.Text {
		key, value, ok := strings.Cut(txt, "=")
		if ok == false {
			continue
		}
		switch key {
		case "name":
			n.Label = value
		case "version":
			n.Version = value
		}
	}
	return n
}

// parseBridgeAddress accepts a literal host:port, for bridges that are not
// announced.
func parseBridgeAddress(name BridgeName) (Node, error) {
	host, port, err := net.SplitHostPort(string(name))
	if err != nil {
		return Node{}, err
	}
	if len(host) == 0 {
		return Node{}, fmt.Errorf("%s: missing host", name)
	}
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil || p == 0 {
		return Node{}, fmt.Errorf("%s: invalid port %q", name, port)
	}
	return Node{Name: string(name), Address: host, Port: int(p)}, nil
}

func (d *bridgeDirectory) readCache() (directoryCache, bool) {
	cache := directoryCache{}
	content, err := os.ReadFile(d.path)
	if err != nil {
		return cache, false
	}
	if err := yaml.Unmarshal(content, &cache); err != nil {
		d.logger.WithError(err).Debug("ignoring invalid cache")
		return directoryCache{}, false
	}
	return cache, time.Since(cache.Refreshed) < d.ttl
}

func (d *bridgeDirectory) writeCache(cache directoryCache) error {
	if err := os.MkdirAll(filepath.Dir(d.path), 0755); err != nil {
		return err
	}
	content, err := yaml.Marshal(cache)
	if err != nil {
		return err
	}
	return os.WriteFile(d.path, content, 0644)
}

// Bridges returns the announced bridges sorted by name.
func (d *bridgeDirectory) Bridges(ctx context.Context) ([]Node, error) {
	if cache, fresh := d.readCache(); fresh == true {
		return cache.Bridges, nil
	}

	entries, err := d.browse(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]Node, len(entries))
	for _, e := range entries {
		n := bridgeFromEntry(e)
		byName[n.Name] = n
	}
	cache := directoryCache{Refreshed: time.Now(), Bridges: make([]Node, 0, len(byName))}
	for _, n := range byName {
		cache.Bridges = append(cache.Bridges, n)
	}
	sort.Slice(cache.Bridges, func(i, j int) bool { return cache.Bridges[i].Name < cache.Bridges[j].Name })

	if err := d.writeCache(cache); err != nil {
		d.logger.WithError(err).Warn("could not cache bridges")
	}
	d.logger.WithField("count", len(cache.Bridges)).Debug("browsed bridges")
	return cache.Bridges, nil
}

func (d *bridgeDirectory) Resolve(ctx context.Context, name BridgeName) (Node, error) {
	if n, err := parseBridgeAddress(name); err == nil {
		return n, nil
	}
	bridges, err := d.Bridges(ctx)
	if err != nil {
		return Node{}, err
	}
	for _, b := range bridges {
		if b.Name == string(name) {
			return b, nil
		}
	}
	return Node{}, fmt.Errorf("no bridge named '%s'", name)
}
