package main

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	aggnet "github.com/zzhang154/Decentralized-Aggregation"
	"github.com/zzhang154/Decentralized-Aggregation/names"
	"github.com/zzhang154/Decentralized-Aggregation/network"
	"github.com/zzhang154/Decentralized-Aggregation/utils"
)

var (
	ErrNoSuchNode = errors.New("no such node")
	ErrBadLink    = errors.New("link endpoints must name two configured nodes")
	ErrBadRoute   = errors.New("route must name a configured node and a linked neighbor")
)

type SourceConfig struct {
	ID    uint64 `yaml:"id"`
	Value uint64 `yaml:"value"`
}

type NodeConfig struct {
	Name   string        `yaml:"name"`
	Source *SourceConfig `yaml:"source"`
}

type RouteConfig struct {
	Node   string `yaml:"node"`
	Prefix string `yaml:"prefix"`
	Via    string `yaml:"via"`
}

// Config is the YAML topology: nodes, full-duplex links between them,
// and explicit routes per node.
type Config struct {
	Nodes           []NodeConfig  `yaml:"nodes"`
	Links           [][2]string   `yaml:"links"`
	Routes          []RouteConfig `yaml:"routes"`
	DefaultLifetime string        `yaml:"default_lifetime"`
	Metrics         string        `yaml:"metrics"`
}

func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

type node struct {
	name   string
	engine *aggnet.Engine
	table  *aggnet.PrefixTable
	faces  map[string]aggnet.Face // neighbor name → face toward it
}

// Cluster is the in-process topology: every node runs a full engine and
// the links are paired queue faces.
type Cluster struct {
	log      utils.Logger
	nodes    map[string]*node
	order    []string
	registry *prometheus.Registry

	mu         sync.Mutex
	nextFaceID uint64
}

func (c *Cluster) faceID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextFaceID++
	return c.nextFaceID
}

func BuildCluster(cfg Config, log utils.Logger) (*Cluster, error) {
	lifetime := 4 * time.Second
	if cfg.DefaultLifetime != "" {
		d, err := time.ParseDuration(cfg.DefaultLifetime)
		if err != nil {
			return nil, fmt.Errorf("default_lifetime: %w", err)
		}
		lifetime = d
	}

	c := &Cluster{
		log:      log,
		nodes:    make(map[string]*node),
		registry: prometheus.NewRegistry(),
	}
	for _, nc := range cfg.Nodes {
		if _, dup := c.nodes[nc.Name]; dup || nc.Name == "" {
			return nil, fmt.Errorf("bad node name %q", nc.Name)
		}
		table := aggnet.NewPrefixTable()
		opts := aggnet.Options{
			DefaultLifetime: lifetime,
			Logger:          log,
		}
		if nc.Source != nil {
			opts.LocalSource = aggnet.StaticSource{ID: nc.Source.ID, Value: nc.Source.Value}
		}
		n := &node{
			name:   nc.Name,
			engine: aggnet.NewEngine(table, aggnet.WallTimers{}, opts),
			table:  table,
			faces:  make(map[string]aggnet.Face),
		}
		c.nodes[nc.Name] = n
		c.order = append(c.order, nc.Name)

		reg := prometheus.WrapRegistererWith(prometheus.Labels{"node": nc.Name}, c.registry)
		if err := reg.Register(aggnet.NewEngineCollector(n.engine)); err != nil {
			return nil, err
		}
	}

	for _, link := range cfg.Links {
		a, b := c.nodes[link[0]], c.nodes[link[1]]
		if a == nil || b == nil {
			return nil, fmt.Errorf("%w: %v", ErrBadLink, link)
		}
		fa, fb := network.Pipe(log, c.faceID(), a.engine, c.faceID(), b.engine)
		a.faces[b.name] = fa
		b.faces[a.name] = fb
	}

	for _, r := range cfg.Routes {
		n := c.nodes[r.Node]
		if n == nil {
			return nil, fmt.Errorf("%w: %s", ErrBadRoute, r.Node)
		}
		face, ok := n.faces[r.Via]
		if !ok {
			return nil, fmt.Errorf("%w: %s via %s", ErrBadRoute, r.Node, r.Via)
		}
		n.table.Add(names.Parse(r.Prefix), face, 1)
	}
	return c, nil
}

func (c *Cluster) node(name string) (*node, error) {
	n, ok := c.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchNode, name)
	}
	return n, nil
}

// Sum issues one aggregate query at the named node and waits for the
// result or the timeout.
func (c *Cluster) Sum(nodeName string, ids names.IDSet, timeout time.Duration) (uint64, error) {
	n, err := c.node(nodeName)
	if err != nil {
		return 0, err
	}
	gen := uuid.NewString()[:8]
	query := names.Aggregate(ids, gen)

	got := make(chan uint64, 1)
	face := &aggnet.FuncFace{
		FaceID: c.faceID(),
		OnResponse: func(_ names.Name, value uint64) error {
			select {
			case got <- value:
			default:
			}
			return nil
		},
	}
	n.engine.OnRequestReceived(query, face, timeout)

	select {
	case v := <-got:
		return v, nil
	case <-time.After(timeout):
		return 0, fmt.Errorf("query %s timed out", query)
	}
}

// CacheOf snapshots a node's value cache.
func (c *Cluster) CacheOf(nodeName string) (map[uint64]uint64, error) {
	n, err := c.node(nodeName)
	if err != nil {
		return nil, err
	}
	return n.engine.Cache().Snapshot(), nil
}

// PendingOf lists a node's live pending-request names.
func (c *Cluster) PendingOf(nodeName string) ([]string, error) {
	n, err := c.node(nodeName)
	if err != nil {
		return nil, err
	}
	return n.engine.PendingNames(), nil
}
