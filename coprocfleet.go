// Package coprocfleet assembles a coprocessor fleet controller from a fleet config: mDNS
// discovery, HTTP command channels, the redis log bus and prometheus metrics.
package coprocfleet

import (
	"errors"
	"fmt"

	"coprocfleet/adapters"
	"coprocfleet/adapters/mdns"
	"coprocfleet/adapters/myredis"
	"coprocfleet/domain"
	"coprocfleet/interfaces"
	"coprocfleet/service"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrNoLogBus is returned by FollowLogs when the controller was built without a pub/sub bus.
var ErrNoLogBus = errors.New("no log bus configured")

// ErrNoPublishBus is returned by Publisher when the bus cannot publish.
var ErrNoPublishBus = errors.New("no publish bus configured")

// Option overrides a default collaborator of the Controller.
type Option func(*controllerOptions)

type controllerOptions struct {
	logger     log.Logger
	registerer prometheus.Registerer
	redisAddr  string
	discoverer interfaces.Discoverer
	factory    interfaces.CommandChannelFactory
	bus        interfaces.PubSub
}

func WithLogger(logger log.Logger) Option {
	return func(o *controllerOptions) { o.logger = logger }
}

// WithRegisterer registers the controller metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *controllerOptions) { o.registerer = reg }
}

// WithRedis subscribes to node logs through the redis server at addr (redis:// URL).
func WithRedis(addr string) Option {
	return func(o *controllerOptions) { o.redisAddr = addr }
}

func WithDiscoverer(d interfaces.Discoverer) Option {
	return func(o *controllerOptions) { o.discoverer = d }
}

func WithCommandChannelFactory(f interfaces.CommandChannelFactory) Option {
	return func(o *controllerOptions) { o.factory = f }
}

// WithPubSub uses bus for node logs instead of redis. When bus also implements
// interfaces.Publisher it carries the controller's periodic publications too.
func WithPubSub(bus interfaces.PubSub) Option {
	return func(o *controllerOptions) { o.bus = bus }
}

// Controller owns a discovered fleet running config-declared processes, plus the log
// subscriber for its topic.
type Controller struct {
	Config  domain.FleetConfig
	Fleet   *service.AutoPlacingFleet[domain.NamedProcess]
	Metrics *service.Metrics

	logs      *service.LogSubscriber
	publisher *service.PeriodicPublisher
	closers   []func() error
}

// Load reads the fleet YAML file at path and builds a Controller from it.
func Load(path string, opts ...Option) (*Controller, error) {
	cfg, err := service.LoadFleetConfig(path)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// New builds a Controller for cfg. Nothing is discovered until Fleet.Initialize is called.
func New(cfg domain.FleetConfig, opts ...Option) (*Controller, error) {
	o := controllerOptions{logger: log.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = domain.DefaultCallTimeout
	}
	if cfg.LogTopic == "" {
		cfg.LogTopic = domain.DefaultLogTopic
	}
	logger := o.logger
	metrics := service.NewMetrics(o.registerer)

	if o.discoverer == nil {
		o.discoverer = mdns.NewDiscoverer(logger)
	}
	if o.factory == nil {
		o.factory = adapters.CommandHTTPFactory(adapters.NewHTTPClient(domain.DefaultConnectTimeout), cfg.CallTimeout)
	}

	c := &Controller{Config: cfg, Metrics: metrics}
	if o.bus == nil && o.redisAddr != "" {
		client, err := myredis.NewRedisUniversalClient(o.redisAddr, myredis.WithClientName("coprocfleet-controller"))
		if err != nil {
			return nil, service.NewBadParameterError(fmt.Sprintf("invalid redis address %q", o.redisAddr), err)
		}
		bus := myredis.NewPubSub(client, logger)
		o.bus = bus
		c.closers = append(c.closers, bus.Close, client.Close)
	}
	if o.bus != nil {
		c.logs = service.NewLogSubscriber(o.bus, logger, metrics)
		if pub, ok := o.bus.(interfaces.Publisher); ok {
			c.publisher = service.NewPeriodicPublisher(pub, logger, metrics)
		}
	}

	work, constraints := service.BuildNamedWork(cfg)
	c.Fleet = service.NewAutoPlacingFleet(
		o.discoverer,
		service.PlacementSpec[domain.NamedProcess]{
			Timeout:     cfg.DiscoveryTimeout,
			Work:        work,
			Constraints: constraints,
		},
		o.factory,
		logger,
		service.WithMetrics(metrics),
		service.WithDefaultPorts(cfg.CommandPort, cfg.PubSubPort),
		service.WithBaseWeights(cfg.BaseWeights),
	)
	return c, nil
}

// FollowLogs delivers node log lines from the configured topic to sink.
func (c *Controller) FollowLogs(sink service.LogSink) error {
	if c.logs == nil {
		return ErrNoLogBus
	}
	return c.logs.Subscribe(c.Config.LogTopic, sink)
}

// Publisher returns the periodic publisher bound to the bus. Register publications on it
// and drive it with Run.
func (c *Controller) Publisher() (*service.PeriodicPublisher, error) {
	if c.publisher == nil {
		return nil, ErrNoPublishBus
	}
	return c.publisher, nil
}

// Close releases the log bus. The fleet itself holds no resources.
func (c *Controller) Close() error {
	var errs []error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
