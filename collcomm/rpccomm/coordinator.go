// Package rpccomm implements collcomm.Comm over gRPC, so
// that every rank of a group can run in its own process.
//
// Rank 0 runs a Coordinator, which serves deliveries.
// Every other rank dials it with a Worker.
package rpccomm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/unixpickle/dist-render/collcomm"
	"github.com/unixpickle/dist-render/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

var logger = log.New("rpccomm")

// ErrUnsupported is returned for operations a rank does
// not take part in over this transport.
var ErrUnsupported = errors.New("operation not supported on this rank")

// Config is shared by Coordinator and Worker.
type Config struct {
	// Size is the number of ranks in the group.
	Size int

	// Timeout bounds every Send and Recv.
	// Zero means wait forever.
	Timeout time.Duration

	// Retries and Backoff control how a Worker retries
	// deliveries that fail because the coordinator is not
	// reachable.
	Retries int
	Backoff time.Duration
}

func setConfigDefaults(cfg *Config) {
	if cfg.Retries == 0 {
		cfg.Retries = 5
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = 100 * time.Millisecond
	}
}

type inboxKey struct {
	src int
	tag int
}

// A Coordinator is the rank 0 Comm.
//
// It can receive from any worker but cannot send.
type Coordinator struct {
	cfg    Config
	start  time.Time
	lis    net.Listener
	server *grpc.Server
	health *health.Server

	mu    sync.Mutex
	inbox map[inboxKey]chan *collcomm.Message
	seen  map[string]bool
}

// NewCoordinator starts serving deliveries on lis.
func NewCoordinator(lis net.Listener, cfg Config) (*Coordinator, error) {
	setConfigDefaults(&cfg)
	if cfg.Size < 1 {
		return nil, fmt.Errorf("invalid group size: %d", cfg.Size)
	}

	c := &Coordinator{
		cfg:    cfg,
		start:  time.Now(),
		lis:    lis,
		server: grpc.NewServer(grpc.MaxRecvMsgSize(maxMsgSize)),
		health: health.NewServer(),
		inbox:  map[inboxKey]chan *collcomm.Message{},
		seen:   map[string]bool{},
	}
	c.server.RegisterService(&groupServiceDesc, c)
	healthpb.RegisterHealthServer(c.server, c.health)
	c.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		if err := c.server.Serve(lis); err != nil {
			logger.Errorf("serving on %v: %v", lis.Addr(), err)
		}
	}()
	logger.Infof("coordinator listening on %v for %d ranks", lis.Addr(), cfg.Size)
	return c, nil
}

// Addr is the address workers should dial.
func (c *Coordinator) Addr() net.Addr {
	return c.lis.Addr()
}

// Close stops serving.
func (c *Coordinator) Close() {
	c.health.Shutdown()
	c.server.Stop()
}

// Rank is always 0.
func (c *Coordinator) Rank() int {
	return 0
}

// Size gets the number of ranks.
func (c *Coordinator) Size() int {
	return c.cfg.Size
}

// Clock gets the seconds since the Coordinator started.
func (c *Coordinator) Clock() float64 {
	return time.Since(c.start).Seconds()
}

// Compute does nothing, since real work already takes
// wall-clock time.
func (c *Coordinator) Compute(cost float64) {
}

// Send is not supported on the coordinator.
func (c *Coordinator) Send(dst int, msg *collcomm.Message) error {
	return fmt.Errorf("send to rank %d: %w", dst, ErrUnsupported)
}

// Recv waits for the delivery from src with the given
// tag, releasing the blocked worker once it is taken.
func (c *Coordinator) Recv(src, tag int) (*collcomm.Message, error) {
	if src < 1 || src >= c.cfg.Size {
		return nil, fmt.Errorf("recv: source rank %d out of range", src)
	}
	ch := c.mailbox(inboxKey{src: src, tag: tag})

	var deadline <-chan time.Time
	if c.cfg.Timeout > 0 {
		timer := time.NewTimer(c.cfg.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	select {
	case msg := <-ch:
		return msg, nil
	case <-deadline:
		return nil, fmt.Errorf("recv from rank %d: %w", src, collcomm.ErrUnresponsive)
	}
}

func (c *Coordinator) mailbox(key inboxKey) chan *collcomm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.inbox[key]
	if !ok {
		ch = make(chan *collcomm.Message)
		c.inbox[key] = ch
	}
	return ch
}

func (c *Coordinator) deliver(ctx context.Context, d *Delivery) (*Ack, error) {
	src := d.Msg.Source
	if src < 1 || src >= c.cfg.Size {
		return nil, status.Errorf(codes.InvalidArgument, "source rank %d out of range", src)
	}

	c.mu.Lock()
	if c.seen[d.ID] {
		c.mu.Unlock()
		logger.Debugf("duplicate delivery %s from rank %d", d.ID, src)
		return &Ack{Duplicate: true}, nil
	}
	c.seen[d.ID] = true
	c.mu.Unlock()

	msg := d.Msg
	select {
	case c.mailbox(inboxKey{src: src, tag: msg.Tag}) <- &msg:
		logger.Debugf("received %d samples from rank %d", len(msg.Pixels), src)
		return &Ack{}, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.seen, d.ID)
		c.mu.Unlock()
		return nil, status.FromContextError(ctx.Err()).Err()
	}
}
