package rpccomm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lytics/retry"
	"github.com/unixpickle/dist-render/collcomm"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// A Worker is the Comm for a rank other than 0.
//
// It can send to the coordinator but cannot receive.
type Worker struct {
	cfg    Config
	rank   int
	start  time.Time
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// Dial connects to the coordinator at addr and waits for
// it to report that it is serving.
func Dial(ctx context.Context, addr string, rank int, cfg Config) (*Worker, error) {
	setConfigDefaults(&cfg)
	if rank < 1 || rank >= cfg.Size {
		return nil, fmt.Errorf("worker rank %d out of range for size %d", rank, cfg.Size)
	}
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(maxMsgSize)),
	)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	w := &Worker{
		cfg:    cfg,
		rank:   rank,
		start:  time.Now(),
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
	}
	if err := w.waitServing(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return w, nil
}

func (w *Worker) waitServing(ctx context.Context) error {
	var resp *healthpb.HealthCheckResponse
	err := retry.XWithContext(ctx, w.cfg.Retries, w.cfg.Backoff, func(ctx context.Context) error {
		var err error
		resp, err = w.health.Check(ctx, &healthpb.HealthCheckRequest{})
		if err != nil {
			return err
		}
		if resp.Status != healthpb.HealthCheckResponse_SERVING {
			return fmt.Errorf("coordinator status %v", resp.Status)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("checking health: %w", err)
	}
	return nil
}

// Close releases the connection.
func (w *Worker) Close() error {
	return w.conn.Close()
}

// Rank gets the worker's rank.
func (w *Worker) Rank() int {
	return w.rank
}

// Size gets the number of ranks.
func (w *Worker) Size() int {
	return w.cfg.Size
}

// Clock gets the seconds since the Worker was dialed.
func (w *Worker) Clock() float64 {
	return time.Since(w.start).Seconds()
}

// Compute does nothing, since real work already takes
// wall-clock time.
func (w *Worker) Compute(cost float64) {
}

// Recv is not supported on workers.
func (w *Worker) Recv(src, tag int) (*collcomm.Message, error) {
	return nil, fmt.Errorf("recv from rank %d: %w", src, ErrUnsupported)
}

// Send delivers msg to the coordinator, blocking until the
// coordinator has received it.
//
// Deliveries that fail because the coordinator is
// unavailable are retried with the same ID, so the
// coordinator sees each message at most once.
func (w *Worker) Send(dst int, msg *collcomm.Message) error {
	if dst != 0 {
		return fmt.Errorf("send to rank %d: %w", dst, ErrUnsupported)
	}
	d := &Delivery{ID: uuid.NewString(), Msg: *msg}
	d.Msg.Source = w.rank

	ctx := context.Background()
	if w.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()
	}

	var err error
	retryErr := retry.XWithContext(ctx, w.cfg.Retries, w.cfg.Backoff, func(ctx context.Context) error {
		err = w.conn.Invoke(ctx, deliverMethod, d, &Ack{}, grpc.CallContentSubtype(codecName))
		if status.Code(err) == codes.Unavailable {
			return err
		}
		return nil
	})
	if err == nil {
		err = retryErr
	}
	if err == nil {
		return nil
	}
	// The deadline may expire between retries, leaving the
	// last Unavailable error in err.
	if status.Code(err) == codes.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("send to rank 0: %w", collcomm.ErrUnresponsive)
	}
	return fmt.Errorf("send to rank 0: %w", err)
}
