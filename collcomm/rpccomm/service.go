package rpccomm

import (
	"context"

	"github.com/unixpickle/dist-render/collcomm"
	"google.golang.org/grpc"
)

const (
	serviceName   = "rpccomm.Group"
	deliverMethod = "/" + serviceName + "/Deliver"

	// maxMsgSize bounds a single delivery, which carries
	// a full frame of samples.
	maxMsgSize = 1 << 30
)

// A Delivery carries one message from a worker to the
// coordinator.
type Delivery struct {
	// ID is unique per Send, so retried deliveries can be
	// recognized.
	ID  string
	Msg collcomm.Message
}

// An Ack is returned once the coordinator has received a
// Delivery.
type Ack struct {
	Duplicate bool
}

type groupServer interface {
	deliver(ctx context.Context, d *Delivery) (*Ack, error)
}

var groupServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*groupServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Deliver",
			Handler:    deliverHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rpccomm",
}

func deliverHandler(srv any, ctx context.Context, dec func(any) error,
	interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Delivery)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(groupServer).deliver(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: deliverMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(groupServer).deliver(ctx, req.(*Delivery))
	}
	return interceptor(ctx, in, info, handler)
}
