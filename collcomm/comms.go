package collcomm

import (
	"errors"
	"fmt"

	"github.com/unixpickle/dist-render/simulator"
	"github.com/unixpickle/essentials"
)

// ErrUnresponsive is returned when a peer does not take
// part in a Send or Recv before the deadline.
var ErrUnresponsive = errors.New("peer unresponsive")

// headerSize is the number of bytes charged on the wire
// for the fixed fields of a Message or an ack.
const headerSize = 24

// A Message is a tagged buffer of pixel samples sent from
// one rank to another.
type Message struct {
	Source int
	Tag    int
	Pixels []float64

	// RenderTime is how long the sender spent producing
	// Pixels, as measured on its own clock.
	RenderTime float64
}

// A Comm is one rank's view of a fixed-size process
// group.
type Comm interface {
	Rank() int
	Size() int

	// Send delivers msg to dst and blocks until dst has
	// received it with a matching Recv.
	//
	// The Source field is filled in automatically.
	Send(dst int, msg *Message) error

	// Recv blocks until a message from src with the given
	// tag arrives.
	// Messages from other ranks or with other tags are
	// kept for later calls.
	Recv(src, tag int) (*Message, error)

	// Clock returns the current time in seconds.
	Clock() float64

	// Compute accounts for cost seconds of local work.
	Compute(cost float64)
}

type envelope struct {
	seq int
	ack bool
	msg *Message
}

// SimComm is a Comm running on a simulated network.
type SimComm struct {
	// Handle is the rank's main Goroutine's handle on the
	// event loop.
	Handle *simulator.Handle

	// Port is the current rank's port.
	Port *simulator.Port

	// Ports contains ports to all the ranks in the group,
	// including the current one.
	Ports []*simulator.Port

	// Network is the network connecting the ranks.
	Network simulator.Network

	// Timeout, if non-zero, is the amount of virtual time
	// Send and Recv wait before failing with
	// ErrUnresponsive.
	Timeout float64

	seq     int
	pending []*envelope
}

// SpawnComms creates a SimComm for every node in a network
// and calls f for each rank in its own Goroutine.
//
// Ranks are assigned in the order of nodes.
func SpawnComms(loop *simulator.EventLoop, network simulator.Network, nodes []*simulator.Node,
	f func(c *SimComm)) {
	ports := make([]*simulator.Port, len(nodes))
	for i, node := range nodes {
		ports[i] = node.Port(loop)
	}
	for i := range nodes {
		port := ports[i]
		loop.Go(func(h *simulator.Handle) {
			f(&SimComm{
				Handle:  h,
				Port:    port,
				Ports:   ports,
				Network: network,
			})
		})
	}
}

// Rank gets the current node's index in the group.
func (s *SimComm) Rank() int {
	return s.indexOf(s.Port)
}

// Size gets the number of ranks.
func (s *SimComm) Size() int {
	return len(s.Ports)
}

// Clock gets the virtual time.
func (s *SimComm) Clock() float64 {
	return s.Handle.Time()
}

// Compute advances the virtual clock by cost.
func (s *SimComm) Compute(cost float64) {
	if cost > 0 {
		s.Handle.Sleep(cost)
	}
}

// Send copies msg onto the network and waits for the
// destination to acknowledge it.
func (s *SimComm) Send(dst int, msg *Message) error {
	if dst < 0 || dst >= s.Size() {
		return fmt.Errorf("send: destination rank %d out of range", dst)
	}
	s.seq++
	seq := s.seq
	payload := *msg
	payload.Source = s.Rank()
	payload.Pixels = append([]float64(nil), msg.Pixels...)
	s.Network.Send(s.Handle, &simulator.Message{
		Source:  s.Port,
		Dest:    s.Ports[dst],
		Message: &envelope{seq: seq, msg: &payload},
		Size:    float64(headerSize + 8*len(payload.Pixels)),
	})

	err := s.poll(func(env *envelope, from int) bool {
		return env.ack && env.seq == seq && from == dst
	})
	if err != nil {
		return fmt.Errorf("send to rank %d: %w", dst, err)
	}
	return nil
}

// Recv waits for a message from src with the given tag
// and acknowledges it.
func (s *SimComm) Recv(src, tag int) (*Message, error) {
	if src < 0 || src >= s.Size() {
		return nil, fmt.Errorf("recv: source rank %d out of range", src)
	}
	match := func(env *envelope, from int) bool {
		return !env.ack && from == src && env.msg.Tag == tag
	}

	var found *envelope
	for i, env := range s.pending {
		if match(env, env.msg.Source) {
			found = env
			essentials.OrderedDelete(&s.pending, i)
			break
		}
	}
	if found == nil {
		err := s.poll(func(env *envelope, from int) bool {
			if match(env, from) {
				found = env
				return true
			}
			return false
		})
		if err != nil {
			return nil, fmt.Errorf("recv from rank %d: %w", src, err)
		}
	}

	s.Network.Send(s.Handle, &simulator.Message{
		Source:  s.Port,
		Dest:    s.Ports[src],
		Message: &envelope{seq: found.seq, ack: true},
		Size:    headerSize,
	})
	return found.msg, nil
}

// poll reads incoming envelopes until done returns true.
//
// Unmatched data messages are queued for Recv, while
// unmatched acks belong to sends that already timed out
// and are dropped.
func (s *SimComm) poll(done func(env *envelope, from int) bool) error {
	var deadline *simulator.EventStream
	if s.Timeout > 0 {
		stream, timer := s.Handle.After(s.Timeout)
		defer s.Handle.Cancel(timer)
		deadline = stream
	}
	for {
		var event *simulator.Event
		if deadline != nil {
			event = s.Handle.Poll(s.Port.Incoming, deadline)
			if event.Stream == deadline {
				return ErrUnresponsive
			}
		} else {
			event = s.Handle.Poll(s.Port.Incoming)
		}
		raw := event.Message.(*simulator.Message)
		env := raw.Message.(*envelope)
		if done(env, s.indexOf(raw.Source)) {
			return nil
		}
		if !env.ack {
			s.pending = append(s.pending, env)
		}
	}
}

func (s *SimComm) indexOf(p *simulator.Port) int {
	for i, port := range s.Ports {
		if port == p {
			return i
		}
	}
	panic("unreachable")
}
