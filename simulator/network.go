package simulator

import (
	"math"
	"math/rand"
	"sync"

	"github.com/unixpickle/essentials"
)

// A Node represents a machine on a virtual network.
type Node struct {
	unused int
}

// NewNode creates a new, unique Node.
func NewNode() *Node {
	return &Node{}
}

// Port creates a new Port connected to the Node.
func (n *Node) Port(loop *EventLoop) *Port {
	return &Port{Node: n, Incoming: loop.Stream()}
}

// A Port identifies a point of communication on a Node.
// Data is sent from Ports and received on Ports.
type Port struct {
	// The Node to which the Port is attached.
	Node *Node

	// A stream of *Message objects.
	Incoming *EventStream
}

// Recv receives the next message.
func (p *Port) Recv(h *Handle) *Message {
	return h.Poll(p.Incoming).Message.(*Message)
}

// A Message is a chunk of data sent between nodes over a
// network.
type Message struct {
	Source  *Port
	Dest    *Port
	Message interface{}

	// Size is the number of bytes the message occupies
	// on the wire.
	Size float64
}

// A Network represents an abstract way of communicating
// between nodes.
type Network interface {
	// Send message objects from one node to another.
	// The message will arrive on the receiving port's
	// incoming EventStream if the communication is
	// successful.
	//
	// This is a non-blocking operation.
	Send(h *Handle, msgs ...*Message)
}

// A RandomNetwork is a network that assigns random delays
// in [0, MaxDelay) to every message.
//
// If MaxDelay is 0, it is treated as 1.
type RandomNetwork struct {
	MaxDelay float64
}

// Send sends the messages with random delays.
func (r RandomNetwork) Send(h *Handle, msgs ...*Message) {
	maxDelay := r.MaxDelay
	if maxDelay == 0 {
		maxDelay = 1
	}
	for _, msg := range msgs {
		h.Schedule(msg.Dest.Incoming, msg, rand.Float64()*maxDelay)
	}
}

// A LinkNetwork gives every node one network interface
// that can either send or receive a single message at a
// time, with a fixed data rate and latency.
//
// Messages to the same destination are serialized, so a
// node that gathers data from many peers pays for every
// byte it receives.
// Messages with a non-zero transfer time arrive in the
// order they were sent.
type LinkNetwork struct {
	// Rate is the number of bytes per unit of virtual
	// time each interface can move.
	// A Rate of 0 means transfers are instantaneous.
	Rate float64

	// Latency is added to every delivery after the
	// transfer completes.
	Latency float64

	lock      sync.Mutex
	sendFree  map[*Node]float64
	recvFree  map[*Node]float64
	downNodes map[*Node]bool
	transfers []*linkTransfer
}

type linkTransfer struct {
	timer *Timer
	src   *Node
	dest  *Node
	done  float64
}

// NewLinkNetwork creates a LinkNetwork.
func NewLinkNetwork(rate, latency float64) *LinkNetwork {
	return &LinkNetwork{Rate: rate, Latency: latency}
}

// TransferTime computes how long the interfaces are busy
// moving a message of the given size.
func (l *LinkNetwork) TransferTime(size float64) float64 {
	if l.Rate == 0 {
		return 0
	}
	return size / l.Rate
}

// Send queues the messages behind any transfers already
// occupying the source or destination interface.
//
// Messages to or from a down node are dropped.
func (l *LinkNetwork) Send(h *Handle, msgs ...*Message) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.init()
	l.cleanupTransfers(h)

	curTime := h.Time()
	for _, msg := range msgs {
		src := msg.Source.Node
		dest := msg.Dest.Node
		if l.downNodes[src] || l.downNodes[dest] {
			continue
		}
		start := math.Max(curTime, math.Max(l.sendFree[src], l.recvFree[dest]))
		done := start + l.TransferTime(msg.Size)
		l.sendFree[src] = done
		l.recvFree[dest] = done

		l.transfers = append(l.transfers, &linkTransfer{
			timer: h.Schedule(msg.Dest.Incoming, msg, done+l.Latency-curTime),
			src:   src,
			dest:  dest,
			done:  done,
		})
	}
}

// SetDown disconnects or reconnects a node.
//
// Disconnecting a node drops every message still in
// flight to or from it, freeing up its peers' interfaces.
func (l *LinkNetwork) SetDown(h *Handle, node *Node, down bool) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.init()
	l.downNodes[node] = down
	if !down {
		return
	}

	l.cleanupTransfers(h)
	for i := 0; i < len(l.transfers); i++ {
		tr := l.transfers[i]
		if tr.src == node || tr.dest == node {
			h.Cancel(tr.timer)
			essentials.OrderedDelete(&l.transfers, i)
			i--
		}
	}

	l.sendFree = map[*Node]float64{}
	l.recvFree = map[*Node]float64{}
	for _, tr := range l.transfers {
		l.sendFree[tr.src] = math.Max(l.sendFree[tr.src], tr.done)
		l.recvFree[tr.dest] = math.Max(l.recvFree[tr.dest], tr.done)
	}
}

func (l *LinkNetwork) init() {
	if l.downNodes == nil {
		l.sendFree = map[*Node]float64{}
		l.recvFree = map[*Node]float64{}
		l.downNodes = map[*Node]bool{}
	}
}

// cleanupTransfers forgets transfers whose messages have
// already been delivered.
func (l *LinkNetwork) cleanupTransfers(h *Handle) {
	now := h.Time()
	for i := 0; i < len(l.transfers); i++ {
		if l.transfers[i].timer.Time() < now {
			essentials.OrderedDelete(&l.transfers, i)
			i--
		}
	}
}
