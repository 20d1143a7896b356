// Package mesh wires the Framed Transport, Connection Registry, Router,
// Layout, Time Synchronization, Bridge Subsystem, Priority Message Queue,
// Scheduler Facade and Configuration surface into one self-forming,
// self-healing node, per §5's single-threaded cooperative event loop: the
// only goroutines anywhere in this module are the transport's reader,
// writer and accept loops, and they never touch owned state directly —
// they only post events into Mesh's single-producer inbox.
package mesh

import (
	"context"
	"strconv"
	"time"

	"github.com/painlessmesh/gomesh/pkg/mesh/bridge"
	"github.com/painlessmesh/gomesh/pkg/mesh/config"
	"github.com/painlessmesh/gomesh/pkg/mesh/core"
	"github.com/painlessmesh/gomesh/pkg/mesh/definition"
	"github.com/painlessmesh/gomesh/pkg/mesh/queue"
	"github.com/painlessmesh/gomesh/pkg/mesh/scheduler"
	"github.com/painlessmesh/gomesh/pkg/mesh/timesync"
	"github.com/painlessmesh/gomesh/pkg/mesh/transport"
	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// TimeSyncPeriod and QueueFlushPeriod are the default periodic-task
// intervals the event loop drives; both are named in §4.F/§4.H and are not
// presently exposed through config.Config (a small, deliberate omission —
// see DESIGN.md).
const (
	TimeSyncPeriod   = 10 * time.Second
	QueueFlushPeriod = 2 * time.Second
	BridgeMaintenancePeriod = 5 * time.Second
)

// HelloMessage is the link handshake body (type TypeHello): the first frame
// either side of a fresh link sends, advertising its NodeId and the
// subtree it can see so far.
type HelloMessage struct {
	NodeId  types.NodeId   `json:"nodeId"`
	Subtree types.NodeTree `json:"subtree"`
}

type eventKind uint8

const (
	evAccept eventKind = iota
	evFrame
	evClose
)

type inboxEvent struct {
	kind  eventKind
	link  *transport.Link
	frame transport.Frame
	err   error
}

// Mesh owns one instance of every subsystem and is the application's sole
// entry point. It is not safe for concurrent use from more than one
// goroutine — by design, only the goroutine calling Loop ever touches it.
type Mesh struct {
	self     types.NodeId
	cfg      *config.Config
	platform types.Platform
	log      types.Logger
	metrics  types.Metrics

	registry *core.Registry
	table    *core.PackageTable
	router   *core.Router
	layout   *core.Layout

	sync        *timesync.Sync
	bridgeTable *bridge.Table
	election    *bridge.Election
	coordinator *bridge.Coordinator
	ntp         *bridge.NTPDistributor

	queue *queue.Queue
	sched *scheduler.Scheduler

	transport *transport.TCPTransport

	inbox chan inboxEvent

	pending      map[*transport.Link]bool
	linkConn     map[*transport.Link]types.ConnectionId
	connToLink   map[types.ConnectionId]*transport.Link
	peerToLink   map[types.NodeId]*transport.Link
	peerAuthority map[types.NodeId]bool

	isBridge         bool
	bridgePriority   uint8
	lastPrimaryBridge types.NodeId

	onChangedConnections func()
}

// New builds a Mesh identified by self. A nil log/metrics/platform falls
// back to a logrus-backed logger at cfg.DebugMask verbosity, NopMetrics and the
// clock-only DefaultPlatform respectively.
func New(self types.NodeId, cfg *config.Config, platform *types.Platform, log types.Logger, metrics types.Metrics) *Mesh {
	if cfg == nil {
		cfg = config.New()
	}
	if log == nil {
		log = definition.NewDefaultLogger(cfg.DebugMask)
	}
	if metrics == nil {
		metrics = types.NopMetrics{}
	}
	p := types.DefaultPlatform()
	if platform != nil {
		p = *platform
	}

	registry := core.NewRegistry(self, log)
	table := core.NewPackageTable()
	router := core.NewRouter(self, registry, table, log)
	layout := core.NewLayout(self, registry, false)

	m := &Mesh{
		self:     self,
		cfg:      cfg,
		platform: p,
		log:      log,
		metrics:  metrics,

		registry: registry,
		table:    table,
		router:   router,
		layout:   layout,

		sync:        timesync.New(self, log),
		bridgeTable: bridge.NewTable(self, metrics),
		coordinator: nil,
		ntp:         bridge.NewNTPDistributor(self),

		queue: queue.New(metrics),
		sched: scheduler.New(),

		inbox: make(chan inboxEvent, 256),

		pending:       make(map[*transport.Link]bool),
		linkConn:      make(map[*transport.Link]types.ConnectionId),
		connToLink:    make(map[types.ConnectionId]*transport.Link),
		peerToLink:    make(map[types.NodeId]*transport.Link),
		peerAuthority: make(map[types.NodeId]bool),
	}
	m.election = bridge.NewElection(self, p.RouterScan, m.nowMs, p.FreeMemory, m.routerSSID, metrics, log)
	m.coordinator = bridge.NewCoordinator(m.bridgeTable)
	m.coordinator.SetStrategy(cfg.SelectionStrategy)
	_ = m.coordinator.SetMaxBridges(cfg.MaxBridges)

	_ = m.queue.SetCapacity(cfg.QueueCapacity)
	if cfg.QueuePersistence {
		if err := m.queue.EnablePersistence(definition.NewDefaultStorage()); err != nil && log != nil {
			log.Warnf("queue persistence not enabled: %v", err)
		}
	}

	m.registry.OnDropped(m.handleDropped)
	m.layout.OnChangedConnections(m.onLayoutChanged)

	m.registerInternalHandlers()
	m.scheduleInternalTasks()
	return m
}

func (m *Mesh) routerSSID() (string, bool) {
	if m.cfg.RouterSSID == "" {
		return "", false
	}
	return m.cfg.RouterSSID, true
}

// nowMs returns the platform's monotonic millisecond clock.
func (m *Mesh) nowMs() uint64 {
	return m.platform.NowMillis()
}

// meshMicros returns the local clock corrected by this node's current
// offset (§4.F).
func (m *Mesh) meshMicros() int64 {
	return m.sync.MeshMicros(int64(m.nowMs()) * 1000)
}

// Start begins listening for inbound links on addr (e.g. ":5555").
func (m *Mesh) Start(addr string) error {
	t, err := transport.NewTCPTransport(addr, m.log,
		func(l *transport.Link) { m.post(inboxEvent{kind: evAccept, link: l}) },
		func(l *transport.Link, f transport.Frame) { m.post(inboxEvent{kind: evFrame, link: l, frame: f}) },
		func(l *transport.Link, err error) { m.post(inboxEvent{kind: evClose, link: l, err: err}) },
	)
	if err != nil {
		return err
	}
	m.transport = t
	return nil
}

// LocalAddress returns the address Start bound to.
func (m *Mesh) LocalAddress() string {
	if m.transport == nil {
		return ""
	}
	return m.transport.LocalAddress()
}

// Connect dials addr and initiates the handshake as the connecting side.
// Must be called from the same goroutine that drives Loop.
func (m *Mesh) Connect(addr string) error {
	link, err := m.transport.Connect(addr)
	if err != nil {
		return err
	}
	m.handleNewLink(link)
	return nil
}

// post delivers ev to the inbox without blocking the transport goroutine
// that produced it (§5's single-producer inbox contract); an overfull
// inbox drops the event rather than stall I/O.
func (m *Mesh) post(ev inboxEvent) {
	select {
	case m.inbox <- ev:
	default:
		if m.log != nil {
			m.log.Warnf("mesh inbox full, dropping event kind=%d", ev.kind)
		}
	}
}

// Loop is the event loop (§5): it drains the inbox non-blockingly,
// dispatches each frame through the Router, then runs the scheduler. It
// returns when ctx is done.
func (m *Mesh) Loop(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-m.inbox:
			m.handleEvent(ev)
			m.drainInbox()
			m.sched.Execute(time.Now())
		case <-ticker.C:
			m.drainInbox()
			m.sched.Execute(time.Now())
		}
	}
}

// drainInbox processes every event currently queued without blocking,
// so a burst of arrivals is handled in one tick rather than one per loop
// iteration.
func (m *Mesh) drainInbox() {
	for {
		select {
		case ev := <-m.inbox:
			m.handleEvent(ev)
		default:
			return
		}
	}
}

func (m *Mesh) handleEvent(ev inboxEvent) {
	switch ev.kind {
	case evAccept:
		m.handleNewLink(ev.link)
	case evFrame:
		m.handleFrame(ev.link, ev.frame)
	case evClose:
		m.handleClose(ev.link)
	}
}

// SendSingle encodes payload under typ and routes it SINGLE to dest.
func (m *Mesh) SendSingle(dest types.NodeId, typ uint16, payload interface{}) error {
	v, err := types.NewVariant(typ, m.self, dest, types.RoutingSingle, payload)
	if err != nil {
		return err
	}
	return m.router.Route(v, 0)
}

// SendBroadcast encodes payload under typ and routes it BROADCAST.
func (m *Mesh) SendBroadcast(typ uint16, payload interface{}) error {
	v, err := types.NewVariant(typ, m.self, 0, types.RoutingBroadcast, payload)
	if err != nil {
		return err
	}
	return m.router.Route(v, 0)
}

// Registry exposes the Connection Registry for read-only inspection (e.g.
// connection counts in tests and diagnostics).
func (m *Mesh) Registry() *core.Registry { return m.registry }

// Layout exposes the Layout/Topology component.
func (m *Mesh) Layout() *core.Layout { return m.layout }

// Sync exposes the Time Synchronization component.
func (m *Mesh) Sync() *timesync.Sync { return m.sync }

// BridgeTable exposes the Bridge Subsystem's status table.
func (m *Mesh) BridgeTable() *bridge.Table { return m.bridgeTable }

// Election exposes the Bridge Subsystem's election state machine.
func (m *Mesh) Election() *bridge.Election { return m.election }

// Coordinator exposes the Bridge Subsystem's multi-bridge coordinator.
func (m *Mesh) Coordinator() *bridge.Coordinator { return m.coordinator }

// Queue exposes the Priority Message Queue.
func (m *Mesh) Queue() *queue.Queue { return m.queue }

// Scheduler exposes the Scheduler Facade, mostly so tests can drive
// Execute directly without waiting on Loop's ticker.
func (m *Mesh) Scheduler() *scheduler.Scheduler { return m.sched }

// Config exposes the Configuration & Control Surface.
func (m *Mesh) Config() *config.Config { return m.cfg }

// SetBridge toggles whether this node advertises Internet connectivity as
// a BridgeStatus source. Priority is this bridge's own 1..10 ranking,
// derived externally (e.g. from deployment config) the same way §4.G.1
// describes BridgeInfo.Priority being set.
func (m *Mesh) SetBridge(isBridge bool, priority uint8) {
	m.isBridge = isBridge
	m.bridgePriority = priority
}

// OnChangedConnections registers the callback fired whenever the peer set
// or any peer's advertised subtree changes (§4.E).
func (m *Mesh) OnChangedConnections(cb func()) { m.onChangedConnections = cb }

// OnNodeTimeAdjusted registers the callback fired on a time-sync adoption
// (§4.F).
func (m *Mesh) OnNodeTimeAdjusted(cb func(deltaMicros int64)) { m.sync.OnNodeTimeAdjusted(cb) }

// OnBridgeStatusChanged registers the callback fired when the primary
// bridge's connectivity flips (§4.G.1).
func (m *Mesh) OnBridgeStatusChanged(cb func(bridgeId types.NodeId, hasInternet bool)) {
	m.bridgeTable.OnBridgeStatusChanged(cb)
}

// OnBridgeRoleChanged registers the callback fired when this node's bridge
// role changes (§4.G.2).
func (m *Mesh) OnBridgeRoleChanged(cb func(becamePrimary bool, reason string)) {
	m.election.OnBridgeRoleChanged(cb)
}

// OnQueueStateChanged registers the callback fired when the queue crosses
// a fullness bucket boundary (§4.H).
func (m *Mesh) OnQueueStateChanged(cb func(state types.QueueState, count int)) {
	m.queue.OnQueueStateChanged(cb)
}

// OnReceive registers the application's handler for typ, which must fall in
// the user/extension range (§4.C). It is invoked on every SINGLE message
// addressed to this node and every BROADCAST this node observes, with the
// Variant's raw body so the application can decode its own payload shape.
func (m *Mesh) OnReceive(typ uint16, handler func(from types.NodeId, body []byte)) error {
	if typ < types.UserTypeRangeStart || typ > types.UserTypeRangeEnd {
		return types.ErrBadField
	}
	m.table.Register(typ, func(v types.Variant, link types.ConnectionId, origin types.NodeId) bool {
		handler(origin, v.Body)
		return true
	})
	return nil
}

// EnqueueForNode queues payload for delivery to dest through the Priority
// Message Queue rather than sending immediately, applying the §4.H
// eviction policy if the queue is full. The destination is recorded in the
// decimal form flushQueue (tasks.go) parses back into a NodeId. Returns
// ErrNotEnabled if the queue is disabled via config (EnableMessageQueue).
func (m *Mesh) EnqueueForNode(dest types.NodeId, payload []byte, priority types.Priority) (uint64, error) {
	if !m.cfg.EnableMessageQueue {
		return 0, types.ErrNotEnabled
	}
	return m.queue.QueueMessage(payload, nodeIdString(dest), priority, m.nowMs())
}

func nodeIdString(id types.NodeId) string {
	return strconv.FormatUint(uint64(id), 10)
}
