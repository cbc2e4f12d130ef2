package n2kd

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/kkroon/gonmea2k/common"
)

// clientRole distinguishes the three TCP port flavours (spec §4.G "Port
// convention").
type clientRole int

const (
	roleJSONOnDemand clientRole = iota
	roleJSONStream
	roleNMEA0183Stream
)

// DefaultBasePort is the default value of BASE (spec §4.G, "default base 2597").
const DefaultBasePort = 2597

// client is one connected TCP peer.
type client struct {
	conn   net.Conn
	role   clientRole
	outbox []byte
	closed bool
}

func (c *client) queue(b []byte) {
	if c.closed {
		return
	}
	c.outbox = append(c.outbox, b...)
}

// flush writes as much of the outbox as the connection will currently
// accept. Backpressure is handled by simply retrying on the next loop tick
// (spec §5 "Backpressure"): the outbox is an unbounded buffer.
func (c *client) flush() {
	if c.closed || len(c.outbox) == 0 {
		return
	}
	n, err := c.conn.Write(c.outbox)
	c.outbox = c.outbox[n:]
	if err != nil && err != io.ErrShortWrite {
		c.close()
	}
	if c.role == roleJSONOnDemand && len(c.outbox) == 0 {
		c.close()
	}
}

func (c *client) close() {
	if c.closed {
		return
	}
	c.closed = true
	_ = c.conn.Close()
}

// Server is the n2kd select-loop fan-out server (spec §4.G). Its state map
// and client list are touched only from the single goroutine running Run,
// matching spec §5's single-threaded ownership rule; all other goroutines
// (listener accept loops, stdin line reader) communicate with it only
// through channels.
type Server struct {
	Logger      *common.Logger
	State       *StateMap
	RateLimiter *RateLimiter
	Now         func() time.Time

	mu      sync.Mutex // guards metrics snapshot fields read by cmd/n2kd's HTTP handler
	clients int
	lines   int

	subMu sync.Mutex // guards subscribers, used by the websocket/MQTT enrichments
	subs  map[chan string]struct{}

	newClients chan *client
	lines_     chan string
	quit       chan struct{}
}

// NewServer builds a Server ready to have its listeners started and Run
// called.
func NewServer(logger *common.Logger, rateLimit bool) *Server {
	return &Server{
		Logger:      logger,
		State:       NewStateMap(),
		RateLimiter: NewRateLimiter(rateLimit),
		Now:         time.Now,
		newClients:  make(chan *client, 16),
		lines_:      make(chan string, 256),
		quit:        make(chan struct{}),
		subs:        make(map[chan string]struct{}),
	}
}

// subscribeLines registers a channel that receives every subsequently
// processed decoded-message line, for the websocket and MQTT republish
// enrichments. The channel is buffered so a slow subscriber cannot stall
// the dispatch loop; excess lines are dropped for that subscriber instead.
func (s *Server) subscribeLines() chan string {
	ch := make(chan string, 64)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	return ch
}

func (s *Server) unsubscribeLines(ch chan string) {
	s.subMu.Lock()
	delete(s.subs, ch)
	s.subMu.Unlock()
	close(ch)
}

func (s *Server) broadcastToSubscribers(line string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- line:
		default:
		}
	}
}

// ListenAndServe opens the three listening sockets at base/base+1/base+2
// and starts their accept loops (spec §4.G "Port convention"). It returns
// the three bound addresses, in (JSON-on-demand, JSON-stream, NMEA0183)
// order, once all three are listening; the accept loops run in background
// goroutines until Stop is called. Passing base=0 lets the OS choose free
// ports, which tests use to avoid colliding with a real n2kd instance.
func (s *Server) ListenAndServe(base int) ([]net.Addr, error) {
	roles := []clientRole{roleJSONOnDemand, roleJSONStream, roleNMEA0183Stream}
	addrs := make([]net.Addr, 0, len(roles))
	for i, role := range roles {
		port := 0
		if base != 0 {
			port = base + i
		}
		ln, err := net.Listen("tcp", ":"+strconv.Itoa(port))
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, ln.Addr())
		go s.acceptLoop(ln, role)
	}
	return addrs, nil
}

func (s *Server) acceptLoop(ln net.Listener, role clientRole) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		select {
		case s.newClients <- &client{conn: conn, role: role}:
		case <-s.quit:
			_ = conn.Close()
			return
		}
	}
}

// ServeStdin reads newline-delimited input lines (JSON messages produced by
// the decoder) and feeds them into the dispatch loop (spec §4.G step 2).
func (s *Server) ServeStdin(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		select {
		case s.lines_ <- scanner.Text():
		case <-s.quit:
			return
		}
	}
}

// Run is the single dispatch goroutine: a Go channel `select` stands in for
// the C `select(2)` readiness loop spec §4.G describes, since Go's
// scheduler — not raw fd polling — is the idiomatic way to wait on several
// input sources at once while keeping all mutation in one goroutine.
func (s *Server) Run() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	var streamClients []*client
	for {
		select {
		case <-s.quit:
			return

		case line := <-s.lines_:
			s.handleLine(line, &streamClients)

		case c := <-s.newClients:
			s.mu.Lock()
			s.clients++
			s.mu.Unlock()
			if c.role == roleJSONOnDemand {
				now := s.Now()
				for _, l := range s.State.Dump(now) {
					c.queue([]byte(l + "\n"))
				}
			} else {
				streamClients = append(streamClients, c)
			}
			s.flushOne(c)

		case <-ticker.C:
			s.flushAll(streamClients)
			streamClients = s.pruneClosed(streamClients)
		}
	}
}

func (s *Server) handleLine(line string, streamClients *[]*client) {
	now := s.Now()
	s.mu.Lock()
	s.lines++
	s.mu.Unlock()

	s.State.Store(line, now)
	s.broadcastToSubscribers(line)

	var parsed struct {
		PGN    int                    `json:"pgn"`
		Src    int                    `json:"src"`
		Fields map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(line), &parsed); err != nil {
		return
	}

	for _, c := range *streamClients {
		switch c.role {
		case roleJSONStream:
			c.queue([]byte(line + "\n"))
		case roleNMEA0183Stream:
			for _, sent := range Derive(decodedMessage{PGN: parsed.PGN, Src: uint8(parsed.Src), Fields: parsed.Fields}) {
				kind := sentenceKind(sent)
				if s.RateLimiter.Allow(uint8(parsed.Src), kind, now) {
					c.queue([]byte(sent))
				}
			}
		}
		s.flushOne(c)
	}
}

func (s *Server) flushOne(c *client) { c.flush() }

func (s *Server) flushAll(clients []*client) {
	for _, c := range clients {
		c.flush()
	}
}

func (s *Server) pruneClosed(clients []*client) []*client {
	out := clients[:0]
	for _, c := range clients {
		if !c.closed {
			out = append(out, c)
		}
	}
	return out
}

// Stop shuts the dispatch loop and listener accept loops down.
func (s *Server) Stop() { close(s.quit) }

// Stats returns a point-in-time snapshot for metrics reporting.
func (s *Server) Stats() (clients, lines, stateEntries int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients, s.lines, s.State.Len()
}

// sentenceKind extracts the three-letter sentence kind ("HDG", "MWV", ...)
// from a rendered NMEA 0183 line's talker+kind prefix.
func sentenceKind(sentence string) string {
	if len(sentence) < 6 {
		return ""
	}
	return sentence[3:6]
}
