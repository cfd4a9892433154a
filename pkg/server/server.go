package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bastiangx/battserve/internal/logger"
	"github.com/bastiangx/battserve/internal/utils"
	"github.com/bastiangx/battserve/pkg/cart"
	"github.com/bastiangx/battserve/pkg/catalog"
	"github.com/bastiangx/battserve/pkg/config"
	"github.com/bastiangx/battserve/pkg/match"
	"github.com/bastiangx/battserve/pkg/session"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Server handles the IPC for catalog lookups
type Server struct {
	engine     atomic.Pointer[match.Engine]
	selection  *cart.List
	config     *config.Config
	configPath string
	scheduler  session.Scheduler

	reader io.Reader
	writer io.Writer
	// writeMu serializes writes; pushes come from another goroutine
	writeMu sync.Mutex

	session *session.Session

	// pendingMu guards the latest query request. Only the Update carrying
	// pendingSeq is pushed, tagged with pendingID; an empty pendingID means
	// the query was cleared and nothing is pushed.
	pendingMu  sync.Mutex
	pendingID  string
	pendingSeq uint64
	pushedSeq  uint64

	requestCount int
}

// NewServer creates a lookup server using stdin/stdout for IPC.
// configPath may be empty, in which case config changes are not persisted.
func NewServer(engine *match.Engine, selection *cart.List, cfg *config.Config, configPath string) *Server {
	return NewServerWithIO(engine, selection, cfg, configPath, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a lookup server reading requests from r and writing to w
func NewServerWithIO(engine *match.Engine, selection *cart.List, cfg *config.Config, configPath string, r io.Reader, w io.Writer) *Server {
	if selection == nil {
		selection = cart.NewList(nil)
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		selection:  selection,
		config:     cfg,
		configPath: configPath,
		reader:     r,
		writer:     w,
	}
	s.engine.Store(engine)
	return s
}

// SetScheduler replaces the debounce timer source. Must be called before Start.
func (s *Server) SetScheduler(scheduler session.Scheduler) {
	s.scheduler = scheduler
}

// Search runs a pass on the current engine; the session calls it.
func (s *Server) Search(query string) ([]*catalog.Record, error) {
	return s.engine.Load().Search(query)
}

// Start begins listening for IPC requests. It returns nil when the client
// closes the stream.
func (s *Server) Start() error {
	log.Debug("Starting Server.")

	s.session = session.New(s, session.Options{
		Quiet:     s.config.DebounceInterval(),
		Scheduler: s.scheduler,
		Logger:    logger.New("session"),
	})
	pushed := make(chan struct{})
	go s.pushUpdates(pushed)
	defer func() {
		s.session.Close()
		<-pushed
	}()

	s.sendResponse(StatusResponse{Status: "ready"})

	dec := msgpack.NewDecoder(s.reader)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("Client disconnected")
				return nil
			}
			log.Errorf("Decoding request: %v", err)
			s.sendError("", "invalid request", 400)
			return err
		}
		s.handleRequest(req)
	}
}

// handleRequest dispatches one decoded request
func (s *Server) handleRequest(req Request) {
	s.requestCount++
	log.Debugf("Request #%d: %s (%s)", s.requestCount, req.Action, req.ID)

	switch req.Action {
	case "query":
		s.handleQuery(req)
	case "clear":
		s.pendingMu.Lock()
		s.session.OnQueryCleared()
		s.pendingID, s.pendingSeq = "", s.session.Seq()
		s.sendResults(req.ID, "", nil, 0)
		s.pendingMu.Unlock()
	case "results":
		s.sendResults(req.ID, s.session.CurrentQuery(), s.session.CurrentResults(), 0)
	case "search":
		s.handleSearch(req)
	case "cart_add", "cart_remove", "cart_qty", "cart_list", "cart_clear":
		s.handleCart(req)
	case "config":
		s.handleConfig(req)
	case "health":
		s.sendResponse(StatusResponse{ID: req.ID, Status: "ok"})
	default:
		s.sendError(req.ID, fmt.Sprintf("unknown action: %s", req.Action), 400)
	}
}

func (s *Server) handleQuery(req Request) {
	query, err := queryString(req.Query)
	if err == nil && !utils.IsValidQuery(query) {
		err = fmt.Errorf("%w: %q", match.ErrInvalidQuery, query)
	}
	if err != nil {
		s.sendQueryError(req.ID, err)
		return
	}

	// held across the call so no push slips between the session update and
	// the bookkeeping below
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	if err := s.session.OnQueryChanged(query); err != nil {
		s.sendQueryError(req.ID, err)
		return
	}

	if utils.IsBlank(query) {
		// a blank query clears synchronously, so answer right away
		s.pendingID, s.pendingSeq = "", s.session.Seq()
		s.sendResults(req.ID, "", nil, 0)
		return
	}
	s.pendingID, s.pendingSeq = req.ID, s.session.Seq()

	// the same query again after its push: nothing new will be published
	if s.pendingSeq == s.pushedSeq {
		s.sendResults(req.ID, query, s.session.CurrentResults(), 0)
	}
}

func (s *Server) handleSearch(req Request) {
	query, err := queryString(req.Query)
	if err != nil {
		s.sendQueryError(req.ID, err)
		return
	}

	start := time.Now()
	records, err := s.engine.Load().Search(query)
	if err != nil {
		s.sendQueryError(req.ID, err)
		return
	}
	s.sendResults(req.ID, query, records, time.Since(start))
}

func (s *Server) handleCart(req Request) {
	switch req.Action {
	case "cart_add":
		rec, ok := s.engine.Load().Catalog().Get(req.RecordID)
		if !ok {
			s.sendError(req.ID, fmt.Sprintf("unknown record: %s", req.RecordID), 404)
			return
		}
		s.selection.Add(rec)
	case "cart_remove":
		if !s.selection.Remove(req.RecordID) {
			s.sendError(req.ID, fmt.Sprintf("not in cart: %s", req.RecordID), 404)
			return
		}
	case "cart_qty":
		if _, ok := s.selection.SetQty(req.RecordID, req.Qty); !ok {
			s.sendError(req.ID, fmt.Sprintf("not in cart: %s", req.RecordID), 404)
			return
		}
	case "cart_clear":
		s.selection.Clear()
	}
	s.sendCart(req.ID)
}

// handleConfig reports the search tuning and applies any changes. A change
// rebuilds the engine; passes already running finish on the old one.
func (s *Server) handleConfig(req Request) {
	if req.MaxResults != nil || req.ExactSufficient != nil || req.Threshold != nil {
		if err := s.config.Update(s.configPath, req.MaxResults, req.ExactSufficient, req.Threshold); err != nil {
			log.Warnf("Saving config to %s: %v", s.configPath, err)
		}
		old := s.engine.Load()
		s.engine.Store(match.NewEngine(old.Catalog(), s.config.MatchOptions()))
		log.Debugf("Engine rebuilt with %+v", s.engine.Load().Options())
	}

	opts := s.engine.Load().Options()
	s.sendResponse(ConfigResponse{
		ID:              req.ID,
		Status:          "ok",
		MaxResults:      opts.MaxResults,
		ExactSufficient: opts.ExactSufficient,
		Threshold:       opts.Fuzzy.Threshold,
		DebounceMs:      s.config.Search.DebounceMs,
	})
}

// pushUpdates forwards the ResultSet of the latest query to the client.
// Clears are answered by the request that caused them.
func (s *Server) pushUpdates(done chan<- struct{}) {
	defer close(done)
	for u := range s.session.Updates() {
		s.pushUpdate(u)
	}
}

func (s *Server) pushUpdate(u session.Update) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if s.pendingID == "" || u.Seq != s.pendingSeq || u.Query == "" {
		log.Debugf("Skipping push #%d for %q, latest is #%d", u.Seq, u.Query, s.pendingSeq)
		return
	}
	s.pushedSeq = u.Seq
	s.sendResults(s.pendingID, u.Query, u.Results, u.Elapsed)
}

func (s *Server) sendResults(id, query string, records []*catalog.Record, elapsed time.Duration) {
	ranks := utils.CreateRankList(len(records))
	results := make([]ResultRecord, len(records))
	for i, r := range records {
		results[i] = ResultRecord{ID: r.ID, Name: r.Name, Rank: ranks[i]}
	}
	s.sendResponse(ResultsResponse{
		ID:        id,
		Query:     query,
		Results:   results,
		Count:     len(results),
		TimeTaken: elapsed.Microseconds(),
	})
}

func (s *Server) sendCart(id string) {
	items := s.selection.Items()
	out := make([]CartItem, len(items))
	total := 0
	for i, it := range items {
		out[i] = CartItem{ID: it.ID, Name: it.Name, Qty: it.Qty}
		total += it.Qty
	}
	s.sendResponse(CartResponse{
		ID:     id,
		Status: "ok",
		Items:  out,
		Count:  len(out),
		Total:  total,
	})
}

// sendResponse marshals response to msgpack and writes it to the client.
func (s *Server) sendResponse(response any) {
	data, err := msgpack.Marshal(response)
	if err != nil {
		log.Errorf("Marshaling response: %v", err)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.writer.Write(data); err != nil {
		log.Errorf("Writing response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(id, message string, code int) {
	s.sendResponse(ErrorResponse{ID: id, Error: message, Code: code})
}

func (s *Server) sendQueryError(id string, err error) {
	if errors.Is(err, match.ErrInvalidQuery) {
		log.Debugf("Rejecting request %s: %v", id, err)
		s.sendError(id, "invalid query", 400)
		return
	}
	if errors.Is(err, session.ErrClosed) {
		s.sendError(id, "shutting down", 503)
		return
	}
	log.Errorf("Request %s: %v", id, err)
	s.sendError(id, "internal server error", 500)
}

// queryString accepts only string queries
func queryString(q any) (string, error) {
	query, ok := q.(string)
	if !ok {
		return "", fmt.Errorf("%w: q is %T", match.ErrInvalidQuery, q)
	}
	return query, nil
}
