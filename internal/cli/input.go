// Package cli handles cmd line input for looking up batteries while debugging
// the matching engine. Each line is a query; lines starting with ':' are commands.
package cli

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/battserve/internal/logger"
	"github.com/bastiangx/battserve/internal/utils"
	"github.com/bastiangx/battserve/pkg/cart"
	"github.com/bastiangx/battserve/pkg/catalog"
	"github.com/bastiangx/battserve/pkg/match"
	"github.com/charmbracelet/log"
)

const helpText = `commands:
  :add <id|n>    add a record by id or by its rank in the last results
  :ids <prefix>  list records whose id starts with prefix
  :rm <id>       remove a record from the cart
  :qty <id> <n>  set the quantity of a cart item
  :cart          show the cart
  :clear         empty the cart
  :quit          exit`

// InputHandler reads queries and cart commands and prints ranked results.
type InputHandler struct {
	engine     *match.Engine
	selection  *cart.List
	showScores bool

	reader io.Reader
	out    *log.Logger

	last         []match.Result
	requestCount int
}

// NewInputHandler creates a handler on stdin, printing to stderr like the rest of the logs
func NewInputHandler(engine *match.Engine, selection *cart.List, showScores bool) *InputHandler {
	return NewInputHandlerWithIO(engine, selection, showScores, os.Stdin, os.Stderr)
}

// NewInputHandlerWithIO creates a handler reading from r and printing to w
func NewInputHandlerWithIO(engine *match.Engine, selection *cart.List, showScores bool, r io.Reader, w io.Writer) *InputHandler {
	if selection == nil {
		selection = cart.NewList(nil)
	}
	return &InputHandler{
		engine:     engine,
		selection:  selection,
		showScores: showScores,
		reader:     r,
		out:        logger.NewWithWriter(w, ""),
	}
}

// Start begins the interface loop. It returns nil on :quit or end of input.
func (h *InputHandler) Start() error {
	h.out.Print("battserve CLI")
	h.out.Printf("%s records loaded. type a model or phone name, :help for commands", utils.FormatWithCommas(h.engine.Catalog().Len()))

	scanner := bufio.NewScanner(h.reader)
	for {
		h.out.Print("> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if quit := h.handleCommand(line); quit {
				return nil
			}
			continue
		}
		h.handleInput(line)
	}
}

// handleInput runs one query and prints the ranked results
func (h *InputHandler) handleInput(query string) {
	h.requestCount++

	start := time.Now()
	results, err := h.engine.Explain(query)
	elapsed := time.Since(start)
	if err != nil {
		h.out.Errorf("Query rejected: %v", err)
		return
	}
	log.Debugf("Took [ %v ] for query '%s'", elapsed, query)

	h.last = results
	if len(results) == 0 {
		h.out.Warnf("No matches for '%s'", query)
		return
	}

	h.out.Printf("Found %d matches for '%s':", len(results), query)
	for i, r := range results {
		h.out.Print(formatResult(i+1, r, query, h.showScores))
	}
}

// handleCommand runs a ':' command and reports whether the loop should stop
func (h *InputHandler) handleCommand(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true
	case ":help", ":h":
		h.out.Print(helpText)
	case ":add":
		if len(fields) != 2 {
			h.out.Error("usage: :add <id|n>")
			return false
		}
		rec, ok := h.resolve(fields[1])
		if !ok {
			h.out.Errorf("Unknown record: %s", fields[1])
			return false
		}
		item := h.selection.Add(rec)
		h.out.Printf("Added %s (x%d)", item.ID, item.Qty)
	case ":ids":
		if len(fields) != 2 {
			h.out.Error("usage: :ids <prefix>")
			return false
		}
		records := h.engine.Catalog().WithIDPrefix(fields[1])
		if len(records) == 0 {
			h.out.Warnf("No ids start with %s", fields[1])
			return false
		}
		h.last = make([]match.Result, 0, len(records))
		for i, rec := range records {
			h.last = append(h.last, match.Result{Record: rec, Origin: match.OriginExact})
			h.out.Printf("%2d. %s  %s", i+1, idStyle.Render(rec.ID), rec.Name)
		}
	case ":rm":
		if len(fields) != 2 {
			h.out.Error("usage: :rm <id>")
			return false
		}
		if !h.selection.Remove(fields[1]) {
			h.out.Errorf("Not in cart: %s", fields[1])
			return false
		}
		h.out.Printf("Removed %s", fields[1])
	case ":qty":
		if len(fields) != 3 {
			h.out.Error("usage: :qty <id> <n>")
			return false
		}
		n, err := strconv.Atoi(fields[2])
		if err != nil {
			h.out.Errorf("Bad quantity: %s", fields[2])
			return false
		}
		item, ok := h.selection.SetQty(fields[1], n)
		if !ok {
			h.out.Errorf("Not in cart: %s", fields[1])
			return false
		}
		h.out.Printf("%s now x%d", item.ID, item.Qty)
	case ":cart":
		for _, line := range formatCart(h.selection.Items()) {
			h.out.Print(line)
		}
	case ":clear":
		h.selection.Clear()
		h.out.Print("Cart cleared")
	default:
		h.out.Errorf("Unknown command %s, try :help", fields[0])
	}
	return false
}

// resolve finds a record by its rank in the last results or by id
func (h *InputHandler) resolve(ref string) (*catalog.Record, bool) {
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(h.last) {
		return h.last[n-1].Record, true
	}
	return h.engine.Catalog().Get(ref)
}
