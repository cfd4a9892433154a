/*
Package server implements msgpack IPC for battery catalog lookups.

The server reads a stream of msgpack requests from stdin and writes msgpack
messages to stdout. It is meant to sit behind a search box: the client sends
every keystroke as a query and the server debounces them, so only the
latest query after a quiet interval is matched.

# IPC

Every request carries an ID and an action; responses echo the ID.

	{"id": "k1", "action": "query", "q": "B"}
	{"id": "k2", "action": "query", "q": "BL"}
	{"id": "k3", "action": "query", "q": "BLP"}

A query is not answered directly. Once the input is quiet, the ResultSet is
pushed with the ID of the query it belongs to:

	{"id": "k3", "q": "BLP", "s": [{"i": "BLP885", "n": "VIVO Y12 BLP885 Battery", "r": 1}], "c": 1, "t": 412}

t is the time the pass took, in microseconds. A pass superseded by a newer
query is never pushed. Feeding the query that is already current does
nothing and pushes nothing.

Clearing answers immediately with the empty ResultSet:

	{"id": "c1", "action": "clear"}

One-shot lookups skip the debounce:

	{"id": "s1", "action": "search", "q": "redmi"}
	{"id": "r1", "action": "results"}

The selection list is managed with cart_add, cart_remove, cart_qty,
cart_list and cart_clear:

	{"id": "a1", "action": "cart_add", "rid": "BLP885"}
	{"id": "a2", "action": "cart_qty", "rid": "BLP885", "qty": 3}

Search tuning can be read and changed at runtime:

	{"id": "g1", "action": "config"}
	{"id": "g2", "action": "config", "max_results": 10, "threshold": 0.25}

Errors carry a message and a code:

	{"id": "k4", "e": "invalid query", "c": 400}

A q that is not a string, is not valid UTF-8 or holds NUL bytes is an
invalid query. Unknown actions are 400, unknown records 404.
*/
package server

// Request is any client message. Fields beyond ID and Action depend on the action.
type Request struct {
	ID     string `msgpack:"id"`
	Action string `msgpack:"action"`
	// Query is kept loose so a non-string q can be reported as an invalid query
	Query    any    `msgpack:"q,omitempty"`
	RecordID string `msgpack:"rid,omitempty"`
	Qty      int    `msgpack:"qty,omitempty"`

	// config only
	MaxResults      *int     `msgpack:"max_results,omitempty"`
	ExactSufficient *int     `msgpack:"exact_sufficient,omitempty"`
	Threshold       *float64 `msgpack:"threshold,omitempty"`
}

// ResultRecord - one ranked record
type ResultRecord struct {
	ID   string `msgpack:"i"`
	Name string `msgpack:"n"`
	Rank uint16 `msgpack:"r"`
}

// ResultsResponse - a ResultSet, pushed or answered
type ResultsResponse struct {
	ID        string         `msgpack:"id"`
	Query     string         `msgpack:"q"`
	Results   []ResultRecord `msgpack:"s"`
	Count     int            `msgpack:"c"`
	TimeTaken int64          `msgpack:"t"`
}

// CartItem - one selection entry
type CartItem struct {
	ID   string `msgpack:"i"`
	Name string `msgpack:"n"`
	Qty  int    `msgpack:"qty"`
}

// CartResponse - the selection after a cart action
type CartResponse struct {
	ID     string     `msgpack:"id"`
	Status string     `msgpack:"status"`
	Items  []CartItem `msgpack:"items"`
	Count  int        `msgpack:"c"`
	Total  int        `msgpack:"total"`
}

// ConfigResponse - current search tuning
type ConfigResponse struct {
	ID              string  `msgpack:"id"`
	Status          string  `msgpack:"status"`
	MaxResults      int     `msgpack:"max_results"`
	ExactSufficient int     `msgpack:"exact_sufficient"`
	Threshold       float64 `msgpack:"threshold"`
	DebounceMs      int     `msgpack:"debounce_ms"`
}

// StatusResponse - ready and health messages
type StatusResponse struct {
	ID     string `msgpack:"id,omitempty"`
	Status string `msgpack:"status"`
}

// ErrorResponse holds basic error information for any failed request
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
