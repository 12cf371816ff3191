package ipc

import (
	"github.com/anthropic/kidex/internal/index"
	"github.com/anthropic/kidex/internal/query"
)

// Command names the wire-level request variant.
type Command string

const (
	CmdFullIndex  Command = "full_index"
	CmdQuit       Command = "quit"
	CmdReload     Command = "reload"
	CmdGetIndex   Command = "get_index"
	CmdQueryIndex Command = "query_index"
)

// OutputFormat is carried through QueryIndex for the client's own
// rendering; the server does not interpret it.
type OutputFormat string

const (
	OutputJSON OutputFormat = "json"
	OutputList OutputFormat = "list"
)

// QueryOptions is the QueryIndex request payload: already-tokenized query
// arguments plus the case mode and optional scoping/limiting parameters.
type QueryOptions struct {
	Tokens       []string       `json:"tokens"`
	CaseMode     query.CaseMode `json:"case_mode"`
	OutputFormat OutputFormat   `json:"output_format,omitempty"`
	RootPath     string         `json:"root_path,omitempty"`
	Limit        *int           `json:"limit,omitempty"`
}

// Request is the JSON payload sent client to server, 0x00-terminated on
// the wire. Only the field relevant to Command is populated.
type Request struct {
	Command Command       `json:"command"`
	Path    *string       `json:"path,omitempty"`
	Query   *QueryOptions `json:"query,omitempty"`
}

// Status names the wire-level response variant.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusNotFound Status = "not_found"
	StatusIndex    Status = "index"
	StatusError    Status = "error"
)

// Response is the JSON payload sent server to client, with no terminator
// -- the client reads to end-of-stream.
type Response struct {
	Status  Status        `json:"status"`
	Entries []index.Entry `json:"entries,omitempty"`
	Message string        `json:"message,omitempty"`
}
