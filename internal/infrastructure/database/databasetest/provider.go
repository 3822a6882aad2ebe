// Package databasetest provides an in-memory database.Provider for tests.
//
// The provider records every statement it receives and answers with
// whatever the installed handler returns. It does not parse SQL.
//
//	p := databasetest.NewProvider()
//	p.Handle(func(c databasetest.Call) databasetest.Response {
//	    if strings.HasPrefix(c.SQL, "INSERT") {
//	        return databasetest.Rows([]string{"id"}, []any{int32(1)})
//	    }
//	    return databasetest.Response{}
//	})
//	db := database.New(p, logging.Discard())
package databasetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nerrad567/pgcore/internal/infrastructure/database"
)

// PoolConn is the Call.Conn value for statements sent straight to the pool.
const PoolConn = 0

// Call is one statement received by the provider.
type Call struct {
	// Conn is PoolConn, or the 1-based id of the acquired connection.
	Conn int
	SQL  string
	Args []any
}

// Response is the handler's answer to a Call.
type Response struct {
	Columns []string
	Rows    [][]any

	// Tag is the command tag; it defaults to "SELECT <len(Rows)>".
	Tag string

	// Err is returned from Query.
	Err error
}

// Rows builds a Response with the given columns and rows.
func Rows(columns []string, rows ...[]any) Response {
	return Response{Columns: columns, Rows: rows}
}

// PgError builds a server error with a SQLSTATE.
func PgError(code, message string) error {
	return &pgconn.PgError{Severity: "ERROR", Code: code, Message: message}
}

// Provider is a scripted database.Provider.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Provider struct {
	mu         sync.Mutex
	handler    func(Call) Response
	calls      []Call
	acquired   int
	released   int
	acquireErr error
	pingErr    error
	closed     bool
}

// NewProvider returns a provider that answers every statement with an
// empty success.
func NewProvider() *Provider {
	return &Provider{
		handler: func(Call) Response { return Response{} },
	}
}

// Handle installs the statement handler.
func (p *Provider) Handle(fn func(Call) Response) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = fn
}

// FailAcquire makes every Acquire return err.
func (p *Provider) FailAcquire(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acquireErr = err
}

// FailPing makes Ping return err.
func (p *Provider) FailPing(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pingErr = err
}

// Calls returns every statement received so far.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

// SQL returns the text of every statement received so far.
func (p *Provider) SQL() []string {
	calls := p.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.SQL
	}
	return out
}

// Acquired returns how many connections have been acquired.
func (p *Provider) Acquired() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired
}

// Outstanding returns acquired minus released connections.
func (p *Provider) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired - p.released
}

// Closed reports whether Close was called.
func (p *Provider) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Query implements database.Provider.
func (p *Provider) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	return p.query(PoolConn, sql, args)
}

// Acquire implements database.Provider.
func (p *Provider) Acquire(_ context.Context) (database.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquired++
	return &conn{provider: p, id: p.acquired}, nil
}

// Ping implements database.Provider.
func (p *Provider) Ping(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pingErr
}

// Close implements database.Provider.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *Provider) query(connID int, sql string, args []any) (pgx.Rows, error) {
	p.mu.Lock()
	call := Call{Conn: connID, SQL: sql, Args: args}
	p.calls = append(p.calls, call)
	handler := p.handler
	p.mu.Unlock()

	resp := handler(call)
	if resp.Err != nil {
		return nil, resp.Err
	}
	return newRows(resp), nil
}

// conn is one acquired connection.
type conn struct {
	provider *Provider
	id       int
	released bool
}

func (c *conn) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	if c.released {
		return nil, fmt.Errorf("databasetest: query on released connection %d", c.id)
	}
	return c.provider.query(c.id, sql, args)
}

func (c *conn) Release() {
	if c.released {
		return
	}
	c.released = true
	c.provider.mu.Lock()
	c.provider.released++
	c.provider.mu.Unlock()
}
