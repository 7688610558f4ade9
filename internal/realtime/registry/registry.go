package registry

import (
	"errors"
	"sort"
	"sync"
)

var (
	ErrUnknownConn  = errors.New("connection not bound")
	ErrAlreadyBound = errors.New("connection bound to another account")
)

// Departure descreve uma conexão encerrada. Sessions são as sessões que a
// conta deixou de acompanhar em qualquer outra conexão.
type Departure struct {
	ConnID    string
	AccountID string
	Sessions  []string
}

// Registry liga conexões a contas e às sessões que cada conexão acompanha.
// Uma conta pode ter várias conexões (abas, dispositivos).
type Registry struct {
	mu        sync.Mutex
	conns     map[string]*entry
	byAccount map[string]map[string]struct{}
}

type entry struct {
	account  string
	sessions map[string]struct{}
}

func New() *Registry {
	return &Registry{
		conns:     make(map[string]*entry),
		byAccount: make(map[string]map[string]struct{}),
	}
}

func (r *Registry) Bind(connID, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[connID]; ok {
		if e.account != accountID {
			return ErrAlreadyBound
		}
		return nil
	}
	r.conns[connID] = &entry{account: accountID, sessions: make(map[string]struct{})}
	set, ok := r.byAccount[accountID]
	if !ok {
		set = make(map[string]struct{})
		r.byAccount[accountID] = set
	}
	set[connID] = struct{}{}
	return nil
}

func (r *Registry) Track(connID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[connID]
	if !ok {
		return ErrUnknownConn
	}
	e.sessions[sessionID] = struct{}{}
	return nil
}

func (r *Registry) Untrack(connID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[connID]; ok {
		delete(e.sessions, sessionID)
	}
}

func (r *Registry) Account(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[connID]
	if !ok {
		return "", false
	}
	return e.account, true
}

// Connections lista as conexões da conta em ordem estável
func (r *Registry) Connections(accountID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.byAccount[accountID]))
	for id := range r.byAccount[accountID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Drop remove a conexão. Sessões ainda acompanhadas por outra conexão da
// mesma conta não entram na Departure.
func (r *Registry) Drop(connID string) Departure {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[connID]
	if !ok {
		return Departure{ConnID: connID}
	}
	delete(r.conns, connID)
	others := r.byAccount[e.account]
	delete(others, connID)
	if len(others) == 0 {
		delete(r.byAccount, e.account)
	}

	d := Departure{ConnID: connID, AccountID: e.account}
	for sid := range e.sessions {
		if !r.trackedElsewhere(others, sid) {
			d.Sessions = append(d.Sessions, sid)
		}
	}
	sort.Strings(d.Sessions)
	return d
}

func (r *Registry) trackedElsewhere(conns map[string]struct{}, sessionID string) bool {
	for id := range conns {
		if _, ok := r.conns[id].sessions[sessionID]; ok {
			return true
		}
	}
	return false
}
