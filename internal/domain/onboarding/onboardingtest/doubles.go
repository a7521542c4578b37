package onboardingtest

import (
	"context"
	"encoding/json"
	"sync"

	"onboarding/internal/domain/core"
	"onboarding/internal/domain/events"
)

type Employees struct {
	byID map[string]core.Employee
}

func NewEmployees(list ...core.Employee) *Employees {
	e := &Employees{byID: map[string]core.Employee{}}
	for _, emp := range list {
		e.Add(emp)
	}
	return e
}

func (e *Employees) Add(emp core.Employee) {
	e.byID[emp.ID] = emp
}

func (e *Employees) GetEmployee(_ context.Context, _, employeeID string) (*core.Employee, error) {
	emp, ok := e.byID[employeeID]
	if !ok {
		return nil, core.ErrEmployeeNotFound
	}
	return &emp, nil
}

func (e *Employees) GetEmployeeByUserID(_ context.Context, _, userID string) (*core.Employee, error) {
	for _, emp := range e.byID {
		if userID != "" && emp.UserID == userID {
			out := emp
			return &out, nil
		}
	}
	return nil, core.ErrEmployeeNotFound
}

type Notification struct {
	TenantID string
	UserID   string
	Role     string
	Type     string
	Title    string
	Body     string
}

// Notifier records notifications instead of sending them.
type Notifier struct {
	mu   sync.Mutex
	Sent []Notification
}

func (n *Notifier) Create(_ context.Context, tenantID, userID, ntype, title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, Notification{TenantID: tenantID, UserID: userID, Type: ntype, Title: title, Body: body})
	return nil
}

func (n *Notifier) CreateForRole(_ context.Context, tenantID, roleName, ntype, title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, Notification{TenantID: tenantID, Role: roleName, Type: ntype, Title: title, Body: body})
	return nil
}

func (n *Notifier) Types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.Sent))
	for _, sent := range n.Sent {
		out = append(out, sent.Type)
	}
	return out
}

type AuditEntry struct {
	Action   string
	EntityID string
	After    json.RawMessage
}

// Auditor records audit calls.
type Auditor struct {
	mu      sync.Mutex
	Entries []AuditEntry
}

func (a *Auditor) Record(_ context.Context, _, _, action, _, entityID, _, _ string, _, after any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	raw, _ := json.Marshal(after)
	a.Entries = append(a.Entries, AuditEntry{Action: action, EntityID: entityID, After: raw})
	return nil
}

func (a *Auditor) Actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.Entries))
	for _, entry := range a.Entries {
		out = append(out, entry.Action)
	}
	return out
}

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	Events []events.FormStatusUpdated
}

func (p *Publisher) Publish(_ context.Context, event events.FormStatusUpdated) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
}

func (p *Publisher) Last() (events.FormStatusUpdated, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Events) == 0 {
		return events.FormStatusUpdated{}, false
	}
	return p.Events[len(p.Events)-1], true
}

func (p *Publisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Events)
}
