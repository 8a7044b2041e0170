package domain

import "fmt"

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in progress"
	StatusDone       Status = "done"
)

var Statuses = []Status{StatusOpen, StatusInProgress, StatusDone}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid status %q: must be one of open, in progress, done", s)
	}
	return st, nil
}

type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

// Name returns LOW, MEDIUM or HIGH.
func (p Priority) Name() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(p))
	}
}

type Project struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	CreatedByID   string `json:"created_by_id"`
	CreatedByName string `json:"created_by_name"`
	CreatedAt     string `json:"created_at" format:"date-time"`
	UpdatedAt     string `json:"updated_at" format:"date-time"`
}

type Ticket struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	ProjectID      string   `json:"project_id"`
	Status         Status   `json:"status" enum:"open,in progress,done"`
	Priority       Priority `json:"priority" enum:"1,2,3"`
	AssignedToID   *string  `json:"assigned_to_id,omitempty"`
	AssignedToName *string  `json:"assigned_to_name,omitempty"`
	CreatedByID    string   `json:"created_by_id"`
	CreatedByName  string   `json:"created_by_name"`
	CreatedAt      string   `json:"created_at" format:"date-time"`
	UpdatedAt      string   `json:"updated_at" format:"date-time"`
}

type TicketWithProject struct {
	Ticket
	ProjectTitle string `json:"project_title"`
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Actor is the identity a mutation is attributed to.
type Actor struct {
	ID   string
	Name string
}

type ProjectCreate struct {
	Title       string
	Description string
}

type ProjectUpdate struct {
	Title       *string
	Description *string
}

type TicketCreate struct {
	Title          string
	Description    string
	ProjectID      string
	Status         Status
	Priority       Priority
	AssignedToID   *string
	AssignedToName *string
}

type TicketUpdate struct {
	Title          *string
	Description    *string
	ProjectID      *string
	Status         *Status
	Priority       *Priority
	AssignedToID   *string
	AssignedToName *string
}

type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	ProjectID  *string        `json:"project_id,omitempty"`
	EntityKind string         `json:"entity_kind"`
	EntityID   *string        `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// TimeLayout is fixed-width so stored timestamps sort lexically in time order.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"
