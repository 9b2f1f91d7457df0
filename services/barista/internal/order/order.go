package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"

	"github.com/appetiteclub/barista/pkg/enums/orderstatus"
)

var ErrNotFound = errors.New("order not found")

// Requirements are the three fields every order must specify.
type Requirements struct {
	Drink string `bson:"drink" json:"drink"`
	Milk  string `bson:"milk" json:"milk"`
	Size  string `bson:"size" json:"size"`
}

func (r Requirements) Complete() bool {
	return r.Drink != "" && r.Milk != "" && r.Size != ""
}

type Order struct {
	ID            uuid.UUID    `bson:"_id" json:"id"`
	Number        string       `bson:"number" json:"number"`
	CustomerID    string       `bson:"customer_id" json:"customer_id"`
	Requirements  Requirements `bson:"requirements" json:"requirements"`
	Status        string       `bson:"status" json:"status"`
	StationID     int          `bson:"station_id" json:"station_id"`
	IsFriendOrder bool         `bson:"is_friend_order" json:"is_friend_order"`
	FriendName    string       `bson:"friend_name,omitempty" json:"friend_name,omitempty"`
	CreatedAt     time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `bson:"updated_at" json:"updated_at"`
}

func NewOrder() *Order {
	o := &Order{
		ID:     apt.GenerateNewID(),
		Status: orderstatus.Statuses.Pending.Code(),
	}
	o.BeforeCreate()
	return o
}

func (o *Order) GetID() uuid.UUID {
	return o.ID
}

func (o *Order) ResourceType() string {
	return "order"
}

func (o *Order) EnsureID() {
	if o.ID == uuid.Nil {
		o.ID = apt.GenerateNewID()
	}
}

func (o *Order) BeforeCreate() {
	o.EnsureID()
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
}

func (o *Order) BeforeUpdate() {
	o.UpdatedAt = time.Now()
}

func (o *Order) IsPending() bool {
	return o.Status == orderstatus.Statuses.Pending.Code()
}

// IsTerminal reports whether the order no longer counts towards station load.
func (o *Order) IsTerminal() bool {
	st := orderstatus.ByName(o.Status)
	return st != nil && st.IsTerminal()
}

// FormatNumber renders the customer facing order number for a sequence value.
func FormatNumber(seq int) string {
	return fmt.Sprintf("ORD-%05d", seq)
}

// Repo is the order persistence contract.
type Repo interface {
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) error
	QueryPendingOlderThan(ctx context.Context, age time.Duration, now time.Time) ([]*Order, error)
	NextOrderNumber(ctx context.Context) (string, error)
}
