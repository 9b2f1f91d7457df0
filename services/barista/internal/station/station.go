package station

import (
	"strings"
	"time"

	"github.com/appetiteclub/barista/pkg/enums/stationstatus"
)

// Dimension is one capability axis of a station (drinks, milks or sizes).
// AcceptAll, or an empty Values list, means the station takes any value.
type Dimension struct {
	AcceptAll bool     `bson:"accept_all" json:"accept_all"`
	Values    []string `bson:"values,omitempty" json:"values,omitempty"`
}

// AnyValue returns a dimension that accepts everything.
func AnyValue() Dimension {
	return Dimension{AcceptAll: true}
}

// Only returns a dimension restricted to values. No values means accept-all.
func Only(values ...string) Dimension {
	d := Dimension{}
	for _, v := range values {
		if n := Normalize(v); n != "" {
			d.Values = append(d.Values, n)
		}
	}
	d.AcceptAll = len(d.Values) == 0
	return d
}

// IsAcceptAll reports whether the dimension places no restriction.
func (d Dimension) IsAcceptAll() bool {
	return d.AcceptAll || len(d.Values) == 0
}

func (d Dimension) Accepts(value string) bool {
	if d.IsAcceptAll() {
		return true
	}
	want := Normalize(value)
	for _, v := range d.Values {
		if Normalize(v) == want {
			return true
		}
	}
	return false
}

type Capabilities struct {
	Drinks Dimension `bson:"drinks" json:"drinks"`
	Milks  Dimension `bson:"milks" json:"milks"`
	Sizes  Dimension `bson:"sizes" json:"sizes"`
}

// AcceptAnything is the capability set of the fallback station.
func AcceptAnything() Capabilities {
	return Capabilities{Drinks: AnyValue(), Milks: AnyValue(), Sizes: AnyValue()}
}

type Station struct {
	ID           int          `bson:"_id" json:"id"`
	Name         string       `bson:"name" json:"name"`
	Status       string       `bson:"status" json:"status"`
	Capabilities Capabilities `bson:"capabilities" json:"capabilities"`
	CurrentLoad  int          `bson:"current_load" json:"current_load"`
	Fallback     bool         `bson:"fallback" json:"fallback"`
	CreatedAt    time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `bson:"updated_at" json:"updated_at"`
}

func (s Station) IsActive() bool {
	return s.Status == stationstatus.Statuses.Active.Code()
}

// Normalize lowercases and trims a capability or requirement value.
func Normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
