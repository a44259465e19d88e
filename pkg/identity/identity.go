package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Geolocation pins a simulated device to a physical position. Placement
// policies on the platform may use it to select a nearby edge node.
type Geolocation struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Identity is the identifying configuration assigned to one simulated
// device: an identifier plus the requirement fields sent to the platform
// at registration time. It is treated as an immutable value; handing an
// identity to a session always means handing out a deep copy.
type Identity struct {
	ID           string            `json:"id" yaml:"id"`
	Flavour      string            `json:"flavour,omitempty" yaml:"flavour,omitempty"`
	Confidential bool              `json:"confidential,omitempty" yaml:"confidential,omitempty"`
	Providers    []string          `json:"providers,omitempty" yaml:"providers,omitempty"`
	Geolocation  *Geolocation      `json:"geolocation,omitempty" yaml:"geolocation,omitempty"`
	Extra        map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Clone returns a deep copy. The copy shares no mutable state with the
// receiver, so two sessions can never alias the same requirement fields.
func (id Identity) Clone() Identity {
	out := id
	if id.Providers != nil {
		out.Providers = make([]string, len(id.Providers))
		copy(out.Providers, id.Providers)
	}
	if id.Geolocation != nil {
		geo := *id.Geolocation
		out.Geolocation = &geo
	}
	if id.Extra != nil {
		out.Extra = make(map[string]string, len(id.Extra))
		for k, v := range id.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Randomize returns a copy of the template whose ID carries a short random
// suffix, so many sessions sharing one template still register as distinct
// devices. Collisions across a run are overwhelmingly unlikely (32 random
// bits per suffix).
func Randomize(template Identity) Identity {
	out := template.Clone()
	out.ID = fmt.Sprintf("%s-%s", template.ID, randomSuffix())
	return out
}

func randomSuffix() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms; panicking here
		// beats silently reusing a device ID.
		panic(fmt.Sprintf("identity: random suffix: %v", err))
	}
	return hex.EncodeToString(b[:])
}
