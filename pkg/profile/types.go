// Package profile stores named routing profiles and persists them as XML
// under the per-user config directory.
package profile

import (
	"github.com/go-playground/validator/v10"
)

// DefaultProfileName is the profile synthesized on first run; it can be
// edited but never deleted.
const DefaultProfileName = "default"

// LiveBroadcastProfileName is the synthesized on-air profile carrying the
// canonical chain edges.
const LiveBroadcastProfileName = "live-broadcast"

// Profile is a declarative description of desired routing state.
type Profile struct {
	Name         string            `validate:"required,max=256"`
	Description  string            `validate:"max=1024"`
	AutoActivate bool
	AutoClients  []string          `validate:"dive,required,max=256"`
	Priorities   map[string]int
	Connections  map[string]string `validate:"dive,keys,required,endkeys,required"`
}

// Clone returns a deep copy so store callers can mutate freely.
func (p *Profile) Clone() *Profile {
	c := &Profile{
		Name:         p.Name,
		Description:  p.Description,
		AutoActivate: p.AutoActivate,
		AutoClients:  append([]string(nil), p.AutoClients...),
		Priorities:   make(map[string]int, len(p.Priorities)),
		Connections:  make(map[string]string, len(p.Connections)),
	}
	for k, v := range p.Priorities {
		c.Priorities[k] = v
	}
	for k, v := range p.Connections {
		c.Connections[k] = v
	}
	return c
}

// PriorityOf returns the client's priority, defaulting to 0 for clients
// absent from the mapping.
func (p *Profile) PriorityOf(client string) int {
	return p.Priorities[client]
}

var validate = validator.New()

// Validate checks the profile's structural constraints; Store.Save calls
// it before storing.
func (p *Profile) Validate() error {
	return validate.Struct(p)
}

// seedDefaults synthesizes the two built-in profiles for a first run.
func seedDefaults() []*Profile {
	return []*Profile{
		{
			Name:         DefaultProfileName,
			Description:  "Pass-through profile with automatic input attachment",
			AutoActivate: true,
			Priorities:   map[string]int{},
			Connections:  map[string]string{},
		},
		{
			Name:         LiveBroadcastProfileName,
			Description:  "On-air chain: playout through the processor into the streamer",
			AutoActivate: true,
			AutoClients:  []string{"stereo_tool", "liquidsoap"},
			Priorities:   map[string]int{"liquidsoap": 60},
			Connections: map[string]string{
				"rivendell_0:playout_0L": "stereo_tool:in_1",
				"rivendell_0:playout_0R": "stereo_tool:in_2",
				"stereo_tool:out_l":      "liquidsoap:in_0",
				"stereo_tool:out_r":      "liquidsoap:in_1",
			},
		},
	}
}
