package profile

import (
	"encoding/xml"
	"sort"
)

// On-disk schema: <profiles> containing one <profile name="..."> per
// entry. Element order inside a profile is fixed; map-backed fields are
// written sorted so saves are deterministic.

type xmlDoc struct {
	XMLName  xml.Name     `xml:"profiles"`
	Profiles []xmlProfile `xml:"profile"`
}

type xmlProfile struct {
	Name         string        `xml:"name,attr"`
	Description  string        `xml:"description"`
	AutoActivate bool          `xml:"auto_activate"`
	AutoClients  xmlClients    `xml:"auto_clients"`
	Priorities   xmlPriorities `xml:"priorities"`
	Connections  xmlEdges      `xml:"connections"`
}

type xmlClients struct {
	Clients []string `xml:"client"`
}

type xmlPriorities struct {
	Priorities []xmlPriority `xml:"priority"`
}

type xmlPriority struct {
	Client string `xml:"client,attr"`
	Value  int    `xml:"value,attr"`
}

type xmlEdges struct {
	Edges []xmlEdge `xml:"edge"`
}

type xmlEdge struct {
	Source string `xml:"source,attr"`
	Sink   string `xml:"sink,attr"`
}

func toXML(p *Profile) xmlProfile {
	out := xmlProfile{
		Name:         p.Name,
		Description:  p.Description,
		AutoActivate: p.AutoActivate,
		AutoClients:  xmlClients{Clients: append([]string(nil), p.AutoClients...)},
	}

	clients := make([]string, 0, len(p.Priorities))
	for c := range p.Priorities {
		clients = append(clients, c)
	}
	sort.Strings(clients)
	for _, c := range clients {
		out.Priorities.Priorities = append(out.Priorities.Priorities, xmlPriority{Client: c, Value: p.Priorities[c]})
	}

	sources := make([]string, 0, len(p.Connections))
	for s := range p.Connections {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	for _, s := range sources {
		out.Connections.Edges = append(out.Connections.Edges, xmlEdge{Source: s, Sink: p.Connections[s]})
	}
	return out
}

func fromXML(x xmlProfile) *Profile {
	p := &Profile{
		Name:         x.Name,
		Description:  x.Description,
		AutoActivate: x.AutoActivate,
		AutoClients:  append([]string(nil), x.AutoClients.Clients...),
		Priorities:   make(map[string]int, len(x.Priorities.Priorities)),
		Connections:  make(map[string]string, len(x.Connections.Edges)),
	}
	for _, pr := range x.Priorities.Priorities {
		p.Priorities[pr.Client] = pr.Value
	}
	for _, e := range x.Connections.Edges {
		p.Connections[e.Source] = e.Sink
	}
	return p
}

// encodeProfiles renders the full document with a header and indentation.
func encodeProfiles(profiles []*Profile) ([]byte, error) {
	doc := xmlDoc{}
	names := make([]string, 0, len(profiles))
	byName := make(map[string]*Profile, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
		byName[p.Name] = p
	}
	sort.Strings(names)
	for _, n := range names {
		doc.Profiles = append(doc.Profiles, toXML(byName[n]))
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

// decodeProfiles parses the document back into profiles.
func decodeProfiles(data []byte) ([]*Profile, error) {
	var doc xmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	out := make([]*Profile, 0, len(doc.Profiles))
	for _, x := range doc.Profiles {
		out = append(out, fromXML(x))
	}
	return out, nil
}
