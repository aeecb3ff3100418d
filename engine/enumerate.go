package engine

import (
	"fmt"

	"github.com/ardnew/typecinfo/pd"
	"github.com/ardnew/typecinfo/pkg"
	"github.com/ardnew/typecinfo/ucsi"
)

// Report is the result of Enumerate. Sections a connector does not
// support are left empty.
type Report struct {
	Session    string            `yaml:"session" json:"session"`
	Backend    string            `yaml:"backend" json:"backend"`
	Capability ucsi.Capability   `yaml:"capability" json:"capability"`
	Connectors []ConnectorReport `yaml:"connectors" json:"connectors"`
}

// ConnectorReport holds everything enumerated for one connector.
type ConnectorReport struct {
	Index             int                       `yaml:"index" json:"index"`
	Capability        *ucsi.ConnectorCapability `yaml:"capability,omitempty" json:"capability,omitempty"`
	Status            *ucsi.ConnectorStatus     `yaml:"status,omitempty" json:"status,omitempty"`
	SourcePDOs        []PDOEntry                `yaml:"source_pdos,omitempty" json:"source_pdos,omitempty"`
	SinkPDOs          []PDOEntry                `yaml:"sink_pdos,omitempty" json:"sink_pdos,omitempty"`
	PartnerSourcePDOs []PDOEntry                `yaml:"partner_source_pdos,omitempty" json:"partner_source_pdos,omitempty"`
	PartnerSinkPDOs   []PDOEntry                `yaml:"partner_sink_pdos,omitempty" json:"partner_sink_pdos,omitempty"`
	Cable             *ucsi.CableProperty       `yaml:"cable,omitempty" json:"cable,omitempty"`
	AlternateModes    []ucsi.AlternateMode      `yaml:"alternate_modes,omitempty" json:"alternate_modes,omitempty"`
	CableModes        []ucsi.AlternateMode      `yaml:"cable_alternate_modes,omitempty" json:"cable_alternate_modes,omitempty"`
	PartnerModes      []ucsi.AlternateMode      `yaml:"partner_alternate_modes,omitempty" json:"partner_alternate_modes,omitempty"`
	CableIdentity     *pd.DiscoverIdentity      `yaml:"cable_identity,omitempty" json:"cable_identity,omitempty"`
	PartnerIdentity   *pd.DiscoverIdentity      `yaml:"partner_identity,omitempty" json:"partner_identity,omitempty"`
}

// PDOEntry is one PDO of a report, tagged with its kind.
type PDOEntry struct {
	Kind pd.Kind `yaml:"kind" json:"kind"`
	Raw  uint32  `yaml:"raw" json:"raw"`
	PDO  pd.PDO  `yaml:"pdo" json:"pdo"`
}

// Enumerate queries every connector of s in order: connector capability
// and status; local Source and Sink PDOs, then the partner's; cable
// property; alternate modes of the connector, cable and partner; Discover
// Identity of the cable and partner. Sections that are not supported are
// skipped. Any other error stops enumeration and is returned, naming the
// connector, together with the report collected so far.
func Enumerate(s *Session) (*Report, error) {
	rep := &Report{
		Session:    s.ID(),
		Backend:    s.BackendName(),
		Capability: s.Capability(),
	}
	for i := 0; i < s.NumConnectors(); i++ {
		rep.Connectors = append(rep.Connectors, ConnectorReport{Index: i})
		if err := enumerateConnector(s, i, &rep.Connectors[i]); err != nil {
			pkg.LogError(pkg.ComponentEngine, "enumeration aborted", s.fields("connector", i, "error", err)...)
			return rep, fmt.Errorf("enumerate connector %d: %w", i, err)
		}
	}
	return rep, nil
}

func enumerateConnector(s *Session, conn int, c *ConnectorReport) error {
	capability, err := s.ConnectorCapability(conn)
	switch {
	case err == nil:
		c.Capability = &capability
	case !pkg.IsSoft(err):
		return err
	}

	status, err := s.ConnectorStatus(conn)
	switch {
	case err == nil:
		c.Status = &status
	case !pkg.IsSoft(err):
		return err
	}

	lists := []struct {
		partner bool
		role    pd.Role
		out     *[]PDOEntry
	}{
		{false, pd.Source, &c.SourcePDOs},
		{false, pd.Sink, &c.SinkPDOs},
		{true, pd.Source, &c.PartnerSourcePDOs},
		{true, pd.Sink, &c.PartnerSinkPDOs},
	}
	for _, l := range lists {
		list, err := s.PDOs(conn, l.partner, l.role)
		err = Use(list, err, func(pdos []pd.PDO) error {
			*l.out = make([]PDOEntry, len(pdos))
			for i, p := range pdos {
				(*l.out)[i] = PDOEntry{Kind: p.Kind(), Raw: p.Encode(), PDO: p}
			}
			return nil
		})
		if err != nil && !pkg.IsSoft(err) {
			return err
		}
	}

	cable, err := s.CableProperty(conn)
	switch {
	case err == nil:
		c.Cable = &cable
	case !pkg.IsSoft(err):
		return err
	}

	modes := []struct {
		r   ucsi.Recipient
		out *[]ucsi.AlternateMode
	}{
		{ucsi.RecipientConnector, &c.AlternateModes},
		{ucsi.RecipientSOPPrime, &c.CableModes},
		{ucsi.RecipientSOP, &c.PartnerModes},
	}
	for _, m := range modes {
		list, err := s.AlternateModes(conn, m.r)
		err = Use(list, err, func(items []ucsi.AlternateMode) error {
			*m.out = append([]ucsi.AlternateMode(nil), items...)
			return nil
		})
		if err != nil && !pkg.IsSoft(err) {
			return err
		}
	}

	identities := []struct {
		r   ucsi.Recipient
		out **pd.DiscoverIdentity
	}{
		{ucsi.RecipientSOPPrime, &c.CableIdentity},
		{ucsi.RecipientSOP, &c.PartnerIdentity},
	}
	for _, id := range identities {
		msg, err := s.PDMessage(conn, id.r, pd.MessageDiscoverIdentity)
		switch {
		case err == nil:
			*id.out, _ = msg.(*pd.DiscoverIdentity)
		case !pkg.IsSoft(err):
			return err
		}
	}
	return nil
}
