package engine

import (
	"github.com/ardnew/typecinfo/pd"
	"github.com/ardnew/typecinfo/pkg"
	"github.com/ardnew/typecinfo/ucsi"
)

// record fetches one fixed-size record for conn and parses it into a T.
func record[T any](s *Session, query string, conn int, fetch func(int) ([]byte, error), parse func([]byte, *T) error) (T, error) {
	var v T
	err := s.check(conn)
	if err == nil {
		var raw []byte
		raw, err = timed(s, query, func() ([]byte, error) { return fetch(conn) })
		if err == nil {
			err = parse(raw, &v)
		}
	}
	if err = s.finish(query, conn, err); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// ConnectorCapability returns the capability of connector conn.
func (s *Session) ConnectorCapability(conn int) (ucsi.ConnectorCapability, error) {
	return record(s, QueryConnectorCapability, conn, s.backend.ConnectorCapability, ucsi.ParseConnectorCapability)
}

// ConnectorStatus returns the current status of connector conn. Status is
// read from the backend on every call.
func (s *Session) ConnectorStatus(conn int) (ucsi.ConnectorStatus, error) {
	return record(s, QueryConnectorStatus, conn, s.backend.ConnectorStatus, ucsi.ParseConnectorStatus)
}

// CableProperty returns the properties of the cable attached to conn.
func (s *Session) CableProperty(conn int) (ucsi.CableProperty, error) {
	return record(s, QueryCableProperty, conn, s.backend.CableProperty, ucsi.ParseCableProperty)
}

// PDOs returns the current capabilities of the local port (partner false)
// or the port partner for role, decoded under the PD revision of the
// capability summary.
func (s *Session) PDOs(conn int, partner bool, role pd.Role) (*List[pd.PDO], error) {
	return s.PDOsOf(conn, partner, role, ucsi.SourceCapabilitiesCurrent, s.capability.PDVersion)
}

// PDOsOf is PDOs with an explicit source capabilities type and decode
// revision. A PPM without USB PD is not supported; an unsupported revision
// fails as a decode error. Neither reaches the backend.
func (s *Session) PDOsOf(conn int, partner bool, role pd.Role, src ucsi.SourceCapabilitiesType, rev pd.Revision) (*List[pd.PDO], error) {
	var pdos []pd.PDO
	err := s.check(conn)
	if err == nil && !s.powerDelivery() {
		err = pkg.ErrNotSupported
	}
	if err == nil && !rev.Supported() {
		err = pkg.NewDecodeError(role.String()+" PDO", "revision", uint64(rev), pkg.ErrUnsupportedRevision)
	}
	if err == nil {
		var words []uint32
		words, err = timed(s, QueryPDOs, func() ([]uint32, error) {
			return s.backend.PDOs(conn, partner, role, src, rev)
		})
		if err == nil {
			pdos, err = pd.DecodePDOs(words, role, rev)
		}
	}
	if err = s.finish(QueryPDOs, conn, err); err != nil {
		return nil, err
	}
	return newList(s.ledger, pdos), nil
}

// AlternateModes returns the alternate modes recipient r supports on
// conn.
func (s *Session) AlternateModes(conn int, r ucsi.Recipient) (*List[ucsi.AlternateMode], error) {
	var modes []ucsi.AlternateMode
	err := s.check(conn)
	if err == nil {
		var raw []byte
		raw, err = timed(s, QueryAlternateModes, func() ([]byte, error) {
			return s.backend.AlternateModes(conn, r)
		})
		if err == nil {
			modes, err = ucsi.ParseAlternateModes(raw)
		}
	}
	if err = s.finish(QueryAlternateModes, conn, err); err != nil {
		return nil, err
	}
	return newList(s.ledger, modes), nil
}

// PDMessage returns the decoded response message t from recipient r on
// conn. The connector itself sends no PD messages, and message types
// without a decoder are not supported; neither reaches the backend. Nor
// does any message on a PPM without USB PD.
func (s *Session) PDMessage(conn int, r ucsi.Recipient, t pd.MessageType) (pd.Message, error) {
	var msg pd.Message
	err := s.check(conn)
	sop, ok := r.SOP()
	if err == nil && (!ok || !pd.Decodable(t) || !s.powerDelivery()) {
		err = pkg.ErrNotSupported
	}
	if err == nil {
		var raw []byte
		raw, err = timed(s, QueryPDMessage, func() ([]byte, error) {
			return s.backend.PDMessage(conn, r, t)
		})
		if err == nil {
			msg, err = pd.DecodeMessage(t, sop, s.capability.PDVersion, raw)
		}
	}
	if err = s.finish(QueryPDMessage, conn, err); err != nil {
		return nil, err
	}
	return msg, nil
}

// powerDelivery reports whether the capability summary advertises USB PD.
func (s *Session) powerDelivery() bool {
	return s.capability.USBPowerDelivery && s.capability.PDVersion != 0
}
