package portmap

import "github.com/module/nfsclient/pkg/xdr"

// Mapping is the Portmapper wire struct identifying one registered
// service: program number, version, transport protocol, and port.
type Mapping struct {
	Program  uint32
	Version  uint32
	Protocol Protocol
	Port     uint32
}

func (m Mapping) encode(enc *xdr.Encoder) {
	enc.Uint32(m.Program)
	enc.Uint32(m.Version)
	enc.Uint32(uint32(m.Protocol))
	enc.Uint32(m.Port)
}

func decodeMapping(dec *xdr.Decoder) (Mapping, error) {
	var m Mapping
	var err error
	if m.Program, err = dec.Uint32(); err != nil {
		return m, err
	}
	if m.Version, err = dec.Uint32(); err != nil {
		return m, err
	}
	var proto uint32
	if proto, err = dec.Uint32(); err != nil {
		return m, err
	}
	m.Protocol = Protocol(proto)
	if m.Port, err = dec.Uint32(); err != nil {
		return m, err
	}
	return m, nil
}

// decodeMappingList decodes the XDR optional-data linked list DUMP
// returns: a sequence of (value_follows=TRUE, Mapping) pairs terminated
// by value_follows=FALSE.
func decodeMappingList(dec *xdr.Decoder) ([]Mapping, error) {
	var out []Mapping
	for {
		var m Mapping
		present, err := dec.Optional(func() error {
			var derr error
			m, derr = decodeMapping(dec)
			return derr
		})
		if err != nil {
			return nil, err
		}
		if !present {
			return out, nil
		}
		out = append(out, m)
	}
}
