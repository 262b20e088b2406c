package tde

import (
	"fmt"

	"github.com/loochek/pgproxy/pkg/protocol"
	"github.com/loochek/pgproxy/pkg/wire"
)

// Transformer rewrites the protected columns of decoded messages in flight.
//
// On the backend direction it tracks the most recent row description to learn
// which result columns are protected, and opens their envelopes in every
// following data row so clients see plaintext. On the frontend direction it
// optionally seals bind parameters so values reach the server encrypted.
//
// A transformer belongs to a single session: row description state is
// per-connection, and parsing is single-threaded per session.
type Transformer struct {
	active     *Codec
	codecs     map[uint32]*Codec
	columns    map[string]bool
	sealParams bool
	selected   []bool
}

// TransformerConfig configures a session transformer.
type TransformerConfig struct {
	// Columns lists result column names whose values are protected.
	Columns []string
	// SealParams seals every present bind parameter on the frontend
	// direction. It is meant for write paths where all statement
	// parameters target protected columns.
	SealParams bool
}

// NewTransformer creates a transformer sealing under active and able to open
// envelopes of every codec in others.
func NewTransformer(active *Codec, others []*Codec, cfg TransformerConfig) *Transformer {
	codecs := make(map[uint32]*Codec, len(others)+1)
	if active != nil {
		codecs[active.KeyID()] = active
	}
	for _, c := range others {
		codecs[c.KeyID()] = c
	}

	columns := make(map[string]bool, len(cfg.Columns))
	for _, name := range cfg.Columns {
		columns[name] = true
	}

	return &Transformer{
		active:     active,
		codecs:     codecs,
		columns:    columns,
		sealParams: cfg.SealParams,
	}
}

// Apply rewrites msg in place if it carries protected values. It reports
// whether the message was modified; a modified message must be re-serialized
// by the caller instead of forwarding the raw frame.
func (t *Transformer) Apply(direction protocol.Direction, msg *protocol.DecodedMessage) (bool, error) {
	if direction == protocol.DirectionBackend {
		switch msg.Tag {
		case 'T':
			t.trackRowDescription(msg.Message)
			return false, nil
		case 'D':
			return t.openDataRow(msg.Message)
		}
		return false, nil
	}

	if msg.Tag == 'B' && t.sealParams && t.active != nil {
		return t.sealBindParams(msg.Message)
	}
	return false, nil
}

// trackRowDescription records which columns of subsequent data rows are
// protected.
func (t *Transformer) trackRowDescription(msg wire.Message) {
	cols := msg.Field(0).(*wire.Array).Elements()
	t.selected = make([]bool, len(cols))
	for i, col := range cols {
		name := col.(*wire.Sequence).Field(0).(*wire.String).Value()
		t.selected[i] = t.columns[name]
	}
}

func (t *Transformer) openDataRow(msg wire.Message) (bool, error) {
	values := msg.Field(0).(*wire.Array).Elements()
	modified := false

	for i, v := range values {
		if i >= len(t.selected) || !t.selected[i] {
			continue
		}
		col := v.(*wire.VarByteN)
		if col.IsNull() || !IsEncrypted(col.Value()) {
			continue
		}

		keyID, err := EnvelopeKeyID(col.Value())
		if err != nil {
			return modified, err
		}
		codec, ok := t.codecs[keyID]
		if !ok {
			return modified, fmt.Errorf("%w: id %d", ErrUnknownKey, keyID)
		}

		plaintext, err := codec.Open(col.Value())
		if err != nil {
			return modified, fmt.Errorf("column %d: %w", i, err)
		}
		col.SetValue(plaintext)
		modified = true
	}
	return modified, nil
}

func (t *Transformer) sealBindParams(msg wire.Message) (bool, error) {
	params := msg.Field(3).(*wire.Array).Elements()
	modified := false

	for i, p := range params {
		param := p.(*wire.VarByteN)
		if param.IsNull() || IsEncrypted(param.Value()) {
			continue
		}

		sealed, err := t.active.Seal(param.Value())
		if err != nil {
			return modified, fmt.Errorf("parameter %d: %w", i, err)
		}
		param.SetValue(sealed)
		modified = true
	}
	return modified, nil
}
