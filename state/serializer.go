package state

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/riskgate-org/riskgate/types"
)

const (
	serializationVersion = 1
	checksumLength       = 4
)

type (
	Header struct {
		_         struct{} `cbor:",toarray"`
		Version   uint32
		UnitCount uint64
		// Round is the number of transactions executed when the state was serialized.
		Round uint64
	}

	unitRecord struct {
		_        struct{} `cbor:",toarray"`
		UnitID   types.UnitID
		UnitData types.RawCBOR
	}
)

/*
Serialize writes the state to the given writer: header, unit records in
identifier order and CRC32 (IEEE) checksum of everything written before it.
*/
func (s *State) Serialize(writer io.Writer, committed bool, round uint64) error {
	s.mutex.RLock()
	units := s.units
	if committed {
		units = s.committed
	}
	ids := sortedIDs(units)
	records := make([]*unitRecord, 0, len(ids))
	for _, id := range ids {
		data, err := types.Cbor.Marshal(units[id])
		if err != nil {
			s.mutex.RUnlock()
			return fmt.Errorf("unable to encode unit %X: %w", id, err)
		}
		records = append(records, &unitRecord{UnitID: types.UnitID(id), UnitData: data})
	}
	s.mutex.RUnlock()

	buf := &bytes.Buffer{}
	encoder, err := types.Cbor.GetEncoder(buf)
	if err != nil {
		return fmt.Errorf("unable to get encoder: %w", err)
	}
	header := &Header{Version: serializationVersion, UnitCount: uint64(len(records)), Round: round}
	if err := encoder.Encode(header); err != nil {
		return fmt.Errorf("unable to write header: %w", err)
	}
	for _, r := range records {
		if err := encoder.Encode(r); err != nil {
			return fmt.Errorf("unable to write unit record: %w", err)
		}
	}
	buf.Write(binary.BigEndian.AppendUint32(nil, crc32.ChecksumIEEE(buf.Bytes())))

	if _, err := writer.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("unable to write state: %w", err)
	}
	return nil
}

func readState(reader io.Reader, udc UnitDataConstructor, opts ...Option) (*State, *Header, error) {
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to read state: %w", err)
	}
	if len(raw) < checksumLength {
		return nil, nil, fmt.Errorf("state data too short: %d bytes", len(raw))
	}
	body, sum := raw[:len(raw)-checksumLength], raw[len(raw)-checksumLength:]
	if crc32.ChecksumIEEE(body) != binary.BigEndian.Uint32(sum) {
		return nil, nil, fmt.Errorf("checksum mismatch")
	}

	decoder := types.Cbor.GetDecoder(bytes.NewReader(body))
	header := &Header{}
	if err := decoder.Decode(header); err != nil {
		return nil, nil, fmt.Errorf("unable to decode header: %w", err)
	}
	if header.Version != serializationVersion {
		return nil, nil, fmt.Errorf("unsupported state version %d", header.Version)
	}

	s := NewEmptyState(opts...)
	for i := uint64(0); i < header.UnitCount; i++ {
		r := &unitRecord{}
		if err := decoder.Decode(r); err != nil {
			return nil, nil, fmt.Errorf("unable to decode unit record: %w", err)
		}
		data, err := udc(r.UnitID)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to construct unit data: %w", err)
		}
		if err := types.Cbor.Unmarshal(r.UnitData, data); err != nil {
			return nil, nil, fmt.Errorf("unable to decode unit data: %w", err)
		}
		if _, ok := s.units[string(r.UnitID)]; ok {
			return nil, nil, fmt.Errorf("duplicate unit %s", r.UnitID)
		}
		s.units[string(r.UnitID)] = data
	}
	var extra unitRecord
	if err := decoder.Decode(&extra); err != io.EOF {
		return nil, nil, fmt.Errorf("unexpected unit record")
	}
	s.committed = copyUnits(s.units)
	return s, header, nil
}
