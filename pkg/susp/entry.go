package susp

import (
	"fmt"

	"github.com/rstms/iso-reader/pkg/consts"
	"github.com/rstms/iso-reader/pkg/encoding"
	"github.com/rstms/iso-reader/pkg/rockridge"
)

type SystemUseEntryType string

const (
	CONTINUATION_AREA          SystemUseEntryType = "CE"
	PADDING_FIELD              SystemUseEntryType = "PD"
	SHARING_PROTOCOL_INDICATOR SystemUseEntryType = "SP"
	AREA_TERMINATOR            SystemUseEntryType = "ST"
	EXTENSION_REFERENCE        SystemUseEntryType = "ER"
	EXTENSION_SELECTOR         SystemUseEntryType = "ES"
)

// SystemUseEntry represents a System Use Entry in the SUSP area
type SystemUseEntry struct {
	entryType SystemUseEntryType
	length    uint8
	version   uint8
	data      []byte
}

// Type returns the SystemUseEntryType of the SystemUseEntry
func (e SystemUseEntry) Type() SystemUseEntryType {
	return e.entryType
}

// Length returns the length of the SystemUseEntry
func (e SystemUseEntry) Length() uint8 {
	return e.length
}

// Version returns the entry version byte.
func (e SystemUseEntry) Version() uint8 {
	return e.version
}

// Data returns the entry payload that follows the 4 byte header.
func (e SystemUseEntry) Data() []byte {
	return e.data
}

// Unmarshal decodes one entry from the start of data. data may extend past the entry.
func (e *SystemUseEntry) Unmarshal(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("invalid SystemUseEntry data length %d", len(data))
	}
	entryLen := int(data[2])
	if entryLen < 4 {
		return fmt.Errorf("invalid entry length %d", entryLen)
	}
	if entryLen > len(data) {
		return fmt.Errorf("entry length %d exceeds remaining data length %d", entryLen, len(data))
	}
	e.entryType = SystemUseEntryType(data[0:2])
	e.length = data[2]
	e.version = data[3]
	e.data = data[4:entryLen]
	return nil
}

// UnmarshalSharingProtocolIndicator validates an SP entry and returns its LEN_SKP byte.
func UnmarshalSharingProtocolIndicator(e *SystemUseEntry) (int, error) {
	if len(e.data) < 3 {
		return 0, fmt.Errorf("SP entry too short: %d bytes", len(e.data))
	}
	if e.data[0] != consts.SUSP_CHECK_BYTE_1 || e.data[1] != consts.SUSP_CHECK_BYTE_2 {
		return 0, fmt.Errorf("SP entry check bytes %#x %#x do not match", e.data[0], e.data[1])
	}
	return int(e.data[2]), nil
}

// UnmarshalExtensionRecord unmarshals the SystemUseEntry data into an Extension
func UnmarshalExtensionRecord(e *SystemUseEntry) (*rockridge.Extension, error) {
	if e.Type() != EXTENSION_REFERENCE {
		return nil, fmt.Errorf("wrong type of record, expected ER")
	}
	if len(e.data) < 4 {
		return nil, fmt.Errorf("invalid ExtensionRecord length %d", e.Length())
	}

	identifierLength := int(e.data[0])
	descriptorLength := int(e.data[1])
	sourceLength := int(e.data[2])
	if want := 4 + identifierLength + descriptorLength + sourceLength; len(e.data) < want {
		return nil, fmt.Errorf("invalid ExtensionRecord data length %d, expected at least %d", len(e.data), want)
	}

	text := e.data[4:]
	return &rockridge.Extension{
		Version:    int(e.data[3]),
		Identifier: string(text[:identifierLength]),
		Descriptor: string(text[identifierLength : identifierLength+descriptorLength]),
		Source:     string(text[identifierLength+descriptorLength : identifierLength+descriptorLength+sourceLength]),
	}, nil
}

// UnmarshalContinuationEntry unmarshals the SystemUseEntry data into a ContinuationArea
func UnmarshalContinuationEntry(e *SystemUseEntry) (*rockridge.ContinuationArea, error) {
	if len(e.data) < 24 {
		return nil, fmt.Errorf("invalid ContinuationEntry length %d, expected 28", e.Length())
	}

	location, _ := encoding.UnmarshalUint32LSBMSB(e.data[0:8])
	offset, _ := encoding.UnmarshalUint32LSBMSB(e.data[8:16])
	length, _ := encoding.UnmarshalUint32LSBMSB(e.data[16:24])

	return &rockridge.ContinuationArea{
		Block:  location,
		Offset: offset,
		Length: length,
	}, nil
}
