package evidence

import (
	"encoding/json"
	"errors"

	"neuropharm/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp fills in the current schema/codec versions on a record about to be
// persisted.
func Stamp(record model.EvidenceRecord) model.EvidenceRecord {
	record.SchemaVersion = CurrentSchemaVersion
	record.CodecVersion = CurrentCodecVersion
	return record
}

func EncodeEvidence(record model.EvidenceRecord) ([]byte, error) {
	return json.Marshal(record)
}

func DecodeEvidence(data []byte) (model.EvidenceRecord, error) {
	var record model.EvidenceRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.EvidenceRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.EvidenceRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
