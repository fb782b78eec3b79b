package evidence

import (
	"errors"
	"testing"

	"neuropharm/internal/model"
)

func TestEvidenceCodecRoundTrip(t *testing.T) {
	input := Stamp(model.EvidenceRecord{
		Subject:     "5-HT1A",
		Predicate:   "affects",
		Object:      "anxiety",
		Confidence:  0.82,
		Uncertainty: 0.15,
		Sources:     []string{"pmid:100", "doi:10.1/abc"},
	})

	payload, err := EncodeEvidence(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	output, err := DecodeEvidence(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if output.Subject != input.Subject || output.Confidence != input.Confidence {
		t.Fatalf("round trip mismatch: %+v", output)
	}
	if len(output.Sources) != 2 {
		t.Fatalf("sources lost in round trip: %+v", output.Sources)
	}
}

func TestDecodeEvidenceRejectsVersionMismatch(t *testing.T) {
	record := model.EvidenceRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: 99, CodecVersion: CurrentCodecVersion},
		Subject:         "TRKB",
		Predicate:       "affects",
		Object:          "motivation",
	}
	payload, err := EncodeEvidence(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeEvidence(payload); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestDecodeEvidenceRejectsGarbage(t *testing.T) {
	if _, err := DecodeEvidence([]byte("{not json")); err == nil {
		t.Fatal("expected decode error")
	}
}
