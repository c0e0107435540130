package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"prizepool/native/lottery"
)

// DrawsJSONL builds a JSON Lines export for the supplied draw records and
// returns the serialised payload alongside a checksum.
func DrawsJSONL(records []*lottery.DrawRecord) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	for _, record := range records {
		if record == nil {
			continue
		}
		payload := map[string]interface{}{
			"request_id":       record.RequestID,
			"prize":            prizeString(record),
			"winner":           winnerString(record),
			"finalized":        record.IsFinalized,
			"height_requested": record.HeightRequested,
			"height_settled":   record.HeightSettled,
		}
		if err := encoder.Encode(payload); err != nil {
			return nil, "", err
		}
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}
