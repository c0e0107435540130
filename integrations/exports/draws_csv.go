// Package exports serialises draw history for operator reporting. Every
// export carries a SHA-256 checksum of the payload so downstream consumers
// can verify integrity.
package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"strconv"

	"prizepool/crypto"
	"prizepool/native/lottery"
)

// DrawsCSV builds a CSV export for the supplied draw records and returns the
// serialised data alongside a SHA-256 checksum of the payload.
func DrawsCSV(records []*lottery.DrawRecord) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)
	header := []string{"request_id", "prize", "winner", "finalized", "height_requested", "height_settled"}
	if err := writer.Write(header); err != nil {
		return nil, "", err
	}
	for _, record := range records {
		if record == nil {
			continue
		}
		row := []string{
			strconv.FormatUint(record.RequestID, 10),
			prizeString(record),
			winnerString(record),
			strconv.FormatBool(record.IsFinalized),
			strconv.FormatUint(record.HeightRequested, 10),
			strconv.FormatUint(record.HeightSettled, 10),
		}
		if err := writer.Write(row); err != nil {
			return nil, "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}

func prizeString(record *lottery.DrawRecord) string {
	if record.Prize == nil {
		return "0"
	}
	return record.Prize.String()
}

func winnerString(record *lottery.DrawRecord) string {
	if !record.HasWinner {
		return ""
	}
	return crypto.NewAddress(crypto.PoolPrefix, record.Winner[:]).String()
}
