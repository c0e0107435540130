package routes

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"prizepool/native/lottery"
)

type drawResponse struct {
	RequestID       uint64 `json:"requestId"`
	Prize           string `json:"prize"`
	HeightRequested uint64 `json:"heightRequested"`
	Finalized       bool   `json:"finalized"`
	Winner          string `json:"winner,omitempty"`
	HeightSettled   uint64 `json:"heightSettled,omitempty"`
}

func drawPayload(record *lottery.DrawRecord) drawResponse {
	resp := drawResponse{
		RequestID:       record.RequestID,
		Prize:           bigString(record.Prize),
		HeightRequested: record.HeightRequested,
		Finalized:       record.IsFinalized,
		HeightSettled:   record.HeightSettled,
	}
	if record.HasWinner {
		resp.Winner = encodeAddress(record.Winner)
	}
	return resp
}

func (h *handlers) draw(w http.ResponseWriter, r *http.Request) {
	requestID, err := parseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, err)
		return
	}
	record, err := h.service.Draw(requestID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, drawPayload(record))
}

type startAwardResponse struct {
	Skipped bool          `json:"skipped"`
	Draw    *drawResponse `json:"draw,omitempty"`
}

func (h *handlers) startAward(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.StartAwarding(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := startAwardResponse{Skipped: record == nil}
	if record != nil {
		payload := drawPayload(record)
		resp.Draw = &payload
	}
	writeJSON(w, http.StatusOK, resp)
}

type fulfillRequest struct {
	RequestID   uint64   `json:"requestId"`
	RandomWords []string `json:"randomWords"`
}

func (h *handlers) fulfill(w http.ResponseWriter, r *http.Request) {
	var req fulfillRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	words := make([]*big.Int, 0, len(req.RandomWords))
	for _, raw := range req.RandomWords {
		word, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			writeError(w, badRequest("random word %q is not a decimal integer", raw))
			return
		}
		words = append(words, word)
	}
	record, err := h.service.FulfillRandomness(req.RequestID, words)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, drawPayload(record))
}

func (h *handlers) recover(w http.ResponseWriter, r *http.Request) {
	requestID, err := parseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, err)
		return
	}
	record, err := h.service.RecoverFailedDraw(requestID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, drawPayload(record))
}

func parseRequestID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, badRequest("request id %q is not an unsigned integer", raw)
	}
	return id, nil
}
