package routes

import (
	"net/http"

	"prizepool/integrations/exports"
)

type feeReceiverRequest struct {
	Address string `json:"address"`
}

func (h *handlers) setFeeReceiver(w http.ResponseWriter, r *http.Request) {
	var req feeReceiverRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.SetFeeReceiver(addr); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"feeReceiver": encodeAddress(addr)})
}

type feeBpsRequest struct {
	FeeBps uint64 `json:"feeBps"`
}

func (h *handlers) setFeeBps(w http.ResponseWriter, r *http.Request) {
	var req feeBpsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.SetFeeBps(req.FeeBps); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"feeBps": req.FeeBps})
}

type maxStakeRequest struct {
	MaxStake string `json:"maxStake"`
}

func (h *handlers) setMaxStake(w http.ResponseWriter, r *http.Request) {
	var req maxStakeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	maxStake, err := parseAmount(req.MaxStake)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.SetMaxStake(maxStake); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"maxStake": maxStake.String()})
}

func (h *handlers) exportDraws(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.DrawHistory()
	if err != nil {
		writeError(w, err)
		return
	}
	format := r.URL.Query().Get("format")
	var (
		data        []byte
		checksum    string
		contentType string
	)
	switch format {
	case "", "csv":
		data, checksum, err = exports.DrawsCSV(records)
		contentType = "text/csv"
	case "jsonl":
		data, checksum, err = exports.DrawsJSONL(records)
		contentType = "application/jsonl"
	default:
		writeError(w, badRequest("unknown export format %q", format))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Export-Checksum", checksum)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
