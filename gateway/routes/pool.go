package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"prizepool/gateway"
)

type handlers struct {
	service *gateway.Service
}

type poolStatusResponse struct {
	TotalStaked    string `json:"totalStaked"`
	ProjectedPrize string `json:"projectedPrize"`
	EpochStartedAt uint64 `json:"epochStartedAt"`
	EpochEndAt     uint64 `json:"epochEndAt"`
	EpochEnded     bool   `json:"epochEnded"`
	Awarding       bool   `json:"awarding"`
	RequestID      uint64 `json:"requestId,omitempty"`
	TotalDraws     uint64 `json:"totalDraws"`
	FeeBps         uint64 `json:"feeBps"`
	PenaltyBps     uint64 `json:"penaltyBps"`
	EpochSeconds   uint64 `json:"epochSeconds"`
}

func (h *handlers) poolStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.PoolStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poolStatusResponse{
		TotalStaked:    bigString(status.TotalStaked),
		ProjectedPrize: bigString(status.ProjectedPrize),
		EpochStartedAt: status.EpochStartedAt,
		EpochEndAt:     status.EpochEndAt,
		EpochEnded:     status.EpochEnded,
		Awarding:       status.Awarding,
		RequestID:      status.RequestID,
		TotalDraws:     status.TotalDraws,
		FeeBps:         status.FeeBps,
		PenaltyBps:     status.PenaltyBps,
		EpochSeconds:   status.EpochSeconds,
	})
}

type accountStatusResponse struct {
	Address       string `json:"address"`
	Balance       string `json:"balance"`
	LastDepositAt uint64 `json:"lastDepositAt"`
	LockedUntil   uint64 `json:"lockedUntil,omitempty"`
}

func (h *handlers) accountStatus(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := h.service.AccountStatus(addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountStatusResponse{
		Address:       encodeAddress(addr),
		Balance:       bigString(status.Balance),
		LastDepositAt: status.LastDepositAt,
		LockedUntil:   status.LockedUntil,
	})
}

type depositRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

func (h *handlers) deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.Deposit(r.Context(), addr, amount); err != nil {
		writeError(w, err)
		return
	}
	h.writeAccount(w, addr)
}

func (h *handlers) withdraw(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.Withdraw(r.Context(), addr, amount); err != nil {
		writeError(w, err)
		return
	}
	h.writeAccount(w, addr)
}

type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (h *handlers) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	from, err := parseAddress(req.From)
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := parseAddress(req.To)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.Transfer(from, to, amount); err != nil {
		writeError(w, err)
		return
	}
	h.writeAccount(w, from)
}

func (h *handlers) writeAccount(w http.ResponseWriter, addr [20]byte) {
	status, err := h.service.AccountStatus(addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountStatusResponse{
		Address:       encodeAddress(addr),
		Balance:       bigString(status.Balance),
		LastDepositAt: status.LastDepositAt,
		LockedUntil:   status.LockedUntil,
	})
}
