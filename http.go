package bankbook

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

type balanceJSONResp struct {
	Balance decimal.Decimal `json:"balance"`
}

type accountsJSONResp struct {
	Accounts []AccountSummary `json:"accounts"`
}

type transactionsJSONResp struct {
	Transactions []*Transaction `json:"transactions"`
}

func NewHTTPHandler(svc Service, log *zerolog.Logger) http.Handler {
	hndlr := &httpHandler{
		Svc: svc,
		Log: log,
	}
	mux := chi.NewMux()
	mux.NotFound(HTTPNotFound)
	mux.Route("/accounts", func(r chi.Router) {
		r.Post("/", hndlr.OpenAccount)
		r.Get("/", hndlr.Accounts)
		r.Route("/{acctNum:[0-9]+}", func(rr chi.Router) {
			rr.Post("/transactions", hndlr.RecordTransaction)
			rr.Get("/transactions", hndlr.Transactions)
			rr.Post("/accruals", hndlr.ApplyInterestAndFees)
			rr.Get("/balance", hndlr.Balance)
			rr.Get("/statement", hndlr.Statement)
		})
	})

	return mux
}

type httpHandler struct {
	Svc Service
	Log *zerolog.Logger
}

func (h *httpHandler) acctNum(r *http.Request, method string) (int64, error) {
	num, err := strconv.ParseInt(chi.URLParam(r, "acctNum"), 10, 64)
	if err != nil {
		h.Log.Err(err).Str("method", method).Msg("error parsing account number")
		return 0, ErrBadRequest{Fields: map[string]string{"acctNum": "invalid format"}}
	}
	return num, nil
}

func (h *httpHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	buf, err := io.ReadAll(r.Body)
	defer r.Body.Close()
	if err != nil {
		h.Log.Err(err).Str("method", "open_account").Msg("error reading HTTP request")
		WriteHTTPError(w, ErrInternalServer)
		return
	}
	var req OpenAccountReq
	if err = json.Unmarshal(buf, &req); err != nil {
		h.Log.Err(err).Str("method", "open_account").Msg("error unmarshalling JSON")
		WriteHTTPError(w, ErrBadRequest{Fields: map[string]string{"request body": "malformed JSON"}})
		return
	}
	sum, err := h.Svc.OpenAccount(req)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(sum); err != nil {
		WriteHTTPError(w, err)
	}
}

func (h *httpHandler) Accounts(w http.ResponseWriter, r *http.Request) {
	sums, err := h.Svc.Accounts()
	if err != nil {
		WriteHTTPError(w, err)
		return
	}

	resp := accountsJSONResp{Accounts: sums}
	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(resp); err != nil {
		WriteHTTPError(w, err)
	}
}

func (h *httpHandler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	buf, err := io.ReadAll(r.Body)
	defer r.Body.Close()
	if err != nil {
		h.Log.Err(err).Str("method", "record_transaction").Msg("error reading HTTP request")
		WriteHTTPError(w, ErrInternalServer)
		return
	}
	var req TxnReq
	if err = json.Unmarshal(buf, &req); err != nil {
		h.Log.Err(err).Str("method", "record_transaction").Msg("error unmarshalling JSON")
		WriteHTTPError(w, ErrBadRequest{Fields: map[string]string{"request body": "malformed JSON"}})
		return
	}
	num, err := h.acctNum(r, "record_transaction")
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	req.AcctNum = num
	res, err := h.Svc.RecordTransaction(req)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(res); err != nil {
		WriteHTTPError(w, err)
	}
}

func (h *httpHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	num, err := h.acctNum(r, "transactions")
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	txns, err := h.Svc.Transactions(AcctReq{AcctNum: num})
	if err != nil {
		WriteHTTPError(w, err)
		return
	}

	resp := transactionsJSONResp{Transactions: txns}
	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(resp); err != nil {
		WriteHTTPError(w, err)
	}
}

func (h *httpHandler) ApplyInterestAndFees(w http.ResponseWriter, r *http.Request) {
	num, err := h.acctNum(r, "apply_interest_and_fees")
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	bal, err := h.Svc.ApplyInterestAndFees(AcctReq{AcctNum: num})
	if err != nil {
		WriteHTTPError(w, err)
		return
	}

	resp := balanceJSONResp{Balance: *bal}
	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(resp); err != nil {
		WriteHTTPError(w, err)
	}
}

func (h *httpHandler) Balance(w http.ResponseWriter, r *http.Request) {
	num, err := h.acctNum(r, "balance")
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	bal, err := h.Svc.Balance(AcctReq{AcctNum: num})
	if err != nil {
		WriteHTTPError(w, err)
		return
	}

	resp := balanceJSONResp{Balance: *bal}
	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(resp); err != nil {
		WriteHTTPError(w, err)
	}
}

func (h *httpHandler) Statement(w http.ResponseWriter, r *http.Request) {
	num, err := h.acctNum(r, "statement")
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	// render to a buffer so a failure can still produce a JSON error
	var buf bytes.Buffer
	if err = h.Svc.Statement(&buf, AcctReq{AcctNum: num}); err != nil {
		WriteHTTPError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	if _, err = w.Write(buf.Bytes()); err != nil {
		h.Log.Err(err).Str("method", "statement").Msg("error writing statement response")
	}
}

func WriteHTTPError(w http.ResponseWriter, err error) {
	var ne error
	defer func() {
		if ne != nil {
			log.Error().
				Err(ne).
				Msg("error response encoding failed")
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	errnf := &ErrNotFound{}
	errbr := &ErrBadRequest{}
	switch {
	case errors.As(err, errnf):
		w.WriteHeader(http.StatusNotFound)
		ne = json.NewEncoder(w).Encode(errnf)
	case errors.As(err, errbr):
		w.WriteHeader(http.StatusBadRequest)
		ne = json.NewEncoder(w).Encode(errbr)
	case isDomainErr(err):
		w.WriteHeader(http.StatusUnprocessableEntity)
		ne = json.NewEncoder(w).Encode(map[string]string{"message": err.Error()})
	case errors.Is(err, ErrOverloaded),
		errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		w.WriteHeader(http.StatusServiceUnavailable)
		ne = json.NewEncoder(w).Encode(map[string]string{"message": "service unavailable"})
	default:
		w.WriteHeader(http.StatusInternalServerError)
		resp := map[string]string{
			"message": "server error",
		}
		ne = json.NewEncoder(w).Encode(resp)
	}
}

func HTTPNotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]string{
		"path": r.URL.Path,
	}
	json.NewEncoder(w).Encode(resp)
}
