package httpserver

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zhanglinchao1/Feature-Algorithm/engine"
	"github.com/zhanglinchao1/Feature-Algorithm/interfaces"
)

// Handler exposes the engine's register and authenticate operations over a
// thin JSON API. It only marshals; all semantics live in the engine.
type Handler struct {
	engine *engine.Engine
	log    *slog.Logger
}

// NewHandler creates a handler around an engine.
func NewHandler(eng *engine.Engine, log *slog.Logger) *Handler {
	return &Handler{engine: eng, log: log}
}

type contextRequest struct {
	SrcID   string `json:"src_id"`
	DstID   string `json:"dst_id"`
	Epoch   uint32 `json:"epoch"`
	Nonce   string `json:"nonce,omitempty"`
	Counter uint32 `json:"counter"`
	AlgID   string `json:"alg_id"`
	Version uint8  `json:"version"`
	CSIID   uint32 `json:"csi_id"`
}

type operationRequest struct {
	Measurements [][]float64    `json:"measurements"`
	Context      contextRequest `json:"context"`
	Mask         string         `json:"mask,omitempty"`
}

type keyResponse struct {
	S      string `json:"s"`
	L      string `json:"l"`
	K      string `json:"k"`
	Ks     string `json:"ks"`
	Digest string `json:"digest"`
}

type registerResponse struct {
	keyResponse
	VotedBits   int `json:"voted_bits"`
	PaddedBits  int `json:"padded_bits"`
	HelperBytes int `json:"helper_bytes"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleRegister processes POST /api/v1/devices/{device_id}/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	deviceID := interfaces.DeviceID(chi.URLParam(r, "device_id"))

	measurements, ectx, mask, ok := h.decodeOperation(w, r)
	if !ok {
		return
	}

	material, meta, err := h.engine.Register(r.Context(), deviceID, measurements, ectx, mask)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := registerResponse{
		keyResponse: encodeKeyMaterial(material),
		VotedBits:   meta.VotedBits,
		PaddedBits:  meta.PaddedBits,
		HelperBytes: meta.HelperBytes,
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleAuthenticate processes POST /api/v1/devices/{device_id}/authenticate.
func (h *Handler) HandleAuthenticate(w http.ResponseWriter, r *http.Request) {
	deviceID := interfaces.DeviceID(chi.URLParam(r, "device_id"))

	measurements, ectx, mask, ok := h.decodeOperation(w, r)
	if !ok {
		return
	}

	material, err := h.engine.Authenticate(r.Context(), deviceID, measurements, ectx, mask)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeKeyMaterial(material))
}

func (h *Handler) decodeOperation(w http.ResponseWriter, r *http.Request) (interfaces.MeasurementSet, interfaces.Context, []byte, bool) {
	var req operationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return nil, interfaces.Context{}, nil, false
	}

	ectx, err := decodeContext(req.Context)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil, interfaces.Context{}, nil, false
	}

	var mask []byte
	if req.Mask != "" {
		mask, err = hex.DecodeString(req.Mask)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "mask must be hex"})
			return nil, interfaces.Context{}, nil, false
		}
	}
	return req.Measurements, ectx, mask, true
}

func decodeContext(req contextRequest) (interfaces.Context, error) {
	src, err := interfaces.NewMACAddrFromHex(req.SrcID)
	if err != nil {
		return interfaces.Context{}, err
	}
	dst, err := interfaces.NewMACAddrFromHex(req.DstID)
	if err != nil {
		return interfaces.Context{}, err
	}

	var nonce interfaces.Nonce
	if req.Nonce == "" {
		// A UUID is exactly the 16 random bytes the nonce needs.
		nonce = interfaces.Nonce(uuid.New())
	} else {
		raw, err := hex.DecodeString(req.Nonce)
		if err != nil {
			return interfaces.Context{}, errors.New("nonce must be hex")
		}
		nonce, err = interfaces.NewNonceFromBytes(raw)
		if err != nil {
			return interfaces.Context{}, err
		}
	}

	return interfaces.Context{
		SrcID:   src,
		DstID:   dst,
		Epoch:   req.Epoch,
		Nonce:   nonce,
		Counter: req.Counter,
		AlgID:   req.AlgID,
		Version: req.Version,
		CSIID:   req.CSIID,
	}, nil
}

func encodeKeyMaterial(m *interfaces.KeyMaterial) keyResponse {
	return keyResponse{
		S:      hex.EncodeToString(m.S[:]),
		L:      hex.EncodeToString(m.L[:]),
		K:      hex.EncodeToString(m.K),
		Ks:     hex.EncodeToString(m.Ks),
		Digest: hex.EncodeToString(m.Digest),
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interfaces.ErrUnknownDevice):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown device"})
	case errors.Is(err, interfaces.ErrAlreadyRegistered):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "device already registered"})
	case errors.Is(err, interfaces.ErrRecoveryFailed):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "recovery failed"})
	case errors.Is(err, interfaces.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		h.log.Error("Operation failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
