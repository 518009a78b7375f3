package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kiebitz/client-go/internal/api"
	"github.com/kiebitz/client-go/internal/crypto"
)

const maxRequestSize = 4 << 20

type handler func(ctx context.Context, params json.RawMessage) (any, error)

// register binds fn to m. Signed methods are authenticated before fn runs
// and fn receives the signer's public key as caller.
func register[Req, Resp any](r *Relay, routes map[string]handler, m api.Method[Req, Resp], fn func(ctx context.Context, caller string, req Req) (Resp, error)) {
	routes[m.Name] = func(ctx context.Context, params json.RawMessage) (any, error) {
		var caller string
		data := params
		if m.Signed {
			var sd crypto.SignedData
			if err := json.Unmarshal(params, &sd); err != nil || sd.Data == "" {
				return nil, badRequest("%s requires signed params", m.Name)
			}
			if err := crypto.VerifySelf(&sd); err != nil {
				return nil, unauthorized("invalid signature")
			}
			var stamp struct {
				Timestamp time.Time `json:"timestamp"`
			}
			if err := sd.Decode(&stamp); err != nil {
				return nil, badRequest("invalid signed params")
			}
			caller = sd.PublicKey
			data = json.RawMessage(sd.Data)
			if err := r.checkTimestamp(stamp.Timestamp); err != nil {
				return nil, err
			}
		}

		var req Req
		if len(data) > 0 && string(data) != "null" {
			if err := json.Unmarshal(data, &req); err != nil {
				return nil, badRequest("invalid params for %s", m.Name)
			}
		}
		return fn(ctx, caller, req)
	}
}

func (r *Relay) routes() map[string]handler {
	routes := make(map[string]handler)
	register(r, routes, api.GetKeys, r.getKeys)
	register(r, routes, api.AddMediatorPublicKeys, r.addMediatorPublicKeys)
	register(r, routes, api.GetToken, r.getToken)
	register(r, routes, api.StoreProviderData, r.storeProviderData)
	register(r, routes, api.CheckProviderData, r.checkProviderData)
	register(r, routes, api.GetPendingProviderData, r.getPendingProviderData)
	register(r, routes, api.GetVerifiedProviderData, r.getVerifiedProviderData)
	register(r, routes, api.ConfirmProvider, r.confirmProvider)
	register(r, routes, api.PublishAppointments, r.publishAppointments)
	register(r, routes, api.GetProviderAppointments, r.getProviderAppointments)
	register(r, routes, api.GetAppointmentsByZipCode, r.getAppointmentsByZipCode)
	register(r, routes, api.GetAppointment, r.getAppointment)
	register(r, routes, api.BookAppointment, r.bookAppointment)
	register(r, routes, api.CancelBooking, r.cancelBooking)
	register(r, routes, api.StoreSettings, r.storeSettings)
	register(r, routes, api.GetSettings, r.getSettings)
	register(r, routes, api.DeleteSettings, r.deleteSettings)
	register(r, routes, api.ResetDB, r.resetDB)
	return routes
}

// Handler returns the HTTP handler serving the relay at api.RPCPath.
func (r *Relay) Handler() http.Handler {
	routes := r.routes()

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(r.requestLogger)

	router.Post(api.RPCPath, func(w http.ResponseWriter, req *http.Request) {
		r.serveRPC(w, req, routes)
	})
	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return router
}

func (r *Relay) serveRPC(w http.ResponseWriter, req *http.Request, routes map[string]handler) {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxRequestSize))
	if err != nil {
		writeResponse(w, api.Response{JSONRPC: api.Version}, badRequest("read request"))
		return
	}

	var rpcReq struct {
		JSONRPC string          `json:"jsonrpc"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params"`
		ID      string          `json:"id"`
	}
	if err := json.Unmarshal(body, &rpcReq); err != nil || rpcReq.JSONRPC != api.Version {
		writeResponse(w, api.Response{JSONRPC: api.Version}, badRequest("invalid JSON-RPC request"))
		return
	}
	resp := api.Response{JSONRPC: api.Version, ID: rpcReq.ID}

	h, ok := routes[rpcReq.Method]
	if !ok {
		writeResponse(w, resp, notFound("method %s not found", rpcReq.Method))
		return
	}

	result, err := h(req.Context(), rpcReq.Params)
	if err != nil {
		r.logger.Debug("rpc rejected",
			zap.String("method", rpcReq.Method),
			zap.String("request_id", chimiddleware.GetReqID(req.Context())),
			zap.Error(err),
		)
		writeResponse(w, resp, err)
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		writeResponse(w, resp, err)
		return
	}
	resp.Result = raw
	writeResponse(w, resp, nil)
}

func writeResponse(w http.ResponseWriter, resp api.Response, err error) {
	status := http.StatusOK
	if err != nil {
		re := asRPCError(err)
		resp.Error = &api.Error{Code: re.Code, Message: re.Message}
		status = re.Code
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// requestLogger logs one line per request with zap.
func (r *Relay) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, req.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, req)
		r.logger.Info("request",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", chimiddleware.GetReqID(req.Context())),
		)
	})
}
