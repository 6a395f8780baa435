package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/growthcast/internal/application"
	"github.com/sawpanic/growthcast/internal/forecast"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 256 << 10
)

// liveFrame is the server's answer to one request frame. Exactly one
// of Forecast and Error is set.
type liveFrame struct {
	Seq      int                           `json:"seq"`
	Forecast *application.ForecastResponse `json:"forecast,omitempty"`
	Error    *ErrorResponse                `json:"error,omitempty"`
}

// liveForecast answers every ForecastRequest frame on a websocket with
// a forecast frame, in order.
type liveForecast struct {
	planner  *application.Planner
	metrics  *Metrics
	timeout  time.Duration
	upgrader websocket.Upgrader
}

func newLiveForecast(planner *application.Planner, metrics *Metrics, timeout time.Duration, allowed func(string) bool) *liveForecast {
	return &liveForecast{
		planner: planner,
		metrics: metrics,
		timeout: timeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed(origin)
			},
		},
	}
}

func (l *liveForecast) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("request_id", requestID(r)).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	l.metrics.WSConnections.Inc()
	defer l.metrics.WSConnections.Dec()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	id := requestID(r)
	for seq := 1; ; seq++ {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("request_id", id).Msg("Websocket connection error")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		frame := l.answer(r.Context(), id, seq, message)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			log.Debug().Err(err).Str("request_id", id).Msg("Websocket write failed")
			return
		}
	}
}

func (l *liveForecast) answer(parent context.Context, id string, seq int, message []byte) liveFrame {
	frame := liveFrame{Seq: seq}
	fail := func(code, msg string) liveFrame {
		frame.Error = &ErrorResponse{
			Error:     "Bad Request",
			Message:   msg,
			Code:      code,
			RequestID: id,
			Timestamp: time.Now().UTC(),
		}
		return frame
	}

	var req application.ForecastRequest
	if err := json.Unmarshal(message, &req); err != nil {
		return fail("invalid_json", err.Error())
	}

	ctx, cancel := context.WithTimeout(parent, l.timeout)
	defer cancel()
	resp, err := l.planner.Forecast(ctx, req)
	if err != nil {
		if forecast.IsConfigurationError(err) {
			return fail("invalid_configuration", err.Error())
		}
		log.Error().Err(err).Str("request_id", id).Int("seq", seq).Msg("Live forecast failed")
		out := fail("internal_error", "internal server error")
		out.Error.Error = http.StatusText(http.StatusInternalServerError)
		return out
	}
	frame.Forecast = resp
	return frame
}
