package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/intygscan/internal/ocr"
	"github.com/MeKo-Tech/intygscan/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocket message types.
const (
	wsTypeStage  = "stage"
	wsTypeResult = "result"
	wsTypeError  = "error"
)

// WebSocketScanRequest is one request on /ws/scan. Type "scan" carries an
// image (base64 in JSON); type "parse" carries a saved OCR result.
type WebSocketScanRequest struct {
	Type           string      `json:"type"`
	Image          []byte      `json:"image,omitempty"`
	Scan           *ocr.Result `json:"scan,omitempty"`
	ExpectedRegime string      `json:"expected_regime,omitempty"`
	CheckOverlap   *bool       `json:"check_overlap,omitempty"`
}

// WebSocketScanResponse is sent for every stage and once more with the
// outcome.
type WebSocketScanResponse struct {
	Type      string           `json:"type"`
	RequestID string           `json:"request_id,omitempty"`
	Stage     pipeline.Stage   `json:"stage,omitempty"`
	Result    *pipeline.Result `json:"result,omitempty"`
	CanSave   bool             `json:"canSave,omitempty"`
	Issue     *pipeline.Issue  `json:"issue,omitempty"`
	Error     string           `json:"error,omitempty"`
	ErrorType string           `json:"error_type,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()
	s.logger.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	// Base64 grows the image by a third.
	conn.SetReadLimit(2*(s.maxUploadMB<<20) + 1<<20)
	s.handleWebSocketConnection(r.Context(), conn)
}

func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		}
	}
}

func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketScanRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err), nil)
		return
	}
	requestID := uuid.NewString()

	overlapFlag := ""
	if req.CheckOverlap != nil {
		overlapFlag = strconv.FormatBool(*req.CheckOverlap)
	}
	p, err := s.pipelineFor(req.ExpectedRegime, overlapFlag)
	if err != nil {
		s.sendWebSocketError(conn, requestID, "invalid_request", err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	onStage := func(st pipeline.Stage) {
		s.sendWebSocketResponse(conn, WebSocketScanResponse{Type: wsTypeStage, RequestID: requestID, Stage: st})
	}

	start := time.Now()
	var res *pipeline.Result
	switch req.Type {
	case "scan", "":
		if len(req.Image) == 0 {
			s.sendWebSocketError(conn, requestID, "invalid_request", "No image data provided", nil)
			return
		}
		res, err = p.ProcessStages(ctx, req.Image, onStage)
	case "parse":
		if req.Scan == nil {
			s.sendWebSocketError(conn, requestID, "invalid_request", "No scan provided", nil)
			return
		}
		res, err = p.ProcessScan(ctx, req.Scan)
	default:
		s.sendWebSocketError(conn, requestID, "invalid_request", "Unsupported request type: "+req.Type, nil)
		return
	}
	scanDuration.WithLabelValues("websocket").Observe(time.Since(start).Seconds())

	if err != nil {
		scanRequestsTotal.WithLabelValues("websocket", "error").Inc()
		var issue *pipeline.Issue
		if is, ok := pipeline.IssueForError(err); ok {
			issue = &is
		}
		s.sendWebSocketError(conn, requestID, "processing_error", err.Error(), issue)
		return
	}
	scanRequestsTotal.WithLabelValues("websocket", "success").Inc()
	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type:      wsTypeResult,
		RequestID: requestID,
		Result:    res,
		CanSave:   res.CanSave(),
	})
}

func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketScanResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Warn("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string, issue *pipeline.Issue) {
	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type:      wsTypeError,
		RequestID: requestID,
		Error:     message,
		ErrorType: errorType,
		Issue:     issue,
	})
}
