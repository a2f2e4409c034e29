package api

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/carlcj05/Astrozee/internal/domain/models"
	"github.com/carlcj05/Astrozee/internal/usecase"
	xhttp "github.com/carlcj05/Astrozee/pkg/http"
	applogger "github.com/carlcj05/Astrozee/pkg/logger"
)

const (
	streamWriteWait = 10 * time.Second
	// streamReadLimit caps client frames; clients only send control frames.
	streamReadLimit = 512
	// progressEvery limits progress frames to one per this many scanned days.
	progressEvery = 7
)

// Stream upgrades to a websocket, sends progress frames while the scan runs,
// then a single report or error frame, then closes.
func (h *TransitsHandler) Stream(c echo.Context) error {
	const endpoint = "stream"

	req := &models.TransitRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, endpoint, verr)
	}
	profile, err := usecase.ProfileFromRequest(*req)
	if err != nil {
		return h.fail(c, endpoint, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader already answered the client.
		if h.l != nil {
			h.l.Warn("transits stream upgrade failed", applogger.Error(err))
		}
		return nil
	}
	defer conn.Close()
	defer observe(endpoint, time.Now())

	// read loop: answers ping and close frames, and stops the scan once the
	// client goes away.
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	conn.SetReadLimit(streamReadLimit)
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	var writeErr error
	send := func(ev models.StreamEvent) {
		if writeErr != nil {
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		writeErr = conn.WriteJSON(ev)
	}

	// Progress callbacks are serialized by the engine and finish before
	// GenerateWithProgress returns, so the connection has a single writer.
	report, err := h.reports.GenerateWithProgress(ctx, usecase.ReportParams{
		Profile: profile,
		Month:   req.Month,
		Year:    req.Year,
		Persist: req.Persist,
	}, func(done, total int) {
		if done == total || done%progressEvery == 0 {
			send(models.StreamEvent{Type: "progress", Done: done, Total: total})
		}
	})
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		if h.l != nil {
			h.l.Debug("transits stream client gone", applogger.Error(err))
		}
		return nil
	}
	if err != nil {
		appErr := toAppError(err)
		send(models.StreamEvent{Type: "error", Error: appErr.Message})
	} else {
		send(models.StreamEvent{Type: "report", Report: report})
	}

	if writeErr != nil {
		if h.l != nil {
			h.l.Warn("transits stream write failed", applogger.Error(writeErr))
		}
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(streamWriteWait))
	return nil
}
