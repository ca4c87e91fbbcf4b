package main

import (
	"errors"

	"github.com/uakbr/bypass-methods/internal/capture"
	"github.com/uakbr/bypass-methods/internal/ipc"
	"github.com/uakbr/bypass-methods/internal/screenshot"
	"github.com/uakbr/bypass-methods/internal/winquery"
)

// agent glues the capture engine to persistence and implements the IPC
// handler. One agent serves all connections; the engine serializes access
// to session-based backends itself.
type agent struct {
	engine *capture.Engine
	shots  *screenshot.Service
}

// TakeScreenshot resolves the request to a target, captures through the
// fallback chain and persists the frame. Intermediate backend failures stay
// internal; only full exhaustion (or resolution failure) surfaces as an
// error response.
func (a *agent) TakeScreenshot(req ipc.ScreenshotRequest) ipc.ScreenshotResponse {
	target := capture.Target{}
	if req.WindowName != "" {
		hwnd, err := winquery.FindWindow(req.WindowName, !req.Exact)
		if err != nil {
			return errorResponse(err)
		}
		target.Window = hwnd
	} else if req.Monitor != nil {
		target.Monitor = *req.Monitor
	}

	frame, err := a.engine.Capture(target)
	if err != nil {
		return errorResponse(err)
	}

	path, err := a.shots.Save(frame)
	if err != nil {
		return errorResponse(err)
	}

	return ipc.ScreenshotResponse{Status: "success", Path: path}
}

// ListWindows reports visible windows with their display affinity.
func (a *agent) ListWindows() (ipc.WindowListResponse, error) {
	windows, err := winquery.List()
	if err != nil {
		return ipc.WindowListResponse{}, err
	}
	resp := ipc.WindowListResponse{Windows: make([]ipc.WindowEntry, 0, len(windows))}
	for _, w := range windows {
		resp.Windows = append(resp.Windows, ipc.WindowEntry{
			Handle: w.Handle, Title: w.Title, Affinity: w.Affinity,
		})
	}
	return resp, nil
}

func errorResponse(err error) ipc.ScreenshotResponse {
	var ex *capture.ExhaustedError
	if errors.As(err, &ex) {
		// ExhaustedError already enumerates every attempt and its reason.
		return ipc.ScreenshotResponse{Status: "error", Message: ex.Error()}
	}
	return ipc.ScreenshotResponse{Status: "error", Message: err.Error()}
}
