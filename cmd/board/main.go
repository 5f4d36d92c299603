//go:build js && wasm

package main

import (
	"context"
	"syscall/js"
	"time"

	log "github.com/sirupsen/logrus"

	"kanban-board/board"
	"kanban-board/board/dom"
	"kanban-board/client"
)

const reconcileInterval = 30 * time.Second

func main() {
	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{DisableColors: true, DisableTimestamp: true})
	if dbg := js.Global().Get("BOARD_DEBUG"); dbg.Type() == js.TypeBoolean && dbg.Bool() {
		logger.SetLevel(log.DebugLevel)
	}

	baseURL := js.Global().Get("location").Get("origin").String()
	if v := js.Global().Get("CARD_STORE_URL"); v.Type() == js.TypeString && v.String() != "" {
		baseURL = v.String()
	}

	ctx := context.Background()
	view := dom.New()
	defer view.Release()

	ctrl := board.New(client.New(baseURL), view, logger, board.WithContext(ctx))
	view.Bind(ctrl)
	ctrl.LoadAll(ctx)

	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()
	for range ticker.C {
		if _, err := ctrl.Reconcile(ctx); err != nil {
			logger.Warnf("reconcile failed: %v", err)
		}
	}
}
