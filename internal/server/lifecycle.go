package server

import (
	"context"
	"log"
	"time"

	"machiavelli-server/internal/history"
	"machiavelli-server/internal/machiavelli"
	"machiavelli-server/internal/notify"
)

const (
	lifecycleQueueSize = 64
	lifecycleTimeout   = 5 * time.Second
	cleanupInterval    = time.Hour
	historyRetention   = 30 * 24 * time.Hour
)

type lifecycleEvent struct {
	event  notify.Event
	record *history.GameRecord
}

// lifecycleWorker saves finished rounds and publishes table events off the
// reactor goroutine. Either backend may be nil.
type lifecycleWorker struct {
	events    chan lifecycleEvent
	history   *history.Store
	publisher *notify.Publisher
	done      chan struct{}
}

func newLifecycleWorker(store *history.Store, publisher *notify.Publisher) *lifecycleWorker {
	return &lifecycleWorker{
		events:    make(chan lifecycleEvent, lifecycleQueueSize),
		history:   store,
		publisher: publisher,
		done:      make(chan struct{}),
	}
}

// Notify never blocks the caller. Events are dropped when the queue is full.
func (w *lifecycleWorker) Notify(ev lifecycleEvent) {
	select {
	case w.events <- ev:
	default:
		log.Printf("Lifecycle queue full, dropping %s event for game %s", ev.event.Type, ev.event.GameId)
	}
}

func (w *lifecycleWorker) run() {
	defer close(w.done)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-w.events:
			if !ok {
				return
			}
			w.handle(ev)
		case <-ticker.C:
			w.cleanup()
		}
	}
}

func (w *lifecycleWorker) handle(ev lifecycleEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), lifecycleTimeout)
	defer cancel()

	if ev.record != nil && w.history != nil {
		if err := w.history.SaveGame(ctx, *ev.record); err != nil {
			log.Printf("Failed to save game %s: %v", ev.record.Id, err)
		} else {
			log.Printf("Saved game %s (winner seat %d)", ev.record.Id, ev.record.WinnerSeat)
		}
	}

	if err := w.publisher.Publish(ctx, ev.event); err != nil {
		log.Printf("Failed to publish %s event: %v", ev.event.Type, err)
	}
}

func (w *lifecycleWorker) cleanup() {
	if w.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), lifecycleTimeout)
	defer cancel()

	deleted, err := w.history.CleanupOldGames(ctx, historyRetention)
	if err != nil {
		log.Printf("Cleanup task failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("Cleanup task: deleted %d old games", deleted)
	}
}

// stop drains what is queued, then waits for the worker or ctx.
func (w *lifecycleWorker) stop(ctx context.Context) error {
	close(w.events)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// observe compares the table before and after an engine call and reports
// the phase transitions.
func (s *Server) observe(before, after machiavelli.Snapshot) {
	if before.Phase == after.Phase {
		return
	}

	now := time.Now()
	switch after.Phase {
	case machiavelli.InProgress:
		s.lifecycle.Notify(lifecycleEvent{event: notify.Event{
			Type: notify.GameStarted, GameId: after.Id, Seat: after.Turn, Timestamp: now,
		}})
	case machiavelli.Finished:
		record := gameRecord(after)
		s.lifecycle.Notify(lifecycleEvent{
			event: notify.Event{
				Type: notify.GameFinished, GameId: after.Id, Seat: after.Winner,
				Name: record.WinnerName, Timestamp: now,
			},
			record: &record,
		})
	case machiavelli.WaitingForPlayers:
		s.lifecycle.Notify(lifecycleEvent{event: notify.Event{
			Type: notify.GameReset, GameId: before.Id, Seat: -1, Timestamp: now,
		}})
	}
}

func gameRecord(snap machiavelli.Snapshot) history.GameRecord {
	record := history.GameRecord{
		Id:         snap.Id,
		SeatCount:  snap.SeatCount,
		WinnerSeat: snap.Winner,
		Moves:      snap.Moves,
		Draws:      snap.Draws,
		StartedAt:  snap.StartedAt,
		FinishedAt: snap.FinishedAt,
	}
	for _, seat := range snap.Seats {
		if !seat.Occupied {
			continue
		}
		if seat.Seat == snap.Winner {
			record.WinnerName = seat.Name
		}
		record.Players = append(record.Players, history.PlayerRecord{
			Seat:      seat.Seat,
			Name:      seat.Name,
			CardsLeft: seat.HandLength,
		})
	}
	return record
}
