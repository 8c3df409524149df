package socket

import (
	"context"
	"log"
	"time"

	"milkroad_server/services"
	"milkroad_server/utils"
)

// watch streams a live timeline to one connection. It fetches a snapshot
// once, then re-projects it on every tick so open sleep bars keep growing.
// A refresh signal or the day rolling over triggers a new fetch.
type watch struct {
	loc     *time.Location
	fetch   func(ctx context.Context) (services.DayRecords, error)
	emit    func(interface{})
	clock   func() time.Time
	ctx     context.Context
	cancel  context.CancelFunc
	refresh chan struct{}
}

func newWatch(loc *time.Location, fetch func(context.Context) (services.DayRecords, error), emit func(interface{})) *watch {
	ctx, cancel := context.WithCancel(context.Background())
	return &watch{
		loc:     loc,
		fetch:   fetch,
		emit:    emit,
		clock:   time.Now,
		ctx:     ctx,
		cancel:  cancel,
		refresh: make(chan struct{}, 1),
	}
}

func (w *watch) stop() {
	w.cancel()
}

// refetch asks the loop for a new snapshot; repeated requests coalesce
func (w *watch) refetch() {
	select {
	case w.refresh <- struct{}{}:
	default:
	}
}

func (w *watch) run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	w.loop(ticker.C)
}

func (w *watch) loop(ticks <-chan time.Time) {
	day, ok := w.load()
	if !ok {
		if w.ctx.Err() != nil {
			return
		}
		day = services.DayRecords{Since: utils.StartOfDay(w.clock(), w.loc)}
	}
	w.project(day)

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.refresh:
			if next, ok := w.load(); ok {
				day = next
			}
		case <-ticks:
			if !utils.StartOfDay(w.clock(), w.loc).Equal(day.Since) {
				if next, ok := w.load(); ok {
					day = next
				}
			}
		}
		if w.ctx.Err() != nil {
			return
		}
		w.project(day)
	}
}

// load fetches a snapshot. It reports false when the fetch failed or the
// watch was stopped meanwhile, in which case the result is discarded.
func (w *watch) load() (services.DayRecords, bool) {
	day, err := w.fetch(w.ctx)
	if w.ctx.Err() != nil {
		return services.DayRecords{}, false
	}
	if err != nil {
		log.Printf("❌ Timeline fetch failed: %v", err)
		return services.DayRecords{}, false
	}
	return day, true
}

func (w *watch) project(day services.DayRecords) {
	if w.ctx.Err() != nil {
		return
	}
	w.emit(services.ProjectTimeline(w.clock(), w.loc, day.Feeds, day.Sleeps))
}
