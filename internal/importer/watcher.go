package importer

import (
	"context"
	"time"

	"nstrack/internal/cfg"
	"nstrack/internal/importlog"
	"nstrack/internal/metrics"
	"nstrack/internal/store"
)

type Importer struct {
	c   cfg.Config
	db  *store.DB
	m   *metrics.Metrics
	now func() time.Time
}

// New returns an importer. m may be nil when metrics are disabled.
func New(c cfg.Config, db *store.DB, m *metrics.Metrics) *Importer {
	return &Importer{c: c, db: db, m: m, now: time.Now}
}

func (im *Importer) Run(ctx context.Context) {
	if im.c.PollMs <= 0 {
		importlog.Printf("importer: background polling disabled (poll_ms=%d)", im.c.PollMs)
		return
	}
	importlog.Printf("importer: polling every %dms", im.c.PollMs)

	t := time.NewTicker(time.Duration(im.c.PollMs) * time.Millisecond)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sum, err := im.ScanOnce()
			if err != nil {
				importlog.Printf("importer: scan: %v", err)
				continue
			}
			if sum.Imported > 0 {
				importlog.Printf("importer: poll imported %d track(s)", sum.Imported)
			}
		}
	}
}
