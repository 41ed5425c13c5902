package logroute_test

import (
	"strings"
	"time"

	"github.com/robokit/logroute"
)

// fixedClock pins record timestamps so the output is stable.
type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func (c fixedClock) NewTicker(d time.Duration) *time.Ticker { return time.NewTicker(d) }

func Example() {
	cfg, err := logroute.ReadJSON(strings.NewReader(`{
		"version": 1,
		"disable_existing_loggers": false,
		"formatters": {"console": "%(asctime)s %(levelname)s %(name)s: %(message)s"},
		"handlers": {
			"console": {"kind": "console", "level": "INFO", "formatter": "console", "stream": "stdout"}
		},
		"root": {"level": "INFO", "handlers": ["console"]}
	}`))
	if err != nil {
		panic(err)
	}

	reg := logroute.NewRegistry(
		logroute.WithClock(fixedClock(time.Date(2024, 5, 4, 12, 30, 0, 0, time.UTC))),
		logroute.WithColor(false),
	)
	if err := reg.Configure(cfg); err != nil {
		panic(err)
	}
	defer reg.Close()

	session := reg.Get("game.session")
	session.Infof("wave %d incoming", 3)
	session.Debug("culled by the root threshold")
	reg.Root().Warn("low battery")

	// Output:
	// 2024-05-04 12:30:00,000 INFO game.session: wave 3 incoming
	// 2024-05-04 12:30:00,000 WARNING root: low battery
}
