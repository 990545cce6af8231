package policycache

import (
	"strconv"

	"github.com/rcrowley/go-metrics"
	"golang.org/x/exp/slices"
)

const (
	ConnMetric          = "server.conn"
	CommandMetricPrefix = "cmd."
	unknownCommand      = "unknown"
)

var knownCommands = map[string]bool{
	GetCommand:   true,
	GetsCommand:  true,
	SetCommand:   true,
	StatsCommand: true,
}

type stat struct {
	name  string
	value string
}

func (c *conn) commandTimer(command string) metrics.Timer {
	if !knownCommands[command] {
		command = unknownCommand
	}
	return metrics.GetOrRegisterTimer(CommandMetricPrefix+command, c.Metrics)
}

// collectStats returns cache state and registered metrics sorted by name.
// Timers are reported as number of timed events.
func (c *conn) collectStats() []stat {
	stats := []stat{
		{"policy", c.Policy.String()},
		{"curr_items", strconv.Itoa(c.Cache.Len())},
		{"limit_maxitems", strconv.Itoa(c.Cache.Cap())},
	}
	values := map[string]int64{}
	c.Metrics.Each(func(name string, i interface{}) {
		switch m := i.(type) {
		case metrics.Counter:
			values[name] = m.Count()
		case metrics.Gauge:
			values[name] = m.Value()
		case metrics.Timer:
			values[name] = m.Count()
		}
	})
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		stats = append(stats, stat{name, strconv.FormatInt(values[name], 10)})
	}
	return stats
}
