// Package metrics exposes pipeline and clip store state to Prometheus. All
// values are read from their providers at scrape time.
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/morsecast/morsecast/internal/pipeline"
)

// StatsProvider exposes the pipeline counters.
type StatsProvider interface {
	Stats() pipeline.Stats
}

// ClipCounter returns the number of stored clips.
type ClipCounter interface {
	Count(ctx context.Context) (int64, error)
}

// ExpiryProvider reports how many clips retention has removed.
type ExpiryProvider interface {
	Expired() uint64
}

// Collector is a prometheus.Collector that gathers morsecast metrics at
// scrape time.
type Collector struct {
	stats     StatsProvider
	clips     ClipCounter
	expiry    ExpiryProvider
	startTime time.Time

	translationsDesc *prometheus.Desc
	rejectionsDesc   *prometheus.Desc
	synthesizedDesc  *prometheus.Desc
	cacheHitsDesc    *prometheus.Desc
	failuresDesc     *prometheus.Desc
	audioBytesDesc   *prometheus.Desc
	storedClipsDesc  *prometheus.Desc
	expiredDesc      *prometheus.Desc
	uptimeDesc       *prometheus.Desc
}

// NewCollector creates a new metrics collector. Any provider may be nil if
// unavailable.
func NewCollector(stats StatsProvider, clips ClipCounter, expiry ExpiryProvider, startTime time.Time) *Collector {
	return &Collector{
		stats:     stats,
		clips:     clips,
		expiry:    expiry,
		startTime: startTime,

		translationsDesc: prometheus.NewDesc(
			"morsecast_translations_total",
			"Texts translated to Morse",
			nil, nil,
		),
		rejectionsDesc: prometheus.NewDesc(
			"morsecast_rejections_total",
			"Messages rejected before synthesis",
			[]string{"reason"}, nil,
		),
		synthesizedDesc: prometheus.NewDesc(
			"morsecast_clips_synthesized_total",
			"Clips rendered and encoded to MP3",
			nil, nil,
		),
		cacheHitsDesc: prometheus.NewDesc(
			"morsecast_clip_cache_hits_total",
			"Messages served from a stored clip",
			nil, nil,
		),
		failuresDesc: prometheus.NewDesc(
			"morsecast_synthesis_failures_total",
			"Synthesis calls that returned an error",
			nil, nil,
		),
		audioBytesDesc: prometheus.NewDesc(
			"morsecast_audio_bytes_total",
			"MP3 bytes produced by synthesis",
			nil, nil,
		),
		storedClipsDesc: prometheus.NewDesc(
			"morsecast_stored_clips",
			"Clips currently in the clip store",
			nil, nil,
		),
		expiredDesc: prometheus.NewDesc(
			"morsecast_clips_expired_total",
			"Clips removed by retention",
			nil, nil,
		),
		uptimeDesc: prometheus.NewDesc(
			"morsecast_uptime_seconds",
			"Seconds since the process started",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.translationsDesc
	ch <- c.rejectionsDesc
	ch <- c.synthesizedDesc
	ch <- c.cacheHitsDesc
	ch <- c.failuresDesc
	ch <- c.audioBytesDesc
	ch <- c.storedClipsDesc
	ch <- c.expiredDesc
	ch <- c.uptimeDesc
}

// Collect implements prometheus.Collector. It queries all providers at scrape time.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if c.stats != nil {
		st := c.stats.Stats()
		counter := func(d *prometheus.Desc, v uint64, labels ...string) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
		}
		counter(c.translationsDesc, st.Translations)
		counter(c.rejectionsDesc, st.NoEncodable, "no_encodable_characters")
		counter(c.rejectionsDesc, st.TooLarge, "output_too_large")
		counter(c.synthesizedDesc, st.Synthesized)
		counter(c.cacheHitsDesc, st.CacheHits)
		counter(c.failuresDesc, st.Failures)
		counter(c.audioBytesDesc, st.AudioBytes)
	}

	if c.clips != nil {
		count, err := c.clips.Count(ctx)
		if err != nil {
			slog.Error("metrics: failed to count clips", "error", err)
		} else {
			ch <- prometheus.MustNewConstMetric(
				c.storedClipsDesc, prometheus.GaugeValue,
				float64(count),
			)
		}
	}

	if c.expiry != nil {
		ch <- prometheus.MustNewConstMetric(
			c.expiredDesc, prometheus.CounterValue,
			float64(c.expiry.Expired()),
		)
	}

	ch <- prometheus.MustNewConstMetric(
		c.uptimeDesc, prometheus.GaugeValue,
		time.Since(c.startTime).Seconds(),
	)
}

// Handler registers c with a fresh registry alongside the Go runtime and
// process collectors and returns the exposition handler.
func Handler(c *Collector) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	for _, col := range []prometheus.Collector{
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{ErrorLog: slog.NewLogLogger(slog.Default().Handler(), slog.LevelError)}), nil
}
