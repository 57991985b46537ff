package stats

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const collectTimeout = 10 * time.Second

var (
	releasesDesc = prometheus.NewDesc("listenlog_releases", "Releases in the log.", nil, nil)
	entitiesDesc = prometheus.NewDesc("listenlog_entities", "Artists and labels in the log, sentinels excluded.", []string{"type"}, nil)
	ratingDesc   = prometheus.NewDesc("listenlog_average_rating", "Average release rating.", nil, nil)
	runtimeDesc  = prometheus.NewDesc("listenlog_runtime_hours", "Total runtime of all releases in hours.", nil, nil)
	listensDesc  = prometheus.NewDesc("listenlog_listens_this_year", "Releases listened to this year.", nil, nil)
	perDayDesc   = prometheus.NewDesc("listenlog_releases_per_day", "Releases added per day this year.", nil, nil)
)

// Collector exposes the headline statistics as gauges.
type Collector struct {
	service *Service
}

var _ prometheus.Collector = (*Collector)(nil)

func NewCollector(service *Service) *Collector {
	return &Collector{service: service}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- releasesDesc
	ch <- entitiesDesc
	ch <- ratingDesc
	ch <- runtimeDesc
	ch <- listensDesc
	ch <- perDayDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()
	s := c.service.GetStatistics(ctx)

	ch <- prometheus.MustNewConstMetric(releasesDesc, prometheus.GaugeValue, float64(s.TotalReleases))
	ch <- prometheus.MustNewConstMetric(entitiesDesc, prometheus.GaugeValue, float64(s.TotalArtists), "artist")
	ch <- prometheus.MustNewConstMetric(entitiesDesc, prometheus.GaugeValue, float64(s.TotalLabels), "label")
	ch <- prometheus.MustNewConstMetric(ratingDesc, prometheus.GaugeValue, s.AverageRating)
	ch <- prometheus.MustNewConstMetric(runtimeDesc, prometheus.GaugeValue, s.TotalRuntime)
	ch <- prometheus.MustNewConstMetric(listensDesc, prometheus.GaugeValue, float64(s.ListensThisYear))
	ch <- prometheus.MustNewConstMetric(perDayDesc, prometheus.GaugeValue, s.ReleasesPerDay)
}
