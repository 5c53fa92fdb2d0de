package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var authEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "podstream_auth_events_total",
	Help: "Auth events by type and result.",
}, []string{"event", "result"})

var engagementEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "podstream_engagement_events_total",
	Help: "Likes, unlikes, comments, follows and uploads.",
}, []string{"event"})

var uploadBytes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "podstream_upload_bytes_total",
	Help: "Bytes sent to storage providers.",
}, []string{"provider", "kind"})
