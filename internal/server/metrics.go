package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	postsServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsroom_posts_served_total",
		Help: "Published posts returned by the read API.",
	})
	subscribeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsroom_subscribe_requests_total",
		Help: "Subscribe attempts by outcome.",
	}, []string{"outcome"})
	unsubscribeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsroom_unsubscribe_requests_total",
		Help: "Unsubscribe attempts by outcome.",
	}, []string{"outcome"})
)
