// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tokenExchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apibind_token_exchanges_total",
			Help: "Token exchanges performed, by credential and result",
		},
		[]string{"credential", "result"},
	)

	tokenExchangeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apibind_token_exchange_duration_seconds",
			Help:    "Duration of token exchanges",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"credential"},
	)

	tokenCoalescedWaiters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apibind_token_coalesced_waiters_total",
			Help: "Token requests that joined an exchange already in flight",
		},
		[]string{"credential"},
	)

	tokenCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apibind_token_cache_hits_total",
			Help: "Token requests served from the cache without an exchange",
		},
		[]string{"credential"},
	)
)

func recordExchange(credential string, seconds float64, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	tokenExchanges.WithLabelValues(credential, result).Inc()
	tokenExchangeDuration.WithLabelValues(credential).Observe(seconds)
}
