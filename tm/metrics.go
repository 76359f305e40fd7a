/*
 * MajorTom
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package tm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// mutationTotal counts accepted and rejected mutations by operation kind
	mutationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "majortom_mutation_total",
		Help: "Total store mutations by operation and result",
	}, []string{"operation", "result"})

	// mergeTotal counts topic merges
	mergeTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "majortom_merge_total",
		Help: "Total topic merges",
	})

	// duplicateTotal counts removed duplicate constructs
	duplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "majortom_duplicate_removed_total",
		Help: "Total removed duplicate constructs",
	})

	// transactionTotal counts finished transactions by result
	transactionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "majortom_transaction_total",
		Help: "Total finished transactions by result",
	}, []string{"result"}) // "committed", "conflict", "failed" or "rolledback"

	// labelCacheHits counts label cache hits
	labelCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "majortom_label_cache_hits_total",
		Help: "Total label cache hits",
	})

	// labelCacheMisses counts label cache misses
	labelCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "majortom_label_cache_misses_total",
		Help: "Total label cache misses",
	})
)

/*
resultLabel returns the result label of a mutation.
*/
func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
