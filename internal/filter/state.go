package filter

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// AmountBucket is one selectable total-amount range in the board UI.
// Amounts are minor currency units. Unbounded marks the open-ended top
// bucket, which removes the upper bound entirely when selected.
type AmountBucket struct {
	Code      string
	Min       int
	Max       int
	Unbounded bool
}

// AmountBuckets is the fixed set of ranges offered by the board.
var AmountBuckets = []AmountBucket{
	{Code: "under_10k", Min: 0, Max: 10000},
	{Code: "10k_30k", Min: 10000, Max: 30000},
	{Code: "30k_50k", Min: 30000, Max: 50000},
	{Code: "over_50k", Min: 50000, Unbounded: true},
}

func bucketByCode(code string) (AmountBucket, bool) {
	for _, b := range AmountBuckets {
		if b.Code == code {
			return b, true
		}
	}
	return AmountBucket{}, false
}

// State is the board's filter panel as the user left it. It drives both
// the subscription payload sent over the channel and the local
// accept/reject decision for unsolicited pushes, so the two must never
// diverge.
type State struct {
	Statuses       []string
	TableNumbers   []int
	AmountBuckets  []string
	PaymentMethods []string
	DateFrom       time.Time
	DateTo         time.Time
}

// Active reports whether any filter dimension is set.
func (s State) Active() bool {
	return len(s.Statuses) > 0 ||
		len(s.TableNumbers) > 0 ||
		len(s.AmountBuckets) > 0 ||
		len(s.PaymentMethods) > 0 ||
		!s.DateFrom.IsZero() ||
		!s.DateTo.IsZero()
}

// AmountBounds resolves the selected buckets to outer bounds: min of
// mins, max of maxes. Selecting the unbounded bucket removes the upper
// bound. Both results are nil when no bucket is selected.
func (s State) AmountBounds() (min *int, max *int) {
	var (
		haveMin, haveMax bool
		lo, hi           int
		unbounded        bool
	)

	for _, code := range s.AmountBuckets {
		bucket, ok := bucketByCode(code)
		if !ok {
			continue
		}
		if !haveMin || bucket.Min < lo {
			lo = bucket.Min
			haveMin = true
		}
		if bucket.Unbounded {
			unbounded = true
			continue
		}
		if !haveMax || bucket.Max > hi {
			hi = bucket.Max
			haveMax = true
		}
	}

	if haveMin {
		min = &lo
	}
	if haveMax && !unbounded {
		max = &hi
	}
	return min, max
}

// Query renders the state as REST list parameters. The server applies
// the same semantics the Engine applies locally.
func (s State) Query() url.Values {
	q := url.Values{}

	if len(s.Statuses) > 0 {
		q.Set("statuses", strings.Join(s.Statuses, ","))
	}
	if len(s.TableNumbers) > 0 {
		nums := make([]string, 0, len(s.TableNumbers))
		for _, n := range s.TableNumbers {
			nums = append(nums, strconv.Itoa(n))
		}
		q.Set("table_numbers", strings.Join(nums, ","))
	}
	if min, max := s.AmountBounds(); min != nil || max != nil {
		if min != nil {
			q.Set("min_amount", strconv.Itoa(*min))
		}
		if max != nil {
			q.Set("max_amount", strconv.Itoa(*max))
		}
	}
	if len(s.PaymentMethods) > 0 {
		q.Set("payment_methods", strings.Join(s.PaymentMethods, ","))
	}
	if !s.DateFrom.IsZero() {
		q.Set("date_from", s.DateFrom.Format("2006-01-02"))
	}
	if !s.DateTo.IsZero() {
		q.Set("date_to", s.DateTo.Format("2006-01-02"))
	}

	return q
}
