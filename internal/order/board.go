package order

import "sort"

// Bucket is one kanban column on the admin board.
type Bucket string

const (
	BucketAccepted Bucket = "ACCEPTED"
	BucketCooking  Bucket = "COOKING"
	BucketReady    Bucket = "READY"
	BucketCanceled Bucket = "CANCELED"
)

// Buckets lists the columns in display order.
var Buckets = []Bucket{BucketAccepted, BucketCooking, BucketReady, BucketCanceled}

// BucketFor maps an order status to its column. The mapping is fixed;
// statuses the board does not recognize land in ACCEPTED.
func BucketFor(status string) Bucket {
	switch status {
	case StatusCooking:
		return BucketCooking
	case StatusReady, StatusServed, StatusClosed:
		return BucketReady
	case StatusCanceled, StatusRefunded:
		return BucketCanceled
	case StatusDraft, StatusPaymentPending, StatusPaid, StatusAccepted:
		return BucketAccepted
	default:
		return BucketAccepted
	}
}

// Project derives the board columns from the flat authoritative
// collection. Every column is present even when empty, and each is
// re-sorted newest first on every projection.
func Project(orders []*Order) map[Bucket][]*Order {
	board := make(map[Bucket][]*Order, len(Buckets))
	for _, b := range Buckets {
		board[b] = []*Order{}
	}

	for _, o := range orders {
		b := BucketFor(o.Status)
		board[b] = append(board[b], o)
	}

	for _, b := range Buckets {
		column := board[b]
		sort.SliceStable(column, func(i, j int) bool {
			return column[i].CreatedAt.After(column[j].CreatedAt)
		})
	}

	return board
}
