package order

import (
	"reflect"
	"testing"
	"time"
)

func testOrder(id string) *Order {
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	return &Order{
		ID:           id,
		RestaurantID: "resto-1",
		Status:       StatusAccepted,
		TableNumber:  4,
		TotalAmount:  15000,
		Items: []Item{
			{ID: id + "-i1", Name: "Ramen", Quantity: 1, UnitPrice: 9000, ReadinessStatus: ReadinessCooking},
			{ID: id + "-i2", Name: "Gyoza", Quantity: 2, UnitPrice: 3000, ReadinessStatus: ReadinessCooking},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestStoreSetGet(t *testing.T) {
	store := NewStore()

	t.Run("getFromEmptyStore", func(t *testing.T) {
		if got := store.Get("o-1"); got != nil {
			t.Errorf("Get() = %+v, want nil", got)
		}
	})

	t.Run("setAndGet", func(t *testing.T) {
		store.Set(testOrder("o-1"))
		if got := store.Get("o-1"); got == nil || got.ID != "o-1" {
			t.Errorf("Get() = %+v, want order o-1", got)
		}
	})

	t.Run("setWithoutIDIsIgnored", func(t *testing.T) {
		store.Set(&Order{})
		if store.Count() != 1 {
			t.Errorf("Count() = %d, want 1", store.Count())
		}
	})
}

func TestStorePatchStatusIsolation(t *testing.T) {
	store := NewStore()
	store.Set(testOrder("o-1"))

	before := store.Get("o-1")
	itemsBefore := append([]Item(nil), before.Items...)
	tableBefore := before.TableNumber
	totalBefore := before.TotalAmount

	updated := time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC)
	if !store.PatchStatus("o-1", StatusCooking, updated) {
		t.Fatal("PatchStatus() = false, want true")
	}

	after := store.Get("o-1")
	if after.Status != StatusCooking {
		t.Errorf("Status = %q, want %q", after.Status, StatusCooking)
	}
	if !after.UpdatedAt.Equal(updated) {
		t.Errorf("UpdatedAt = %s, want %s", after.UpdatedAt, updated)
	}
	if !reflect.DeepEqual(after.Items, itemsBefore) {
		t.Errorf("Items changed by status patch: %+v, want %+v", after.Items, itemsBefore)
	}
	if after.TableNumber != tableBefore || after.TotalAmount != totalBefore {
		t.Error("status patch touched unrelated fields")
	}
}

func TestStorePatchStatusUnknownOrder(t *testing.T) {
	store := NewStore()

	if store.PatchStatus("missing", StatusCooking, time.Now()) {
		t.Error("PatchStatus() = true for unknown order, want false")
	}
}

func TestStorePatchItemReadiness(t *testing.T) {
	tests := []struct {
		name        string
		orderID     string
		itemID      string
		wantApplied bool
	}{
		{
			name:        "knownItem",
			orderID:     "o-1",
			itemID:      "o-1-i2",
			wantApplied: true,
		},
		{
			name:        "unknownItem",
			orderID:     "o-1",
			itemID:      "o-1-i9",
			wantApplied: false,
		},
		{
			name:        "unknownOrder",
			orderID:     "o-9",
			itemID:      "o-1-i1",
			wantApplied: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore()
			store.Set(testOrder("o-1"))
			snapshot := *store.Get("o-1")
			itemsSnapshot := append([]Item(nil), snapshot.Items...)

			applied := store.PatchItemReadiness(tt.orderID, tt.itemID, ReadinessReady)
			if applied != tt.wantApplied {
				t.Fatalf("PatchItemReadiness() = %v, want %v", applied, tt.wantApplied)
			}

			after := store.Get("o-1")
			if !tt.wantApplied {
				// A miss must leave the collection completely
				// unchanged.
				if !reflect.DeepEqual(after.Items, itemsSnapshot) {
					t.Errorf("Items = %+v, want unchanged %+v", after.Items, itemsSnapshot)
				}
				return
			}

			for _, item := range after.Items {
				want := ReadinessCooking
				if item.ID == tt.itemID {
					want = ReadinessReady
				}
				if item.ReadinessStatus != want {
					t.Errorf("item %s readiness = %q, want %q", item.ID, item.ReadinessStatus, want)
				}
			}
		})
	}
}

func TestStoreReset(t *testing.T) {
	store := NewStore()
	store.Set(testOrder("o-1"))
	store.Set(testOrder("o-2"))

	store.Reset([]Order{*testOrder("o-3")})

	if store.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", store.Count())
	}
	if store.Get("o-1") != nil || store.Get("o-2") != nil {
		t.Error("Reset() kept discarded orders")
	}
	if store.Get("o-3") == nil {
		t.Error("Reset() missing the fresh order")
	}
}

func TestStoreRemove(t *testing.T) {
	store := NewStore()
	store.Set(testOrder("o-1"))

	store.Remove("o-1")
	store.Remove("o-404")

	if store.Count() != 0 {
		t.Errorf("Count() = %d, want 0", store.Count())
	}
}
