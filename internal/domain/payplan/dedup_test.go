package payplan

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insurance/payplan/internal/domain/shared"
)

func newID() uuid.UUID {
	return uuid.New()
}

func recordAt(updated, created time.Time) *FinancialRecord {
	return &FinancialRecord{
		BaseEntity:    shared.BaseEntity{ID: newID(), CreatedAt: created, UpdatedAt: updated},
		LastUpdatedAt: updated,
	}
}

func TestPlanRecordHealing(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no records", func(t *testing.T) {
		plan := PlanRecordHealing(nil)
		assert.Nil(t, plan.Survivor)
		assert.False(t, plan.NeedsHealing())
	})

	t.Run("single record is kept", func(t *testing.T) {
		r := recordAt(base, base)
		plan := PlanRecordHealing([]*FinancialRecord{r})
		assert.Same(t, r, plan.Survivor)
		assert.False(t, plan.NeedsHealing())
	})

	t.Run("newest last_updated_at survives", func(t *testing.T) {
		for k := 2; k <= 6; k++ {
			records := make([]*FinancialRecord, 0, k)
			for i := 0; i < k; i++ {
				records = append(records, recordAt(base.Add(time.Duration(i)*time.Minute), base))
			}
			newest := records[k-1]
			// shuffle the newest into the middle
			records[0], records[k-1] = records[k-1], records[0]

			plan := PlanRecordHealing(records)

			require.NotNil(t, plan.Survivor)
			assert.Same(t, newest, plan.Survivor)
			assert.Len(t, plan.Losers, k-1)
			for _, l := range plan.Losers {
				assert.NotEqual(t, newest.ID, l.ID)
			}
		}
	})

	t.Run("ties break on created_at", func(t *testing.T) {
		older := recordAt(base, base)
		younger := recordAt(base, base.Add(time.Second))

		plan := PlanRecordHealing([]*FinancialRecord{older, younger})

		assert.Same(t, younger, plan.Survivor)
	})

	t.Run("input slice is not reordered", func(t *testing.T) {
		a := recordAt(base, base)
		b := recordAt(base.Add(time.Hour), base)
		input := []*FinancialRecord{a, b}

		PlanRecordHealing(input)

		assert.Same(t, a, input[0])
	})
}

func TestPlanInstallmentHealing(t *testing.T) {
	mk := func(n int) *Installment {
		return &Installment{BaseEntity: shared.BaseEntity{ID: newID()}, Number: n}
	}

	t.Run("no duplicates", func(t *testing.T) {
		list := []*Installment{mk(1), mk(2), mk(3)}
		plan := PlanInstallmentHealing(list)
		assert.False(t, plan.NeedsHealing())
		assert.Len(t, plan.Kept, 3)
	})

	t.Run("first occurrence wins", func(t *testing.T) {
		first2 := mk(2)
		second2 := mk(2)
		third2 := mk(2)
		list := []*Installment{mk(1), first2, second2, mk(3), third2}

		plan := PlanInstallmentHealing(list)

		require.True(t, plan.NeedsHealing())
		require.Len(t, plan.Kept, 3)
		assert.Same(t, first2, plan.Kept[1])
		assert.ElementsMatch(t, []*Installment{second2, third2}, plan.Duplicates)

		seen := map[int]bool{}
		for _, inst := range plan.Kept {
			assert.False(t, seen[inst.Number], "number %d repeated", inst.Number)
			seen[inst.Number] = true
		}
	})
}
