package payplan

import (
	"bytes"
	"sort"
)

// RecordHealingPlan says which of a subject's records survives
type RecordHealingPlan struct {
	Survivor *FinancialRecord
	Losers   []*FinancialRecord
}

// NeedsHealing reports whether duplicate records must be deleted
func (p RecordHealingPlan) NeedsHealing() bool {
	return len(p.Losers) > 0
}

// PlanRecordHealing keeps the record with the latest LastUpdatedAt. Ties fall
// back to the latest CreatedAt, then the highest ID, so every caller racing on
// the same rows picks the same survivor.
func PlanRecordHealing(records []*FinancialRecord) RecordHealingPlan {
	if len(records) == 0 {
		return RecordHealingPlan{}
	}
	sorted := make([]*FinancialRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.LastUpdatedAt.Equal(b.LastUpdatedAt) {
			return a.LastUpdatedAt.After(b.LastUpdatedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) > 0
	})
	return RecordHealingPlan{Survivor: sorted[0], Losers: sorted[1:]}
}

// InstallmentHealingPlan partitions a loaded list into the rows to keep and
// the duplicates to delete.
type InstallmentHealingPlan struct {
	Kept       []*Installment
	Duplicates []*Installment
}

// NeedsHealing reports whether any installment number was repeated
func (p InstallmentHealingPlan) NeedsHealing() bool {
	return len(p.Duplicates) > 0
}

// PlanInstallmentHealing keeps the first occurrence of every installment
// number in list order.
func PlanInstallmentHealing(installments []*Installment) InstallmentHealingPlan {
	plan := InstallmentHealingPlan{Kept: make([]*Installment, 0, len(installments))}
	seen := make(map[int]struct{}, len(installments))
	for _, inst := range installments {
		if _, dup := seen[inst.Number]; dup {
			plan.Duplicates = append(plan.Duplicates, inst)
			continue
		}
		seen[inst.Number] = struct{}{}
		plan.Kept = append(plan.Kept, inst)
	}
	return plan
}
