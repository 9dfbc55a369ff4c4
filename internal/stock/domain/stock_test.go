package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeAdjustments_SumsDuplicatesAndSorts(t *testing.T) {
	merged := MergeAdjustments([]Adjustment{
		{BookID: 9, Quantity: 1},
		{BookID: 3, Quantity: 2},
		{BookID: 9, Quantity: 4},
	})

	require.Equal(t, []Adjustment{
		{BookID: 3, Quantity: 2},
		{BookID: 9, Quantity: 5},
	}, merged)
}

func TestPlanDecrease_AllSatisfiable(t *testing.T) {
	missing, shortages := PlanDecrease(
		map[int64]int64{1: 10, 2: 1},
		[]Adjustment{{BookID: 1, Quantity: 2}, {BookID: 2, Quantity: 1}},
	)

	require.Empty(t, missing)
	require.Empty(t, shortages)
}

func TestPlanDecrease_ReportsEveryFailure(t *testing.T) {
	missing, shortages := PlanDecrease(
		map[int64]int64{1: 3, 2: 0},
		[]Adjustment{
			{BookID: 1, Quantity: 5},
			{BookID: 2, Quantity: 1},
			{BookID: 42, Quantity: 1},
		},
	)

	require.Equal(t, []int64{42}, missing)
	require.Equal(t, []Shortage{
		{BookID: 1, Required: 5, Available: 3},
		{BookID: 2, Required: 1, Available: 0},
	}, shortages)
}

func TestPlanDecrease_ExactQuantityIsNotAShortage(t *testing.T) {
	missing, shortages := PlanDecrease(
		map[int64]int64{1: 5},
		[]Adjustment{{BookID: 1, Quantity: 5}},
	)

	require.Empty(t, missing)
	require.Empty(t, shortages)
}
