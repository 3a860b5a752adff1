package sched

import (
	"reflect"
	"testing"
)

func TestAfterRunsAtDueTickInOrder(t *testing.T) {
	s := New(100)
	var got []string
	s.After("b", 2, func() { got = append(got, "b@2") })
	s.After("a", 0, func() { got = append(got, "a@0") })
	s.After("c", 2, func() { got = append(got, "c@2") })

	for i := 0; i < 3; i++ {
		s.Advance()
	}
	want := []string{"a@0", "b@2", "c@2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if s.Now() != 103 || s.Pending() != 0 {
		t.Fatalf("now=%d pending=%d", s.Now(), s.Pending())
	}
}

func TestRepeatCoversBothEnds(t *testing.T) {
	s := New(0)
	var ticks []uint64
	s.Repeat("fx", 10, 4, func(i int) { ticks = append(ticks, s.Now()) })
	for s.Pending() > 0 {
		s.Advance()
	}
	want := []uint64{0, 10, 20, 30}
	if !reflect.DeepEqual(ticks, want) {
		t.Fatalf("got %v want %v", ticks, want)
	}
}

func TestEveryKeepsRescheduling(t *testing.T) {
	s := New(0)
	var ticks []uint64
	s.Every("backup", 5, 3, func() { ticks = append(ticks, s.Now()) })
	for i := 0; i < 15; i++ {
		s.Advance()
	}
	want := []uint64{5, 8, 11, 14}
	if !reflect.DeepEqual(ticks, want) {
		t.Fatalf("got %v want %v", ticks, want)
	}
	if s.Pending() != 1 {
		t.Fatalf("pending=%d want 1", s.Pending())
	}
}

func TestPanicIsRecovered(t *testing.T) {
	s := New(0)
	var recovered []string
	s.OnPanic = func(name string, v any) { recovered = append(recovered, name) }
	ran := false
	s.After("boom", 0, func() { panic("render failed") })
	s.After("after", 0, func() { ran = true })
	s.Advance()
	if !ran {
		t.Fatalf("task after a panicking task did not run")
	}
	if len(recovered) != 1 || recovered[0] != "boom" {
		t.Fatalf("recovered=%v", recovered)
	}
}

func TestTaskScheduledDuringTickForSameTickRuns(t *testing.T) {
	s := New(0)
	order := []string{}
	s.After("outer", 0, func() {
		order = append(order, "outer")
		s.After("inner", 0, func() { order = append(order, "inner") })
	})
	s.Advance()
	if !reflect.DeepEqual(order, []string{"outer", "inner"}) {
		t.Fatalf("order=%v", order)
	}
}
