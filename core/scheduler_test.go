package core

import "testing"

func resetScheduler() {
	ResetTimers()
	SetTime(0)
	currentTime = 0
}

func TestTimerConversions(t *testing.T) {
	testCases := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"us", TimerFromUS(250), 250},
		{"ms", TimerFromMS(250), 250000},
		{"ms_large", TimerFromMS(3600000), 3600000000},
		{"to_us", TimerToUS(1500), 1500},
	}

	for _, tc := range testCases {
		if tc.got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, tc.got)
		}
	}
}

func TestTimersDispatchInOrder(t *testing.T) {
	resetScheduler()
	defer resetScheduler()

	var order []int
	mk := func(id int, wake uint32) *Timer {
		return &Timer{WakeTime: wake, Handler: func(*Timer) uint8 {
			order = append(order, id)
			return SF_DONE
		}}
	}

	ScheduleTimer(mk(3, 300))
	ScheduleTimer(mk(1, 100))
	ScheduleTimer(mk(2, 100))
	ScheduleTimer(mk(4, 400))

	SetTime(150)
	ProcessTimers()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("Expected [1 2] at t=150, got %v", order)
	}

	SetTime(400)
	ProcessTimers()
	if len(order) != 4 || order[2] != 3 || order[3] != 4 {
		t.Errorf("Expected [1 2 3 4], got %v", order)
	}
}

func TestTimerReschedule(t *testing.T) {
	resetScheduler()
	defer resetScheduler()

	runs := 0
	timer := &Timer{WakeTime: 10, Handler: func(tm *Timer) uint8 {
		runs++
		if runs == 3 {
			return SF_DONE
		}
		tm.WakeTime += 10
		return SF_RESCHEDULE
	}}
	ScheduleTimer(timer)

	for now := uint32(0); now <= 100; now += 5 {
		SetTime(now)
		ProcessTimers()
	}
	if runs != 3 {
		t.Errorf("Expected 3 runs, got %d", runs)
	}
}

func TestCancelTimer(t *testing.T) {
	resetScheduler()
	defer resetScheduler()

	fired := map[string]bool{}
	a := &Timer{WakeTime: 10, Handler: func(*Timer) uint8 { fired["a"] = true; return SF_DONE }}
	b := &Timer{WakeTime: 20, Handler: func(*Timer) uint8 { fired["b"] = true; return SF_DONE }}
	c := &Timer{WakeTime: 30, Handler: func(*Timer) uint8 { fired["c"] = true; return SF_DONE }}
	ScheduleTimer(a)
	ScheduleTimer(b)
	ScheduleTimer(c)

	CancelTimer(b)
	CancelTimer(a)
	CancelTimer(b) // not queued any more

	SetTime(100)
	ProcessTimers()
	if fired["a"] || fired["b"] || !fired["c"] {
		t.Errorf("Unexpected firing %v", fired)
	}
}

func TestUptimeCountsFromInit(t *testing.T) {
	SetTime(1000)
	TimerInit()
	SetTime(5000)
	if up := GetUptime(); up != 4000 {
		t.Errorf("Expected uptime 4000, got %d", up)
	}
	SetTime(0)
	TimerInit()
}
