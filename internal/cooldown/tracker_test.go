package cooldown

import "testing"

func TestMemoryTracker_Gate(t *testing.T) {
	tr := NewMemoryTracker(1000)

	if !tr.CanGenerate("BTCUSDT", 5000) {
		t.Error("unseen symbol should be allowed")
	}

	tr.Record("BTCUSDT", 5000)

	if tr.CanGenerate("BTCUSDT", 5500) {
		t.Error("inside cooldown window should be blocked")
	}
	if !tr.CanGenerate("BTCUSDT", 6000) {
		t.Error("at exactly the interval boundary should be allowed")
	}
	if !tr.CanGenerate("ETHUSDT", 5500) {
		t.Error("other symbols are independent")
	}
}

func TestMemoryTracker_RecordResets(t *testing.T) {
	tr := NewMemoryTracker(1000)

	tr.Record("BTCUSDT", 5000)
	tr.Record("BTCUSDT", 7000)

	if tr.CanGenerate("BTCUSDT", 7500) {
		t.Error("second Record should restart the window")
	}
	if !tr.CanGenerate("BTCUSDT", 8000) {
		t.Error("window from the latest Record should have elapsed")
	}
}
