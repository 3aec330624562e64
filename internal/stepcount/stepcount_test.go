package stepcount

import "testing"

func TestReadMissingIsZero(t *testing.T) {
	dir := t.TempDir()
	if n := Read(dir); n != 0 {
		t.Errorf("Read() on missing file = %d, want 0", n)
	}
}

func TestIncrementIsMonotonic(t *testing.T) {
	dir := t.TempDir()
	for want := 1; want <= 3; want++ {
		n, err := Increment(dir)
		if err != nil {
			t.Fatalf("Increment() error = %v", err)
		}
		if n != want {
			t.Errorf("Increment() = %d, want %d", n, want)
		}
	}
}

func TestResetClearsCounter(t *testing.T) {
	dir := t.TempDir()
	Increment(dir)
	Increment(dir)
	if err := Reset(dir); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if n := Read(dir); n != 0 {
		t.Errorf("Read() after Reset() = %d, want 0", n)
	}
}

func TestTrippedAtThreshold(t *testing.T) {
	if Tripped(2, DefaultThreshold) {
		t.Error("2 should not trip a threshold of 3")
	}
	if !Tripped(3, DefaultThreshold) {
		t.Error("3 should trip a threshold of 3")
	}
	if !Tripped(4, DefaultThreshold) {
		t.Error("4 should trip a threshold of 3")
	}
}

func TestTrippedDefaultsWhenThresholdZero(t *testing.T) {
	if Tripped(DefaultThreshold-1, 0) {
		t.Error("threshold=0 should fall back to DefaultThreshold")
	}
	if !Tripped(DefaultThreshold, 0) {
		t.Error("threshold=0 should fall back to DefaultThreshold")
	}
}
