package capture

import "testing"

func TestValidator_RejectsAllBlack(t *testing.T) {
	v := Validator{Threshold: 5.0}
	f := grayFrame(100, 100, 0)
	f.Backend = BackendGDI

	berr := v.Check(f)
	if berr == nil {
		t.Fatal("all-black frame must soft-fail")
	}
	if berr.Kind != KindValidation {
		t.Fatalf("expected validation kind, got %s", berr.Kind)
	}
	if berr.Backend != BackendGDI {
		t.Fatalf("failure must carry the producing backend, got %s", berr.Backend)
	}
}

func TestValidator_PassesNormalContent(t *testing.T) {
	v := Validator{Threshold: 5.0}
	if berr := v.Check(grayFrame(100, 100, 128)); berr != nil {
		t.Fatalf("mid-gray frame rejected: %v", berr)
	}
}

func TestValidator_PassesJustAboveThreshold(t *testing.T) {
	v := Validator{Threshold: 5.0}
	if berr := v.Check(grayFrame(10, 10, 5)); berr != nil {
		t.Fatalf("mean exactly at threshold must pass (strict less-than): %v", berr)
	}
	if berr := v.Check(grayFrame(10, 10, 4)); berr == nil {
		t.Fatal("mean below threshold must fail")
	}
}

func TestValidator_ZeroThresholdDisablesCheck(t *testing.T) {
	v := Validator{Threshold: 0}
	if berr := v.Check(grayFrame(10, 10, 0)); berr != nil {
		t.Fatalf("threshold 0 must accept black frames: %v", berr)
	}
}

func TestValidator_EmptyBufferFails(t *testing.T) {
	v := Validator{Threshold: 5.0}
	if berr := v.Check(&Frame{Width: 10, Height: 10}); berr == nil {
		t.Fatal("empty pixel buffer must fail validation")
	}
}
