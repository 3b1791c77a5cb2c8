package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestStandardErrorFormat(t *testing.T) {
	err := NewStandardError(CategoryImport, "MODULE_NOT_FOUND", "No module named x",
		map[string]interface{}{"module": "x", "package": "pkg"})

	msg := err.Error()
	if !strings.HasPrefix(msg, "[IMPORT:MODULE_NOT_FOUND] No module named x {module=x, package=pkg}") {
		t.Errorf("unexpected message: %s", msg)
	}
	if !strings.Contains(msg, "TestStandardErrorFormat") {
		t.Errorf("caller missing from %s", msg)
	}
}

func TestDefectRecover(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err)
		Defect("RANGE_COUNT_MISMATCH", "count disagrees", map[string]interface{}{"count": 3})
		return nil
	}

	err := run()
	if err == nil {
		t.Fatal("expected an error from Defect")
	}
	if !IsDefect(err) {
		t.Errorf("IsDefect(%v) = false", err)
	}
	if !IsDefect(fmt.Errorf("pass failed: %w", err)) {
		t.Error("IsDefect should see through wrapping")
	}
	if !Is(err, CategoryInternal, "RANGE_COUNT_MISMATCH") {
		t.Error("Is() did not match category and code")
	}
}

func TestRecoverRepanicsForeignPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != "boom" {
			t.Errorf("recovered %v, want boom", r)
		}
	}()

	func() {
		var err error
		defer Recover(&err)
		panic("boom")
	}()
}

func TestIsDefectOnOtherCategories(t *testing.T) {
	if IsDefect(ModuleNotFound("x", "")) {
		t.Error("import errors are not defects")
	}
	if IsDefect(nil) {
		t.Error("nil is not a defect")
	}
}
