package amount

import (
	"testing"

	scouterr "github.com/Sonic-Vault/scout-api/internal/errors"
)

func TestToBaseUnitsEVM(t *testing.T) {
	got, err := ToBaseUnits("1.5", EVMDecimals)
	if err != nil {
		t.Fatalf("ToBaseUnits failed: %v", err)
	}
	if got != "1500000000000000000" {
		t.Fatalf("unexpected base units: %s", got)
	}
}

func TestToBaseUnitsSolana(t *testing.T) {
	got, err := ToBaseUnits("1", SolanaDecimals)
	if err != nil {
		t.Fatalf("ToBaseUnits failed: %v", err)
	}
	if got != "1000000000" {
		t.Fatalf("unexpected base units: %s", got)
	}
}

func TestToBaseUnitsRejectsExcessPrecision(t *testing.T) {
	_, err := ToBaseUnits("0.0000000001", SolanaDecimals)
	if !scouterr.IsKind(err, scouterr.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestToBaseUnitsRejectsNegative(t *testing.T) {
	_, err := ToBaseUnits("-1", EVMDecimals)
	if !scouterr.IsKind(err, scouterr.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestFromBaseUnitsTrimsZeros(t *testing.T) {
	got, err := FromBaseUnits("1500000000000000000", EVMDecimals)
	if err != nil {
		t.Fatalf("FromBaseUnits failed: %v", err)
	}
	if got != "1.5" {
		t.Fatalf("unexpected decimal: %s", got)
	}
}

func TestFromBaseUnitsZero(t *testing.T) {
	got, err := FromBaseUnits("0", SolanaDecimals)
	if err != nil {
		t.Fatalf("FromBaseUnits failed: %v", err)
	}
	if got != "0" {
		t.Fatalf("unexpected decimal: %s", got)
	}
}

func TestParseBaseUnitsRejectsDecimal(t *testing.T) {
	if _, err := ParseBaseUnits("1.5"); err == nil {
		t.Fatal("expected error for decimal input")
	}
}
