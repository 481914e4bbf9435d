package mpr121_test

import (
	"errors"
	"testing"

	"ringlight-go/drivers/mpr121"
	"ringlight-go/drivers/mpr121/mpr121test"
)

func TestConfigure_StartsRunMode(t *testing.T) {
	chip := mpr121test.New(0x5B)
	d := mpr121.New(chip)
	if err := d.Configure(mpr121.Config{Address: 0x5B}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if chip.Resets() != 1 {
		t.Fatalf("resets = %d, want 1", chip.Resets())
	}
	if got := chip.Reg(0x5E); got != 0x8C {
		t.Fatalf("ECR = %#x, want 0x8c", got)
	}
	if got := chip.Reg(0x41); got != 12 {
		t.Fatalf("touch threshold = %d, want 12", got)
	}
	if got := chip.Reg(0x42 + 2*11); got != 6 {
		t.Fatalf("release threshold ele11 = %d, want 6", got)
	}
}

func TestConfigure_WrongAddress(t *testing.T) {
	chip := mpr121test.New(0x5A)
	d := mpr121.New(chip)
	err := d.Configure(mpr121.Config{Address: 0x5B})
	if !errors.Is(err, mpr121test.ErrNack) {
		t.Fatalf("err = %v, want nack", err)
	}
}

func TestConfigure_IdentityMismatch(t *testing.T) {
	chip := mpr121test.New(mpr121.Address)
	chip.SetReg(0x5D, 0x00)
	d := mpr121.New(&noReset{chip})
	if err := d.Configure(mpr121.Config{}); !errors.Is(err, mpr121.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

// noReset swallows the soft reset command.
type noReset struct{ *mpr121test.Chip }

func (n *noReset) Tx(addr uint16, w, r []byte) error {
	if len(w) == 2 && w[0] == 0x80 {
		return nil
	}
	return n.Chip.Tx(addr, w, r)
}

func TestTouched_MasksToTwelveBits(t *testing.T) {
	chip := mpr121test.New(mpr121.Address)
	d := mpr121.New(chip)
	if err := d.Configure(mpr121.Config{}); err != nil {
		t.Fatal(err)
	}
	chip.Touch(1<<0 | 1<<5 | 1<<11)
	chip.SetReg(0x01, chip.Reg(0x01)|0x80) // over-current flag
	got, err := d.Touched()
	if err != nil {
		t.Fatal(err)
	}
	if want := uint16(1<<0 | 1<<5 | 1<<11); got != want {
		t.Fatalf("Touched = %#x, want %#x", got, want)
	}
}

func TestSetThresholds_RestoresRunMode(t *testing.T) {
	chip := mpr121test.New(mpr121.Address)
	d := mpr121.New(chip)
	if err := d.Configure(mpr121.Config{Electrodes: 8}); err != nil {
		t.Fatal(err)
	}
	if err := d.SetThresholds(20, 10); err != nil {
		t.Fatal(err)
	}
	if chip.Reg(0x41+2*3) != 20 || chip.Reg(0x42+2*3) != 10 {
		t.Fatal("thresholds not written")
	}
	if got := chip.Reg(0x5E); got != 0x88 {
		t.Fatalf("ECR = %#x, want 0x88", got)
	}
}

func TestChannelReads(t *testing.T) {
	chip := mpr121test.New(mpr121.Address)
	d := mpr121.New(chip)
	if err := d.Configure(mpr121.Config{}); err != nil {
		t.Fatal(err)
	}
	chip.SetReg(0x04+2*2, 0xFF)
	chip.SetReg(0x05+2*2, 0xFE) // only two high bits are data
	if v, err := d.FilteredData(2); err != nil || v != 0x2FF {
		t.Fatalf("FilteredData = %#x, %v", v, err)
	}
	chip.SetReg(0x1E+2, 0x40)
	if v, err := d.Baseline(2); err != nil || v != 0x100 {
		t.Fatalf("Baseline = %#x, %v", v, err)
	}
	if _, err := d.FilteredData(12); !errors.Is(err, mpr121.ErrChannel) {
		t.Fatalf("err = %v", err)
	}
}
