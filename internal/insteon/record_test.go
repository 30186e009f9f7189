package insteon

import "testing"

func TestControlFlagsFromByte(t *testing.T) {
	tests := []struct {
		name string
		b    byte
		want ControlFlags
	}{
		{
			name: "in-use controller with more records",
			b:    0b1101_0000, // in-use, controller, bit4 set = not HWM
			want: ControlFlags{InUse: true, Controller: true, HighWaterMark: false},
		},
		{
			name: "in-use responder with more records",
			b:    0b1001_0000,
			want: ControlFlags{InUse: true, Controller: false, HighWaterMark: false},
		},
		{
			name: "empty high-water-mark slot",
			b:    0b0000_0000, // bit4 clear marks the terminator
			want: ControlFlags{InUse: false, HighWaterMark: true},
		},
		{
			name: "reserved bits preserved",
			b:    0b1011_1000,
			want: ControlFlags{InUse: true, Bit5: true, Bit4: true, HighWaterMark: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ControlFlagsFromByte(tt.b)
			if got != tt.want {
				t.Errorf("ControlFlagsFromByte(%08b) = %+v, want %+v", tt.b, got, tt.want)
			}
			if back := got.Byte(); back != tt.b {
				t.Errorf("Byte() = %08b, want %08b", back, tt.b)
			}
		})
	}
}

func TestRecord_IsHighWaterMark(t *testing.T) {
	rec := Record{MemAddr: 0x0FEF, Flags: ControlFlagsFromByte(0x00)}
	if !rec.IsHighWaterMark() {
		t.Error("record with clear bit 4 should be the high-water mark")
	}

	rec = Record{MemAddr: 0x0FFF, Flags: ControlFlagsFromByte(0xD0)}
	if rec.IsHighWaterMark() {
		t.Error("record with set bit 4 should not be the high-water mark")
	}
}

func TestMultipleStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []ResponseStatus
		want     ResponseStatus
	}{
		{"empty", nil, StatusUnsent},
		{"all success", []ResponseStatus{StatusSuccess, StatusSuccess}, StatusSuccess},
		{"failure dominates", []ResponseStatus{StatusSuccess, StatusFailure, StatusTimeout}, StatusFailure},
		{"timeout over unsent", []ResponseStatus{StatusUnsent, StatusTimeout}, StatusTimeout},
		{"unsent downgrades success", []ResponseStatus{StatusSuccess, StatusUnsent}, StatusUnsent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MultipleStatus(tt.statuses...); got != tt.want {
				t.Errorf("MultipleStatus(%v) = %v, want %v", tt.statuses, got, tt.want)
			}
		})
	}
}
