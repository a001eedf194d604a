package pos

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// VendorTime unmarshals the POS API's "/Date(milliseconds)/" timestamp
// encoding. Null, empty and malformed values decode to the zero time.
type VendorTime struct {
	time.Time
}

func (v *VendorTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("vendor time: %w", err)
	}
	t, ok := ParseVendorDate(s)
	if ok {
		v.Time = t
	}
	return nil
}

// ParseVendorDate converts "/Date(ms)/" into a UTC time. The boolean is false
// for empty, "null" or malformed input.
func ParseVendorDate(s string) (time.Time, bool) {
	if s == "" || s == "null" {
		return time.Time{}, false
	}
	if len(s) < 8 || s[:6] != "/Date(" || s[len(s)-2:] != ")/" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(s[6:len(s)-2], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// Ptr returns the time as a pointer, nil when unset.
func (v VendorTime) Ptr() *time.Time {
	if v.IsZero() {
		return nil
	}
	t := v.Time
	return &t
}
