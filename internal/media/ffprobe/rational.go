package ffprobe

import (
	"fmt"
	"strconv"
	"strings"
)

// Rational is an exact num/den ratio as reported by ffprobe.
type Rational struct {
	Num int64
	Den int64
}

// ParseRational parses "30000/1001" or a bare integer such as "25".
func ParseRational(value string) (Rational, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Rational{}, fmt.Errorf("parse rational: empty value")
	}
	numText, denText, found := strings.Cut(value, "/")
	if !found {
		denText = "1"
	}
	num, err := strconv.ParseInt(strings.TrimSpace(numText), 10, 64)
	if err != nil {
		return Rational{}, fmt.Errorf("parse rational %q: %w", value, err)
	}
	den, err := strconv.ParseInt(strings.TrimSpace(denText), 10, 64)
	if err != nil {
		return Rational{}, fmt.Errorf("parse rational %q: %w", value, err)
	}
	return Rational{Num: num, Den: den}, nil
}

// Valid reports whether the ratio is strictly positive.
func (r Rational) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// Float64 returns the ratio as a float, or 0 when invalid.
func (r Rational) Float64() float64 {
	if !r.Valid() {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// String renders the ratio in ffmpeg's num/den notation.
func (r Rational) String() string {
	return strconv.FormatInt(r.Num, 10) + "/" + strconv.FormatInt(r.Den, 10)
}
