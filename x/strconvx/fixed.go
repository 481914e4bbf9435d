package strconvx

// FormatFixed renders f with prec decimals by scaled integer rounding. It is
// not IEEE-perfect but is enough for sensor readouts. A negative value that
// rounds to zero loses its sign. NaN renders as strconv does; magnitudes
// beyond maxFixed render as infinities.
func FormatFixed(f float64, prec int) string {
	switch {
	case f != f:
		return "NaN"
	case f > maxFixed:
		return "+Inf"
	case f < -maxFixed:
		return "-Inf"
	}
	if prec < 0 {
		prec = 6
	}
	neg := false
	if f < 0 {
		neg = true
		f = -f
	}
	pow := 1.0
	for i := 0; i < prec; i++ {
		pow *= 10
	}
	intp := uint64(f)
	fracN := uint64((f-float64(intp))*pow + 0.5)
	if fracN >= uint64(pow) {
		intp++
		fracN -= uint64(pow)
	}

	ints := FormatUint(intp, 10)
	if neg && (intp != 0 || fracN != 0) {
		ints = "-" + ints
	}
	if prec == 0 {
		return ints
	}
	fs := FormatUint(fracN, 10)
	if len(fs) < prec {
		z := make([]byte, prec-len(fs))
		for i := range z {
			z[i] = '0'
		}
		fs = string(z) + fs
	}
	return ints + "." + fs
}

// maxFixed is the largest magnitude whose integer part fits a uint64.
const maxFixed = float64(1 << 63)
